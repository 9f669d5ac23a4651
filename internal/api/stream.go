package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"globe-flight/internal/flight"
	"globe-flight/internal/sim"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	EnableCompression: false,
	CheckOrigin:       func(r *http.Request) bool { return true },
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ctx := r.Context()
	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			b, _ := json.Marshal(st)
			fmt.Fprintf(w, "event: state\n")
			fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

// streamWS sends a snapshot per tick and accepts control inputs on the
// same connection. Snapshots are JSON text frames, or msgpack binary
// frames with ?format=msgpack. Inputs may be sent either way.
func (s *Server) streamWS(w http.ResponseWriter, r *http.Request) {
	binary := r.URL.Query().Get("format") == "msgpack"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.lg.Warn("unable to upgrade websocket", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		defer cancel()
		s.readInputs(conn, r)
	}()

	ch, unsub := s.eng.Subscribe(ctx)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case st, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSnapshot(conn, st, binary); err != nil {
				s.lg.Debug("websocket write", "error", err)
				return
			}
		}
	}
}

func writeSnapshot(conn *websocket.Conn, st sim.Snapshot, binary bool) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if !binary {
		return conn.WriteJSON(st)
	}
	b, err := msgpack.Marshal(st)
	if err != nil {
		return fmt.Errorf("snapshot encode: %w", err)
	}
	return conn.WriteMessage(websocket.BinaryMessage, b)
}

// readInputs forwards control inputs until the connection closes.
func (s *Server) readInputs(conn *websocket.Conn, r *http.Request) {
	for {
		ty, b, err := conn.ReadMessage()
		if err != nil {
			var cerr *websocket.CloseError
			if !errors.As(err, &cerr) {
				s.lg.Debug("websocket read", "error", err)
			}
			return
		}

		var in flight.ControlInput
		switch ty {
		case websocket.TextMessage:
			err = json.Unmarshal(b, &in)
		case websocket.BinaryMessage:
			err = msgpack.Unmarshal(b, &in)
		default:
			continue
		}
		if err != nil {
			s.lg.Debug("websocket input", "error", err)
			continue
		}

		if !s.limiter.Allow(r) {
			s.metrics.ControlRateLimited()
			continue
		}
		_ = s.eng.Submit(sim.ControlCommand{At: time.Now(), Input: in})
	}
}
