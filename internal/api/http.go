package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"globe-flight/internal/airports"
	"globe-flight/internal/camera"
	"globe-flight/internal/flight"
	"globe-flight/internal/geo"
	"globe-flight/internal/illum"
	"globe-flight/internal/log"
	"globe-flight/internal/metrics"
	"globe-flight/internal/sim"
)

// Options configures a Server. The zero value serves without an airport
// registry, metrics or input rate limiting.
type Options struct {
	Airports *airports.Registry
	Metrics  *metrics.Metrics
	Logger   *log.Logger
	// InputRPS and InputBurst limit control inputs per client address.
	InputRPS   float64
	InputBurst int
}

type Server struct {
	eng      *sim.Engine
	airports *airports.Registry
	metrics  *metrics.Metrics
	limiter  *IPRateLimiter
	lg       *log.Logger
	mux      *http.ServeMux
}

func NewServer(eng *sim.Engine, opts Options) *Server {
	s := &Server{
		eng:      eng,
		airports: opts.Airports,
		metrics:  opts.Metrics,
		lg:       opts.Logger.With("component", "api"),
		mux:      http.NewServeMux(),
	}
	if opts.InputRPS > 0 {
		s.limiter = NewIPRateLimiter(rate.Limit(opts.InputRPS), opts.InputBurst)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.metrics.Middleware(s.mux) }

func (s *Server) routes() {
	s.mux.HandleFunc("/health", s.health)
	s.mux.HandleFunc("/state", s.state)
	s.mux.HandleFunc("/aircraft", s.aircraft)
	s.mux.HandleFunc("/airports", s.airportList)
	s.mux.HandleFunc("/airports/{ident}", s.airport)
	s.mux.HandleFunc("/track", s.trackGeoJSON)
	s.mux.HandleFunc("/track.bin", s.trackArchive)
	s.mux.Handle("/metrics", s.metrics.Handler())

	s.mux.HandleFunc("/command/takeoff", s.takeoffCmd)
	s.mux.HandleFunc("/command/control", s.controlCmd)
	s.mux.HandleFunc("/command/view", s.viewCmd)
	s.mux.HandleFunc("/command/next-view", s.nextViewCmd)
	s.mux.HandleFunc("/command/lighting", s.lightingCmd)
	s.mux.HandleFunc("/command/land", s.landCmd)

	s.mux.HandleFunc("/stream", s.streamSSE)
	s.mux.HandleFunc("/ws", s.streamWS)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) state(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	st, err := s.eng.GetState(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	writeJSON(w, st)
}

func (s *Server) aircraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	specs := make([]flight.Spec, 0, len(flight.AircraftTypes))
	for _, t := range flight.AircraftTypes {
		sp, _ := flight.SpecFor(t)
		specs = append(specs, sp)
	}
	writeJSON(w, specs)
}

func (s *Server) airportList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	list := []airports.Airport{}
	if s.airports != nil {
		list = s.airports.All()
	}
	writeJSON(w, list)
}

func (s *Server) airport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	ap, err := s.lookupAirport(r.PathValue("ident"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, ap)
}

func (s *Server) lookupAirport(ident string) (airports.Airport, error) {
	if s.airports == nil {
		return airports.Airport{}, fmt.Errorf("%q: %w", ident, airports.ErrUnknownAirport)
	}
	return s.airports.Lookup(ident)
}

func (s *Server) trackGeoJSON(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	tolerance := 0.0
	if v := r.URL.Query().Get("tolerance"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 0) {
			http.Error(w, "invalid tolerance", http.StatusBadRequest)
			return
		}
		tolerance = f
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	tr, err := s.eng.GetTrack(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	if err := json.NewEncoder(w).Encode(tr.GeoJSON(tolerance)); err != nil {
		s.lg.Warn("track encode", "error", err)
	}
}

func (s *Server) trackArchive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "GET only", http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	tr, err := s.eng.GetTrack(ctx)
	if err != nil {
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}
	w.Header().Set("Content-Type", "application/zstd")
	w.Header().Set("Content-Disposition", `attachment; filename="track.bin"`)
	if err := tr.Save(w); err != nil {
		s.lg.Warn("track archive", "error", err)
	}
}

func (s *Server) takeoffCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Aircraft    string        `json:"aircraft"`
		From        *geo.Position `json:"from,omitempty"`
		To          *geo.Position `json:"to,omitempty"`
		FromAirport string        `json:"fromAirport,omitempty"`
		ToAirport   string        `json:"toAirport,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	t, err := flight.ParseAircraftType(body.Aircraft)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	from, err := s.resolvePosition(body.From, body.FromAirport)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if from == nil {
		http.Error(w, "from or fromAirport required", http.StatusBadRequest)
		return
	}
	to, err := s.resolvePosition(body.To, body.ToAirport)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	err = s.eng.Takeoff(ctx, sim.TakeoffCommand{At: time.Now(), Aircraft: t, From: *from, To: to})
	switch {
	case errors.Is(err, flight.ErrNoAircraftSelected):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, sim.ErrQueueFull):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusRequestTimeout)
		return
	}

	writeJSON(w, map[string]any{"status": "accepted", "type": "takeoff", "aircraft": t.String()})
}

// resolvePosition prefers the airport ident when both are given. It
// returns nil if neither is.
func (s *Server) resolvePosition(p *geo.Position, ident string) (*geo.Position, error) {
	if ident != "" {
		ap, err := s.lookupAirport(ident)
		if err != nil {
			return nil, err
		}
		pos := ap.Position()
		return &pos, nil
	}
	return p, nil
}

func (s *Server) controlCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if !s.limiter.Allow(r) {
		s.metrics.ControlRateLimited()
		http.Error(w, "too many control inputs", http.StatusTooManyRequests)
		return
	}

	var in flight.ControlInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	s.submit(w, sim.ControlCommand{At: time.Now(), Input: in})
}

func (s *Server) viewCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		View    camera.View `json:"view"`
		Animate *bool       `json:"animate,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid view", http.StatusBadRequest)
		return
	}
	animate := body.Animate == nil || *body.Animate
	s.submit(w, sim.SetViewCommand{At: time.Now(), View: body.View, Animate: animate})
}

func (s *Server) nextViewCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.submit(w, sim.NextViewCommand{At: time.Now()})
}

func (s *Server) lightingCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		Mode illum.Mode `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid mode", http.StatusBadRequest)
		return
	}
	s.submit(w, sim.LightingCommand{At: time.Now(), Mode: body.Mode})
}

func (s *Server) landCmd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	s.submit(w, sim.LandCommand{At: time.Now()})
}

func (s *Server) submit(w http.ResponseWriter, cmd sim.Command) {
	if err := s.eng.Submit(cmd); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, map[string]any{"status": "accepted", "type": string(cmd.Type())})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
