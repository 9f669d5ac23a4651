package api

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/vmihailenco/msgpack/v5"

	"globe-flight/internal/airports"
	"globe-flight/internal/flight"
	"globe-flight/internal/log"
	"globe-flight/internal/metrics"
	"globe-flight/internal/sim"
	"globe-flight/internal/track"
)

type fixture struct {
	srv     *httptest.Server
	eng     *sim.Engine
	metrics *metrics.Metrics
}

func newFixture(t *testing.T, rps float64, burst int) *fixture {
	t.Helper()
	reg, err := airports.Default()
	if err != nil {
		t.Fatal(err)
	}
	m, err := metrics.New(prometheus.NewRegistry())
	if err != nil {
		t.Fatal(err)
	}
	cfg := sim.DefaultSessionConfig()
	cfg.Airports = reg
	eng := sim.New(sim.Config{
		TickHz:   200,
		InputTTL: time.Second,
		Session:  cfg,
		Logger:   log.Discard(),
		Metrics:  m,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	api := NewServer(eng, Options{
		Airports:   reg,
		Metrics:    m,
		Logger:     log.Discard(),
		InputRPS:   rps,
		InputBurst: burst,
	})
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &fixture{srv: srv, eng: eng, metrics: m}
}

func (f *fixture) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// waitState polls /state until cond holds.
func (f *fixture) waitState(t *testing.T, cond func(sim.Snapshot) bool) sim.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		var st sim.Snapshot
		if err := json.NewDecoder(f.get(t, "/state").Body).Decode(&st); err != nil {
			t.Fatal(err)
		}
		if cond(st) {
			return st
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met, last state %+v", st)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0, 0)
	resp := f.get(t, "/health")
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(b) != "ok\n" {
		t.Errorf("GET /health = %d %q", resp.StatusCode, b)
	}
}

func TestTakeoffValidation(t *testing.T) {
	f := newFixture(t, 0, 0)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"no aircraft", `{"from":{"lat":1,"lon":2}}`, http.StatusBadRequest},
		{"unknown aircraft", `{"aircraft":"zeppelin","from":{"lat":1,"lon":2}}`, http.StatusBadRequest},
		{"no origin", `{"aircraft":"cessna"}`, http.StatusBadRequest},
		{"unknown airport", `{"aircraft":"cessna","fromAirport":"XXXX"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
		{"coordinates", `{"aircraft":"cessna","from":{"lat":1,"lon":2}}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if resp := f.post(t, "/command/takeoff", tt.body); resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}

	resp := f.get(t, "/command/takeoff")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET /command/takeoff = %d", resp.StatusCode)
	}
}

func TestTakeoffBetweenAirports(t *testing.T) {
	f := newFixture(t, 0, 0)
	resp := f.post(t, "/command/takeoff", `{"aircraft":"airliner","fromAirport":"egll","toAirport":"KJFK"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	st := f.waitState(t, func(s sim.Snapshot) bool { return s.Active })
	if st.Aircraft != "airliner" || st.Destination == nil || st.DistanceToDestinationKm == nil {
		t.Fatalf("state = %+v", st)
	}
	// London to New York is about 5500 km.
	if d := *st.DistanceToDestinationKm; d < 5000 || d > 6000 {
		t.Errorf("distance = %v km", d)
	}
	if st.NearestAirport == nil || st.NearestAirport.Airport.Ident != "EGLL" {
		t.Errorf("nearest = %+v", st.NearestAirport)
	}
	if got := testutil.ToFloat64(f.metrics.TakeoffsTotal.WithLabelValues("airliner")); got != 1 {
		t.Errorf("takeoffs = %v", got)
	}
}

func TestAirportsAndAircraft(t *testing.T) {
	f := newFixture(t, 0, 0)

	var list []airports.Airport
	if err := json.NewDecoder(f.get(t, "/airports").Body).Decode(&list); err != nil {
		t.Fatal(err)
	}
	if len(list) == 0 {
		t.Error("no airports listed")
	}

	var ap airports.Airport
	resp := f.get(t, "/airports/nffn")
	if err := json.NewDecoder(resp.Body).Decode(&ap); err != nil {
		t.Fatal(err)
	}
	if ap.Ident != "NFFN" {
		t.Errorf("ident = %q", ap.Ident)
	}
	if resp := f.get(t, "/airports/XXXX"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown airport status = %d", resp.StatusCode)
	}

	var specs []flight.Spec
	if err := json.NewDecoder(f.get(t, "/aircraft").Body).Decode(&specs); err != nil {
		t.Fatal(err)
	}
	if len(specs) != len(flight.AircraftTypes) || specs[0].Name != "cessna" {
		t.Errorf("aircraft = %+v", specs)
	}
}

func TestViewAndLightingCommands(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.post(t, "/command/takeoff", `{"aircraft":"cessna","fromAirport":"KJFK"}`)

	tests := []struct {
		path, body string
		want       int
	}{
		{"/command/view", `{"view":"overhead","animate":false}`, http.StatusOK},
		{"/command/view", `{"view":"sideways"}`, http.StatusBadRequest},
		{"/command/lighting", `{"mode":"night"}`, http.StatusOK},
		{"/command/lighting", `{"mode":"dusk"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		if resp := f.post(t, tt.path, tt.body); resp.StatusCode != tt.want {
			t.Errorf("POST %s %s = %d, want %d", tt.path, tt.body, resp.StatusCode, tt.want)
		}
	}
	st := f.waitState(t, func(s sim.Snapshot) bool { return s.CurrentView == "overhead" && s.Lighting == "night" })
	if st.ViewTransitions != 0 {
		t.Errorf("snapping view counted %d transitions", st.ViewTransitions)
	}

	f.post(t, "/command/next-view", "")
	f.waitState(t, func(s sim.Snapshot) bool { return s.CurrentView == "chase" && s.ViewTransitions == 1 })

	f.post(t, "/command/land", "")
	f.waitState(t, func(s sim.Snapshot) bool { return !s.Active && s.Phase == "parked" })
}

func TestControlRateLimit(t *testing.T) {
	f := newFixture(t, 0.001, 1)
	if resp := f.post(t, "/command/control", `{"roll":1}`); resp.StatusCode != http.StatusOK {
		t.Fatalf("first input = %d", resp.StatusCode)
	}
	if resp := f.post(t, "/command/control", `{"roll":1}`); resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second input = %d, want 429", resp.StatusCode)
	}
	if got := testutil.ToFloat64(f.metrics.ControlLimited); got != 1 {
		t.Errorf("limited = %v, want 1", got)
	}
}

func TestControlInputMovesAircraft(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.post(t, "/command/takeoff", `{"aircraft":"fighter","from":{"lat":0,"lon":0}}`)
	f.waitState(t, func(s sim.Snapshot) bool { return s.Active })
	f.post(t, "/command/control", `{"roll":1}`)
	f.waitState(t, func(s sim.Snapshot) bool { return s.Roll > 1 })
}

func TestTrackExports(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.post(t, "/command/takeoff", `{"aircraft":"glider","fromAirport":"NZSP"}`)
	f.waitState(t, func(s sim.Snapshot) bool { return s.Active })

	resp := f.get(t, "/track?tolerance=0.01")
	if ct := resp.Header.Get("Content-Type"); ct != "application/geo+json" {
		t.Errorf("content type = %q", ct)
	}
	b, _ := io.ReadAll(resp.Body)
	fc, err := geojson.UnmarshalFeatureCollection(b)
	if err != nil {
		t.Fatal(err)
	}
	if len(fc.Features) == 0 {
		t.Error("empty feature collection")
	}

	if resp := f.get(t, "/track?tolerance=-1"); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative tolerance = %d", resp.StatusCode)
	}

	tr, err := track.Load(f.get(t, "/track.bin").Body)
	if err != nil {
		t.Fatal(err)
	}
	if tr.Aircraft != "glider" || len(tr.Points) == 0 {
		t.Errorf("archive = %q with %d points", tr.Aircraft, len(tr.Points))
	}
}

func TestStreamSSE(t *testing.T) {
	f := newFixture(t, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, f.srv.URL+"/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 64*1024), 1<<20)
	for sc.Scan() {
		data, ok := strings.CutPrefix(sc.Text(), "data: ")
		if !ok {
			continue
		}
		var st sim.Snapshot
		if err := json.Unmarshal([]byte(data), &st); err != nil {
			t.Fatal(err)
		}
		if st.CurrentView != "chase" {
			t.Errorf("currentView = %q", st.CurrentView)
		}
		return
	}
	t.Fatalf("no state event: %v", sc.Err())
}

func TestWebSocket(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.post(t, "/command/takeoff", `{"aircraft":"fighter","from":{"lat":10,"lon":10}}`)
	wsURL := "ws" + strings.TrimPrefix(f.srv.URL, "http")

	t.Run("json", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws", nil)
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		if err := conn.WriteJSON(flight.ControlInput{Roll: 1}); err != nil {
			t.Fatal(err)
		}

		deadline := time.Now().Add(2 * time.Second)
		conn.SetReadDeadline(deadline)
		for {
			var st sim.Snapshot
			if err := conn.ReadJSON(&st); err != nil {
				t.Fatal(err)
			}
			if st.Active && st.Roll > 1 {
				return
			}
		}
	})

	t.Run("msgpack", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?format=msgpack", nil)
		if err != nil {
			t.Fatal(err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		ty, b, err := conn.ReadMessage()
		if err != nil {
			t.Fatal(err)
		}
		if ty != websocket.BinaryMessage {
			t.Fatalf("message type = %d, want binary", ty)
		}
		var st sim.Snapshot
		if err := msgpack.Unmarshal(b, &st); err != nil {
			t.Fatal(err)
		}
		if !st.Active || st.Aircraft != "fighter" {
			t.Errorf("snapshot = %+v", st)
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, 0, 0)
	f.get(t, "/health")
	want := `flightsim_http_requests_total{code="200",method="GET",path="/health"} 1`
	// The count is recorded after the response has been written.
	deadline := time.Now().Add(time.Second)
	for {
		b, _ := io.ReadAll(f.get(t, "/metrics").Body)
		if strings.Contains(string(b), want) {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("metrics missing %s:\n%s", want, b)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
