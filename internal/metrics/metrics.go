// Package metrics exposes Prometheus metrics for the simulator and its HTTP
// surface.
package metrics

import (
	"bufio"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	TicksTotal       prometheus.Counter
	TickDuration     prometheus.Histogram
	FlightActive     prometheus.Gauge
	TakeoffsTotal    *prometheus.CounterVec
	EnvWarnings      *prometheus.CounterVec
	ViewTransitions  prometheus.Counter
	Subscribers      prometheus.Gauge
	CommandsDropped  prometheus.Counter
	ControlLimited   prometheus.Counter
	HTTPRequests     *prometheus.CounterVec
	HTTPDurationSecs *prometheus.HistogramVec
}

// New registers the collectors with reg, or with the default registry if
// reg is nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	m := &Metrics{
		gatherer: gatherer,
		TicksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightsim_ticks_total",
			Help: "Total number of simulation ticks.",
		}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "flightsim_tick_duration_seconds",
			Help:    "Wall time spent computing one simulation tick.",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		FlightActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightsim_flight_active",
			Help: "1 while an aircraft is flying.",
		}),
		TakeoffsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsim_takeoffs_total",
			Help: "Takeoffs by aircraft type.",
		}, []string{"aircraft"}),
		EnvWarnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsim_environment_warnings_total",
			Help: "Ticks on which an environment effect intervened, e.g. an altitude clamp.",
		}, []string{"warning"}),
		ViewTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightsim_camera_view_transitions_total",
			Help: "Animated camera view transitions started.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "flightsim_subscribers",
			Help: "Current number of state stream subscribers.",
		}),
		CommandsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightsim_commands_dropped_total",
			Help: "Commands rejected because the engine queue was full.",
		}),
		ControlLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flightsim_control_rate_limited_total",
			Help: "Control inputs rejected by the per-client rate limiter.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flightsim_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"path", "method", "code"}),
		HTTPDurationSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flightsim_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
	}

	for _, c := range []prometheus.Collector{
		m.TicksTotal, m.TickDuration, m.FlightActive, m.TakeoffsTotal, m.EnvWarnings,
		m.ViewTransitions, m.Subscribers, m.CommandsDropped, m.ControlLimited,
		m.HTTPRequests, m.HTTPDurationSecs,
	} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return m, nil
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveTick(d time.Duration) {
	if m == nil {
		return
	}
	m.TicksTotal.Inc()
	m.TickDuration.Observe(d.Seconds())
}

func (m *Metrics) SetFlightActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.FlightActive.Set(1)
	} else {
		m.FlightActive.Set(0)
	}
}

func (m *Metrics) Takeoff(aircraft string) {
	if m == nil {
		return
	}
	m.TakeoffsTotal.WithLabelValues(aircraft).Inc()
}

func (m *Metrics) EnvWarning(warning string) {
	if m == nil || warning == "" {
		return
	}
	m.EnvWarnings.WithLabelValues(warning).Inc()
}

func (m *Metrics) ViewTransition() {
	if m == nil {
		return
	}
	m.ViewTransitions.Inc()
}

func (m *Metrics) SetSubscribers(n int) {
	if m == nil {
		return
	}
	m.Subscribers.Set(float64(n))
}

func (m *Metrics) CommandDropped() {
	if m == nil {
		return
	}
	m.CommandsDropped.Inc()
}

func (m *Metrics) ControlRateLimited() {
	if m == nil {
		return
	}
	m.ControlLimited.Inc()
}

// knownRoutes are reported as their own path label; everything else is
// "other" to keep label cardinality bounded.
var knownRoutes = map[string]bool{
	"/health":            true,
	"/metrics":           true,
	"/state":             true,
	"/aircraft":          true,
	"/airports":          true,
	"/track":             true,
	"/track.bin":         true,
	"/stream":            true,
	"/ws":                true,
	"/command/takeoff":   true,
	"/command/control":   true,
	"/command/view":      true,
	"/command/next-view": true,
	"/command/lighting":  true,
	"/command/land":      true,
}

func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/airports/") && !strings.Contains(path[len("/airports/"):], "/") {
		return "/airports/{ident}"
	}
	return "other"
}

// responseWriter captures the status code. It passes flushing and
// hijacking through so that SSE and WebSocket handlers keep working.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	rw.statusCode = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter { return rw.ResponseWriter }

// Middleware records request count and duration for each request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := normalizeRoute(r.URL.Path)
		m.HTTPRequests.WithLabelValues(path, r.Method, strconv.Itoa(rw.statusCode)).Inc()
		m.HTTPDurationSecs.WithLabelValues(path, r.Method).Observe(time.Since(start).Seconds())
	})
}
