package sim

import (
	"time"

	"globe-flight/internal/airports"
	"globe-flight/internal/camera"
	"globe-flight/internal/env"
	"globe-flight/internal/flight"
	"globe-flight/internal/geo"
	"globe-flight/internal/illum"
	"globe-flight/internal/log"
	"globe-flight/internal/track"
)

// SessionConfig configures a Session.
type SessionConfig struct {
	Flight        flight.Params
	Camera        camera.Config
	Lighting      illum.Mode
	LightingRate  float64
	TrackInterval time.Duration
	// Effects run before the altitude band each step, e.g. env.Wind.
	Effects []env.Environment
	// Airports, if set, is used to report the nearest airport.
	Airports *airports.Registry
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Flight:        flight.DefaultParams(),
		Camera:        camera.DefaultConfig(),
		Lighting:      illum.Auto,
		LightingRate:  illum.DefaultRate,
		TrackInterval: time.Second,
	}
}

// Session is the world a tick runs in: the aircraft, the camera following
// it, the lighting and the recorded track. It is not safe for concurrent
// use; the Engine serializes access to it.
type Session struct {
	lg       *log.Logger
	cfg      SessionConfig
	flight   *flight.Model
	camera   *camera.Controller
	illum    *illum.Model
	track    *track.Recorder
	airports *airports.Registry
}

// NewSession returns a session with no flight. listener, which may be nil,
// is told about view changes made with NextView.
func NewSession(cfg SessionConfig, lg *log.Logger, listener camera.Listener) *Session {
	return &Session{
		lg:       lg,
		cfg:      cfg,
		flight:   flight.NewModel(cfg.Flight, lg, cfg.Effects...),
		camera:   camera.NewController(cfg.Camera, lg, listener),
		illum:    illum.NewModel(cfg.Lighting, cfg.LightingRate),
		track:    track.NewRecorder(cfg.TrackInterval, track.DefaultMaxPoints),
		airports: cfg.Airports,
	}
}

// Takeoff starts a new flight, replacing any current one. The camera snaps
// to its current view at the new position and a new track begins.
func (s *Session) Takeoff(t flight.AircraftType, from geo.Position, to *geo.Position, now time.Time) error {
	if err := s.flight.Takeoff(t, from, to, now); err != nil {
		return err
	}
	s.camera.SetView(s.camera.View(), false)
	st := s.flight.State()
	s.track.Start(st.Spec.Name, now)
	s.record(st, now)
	return nil
}

// Land ends the current flight.
func (s *Session) Land() { s.flight.Land() }

// Tick advances the world by dt seconds under in. The order is fixed:
// dynamics, then the camera and lighting reading the new aircraft state.
func (s *Session) Tick(in flight.ControlInput, dt float64, now time.Time) Snapshot {
	s.flight.Step(in, dt)
	st := s.flight.State()

	s.camera.Update(camera.AircraftFrom(st), dt)
	s.illum.Update(now, st.Geo.Lon, dt)
	if st.Active {
		s.record(st, now)
	}
	return s.snapshot(st, now)
}

func (s *Session) record(st flight.State, now time.Time) {
	s.track.Record(track.Point{
		T:        now,
		Lat:      st.Geo.Lat,
		Lon:      st.Geo.Lon,
		Altitude: st.Altitude,
		Speed:    st.Speed,
		Heading:  st.Heading,
		Phase:    st.Phase.String(),
	})
}

// NextView cycles the camera to the next view.
func (s *Session) NextView() camera.View { return s.camera.NextView() }

func (s *Session) SetView(v camera.View, animate bool) { s.camera.SetView(v, animate) }

func (s *Session) SetIlluminationMode(m illum.Mode) { s.illum.SetMode(m) }

// Flight returns a copy of the aircraft state.
func (s *Session) Flight() flight.State { return s.flight.State() }

// Camera returns a copy of the camera state.
func (s *Session) Camera() camera.State { return s.camera.State() }

func (s *Session) ViewTransitions() int { return s.camera.Transitions() }

// Track returns a copy of the recorded track.
func (s *Session) Track() track.Track { return s.track.Track() }

// Snapshot describes the session at now without advancing it.
func (s *Session) Snapshot(now time.Time) Snapshot {
	return s.snapshot(s.flight.State(), now)
}

func (s *Session) snapshot(st flight.State, now time.Time) Snapshot {
	p := s.flight.Params()
	cam := s.camera.State()
	snap := Snapshot{
		Active:            st.Active,
		Phase:             st.Phase.String(),
		Lat:               st.Geo.Lat,
		Lon:               st.Geo.Lon,
		Altitude:          st.Altitude,
		AltitudeKm:        st.Altitude * geo.EarthRadiusKm / p.SceneRadius,
		Speed:             st.Speed,
		Heading:           st.Heading,
		Pitch:             st.Pitch,
		Roll:              st.Roll,
		Position:          st.Position,
		Orientation:       st.Banked().Quat(),
		Destination:       st.Destination,
		FlightTimeElapsed: st.FlightTime(now).Seconds(),
		CurrentView:       cam.View.String(),
		FieldOfView:       cam.FieldOfView,
		Camera:            cam.Pose,
		ViewTransitions:   s.camera.Transitions(),
		Lighting:          s.illum.Mode().String(),
		NightOpacity:      s.illum.Opacity(),
		Warning:           st.Warning,
		TS:                now,
	}
	if st.Spec.Type != flight.NoAircraft {
		snap.Aircraft = st.Spec.Type.String()
	}
	if d, ok := st.DistanceToDestinationKm(p.SceneRadius); ok {
		snap.DistanceToDestinationKm = &d
	}
	if s.airports != nil && st.Spec.Type != flight.NoAircraft {
		if n, ok := s.airports.Nearest(st.Geo); ok {
			snap.NearestAirport = &n
		}
	}
	return snap
}
