// Package flight integrates normalized control input into the position,
// orientation and speed of an aircraft flying over a sphere.
package flight

import (
	"fmt"
	"math"
	"time"

	"globe-flight/internal/env"
	"globe-flight/internal/geo"
	"globe-flight/internal/geometry/vector"
	"globe-flight/internal/log"
	"globe-flight/internal/mathx"
)

// State is the aircraft state. Angles are degrees, speed is km/h and
// positions are in the sphere-centered scene frame.
type State struct {
	Active bool
	Spec   Spec
	Phase  Phase

	Position vector.Vec3
	Geo      geo.Position
	Altitude float64
	// Velocity is in scene units per second.
	Velocity vector.Vec3
	// Forward is the unit nose direction from heading, pitch and roll.
	Forward vector.Vec3
	// Orientation looks along the direction of travel with its up axis
	// on the local radial vector; see Banked for the rolled attitude.
	Orientation vector.Rotation

	Pitch   float64
	Roll    float64
	Heading float64
	Speed   float64

	Takeoff     geo.Position
	Destination *geo.Position
	StartedAt   time.Time

	// Warning is the last environment warning, e.g. an altitude clamp.
	Warning string
}

// Banked returns the orientation rolled about the direction of travel.
func (s State) Banked() vector.Rotation {
	return s.Orientation.Mul(vector.AxisAngle(vector.UnitZ, -mathx.Radians(s.Roll)))
}

// FlightTime returns how long the current flight has lasted at now.
func (s State) FlightTime(now time.Time) time.Duration {
	if s.StartedAt.IsZero() || now.Before(s.StartedAt) {
		return 0
	}
	return now.Sub(s.StartedAt)
}

// Model owns the aircraft state. It is not safe for concurrent use; a
// single goroutine steps it and readers take State copies.
type Model struct {
	params Params
	band   env.AltitudeBand
	env    env.Environment
	lg     *log.Logger

	state State
	vRate float64
}

// NewModel returns a model with no active flight. The environment effects
// are applied after each integration step, followed by the altitude band.
func NewModel(p Params, lg *log.Logger, effects ...env.Environment) *Model {
	p = p.Sanitized()
	band := env.AltitudeBand{
		SceneRadius: p.SceneRadius,
		MinAltitude: p.MinAltitude,
		MaxAltitude: p.MaxAltitude,
	}
	chain := &env.Chain{Effects: append(append([]env.Environment(nil), effects...), band)}
	return &Model{
		params: p,
		band:   band,
		env:    chain,
		lg:     lg.With("component", "flight"),
		state:  State{Orientation: vector.Identity()},
	}
}

// Params returns the sanitized tuning of the model.
func (m *Model) Params() Params { return m.params }

// State returns a copy of the current aircraft state.
func (m *Model) State() State {
	s := m.state
	if s.Destination != nil {
		d := *s.Destination
		s.Destination = &d
	}
	return s
}

// Takeoff starts a new flight of the given aircraft type from the runway at
// from, heading for to if it is non-nil. Any previous flight is discarded.
// It fails with ErrNoAircraftSelected if t is not in the catalog.
func (m *Model) Takeoff(t AircraftType, from geo.Position, to *geo.Position, now time.Time) error {
	spec, ok := SpecFor(t)
	if !ok {
		return fmt.Errorf("takeoff: %v: %w", t, ErrNoAircraftSelected)
	}

	from.Lat = mathx.Clamp(mathx.Finite(from.Lat, 0), -90, 90)
	from.Lon = geo.NormalizeLongitude(from.Lon)
	from.Alt = m.params.MinAltitude

	heading := 0.0
	var dest *geo.Position
	if to != nil {
		d := *to
		dest = &d
		heading = geo.InitialBearing(from, d)
	}

	pos := geo.ToCartesian(from, m.params.SceneRadius)
	m.state = State{
		Active:      true,
		Spec:        spec,
		Phase:       Taxi,
		Position:    pos,
		Geo:         from,
		Altitude:    from.Alt,
		Heading:     heading,
		Speed:       spec.MinSpeed,
		Takeoff:     from,
		Destination: dest,
		StartedAt:   now,
		Orientation: vector.Identity(),
	}
	m.vRate = 0

	fwd := m.forward(pos, heading, 0, 0)
	m.state.Forward = fwd
	m.state.Velocity = fwd.Mul(m.state.Speed * m.params.SpeedScale)
	if r, ok := vector.LookRotation(fwd, geo.LocalUp(pos)); ok {
		m.state.Orientation = r
	}

	m.lg.Info("takeoff",
		"aircraft", spec.Name,
		"lat", from.Lat, "lon", from.Lon,
		"heading", heading,
		"destination", dest != nil)
	return nil
}

// Land ends the current flight. The last state remains readable.
func (m *Model) Land() {
	if !m.state.Active {
		return
	}
	m.state.Active = false
	m.state.Phase = Parked
	m.state.Warning = ""
	m.lg.Info("landed", "lat", m.state.Geo.Lat, "lon", m.state.Geo.Lon)
}

// Step advances an active flight by dt seconds under the given input.
// Negative or non-finite dt is treated as zero. After Step the attitude,
// speed and altitude are within their limits.
func (m *Model) Step(in ControlInput, dt float64) {
	s := &m.state
	if !s.Active {
		return
	}
	dt = max(mathx.Finite(dt, 0), 0)
	in = in.Clamped()
	p := m.params
	h := s.Spec.Handling

	// Angular rates, then the coordinated turn from bank.
	s.Pitch += in.Pitch * h * p.PitchRate * dt
	s.Roll += in.Roll * h * p.RollRate * dt
	s.Heading += in.Yaw * h * p.YawRate * dt
	s.Heading += s.Roll * p.BankCoefficient * dt

	// Throttle moves the speed target; speed lags behind it.
	target := s.Speed + in.Throttle*p.ThrottleGain
	s.Speed = mathx.Approach(s.Speed, target, p.SpeedLag, dt)
	s.Speed = mathx.Clamp(mathx.Finite(s.Speed, s.Spec.MinSpeed), s.Spec.MinSpeed, s.Spec.MaxSpeed)

	s.Pitch = mathx.Clamp(mathx.Finite(s.Pitch, 0), -MaxPitch, MaxPitch)
	s.Roll = mathx.Clamp(mathx.Finite(s.Roll, 0), -MaxRoll, MaxRoll)
	s.Heading = mathx.NormalizeHeading(s.Heading)

	// Self-leveling.
	if in.Pitch == 0 {
		s.Pitch = mathx.Decay(s.Pitch, p.LevelingRate, dt)
	}
	if in.Roll == 0 {
		s.Roll = mathx.Decay(s.Roll, p.LevelingRate, dt)
	}

	fwd := m.forward(s.Position, s.Heading, s.Pitch, s.Roll)
	s.Forward = fwd
	s.Velocity = fwd.Mul(s.Speed * p.SpeedScale)

	step := s.Velocity.Mul(dt)
	pos := s.Position.Add(step)
	if !pos.IsFinite() {
		m.lg.Warn("non-finite position, step skipped", "dt", dt)
		pos, step = s.Position, vector.Vec3{}
	}

	prevAlt := s.Altitude
	pos, step, s.Warning = m.env.Apply(dt, pos, step)
	if s.Warning != "" {
		m.lg.Debug("environment", "warning", s.Warning)
	}

	// Pin the wheels to the floor until the nose comes up.
	if s.Phase.OnGround() && s.Pitch <= 0 {
		pos = geo.LocalUp(pos).Mul(m.band.Floor())
	}

	s.Position = pos
	s.Altitude = mathx.Clamp(m.band.Altitude(pos), p.MinAltitude, p.MaxAltitude)
	s.Geo = geo.FromCartesianHint(pos, p.SceneRadius, s.Geo.Lon)
	s.Geo.Alt = s.Altitude

	// Carry the heading along the great circle into the new local frame.
	if h, ok := transportHeading(pos, fwd); ok {
		s.Heading = h
	}

	// A zero step (dt == 0) has no direction; keep the last orientation.
	if r, ok := vector.LookRotation(step, geo.LocalUp(pos)); ok && r.IsValid() {
		s.Orientation = r
	}

	m.vRate = smoothVerticalRate(m.vRate, prevAlt, s.Altitude, p.VerticalRateSmoothing, dt)
	s.Phase = nextPhase(s.Phase, p, s.Spec, s.Altitude, s.Speed, in.Throttle, m.vRate)
}

// VerticalRate returns the smoothed climb rate in scene units per second.
func (m *Model) VerticalRate() float64 { return m.vRate }

// forward returns the nose direction at pos for the given attitude. The
// rotations are composed yaw outermost, then pitch, then roll, inside the
// local tangent frame whose body -Z axis points north.
func (m *Model) forward(pos vector.Vec3, heading, pitch, roll float64) vector.Vec3 {
	east, north, up := geo.LocalFrame(pos)
	frame := vector.FromBasis(east, up, north.Neg())
	att := vector.YawPitchRoll(-mathx.Radians(heading), mathx.Radians(pitch), -mathx.Radians(roll))
	if f, ok := frame.Mul(att).Forward().TryNormalize(); ok {
		return f
	}
	return north
}

// transportHeading returns the compass heading of the direction fwd at
// pos. It fails when fwd is (nearly) vertical there, which pitch limits
// make rare.
func transportHeading(pos, fwd vector.Vec3) (float64, bool) {
	up := geo.LocalUp(pos)
	if _, ok := fwd.ProjectOnPlane(up).TryNormalize(); !ok || math.Abs(fwd.Dot(up)) > 0.9999 {
		return 0, false
	}
	return geo.HeadingDegFromVec(pos, fwd), true
}

// DistanceToDestinationKm returns the straight-line distance from the
// aircraft to its destination in kilometers, or false if there is none.
func (s State) DistanceToDestinationKm(sceneRadius float64) (float64, bool) {
	if s.Destination == nil {
		return 0, false
	}
	here := s.Geo
	here.Alt = 0
	d := geo.DistanceKm(here, *s.Destination, sceneRadius)
	if math.IsNaN(d) {
		return 0, false
	}
	return d, true
}
