// Package camera follows an aircraft over the sphere through a cycle of
// views, easing between them and adding a speed-driven field of view and
// a procedural shake.
package camera

import (
	"math"

	"globe-flight/internal/flight"
	"globe-flight/internal/geo"
	"globe-flight/internal/geometry/vector"
	"globe-flight/internal/log"
	"globe-flight/internal/mathx"
)

// Listener is told when NextView switches the view, e.g. to update a HUD.
type Listener interface {
	ViewChanged(v View)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(View)

func (f ListenerFunc) ViewChanged(v View) { f(v) }

// Aircraft is the read-only slice of aircraft state the camera follows.
type Aircraft struct {
	Active      bool
	Position    vector.Vec3
	Forward     vector.Vec3
	Orientation vector.Rotation
	Speed       float64
	MaxSpeed    float64
	Phase       flight.Phase
	Scale       float64
}

// AircraftFrom extracts what the camera needs from a flight state.
func AircraftFrom(s flight.State) Aircraft {
	return Aircraft{
		Active:      s.Active,
		Position:    s.Position,
		Forward:     s.Forward,
		Orientation: s.Orientation,
		Speed:       s.Speed,
		MaxSpeed:    s.Spec.MaxSpeed,
		Phase:       s.Phase,
		Scale:       s.Spec.Scale,
	}
}

// Config tunes the controller. Rates are 1/s.
type Config struct {
	TransitionDuration float64 // seconds
	FovBoost           float64 // degrees added at max speed
	FovRate            float64
	FollowRate         float64
	ShakeRate          float64
	ShakeAmplitude     float64 // scene units at intensity 1
	// CockpitOffset is the eye point in the body frame (forward -Z, up +Y).
	CockpitOffset vector.Vec3
	LookAhead     float64 // scene units
}

func DefaultConfig() Config {
	return Config{
		TransitionDuration: 1,
		FovBoost:           15,
		FovRate:            3,
		FollowRate:         5,
		ShakeRate:          2,
		ShakeAmplitude:     0.004,
		CockpitOffset:      vector.Vec3{Y: 0.015, Z: -0.08},
		LookAhead:          1,
	}
}

// Transition is an in-progress switch between two views.
type Transition struct {
	Active   bool       `json:"active"`
	Progress float64    `json:"progress"`
	From     ViewParams `json:"from"`
	To       ViewParams `json:"to"`
	Duration float64    `json:"duration"`
}

type Shake struct {
	Intensity float64 `json:"intensity"`
	Phase     float64 `json:"phase"`
}

// Pose is where the camera is, what it looks at and which way is up.
type Pose struct {
	Position vector.Vec3 `json:"position" msgpack:"position"`
	LookAt   vector.Vec3 `json:"lookAt" msgpack:"lookAt"`
	Up       vector.Vec3 `json:"up" msgpack:"up"`
}

// State is a copy of the controller's state.
type State struct {
	View        View       `json:"view"`
	Params      ViewParams `json:"params"`
	FieldOfView float64    `json:"fov"`
	Shake       Shake      `json:"shake"`
	Transition  Transition `json:"transition"`
	Pose        Pose       `json:"pose"`
}

// Shake oscillators: two per axis, frequencies in rad/s.
var (
	shakeUp    = [2]struct{ freq, amp, phase float64 }{{23, 1, 0}, {37, 0.5, 0.7}}
	shakeRight = [2]struct{ freq, amp, phase float64 }{{19, 0.7, 0}, {31, 0.35, 1.3}}
)

// completeTolerance absorbs rounding when a transition's duration is
// accumulated from many small steps.
const completeTolerance = 1e-9

// Controller owns the camera state. Like flight.Model it is driven by a
// single goroutine.
type Controller struct {
	cfg      Config
	lg       *log.Logger
	listener Listener

	initialized bool
	view        View
	params      ViewParams
	trans       Transition
	transitions int

	fov    float64
	fovSet bool
	shake  Shake

	follow    vector.Vec3
	followSet bool
	pose      Pose
}

// NewController returns a controller in the chase view. listener may be
// nil.
func NewController(cfg Config, lg *log.Logger, listener Listener) *Controller {
	d := DefaultConfig()
	if !(cfg.TransitionDuration >= 0) {
		cfg.TransitionDuration = d.TransitionDuration
	}
	for _, r := range []*float64{&cfg.FovBoost, &cfg.FovRate, &cfg.FollowRate, &cfg.ShakeRate, &cfg.ShakeAmplitude, &cfg.LookAhead} {
		*r = max(mathx.Finite(*r, 0), 0)
	}
	if !cfg.CockpitOffset.IsFinite() {
		cfg.CockpitOffset = d.CockpitOffset
	}
	return &Controller{
		cfg:      cfg,
		lg:       lg.With("component", "camera"),
		listener: listener,
		view:     Chase,
		params:   Chase.Params(),
	}
}

func (c *Controller) View() View { return c.view }

// Transitions returns how many animated view changes have started.
func (c *Controller) Transitions() int { return c.transitions }

func (c *Controller) State() State {
	return State{
		View:        c.view,
		Params:      c.params,
		FieldOfView: c.fov,
		Shake:       c.shake,
		Transition:  c.trans,
		Pose:        c.pose,
	}
}

// SetView switches to v. With animate set on an initialized controller it
// starts a transition from the current interpolated parameters; asking for
// the view already selected does nothing. Otherwise the controller snaps to
// v, which is how it is first set up.
func (c *Controller) SetView(v View, animate bool) {
	if !v.valid() {
		c.lg.Warn("unknown view ignored", "view", int(v))
		return
	}
	if animate && c.initialized {
		if v == c.view {
			return
		}
		c.trans = Transition{
			Active:   true,
			From:     c.params,
			To:       v.Params(),
			Duration: c.cfg.TransitionDuration,
		}
		c.view = v
		c.transitions++
		c.lg.Debug("view transition", "to", v.String(), "count", c.transitions)
		return
	}

	c.view = v
	c.params = v.Params()
	c.trans = Transition{}
	c.followSet = false
	c.initialized = true
}

// NextView starts an animated transition to the next view in Views,
// notifies the listener and returns the new view.
func (c *Controller) NextView() View {
	v := c.view.next()
	c.SetView(v, true)
	if c.listener != nil {
		c.listener.ViewChanged(v)
	}
	return v
}

// Update advances the camera by dt seconds following ac. Nothing happens
// while the aircraft is not flying.
func (c *Controller) Update(ac Aircraft, dt float64) {
	if !ac.Active || !ac.Position.IsFinite() {
		return
	}
	if !c.initialized {
		c.SetView(c.view, false)
	}
	dt = max(mathx.Finite(dt, 0), 0)

	c.advanceTransition(dt)
	c.updateFov(ac, dt)
	c.updateShake(ac, dt)

	up := geo.LocalUp(ac.Position)
	right, back := c.axes(ac, up)
	offset := up.Mul(c.shakeAlong(shakeUp)).Add(right.Mul(c.shakeAlong(shakeRight)))

	scale := ac.Scale
	if !(scale > 0) {
		scale = 1
	}

	if c.view == Cockpit && !c.trans.Active {
		eye := ac.Position.Add(ac.Orientation.Apply(c.cfg.CockpitOffset.Mul(scale)))
		fwd, ok := ac.Forward.TryNormalize()
		if !ok {
			fwd = ac.Orientation.Forward()
		}
		c.follow, c.followSet = eye, true
		c.pose = Pose{
			Position: eye.Add(offset),
			LookAt:   eye.Add(fwd.Mul(c.cfg.LookAhead)),
			Up:       up,
		}
		return
	}

	target := ac.Position.
		Add(up.Mul(c.params.Height * scale)).
		Add(back.Mul(c.params.Distance * scale))
	if !c.followSet {
		c.follow, c.followSet = target, true
	} else {
		c.follow = c.follow.Lerp(target, mathx.SmoothFactor(c.cfg.FollowRate, dt))
	}
	c.pose = Pose{
		Position: c.follow.Add(offset),
		LookAt:   ac.Position,
		Up:       up,
	}
}

func (c *Controller) advanceTransition(dt float64) {
	if !c.trans.Active {
		return
	}
	if c.trans.Duration <= 0 {
		c.trans.Progress = 1
	} else {
		c.trans.Progress = mathx.Clamp(c.trans.Progress+dt/c.trans.Duration, 0, 1)
	}
	if c.trans.Progress >= 1-completeTolerance {
		c.trans.Progress = 1
		c.trans.Active = false
		c.params = c.trans.To
		return
	}
	c.params = lerpParams(c.trans.From, c.trans.To, EaseInOutCubic(c.trans.Progress))
}

func (c *Controller) updateFov(ac Aircraft, dt float64) {
	ratio := 0.0
	if ac.MaxSpeed > 0 {
		ratio = mathx.Clamp(mathx.Finite(ac.Speed/ac.MaxSpeed, 0), 0, 1)
	}
	target := c.params.FieldOfView + ratio*c.cfg.FovBoost
	if !c.fovSet {
		c.fov, c.fovSet = target, true
		return
	}
	c.fov = mathx.Approach(c.fov, target, c.cfg.FovRate, dt)
}

func (c *Controller) updateShake(ac Aircraft, dt float64) {
	c.shake.Intensity = mathx.Clamp(mathx.Approach(c.shake.Intensity, ac.Phase.ShakeTarget(), c.cfg.ShakeRate, dt), 0, 1)
	// Keep the phase bounded; every oscillator frequency is a whole number
	// of rad/s so wrapping at 2π leaves the signal unchanged.
	c.shake.Phase = math.Mod(c.shake.Phase+dt, 2*math.Pi)
}

func (c *Controller) shakeAlong(osc [2]struct{ freq, amp, phase float64 }) float64 {
	if c.shake.Intensity == 0 {
		return 0
	}
	s := 0.0
	for _, o := range osc {
		s += math.Sin(c.shake.Phase*o.freq+o.phase) * o.amp
	}
	return s * c.shake.Intensity * c.cfg.ShakeAmplitude
}

// axes returns the local right and horizontal backward unit vectors for
// the aircraft's heading. When the heading is undefined they fall back to
// the orientation and finally to the local frame.
func (c *Controller) axes(ac Aircraft, up vector.Vec3) (right, back vector.Vec3) {
	fwd, ok := ac.Forward.ProjectOnPlane(up).TryNormalize()
	if !ok {
		fwd, ok = ac.Orientation.Forward().ProjectOnPlane(up).TryNormalize()
	}
	if !ok {
		_, north, _ := geo.LocalFrame(ac.Position)
		fwd = north
	}
	return fwd.Cross(up).Normalize(), fwd.Neg()
}
