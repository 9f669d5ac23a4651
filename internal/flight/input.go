package flight

import "globe-flight/internal/mathx"

// ControlInput is one tick's worth of normalized pilot input. Each channel
// is in [-1, 1]; positive pitch is nose up, positive roll banks right,
// positive yaw turns right and positive throttle speeds up.
type ControlInput struct {
	Pitch    float64 `json:"pitch" msgpack:"pitch"`
	Roll     float64 `json:"roll" msgpack:"roll"`
	Yaw      float64 `json:"yaw" msgpack:"yaw"`
	Throttle float64 `json:"throttle" msgpack:"throttle"`
}

// Clamped returns in with every channel forced into [-1, 1]. Non-finite
// values become 0.
func (in ControlInput) Clamped() ControlInput {
	c := func(v float64) float64 { return mathx.Clamp(mathx.Finite(v, 0), -1, 1) }
	return ControlInput{
		Pitch:    c(in.Pitch),
		Roll:     c(in.Roll),
		Yaw:      c(in.Yaw),
		Throttle: c(in.Throttle),
	}
}

// IsZero reports whether no channel is deflected.
func (in ControlInput) IsZero() bool {
	return in == ControlInput{}
}
