package env

import (
	"math"

	"globe-flight/internal/geo"
	"globe-flight/internal/geometry/vector"
	"globe-flight/internal/mathx"
)

// Wind is a constant drift expressed in the local tangent frame wherever
// the aircraft is, so it keeps blowing the same compass direction around
// the sphere. Components are scene units per second.
type Wind struct {
	East  float64
	North float64
}

// Apply moves the aircraft along the tangent plane. The displacement is
// returned unchanged: the drift is over the ground, not through the air.
func (w Wind) Apply(dt float64, pos vector.Vec3, step vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	if w.East == 0 && w.North == 0 {
		return pos, step, ""
	}
	east, north, _ := geo.LocalFrame(pos)
	drift := east.Mul(w.East * dt).Add(north.Mul(w.North * dt))
	return pos.Add(drift), step, ""
}

func Calm() Wind { return Wind{} }

// FromSpeedAndDir returns a wind of the given speed blowing towards
// directionDeg, clockwise from north.
func FromSpeedAndDir(speed, directionDeg float64) Wind {
	s, c := math.Sincos(mathx.Radians(directionDeg))
	return Wind{East: speed * s, North: speed * c}
}
