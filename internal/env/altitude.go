package env

import (
	"math"

	"globe-flight/internal/geometry/vector"
)

// Warnings reported by AltitudeBand.
const (
	WarnAltitudeFloor   = "altitude-floor: clamped to minimum altitude"
	WarnAltitudeCeiling = "altitude-ceiling: clamped to maximum altitude"
)

// AltitudeBand keeps the aircraft between a flat minimum-altitude floor
// and a ceiling above a sphere of radius SceneRadius. There is no terrain
// beyond the floor.
type AltitudeBand struct {
	SceneRadius float64
	MinAltitude float64
	MaxAltitude float64
}

// Floor returns the minimum distance from the sphere center.
func (a AltitudeBand) Floor() float64 { return a.SceneRadius + a.MinAltitude }

// Ceiling returns the maximum distance from the sphere center.
func (a AltitudeBand) Ceiling() float64 { return a.SceneRadius + math.Max(a.MaxAltitude, a.MinAltitude) }

// Altitude returns the height of pos above the sphere.
func (a AltitudeBand) Altitude(pos vector.Vec3) float64 { return pos.Norm() - a.SceneRadius }

// Apply clamps pos radially into [Floor, Ceiling]. When the aircraft is
// pushed back up from the floor any descending component of its step is
// removed, and likewise for climbing into the ceiling.
func (a AltitudeBand) Apply(dt float64, pos vector.Vec3, vel vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	r := pos.Norm()
	up, ok := pos.TryNormalize()
	if !ok {
		// Degenerate: the center of the sphere. Put the aircraft on the
		// floor above the north pole.
		return vector.UnitY.Mul(a.Floor()), vel, WarnAltitudeFloor
	}

	switch {
	case r < a.Floor():
		if vr := vel.Dot(up); vr < 0 {
			vel = vel.Sub(up.Mul(vr))
		}
		return up.Mul(a.Floor()), vel, WarnAltitudeFloor

	case r > a.Ceiling():
		if vr := vel.Dot(up); vr > 0 {
			vel = vel.Sub(up.Mul(vr))
		}
		return up.Mul(a.Ceiling()), vel, WarnAltitudeCeiling
	}

	return pos, vel, ""
}
