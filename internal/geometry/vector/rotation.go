package vector

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Body axes. Objects look down -Z with +Y up and +X to the right.
var (
	BodyForward = Vec3{Z: -1}
	BodyUp      = Vec3{Y: 1}
	BodyRight   = Vec3{X: 1}
)

// Rotation is a unit quaternion rotation.
type Rotation struct {
	q mgl64.Quat
}

// Identity returns the rotation that leaves vectors unchanged.
func Identity() Rotation { return Rotation{q: mgl64.QuatIdent()} }

// AxisAngle returns a rotation of angle radians about axis. A zero axis
// yields the identity.
func AxisAngle(axis Vec3, angle float64) Rotation {
	u, ok := axis.TryNormalize()
	if !ok {
		return Identity()
	}
	return Rotation{q: mgl64.QuatRotate(angle, u.mgl())}
}

// YawPitchRoll composes rotations about body Y (yaw), then X (pitch),
// then Z (roll), with yaw outermost: R = Ry(yaw)·Rx(pitch)·Rz(roll).
// Angles are radians.
func YawPitchRoll(yaw, pitch, roll float64) Rotation {
	qy := mgl64.QuatRotate(yaw, mgl64.Vec3{0, 1, 0})
	qx := mgl64.QuatRotate(pitch, mgl64.Vec3{1, 0, 0})
	qz := mgl64.QuatRotate(roll, mgl64.Vec3{0, 0, 1})
	return Rotation{q: qy.Mul(qx).Mul(qz).Normalize()}
}

// FromBasis returns the rotation that maps the body axes X, Y, Z onto the
// given orthonormal columns.
func FromBasis(x, y, z Vec3) Rotation {
	m := mgl64.Mat3FromCols(x.mgl(), y.mgl(), z.mgl())
	return Rotation{q: mgl64.Mat4ToQuat(m.Mat4()).Normalize()}
}

// Mul returns the composition r·o (o is applied first).
func (r Rotation) Mul(o Rotation) Rotation {
	return Rotation{q: r.q.Mul(o.q).Normalize()}
}

// Apply rotates v.
func (r Rotation) Apply(v Vec3) Vec3 { return fromMgl(r.q.Rotate(v.mgl())) }

// Forward returns the rotated body forward axis.
func (r Rotation) Forward() Vec3 { return r.Apply(BodyForward) }

// Up returns the rotated body up axis.
func (r Rotation) Up() Vec3 { return r.Apply(BodyUp) }

// Right returns the rotated body right axis.
func (r Rotation) Right() Vec3 { return r.Apply(BodyRight) }

// Quat returns the rotation as (x, y, z, w).
func (r Rotation) Quat() [4]float64 {
	return [4]float64{r.q.V[0], r.q.V[1], r.q.V[2], r.q.W}
}

// IsValid reports whether r is a finite unit quaternion.
func (r Rotation) IsValid() bool {
	l := r.q.Len()
	if math.IsNaN(l) || math.IsInf(l, 0) {
		return false
	}
	return math.Abs(l-1) < 1e-6
}

// colinearThreshold is the sin of the smallest angle between forward and
// up that still defines a usable basis.
const colinearThreshold = 1e-6

// LookRotation builds a rotation whose body forward axis points along
// forward and whose body up axis is as close to up as possible. When
// forward and up are (nearly) colinear a secondary world axis stands in
// for up. It returns false only when forward has no direction.
func LookRotation(forward, up Vec3) (Rotation, bool) {
	f, ok := forward.TryNormalize()
	if !ok {
		return Rotation{}, false
	}
	right := f.Cross(up)
	if right.Norm() < colinearThreshold {
		right = f.Cross(secondaryAxis(f))
	}
	right, ok = right.TryNormalize()
	if !ok {
		return Rotation{}, false
	}
	u := right.Cross(f)
	return FromBasis(right, u, f.Neg()), true
}

// secondaryAxis returns the world axis least aligned with f.
func secondaryAxis(f Vec3) Vec3 {
	ax, ay, az := math.Abs(f.X), math.Abs(f.Y), math.Abs(f.Z)
	switch {
	case ay <= ax && ay <= az:
		return UnitY
	case az <= ax:
		return UnitZ
	default:
		return UnitX
	}
}
