// Package env holds the effects the world applies to an aircraft after each
// integration step: the altitude band over the sphere and wind drift.
package env

import (
	"globe-flight/internal/geometry/vector"
)

// Environment adjusts one integration step. pos is the aircraft position
// in the scene frame after the step and step is the displacement that got
// it there; dt is the step length in seconds. It returns the adjusted pair
// and a warning, empty when the effect did not intervene.
type Environment interface {
	Apply(dt float64, pos vector.Vec3, step vector.Vec3) (vector.Vec3, vector.Vec3, string)
}

// Func adapts a function to Environment.
type Func func(dt float64, pos, step vector.Vec3) (vector.Vec3, vector.Vec3, string)

func (f Func) Apply(dt float64, pos, step vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	return f(dt, pos, step)
}

// Chain applies its effects in order, each seeing the output of the one
// before. Nil effects are skipped. The last warning wins, so a clamp placed
// at the end reports over anything earlier.
type Chain struct {
	Effects []Environment
}

func (c *Chain) Apply(dt float64, pos vector.Vec3, step vector.Vec3) (vector.Vec3, vector.Vec3, string) {
	var warning string
	for _, e := range c.Effects {
		if e == nil {
			continue
		}
		var w string
		pos, step, w = e.Apply(dt, pos, step)
		if w != "" {
			warning = w
		}
	}
	return pos, step, warning
}
