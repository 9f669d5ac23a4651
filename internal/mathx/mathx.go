// Package mathx holds the scalar helpers shared by the flight, camera and
// lighting models.
package mathx

import (
	gomath "math"

	"golang.org/x/exp/constraints"
)

// Radians converts an angle expressed in degrees to radians
func Radians(d float64) float64 {
	return d / 180 * gomath.Pi
}

// Degrees converts an angle expressed in radians to degrees
func Degrees(r float64) float64 {
	return r * 180 / gomath.Pi
}

func Clamp[T constraints.Ordered](x T, low T, high T) T {
	if x < low {
		return low
	} else if x > high {
		return high
	}
	return x
}

func Abs[V constraints.Integer | constraints.Float](x V) V {
	if x < 0 {
		return -x
	}
	return x
}

func Sqr[V constraints.Integer | constraints.Float](v V) V { return v * v }

func Lerp(x, a, b float64) float64 {
	return (1-x)*a + x*b
}

// SmoothFactor returns the fraction of the remaining distance covered by
// an exponential approach with the given rate (1/s) over dt seconds:
// 1 - exp(-rate*dt). Two steps of dt cover the same ground as one of 2*dt.
func SmoothFactor(rate, dt float64) float64 {
	if rate <= 0 || dt <= 0 {
		return 0
	}
	return 1 - gomath.Exp(-rate*dt)
}

// Approach moves cur towards target by SmoothFactor(rate, dt).
func Approach(cur, target, rate, dt float64) float64 {
	return cur + (target-cur)*SmoothFactor(rate, dt)
}

// Decay scales v towards zero as exp(-rate*dt).
func Decay(v, rate, dt float64) float64 {
	return v * (1 - SmoothFactor(rate, dt))
}

// NormalizeHeading maps h into [0, 360).
func NormalizeHeading(h float64) float64 {
	if gomath.IsNaN(h) || gomath.IsInf(h, 0) {
		return 0
	}
	h = gomath.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		// -tiny + 360 rounds to 360
		h = 0
	}
	return h
}

// Finite returns v, or fallback if v is NaN or infinite.
func Finite(v, fallback float64) float64 {
	if gomath.IsNaN(v) || gomath.IsInf(v, 0) {
		return fallback
	}
	return v
}
