package flight

import "globe-flight/internal/mathx"

// Attitude limits, degrees.
const (
	MaxPitch = 80.0
	MaxRoll  = 60.0
)

// Params are the tunables of the flight model.
type Params struct {
	// SceneRadius is the radius of the reference sphere in scene units.
	SceneRadius float64
	// MinAltitude and MaxAltitude bound the altitude above the sphere.
	MinAltitude float64
	MaxAltitude float64

	// Angular rates in degrees per second at full deflection and a
	// handling multiplier of 1.
	PitchRate float64
	RollRate  float64
	YawRate   float64
	// BankCoefficient is the heading change in degrees per second per
	// degree of roll.
	BankCoefficient float64

	// ThrottleGain is the speed target offset in km/h at full throttle.
	ThrottleGain float64
	// SpeedLag is the rate (1/s) at which speed follows its target.
	SpeedLag float64
	// LevelingRate is the rate (1/s) at which pitch and roll return to
	// level when their input is released.
	LevelingRate float64
	// SpeedScale converts km/h into scene units per second. It is
	// time-compressed relative to SceneRadius/EarthRadiusKm/3600.
	SpeedScale float64

	// Flight phase thresholds.
	GroundBand            float64 // scene units above MinAltitude still on the ground
	TaxiFraction          float64 // of the min..cruise speed range
	ClimbEnter            float64 // vertical rate, scene units/s
	ClimbExit             float64
	VerticalRateSmoothing float64 // 1/s
}

// DefaultParams returns the tuning used by the simulator.
func DefaultParams() Params {
	return Params{
		SceneRadius:           100,
		MinAltitude:           0.05,
		MaxAltitude:           12,
		PitchRate:             45,
		RollRate:              60,
		YawRate:               30,
		BankCoefficient:       0.5,
		ThrottleGain:          50,
		SpeedLag:              1.5,
		LevelingRate:          1,
		SpeedScale:            2e-4,
		GroundBand:            0.01,
		TaxiFraction:          0.25,
		ClimbEnter:            0.003,
		ClimbExit:             0.0015,
		VerticalRateSmoothing: 2,
	}
}

// Sanitized returns p with out-of-range values replaced silently: negative
// rates become zero, the altitude band is ordered and non-negative and a
// non-positive radius falls back to the default.
func (p Params) Sanitized() Params {
	d := DefaultParams()
	nonNeg := func(v float64) float64 { return mathx.Finite(max(v, 0), 0) }

	if !(p.SceneRadius > 0) {
		p.SceneRadius = d.SceneRadius
	}
	p.MinAltitude = nonNeg(p.MinAltitude)
	p.MaxAltitude = max(nonNeg(p.MaxAltitude), p.MinAltitude)
	p.PitchRate = nonNeg(p.PitchRate)
	p.RollRate = nonNeg(p.RollRate)
	p.YawRate = nonNeg(p.YawRate)
	p.BankCoefficient = nonNeg(p.BankCoefficient)
	p.ThrottleGain = nonNeg(p.ThrottleGain)
	p.SpeedLag = nonNeg(p.SpeedLag)
	p.LevelingRate = nonNeg(p.LevelingRate)
	p.SpeedScale = nonNeg(p.SpeedScale)
	p.GroundBand = nonNeg(p.GroundBand)
	p.TaxiFraction = mathx.Clamp(nonNeg(p.TaxiFraction), 0, 1)
	p.ClimbEnter = nonNeg(p.ClimbEnter)
	p.ClimbExit = mathx.Clamp(nonNeg(p.ClimbExit), 0, p.ClimbEnter)
	p.VerticalRateSmoothing = nonNeg(p.VerticalRateSmoothing)
	return p
}
