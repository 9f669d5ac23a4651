package flight

import "globe-flight/internal/mathx"

// Phase is a coarse description of what the aircraft is doing, derived
// each tick from altitude, speed, throttle and vertical rate.
type Phase int

const (
	Parked Phase = iota
	Taxi
	TakeoffRoll
	Climb
	Cruise
	Descent
)

var phaseNames = [...]string{
	Parked:      "parked",
	Taxi:        "taxi",
	TakeoffRoll: "takeoff_roll",
	Climb:       "climbing",
	Cruise:      "cruise",
	Descent:     "descending",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// OnGround reports whether the phase is one of the ground phases.
func (p Phase) OnGround() bool { return p == Taxi || p == TakeoffRoll }

// nextPhase applies the phase policy:
//
//   - within GroundBand of the floor: Taxi while slow with the throttle
//     not advanced, TakeoffRoll otherwise;
//   - airborne: Climb/Descent once the smoothed vertical rate passes
//     ±ClimbEnter, held until it falls back inside ±ClimbExit; Cruise
//     in between.
func nextPhase(cur Phase, p Params, spec Spec, altitude, speed, throttle, vRate float64) Phase {
	if altitude-p.MinAltitude < p.GroundBand {
		taxiSpeed := spec.MinSpeed + p.TaxiFraction*max(spec.CruiseSpeed-spec.MinSpeed, 0)
		if speed < taxiSpeed && throttle <= 0 {
			return Taxi
		}
		return TakeoffRoll
	}

	switch {
	case vRate > p.ClimbEnter, cur == Climb && vRate > p.ClimbExit:
		return Climb
	case vRate < -p.ClimbEnter, cur == Descent && vRate < -p.ClimbExit:
		return Descent
	default:
		return Cruise
	}
}

// ShakeTarget returns the camera shake intensity, in [0, 1], that the
// phase calls for.
func (p Phase) ShakeTarget() float64 {
	switch p {
	case TakeoffRoll:
		return 1
	case Climb:
		return 0.5
	case Taxi:
		return 0.15
	default:
		return 0
	}
}

// smoothVerticalRate folds the rate observed over dt into the running
// estimate.
func smoothVerticalRate(cur, prevAlt, alt, rate, dt float64) float64 {
	if dt <= 0 {
		return cur
	}
	return mathx.Approach(cur, (alt-prevAlt)/dt, rate, dt)
}
