package flight

import (
	"errors"
	"testing"

	"globe-flight/internal/geo"
)

func TestNextPhase(t *testing.T) {
	p := DefaultParams()
	spec, _ := SpecFor(Cessna) // taxi below 124 km/h
	ground := p.MinAltitude
	air := p.MinAltitude + 1

	tests := []struct {
		name     string
		cur      Phase
		alt      float64
		speed    float64
		throttle float64
		vRate    float64
		want     Phase
	}{
		{"slow on ground", Taxi, ground, 100, 0, 0, Taxi},
		{"throttle on ground", Taxi, ground, 100, 0.5, 0, TakeoffRoll},
		{"fast on ground", Taxi, ground, 150, 0, 0, TakeoffRoll},
		{"within ground band", TakeoffRoll, ground + p.GroundBand/2, 150, 1, 0.01, TakeoffRoll},
		{"climbing", TakeoffRoll, air, 150, 1, 0.004, Climb},
		{"climb held above exit", Climb, air, 150, 0, 0.002, Climb},
		{"cruise below enter", Cruise, air, 150, 0, 0.002, Cruise},
		{"climb released", Climb, air, 150, 0, 0.001, Cruise},
		{"descending", Cruise, air, 150, 0, -0.004, Descent},
		{"descent held", Descent, air, 150, 0, -0.002, Descent},
		{"descent released", Descent, air, 150, 0, -0.001, Cruise},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := nextPhase(tt.cur, p, spec, tt.alt, tt.speed, tt.throttle, tt.vRate); got != tt.want {
				t.Errorf("nextPhase = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestShakeTarget(t *testing.T) {
	tests := []struct {
		p    Phase
		want float64
	}{
		{Parked, 0}, {Taxi, 0.15}, {TakeoffRoll, 1}, {Climb, 0.5}, {Cruise, 0}, {Descent, 0},
	}
	for _, tt := range tests {
		if got := tt.p.ShakeTarget(); got != tt.want {
			t.Errorf("%v.ShakeTarget() = %v, want %v", tt.p, got, tt.want)
		}
	}
}

func TestTakeoffRollToClimb(t *testing.T) {
	m := newModel(t)
	takeoff(t, m, Cessna, geo.Position{Lat: 10, Lon: 10}, nil)

	seen := map[Phase]bool{}
	for i := 0; i < 600; i++ {
		in := ControlInput{Throttle: 1}
		if i > 150 {
			in.Pitch = 0.3
		}
		m.Step(in, 1.0/30)
		seen[m.State().Phase] = true
	}
	for _, p := range []Phase{TakeoffRoll, Climb} {
		if !seen[p] {
			t.Errorf("phase %v never reached; saw %v", p, seen)
		}
	}
}

func TestParseAircraftType(t *testing.T) {
	for _, typ := range AircraftTypes {
		got, err := ParseAircraftType(" " + typ.String() + " ")
		if err != nil || got != typ {
			t.Errorf("ParseAircraftType(%q) = %v, %v", typ.String(), got, err)
		}
	}
	for _, s := range []string{"", "zeppelin"} {
		if _, err := ParseAircraftType(s); !errors.Is(err, ErrNoAircraftSelected) {
			t.Errorf("ParseAircraftType(%q) err = %v", s, err)
		}
	}
	if _, ok := SpecFor(AircraftType(99)); ok {
		t.Error("SpecFor accepted an unknown type")
	}
	if NoAircraft.String() != "none" {
		t.Errorf("NoAircraft.String() = %q", NoAircraft.String())
	}
}
