package flight

import (
	"errors"
	"fmt"
	"strings"
)

// AircraftType identifies one of the fixed set of flyable aircraft. The
// zero value means no aircraft has been selected.
type AircraftType int

const (
	NoAircraft AircraftType = iota
	Cessna
	Airliner
	Fighter
	Glider
)

// ErrNoAircraftSelected is returned when a flight is started without a
// valid aircraft type.
var ErrNoAircraftSelected = errors.New("no aircraft selected")

// Spec holds the immutable performance figures of an aircraft type.
// Speeds are km/h.
type Spec struct {
	Type        AircraftType `json:"-"`
	Name        string       `json:"name"`
	CruiseSpeed float64      `json:"cruiseSpeed"`
	MinSpeed    float64      `json:"minSpeed"`
	MaxSpeed    float64      `json:"maxSpeed"`
	// Handling scales how quickly the aircraft responds to control input.
	Handling float64 `json:"handling"`
	// Scale is the visual size relative to the baseline model.
	Scale float64 `json:"scale"`
}

var specs = [...]Spec{
	Cessna:   {Type: Cessna, Name: "cessna", CruiseSpeed: 226, MinSpeed: 90, MaxSpeed: 300, Handling: 1.2, Scale: 0.8},
	Airliner: {Type: Airliner, Name: "airliner", CruiseSpeed: 850, MinSpeed: 250, MaxSpeed: 950, Handling: 0.6, Scale: 1.6},
	Fighter:  {Type: Fighter, Name: "fighter", CruiseSpeed: 1200, MinSpeed: 300, MaxSpeed: 2400, Handling: 1.8, Scale: 1},
	Glider:   {Type: Glider, Name: "glider", CruiseSpeed: 100, MinSpeed: 60, MaxSpeed: 250, Handling: 1, Scale: 1.2},
}

// AircraftTypes lists the selectable aircraft in catalog order.
var AircraftTypes = []AircraftType{Cessna, Airliner, Fighter, Glider}

// SpecFor returns the spec of t; ok is false for NoAircraft and values
// outside the catalog.
func SpecFor(t AircraftType) (Spec, bool) {
	if t <= NoAircraft || int(t) >= len(specs) {
		return Spec{}, false
	}
	return specs[t], true
}

func (t AircraftType) String() string {
	if s, ok := SpecFor(t); ok {
		return s.Name
	}
	if t == NoAircraft {
		return "none"
	}
	return fmt.Sprintf("AircraftType(%d)", int(t))
}

// ParseAircraftType maps a catalog name such as "cessna" to its type.
func ParseAircraftType(s string) (AircraftType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, t := range AircraftTypes {
		if specs[t].Name == s {
			return t, nil
		}
	}
	return NoAircraft, fmt.Errorf("%q: %w", s, ErrNoAircraftSelected)
}

func (t AircraftType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *AircraftType) UnmarshalText(b []byte) error {
	v, err := ParseAircraftType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
