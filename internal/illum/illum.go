// Package illum derives the night-overlay opacity from the aircraft's
// longitude and the wall clock.
package illum

import (
	"fmt"
	"math"
	"strings"
	"time"

	"globe-flight/internal/geo"
	"globe-flight/internal/mathx"
)

// Mode selects how the overlay opacity is chosen.
type Mode int

const (
	Auto Mode = iota
	Day
	Night
)

var modeNames = [...]string{Auto: "auto", Day: "day", Night: "night"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "unknown"
	}
	return modeNames[m]
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMode accepts "auto", "day" or "night", ignoring case.
func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), n) {
			return Mode(i), nil
		}
	}
	return Auto, fmt.Errorf("illum: unknown mode %q", s)
}

// LocalSolarHour returns the mean solar hour, in [0, 24), at longitude lon
// (degrees east) at time t.
func LocalSolarHour(t time.Time, lon float64) float64 {
	u := t.UTC()
	h := float64(u.Hour()) + float64(u.Minute())/60 + (float64(u.Second())+float64(u.Nanosecond())/1e9)/3600
	h = math.Mod(h+geo.NormalizeLongitude(lon)/15+24, 24)
	if h < 0 || h >= 24 {
		return 0
	}
	return h
}

// Dawn and dusk windows, local solar hours.
const (
	dawnStart = 6.0
	dawnEnd   = 7.0
	duskStart = 18.0
	duskEnd   = 19.0
)

// TargetOpacity is the overlay opacity for a local solar hour: opaque at
// night, clear during the day, ramping linearly through dawn and dusk.
func TargetOpacity(hour float64) float64 {
	switch {
	case hour < dawnStart || hour > duskEnd:
		return 1
	case hour <= dawnEnd:
		return 1 - (hour - dawnStart)
	case hour < duskStart:
		return 0
	default:
		return hour - duskStart
	}
}

// DefaultRate is the approach rate (1/s) of the overlay opacity.
const DefaultRate = 0.5

// Model tracks the overlay opacity, which eases toward its target rather
// than jumping.
type Model struct {
	mode    Mode
	rate    float64
	opacity float64
	target  float64
}

// NewModel returns a model starting fully clear.
func NewModel(mode Mode, rate float64) *Model {
	if !(rate > 0) {
		rate = DefaultRate
	}
	return &Model{mode: mode, rate: rate}
}

func (m *Model) Mode() Mode { return m.mode }

// SetMode changes the mode; the opacity keeps easing from where it is.
func (m *Model) SetMode(mode Mode) { m.mode = mode }

// Target returns the opacity computed by the last Update.
func (m *Model) Target() float64 { return m.target }

func (m *Model) Opacity() float64 { return m.opacity }

// Update moves the opacity toward the target for mode, time t and
// longitude lon over dt seconds.
func (m *Model) Update(t time.Time, lon, dt float64) {
	switch m.mode {
	case Day:
		m.target = 0
	case Night:
		m.target = 1
	default:
		m.target = TargetOpacity(LocalSolarHour(t, lon))
	}
	dt = max(mathx.Finite(dt, 0), 0)
	m.opacity = mathx.Clamp(mathx.Approach(m.opacity, m.target, m.rate, dt), 0, 1)
}
