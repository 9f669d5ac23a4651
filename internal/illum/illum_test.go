package illum

import (
	"math"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2026, time.June, 21, hour, minute, 0, 0, time.UTC)
}

func TestLocalSolarHour(t *testing.T) {
	tests := []struct {
		t    time.Time
		lon  float64
		want float64
	}{
		{at(12, 0), 0, 12},
		{at(12, 30), 0, 12.5},
		{at(12, 0), 90, 18},
		{at(12, 0), -90, 6},
		{at(0, 0), -15, 23},
		{at(23, 0), 30, 1},
		{at(12, 0), 180, 0},
		{at(12, 0), 540, 0},
		{time.Date(2026, 1, 1, 14, 0, 0, 0, time.FixedZone("x", 2*3600)), 0, 12},
	}
	for _, tt := range tests {
		if got := LocalSolarHour(tt.t, tt.lon); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("LocalSolarHour(%v, %v) = %v, want %v", tt.t, tt.lon, got, tt.want)
		}
	}
}

func TestTargetOpacity(t *testing.T) {
	tests := []struct{ hour, want float64 }{
		{0, 1},
		{5.99, 1},
		{6, 1},
		{6.5, 0.5},
		{7, 0},
		{12, 0},
		{18, 0},
		{18.25, 0.25},
		{19, 1},
		{19.01, 1},
		{23.9, 1},
	}
	for _, tt := range tests {
		if got := TargetOpacity(tt.hour); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("TargetOpacity(%v) = %v, want %v", tt.hour, got, tt.want)
		}
	}
}

func converge(m *Model, t time.Time, lon float64) {
	for range 600 {
		m.Update(t, lon, 0.1)
	}
}

func TestModes(t *testing.T) {
	tests := []struct {
		name string
		mode Mode
		t    time.Time
		want float64
	}{
		{"auto noon", Auto, at(12, 0), 0},
		{"auto midnight", Auto, at(0, 0), 1},
		{"day at midnight", Day, at(0, 0), 0},
		{"night at noon", Night, at(12, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(tt.mode, 0)
			m.opacity = 1 - tt.want
			converge(m, tt.t, 0)
			if math.Abs(m.Opacity()-tt.want) > 1e-6 {
				t.Errorf("opacity = %v, want %v", m.Opacity(), tt.want)
			}
		})
	}
}

func TestOpacityNeverSnaps(t *testing.T) {
	m := NewModel(Night, 0)
	m.Update(at(12, 0), 0, 1.0/60)
	if o := m.Opacity(); o <= 0 || o >= 0.1 {
		t.Errorf("opacity after one frame = %v, want a small step", o)
	}
	prev := m.Opacity()
	for range 10 {
		m.Update(at(12, 0), 0, 1.0/60)
		if m.Opacity() <= prev {
			t.Fatalf("opacity not increasing: %v -> %v", prev, m.Opacity())
		}
		prev = m.Opacity()
	}

	// A zero or invalid dt leaves the opacity alone.
	for _, dt := range []float64{0, -1, math.NaN()} {
		m.Update(at(12, 0), 0, dt)
		if m.Opacity() != prev {
			t.Errorf("dt %v moved opacity", dt)
		}
	}
}

func TestFrameRateIndependent(t *testing.T) {
	a, b := NewModel(Night, 0), NewModel(Night, 0)
	a.Update(at(0, 0), 0, 0.2)
	b.Update(at(0, 0), 0, 0.1)
	b.Update(at(0, 0), 0, 0.1)
	if math.Abs(a.Opacity()-b.Opacity()) > 1e-12 {
		t.Errorf("one 0.2s step %v != two 0.1s steps %v", a.Opacity(), b.Opacity())
	}
}

func TestParseMode(t *testing.T) {
	for s, want := range map[string]Mode{"auto": Auto, "Day": Day, " NIGHT ": Night} {
		got, err := ParseMode(s)
		if err != nil || got != want {
			t.Errorf("ParseMode(%q) = %v, %v", s, got, err)
		}
	}
	if _, err := ParseMode("dusk"); err == nil {
		t.Errorf("ParseMode(dusk) succeeded")
	}

	var m Mode
	if err := m.UnmarshalText([]byte("night")); err != nil || m != Night {
		t.Errorf("UnmarshalText = %v, %v", m, err)
	}
}
