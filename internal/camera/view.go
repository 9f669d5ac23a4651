package camera

import (
	"fmt"
	"strings"

	"globe-flight/internal/mathx"
)

// View is a named camera placement relative to the aircraft.
type View int

const (
	Chase View = iota
	Cockpit
	Overhead
)

// Views is the cyclic order NextView walks through.
var Views = []View{Chase, Cockpit, Overhead}

// ViewParams are the static placement of a view. Distance and Height are
// scene units behind and above the aircraft before scaling by the
// aircraft's size; FieldOfView is the vertical field of view in degrees.
type ViewParams struct {
	Distance    float64 `json:"distance"`
	Height      float64 `json:"height"`
	FieldOfView float64 `json:"fov"`
}

var viewParams = map[View]ViewParams{
	Chase:    {Distance: 0.6, Height: 0.18, FieldOfView: 60},
	Cockpit:  {Distance: 0, Height: 0.02, FieldOfView: 75},
	Overhead: {Distance: 0.15, Height: 1.4, FieldOfView: 50},
}

var viewNames = map[View]string{
	Chase:    "chase",
	Cockpit:  "cockpit",
	Overhead: "overhead",
}

// Params returns the static parameters of v; unknown views get chase's.
func (v View) Params() ViewParams {
	if p, ok := viewParams[v]; ok {
		return p
	}
	return viewParams[Chase]
}

func (v View) String() string {
	if n, ok := viewNames[v]; ok {
		return n
	}
	return fmt.Sprintf("View(%d)", int(v))
}

func (v View) valid() bool {
	_, ok := viewNames[v]
	return ok
}

func (v View) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *View) UnmarshalText(b []byte) error {
	p, err := ParseView(string(b))
	if err != nil {
		return err
	}
	*v = p
	return nil
}

// ParseView returns the view named s, ignoring case.
func ParseView(s string) (View, error) {
	for _, v := range Views {
		if strings.EqualFold(strings.TrimSpace(s), viewNames[v]) {
			return v, nil
		}
	}
	return Chase, fmt.Errorf("camera: unknown view %q", s)
}

// next returns the view after v in Views, wrapping around.
func (v View) next() View {
	for i, w := range Views {
		if w == v {
			return Views[(i+1)%len(Views)]
		}
	}
	return Views[0]
}

func lerpParams(a, b ViewParams, t float64) ViewParams {
	return ViewParams{
		Distance:    mathx.Lerp(t, a.Distance, b.Distance),
		Height:      mathx.Lerp(t, a.Height, b.Height),
		FieldOfView: mathx.Lerp(t, a.FieldOfView, b.FieldOfView),
	}
}

// EaseInOutCubic maps t in [0, 1] onto an S-curve with zero slope at both
// ends.
func EaseInOutCubic(t float64) float64 {
	t = mathx.Clamp(t, 0, 1)
	if t < 0.5 {
		return 4 * t * t * t
	}
	u := -2*t + 2
	return 1 - u*u*u/2
}
