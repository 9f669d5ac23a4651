package sim

import (
	"time"

	"globe-flight/internal/airports"
	"globe-flight/internal/camera"
	"globe-flight/internal/geo"
	"globe-flight/internal/geometry/vector"
)

// Snapshot is what the outside world sees of a tick: enough to drive a HUD
// and place the camera.
type Snapshot struct {
	Active   bool   `json:"active" msgpack:"active"`
	Aircraft string `json:"aircraft,omitempty" msgpack:"aircraft,omitempty"`
	Phase    string `json:"phase" msgpack:"phase"`

	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
	// Altitude is in scene units; AltitudeKm scales it to the Earth.
	Altitude   float64 `json:"altitude" msgpack:"altitude"`
	AltitudeKm float64 `json:"altitudeKm" msgpack:"altitudeKm"`

	Speed   float64 `json:"speed" msgpack:"speed"` // km/h
	Heading float64 `json:"heading" msgpack:"heading"`
	Pitch   float64 `json:"pitch" msgpack:"pitch"`
	Roll    float64 `json:"roll" msgpack:"roll"`

	Position    vector.Vec3 `json:"position" msgpack:"position"`
	Orientation [4]float64  `json:"orientation" msgpack:"orientation"` // x, y, z, w

	Destination             *geo.Position    `json:"destination,omitempty" msgpack:"destination,omitempty"`
	DistanceToDestinationKm *float64         `json:"distanceToDestinationKm" msgpack:"distanceToDestinationKm"`
	NearestAirport          *airports.Nearby `json:"nearestAirport,omitempty" msgpack:"nearestAirport,omitempty"`
	FlightTimeElapsed       float64          `json:"flightTimeElapsed" msgpack:"flightTimeElapsed"` // seconds

	CurrentView     string      `json:"currentView" msgpack:"currentView"`
	FieldOfView     float64     `json:"fieldOfView" msgpack:"fieldOfView"`
	Camera          camera.Pose `json:"camera" msgpack:"camera"`
	ViewTransitions int         `json:"viewTransitions" msgpack:"viewTransitions"`

	Lighting     string  `json:"lighting" msgpack:"lighting"`
	NightOpacity float64 `json:"nightOpacity" msgpack:"nightOpacity"`

	Warning string    `json:"warning,omitempty" msgpack:"warning,omitempty"`
	TS      time.Time `json:"ts" msgpack:"ts"`
}
