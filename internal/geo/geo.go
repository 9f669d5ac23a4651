// Package geo converts between geodetic coordinates on a fixed-radius
// sphere and the sphere-centered Cartesian scene frame.
package geo

import (
	"math"

	"globe-flight/internal/geometry/vector"
	"globe-flight/internal/mathx"
)

// EarthRadiusKm is the real-world radius that scene distances are scaled
// back to.
const EarthRadiusKm = 6371.0

// poleTolerance is the horizontal radius, relative to the full radius,
// under which a point is treated as sitting on a pole.
const poleTolerance = 1e-9

// Position is a geodetic position. Lat and Lon are degrees, Alt is the
// distance above the reference sphere in scene units.
type Position struct {
	Lat float64 `json:"lat" msgpack:"lat"`
	Lon float64 `json:"lon" msgpack:"lon"`
	Alt float64 `json:"alt" msgpack:"alt"`
}

// ToCartesian maps p onto the scene frame: Y points at the north pole,
// Z at (0°, 0°) and X at (0°, 90°E). The radius is sceneRadius+p.Alt.
func ToCartesian(p Position, sceneRadius float64) vector.Vec3 {
	r := sceneRadius + p.Alt
	lat := mathx.Radians(p.Lat)
	lon := mathx.Radians(p.Lon)
	cosLat := math.Cos(lat)
	return vector.Vec3{
		X: r * cosLat * math.Sin(lon),
		Y: r * math.Sin(lat),
		Z: r * cosLat * math.Cos(lon),
	}
}

// FromCartesian is the inverse of ToCartesian. At the poles, where
// longitude is indeterminate, it reports longitude 0.
func FromCartesian(v vector.Vec3, sceneRadius float64) Position {
	return FromCartesianHint(v, sceneRadius, 0)
}

// FromCartesianHint is like FromCartesian but reports prevLon at the
// poles, so that a track crossing a pole keeps a continuous longitude.
// The origin maps to (0, prevLon) at altitude -sceneRadius.
func FromCartesianHint(v vector.Vec3, sceneRadius, prevLon float64) Position {
	r := v.Norm()
	if r < vector.Epsilon {
		return Position{Lat: 0, Lon: NormalizeLongitude(prevLon), Alt: -sceneRadius}
	}

	lat := 90 - mathx.Degrees(math.Acos(mathx.Clamp(v.Y/r, -1, 1)))

	lon := NormalizeLongitude(prevLon)
	if math.Hypot(v.X, v.Z) > poleTolerance*r {
		lon = NormalizeLongitude(mathx.Degrees(math.Atan2(v.X, v.Z)))
	}
	return Position{Lat: lat, Lon: lon, Alt: r - sceneRadius}
}

// NormalizeLongitude maps lon into (-180, 180].
func NormalizeLongitude(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0
	}
	lon = math.Mod(lon, 360)
	if lon <= -180 {
		lon += 360
	} else if lon > 180 {
		lon -= 360
	}
	return lon
}

// LongitudeDelta returns the signed difference a-b, wrapped into
// (-180, 180], so that 179 and -179 are 2 degrees apart.
func LongitudeDelta(a, b float64) float64 {
	return NormalizeLongitude(a - b)
}

// LocalUp returns the unit radial vector through v, or +Y for the origin.
func LocalUp(v vector.Vec3) vector.Vec3 {
	if u, ok := v.TryNormalize(); ok {
		return u
	}
	return vector.UnitY
}

// LocalFrame returns the east, north and up unit vectors of the tangent
// frame at v. At a pole, where east is undefined, +X stands in for it.
func LocalFrame(v vector.Vec3) (east, north, up vector.Vec3) {
	up = LocalUp(v)
	east, ok := vector.UnitY.Cross(up).TryNormalize()
	if !ok || math.Abs(up.Y) > 1-poleTolerance {
		east = vector.UnitX
	}
	north = up.Cross(east).Normalize()
	east = north.Cross(up).Normalize()
	return east, north, up
}

// ChordDistance is the straight-line distance in scene units between a
// and b.
func ChordDistance(a, b Position, sceneRadius float64) float64 {
	return ToCartesian(a, sceneRadius).Distance(ToCartesian(b, sceneRadius))
}

// DistanceKm is ChordDistance scaled back to real-world kilometers by the
// ratio of the Earth's radius to the scene radius.
func DistanceKm(a, b Position, sceneRadius float64) float64 {
	if sceneRadius <= 0 {
		return 0
	}
	return ChordDistance(a, b, sceneRadius) * EarthRadiusKm / sceneRadius
}

// InitialBearing returns the great-circle initial bearing from a to b in
// degrees clockwise from north, in [0, 360).
func InitialBearing(a, b Position) float64 {
	lat1 := mathx.Radians(a.Lat)
	lat2 := mathx.Radians(b.Lat)
	dLon := mathx.Radians(LongitudeDelta(b.Lon, a.Lon))
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	if math.Abs(x) < 1e-15 && math.Abs(y) < 1e-15 {
		return 0
	}
	return mathx.NormalizeHeading(mathx.Degrees(math.Atan2(y, x)))
}

// HeadingDegFromVec returns the compass heading of a direction v at the
// scene position pos: 0=north, 90=east.
func HeadingDegFromVec(pos, v vector.Vec3) float64 {
	east, north, _ := LocalFrame(pos)
	e, n := v.Dot(east), v.Dot(north)
	if math.Abs(e) < 1e-12 && math.Abs(n) < 1e-12 {
		return 0
	}
	return mathx.NormalizeHeading(mathx.Degrees(math.Atan2(e, n)))
}
