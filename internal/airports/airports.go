// Package airports holds the airport registry used to pick takeoff and
// destination points.
package airports

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/brunoga/deep"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"globe-flight/internal/geo"
	"globe-flight/internal/mathx"
)

//go:embed airports.json
var defaultAirports []byte

var ErrUnknownAirport = errors.New("unknown airport")

// Airport is a registry entry. Only Lat and Lon feed distance
// computations.
type Airport struct {
	Ident string  `json:"ident" msgpack:"ident"`
	Name  string  `json:"name" msgpack:"name"`
	Lat   float64 `json:"lat" msgpack:"lat"`
	Lon   float64 `json:"lon" msgpack:"lon"`
}

// Position returns the airport's position on the ground.
func (a Airport) Position() geo.Position {
	return geo.Position{Lat: a.Lat, Lon: a.Lon}
}

// Nearby is the result of a nearest-airport query.
type Nearby struct {
	Airport    Airport `json:"airport" msgpack:"airport"`
	DistanceKm float64 `json:"distanceKm" msgpack:"distanceKm"`
}

// nearestCell is the grid resolution, in degrees, at which nearest-airport
// candidates are cached.
const nearestCell = 0.25

type cellKey struct{ lat, lon int }

// Registry is an immutable set of airports. It is safe for concurrent use.
type Registry struct {
	airports []Airport
	byIdent  map[string]int
	// nearest maps a grid cell to the airports that may be closest to a
	// point in it.
	nearest *expirable.LRU[cellKey, []int]
}

// Default returns the registry built into the binary.
func Default() (*Registry, error) {
	return Parse(defaultAirports)
}

// Load reads a JSON array of airports from r.
func Load(r io.Reader) (*Registry, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("airports: %w", err)
	}
	return Parse(b)
}

// LoadFile reads a registry from path.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("airports: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Parse builds a registry from JSON. Entries with an empty or duplicate
// ident or coordinates out of range are rejected.
func Parse(b []byte) (*Registry, error) {
	var list []Airport
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("airports: %w", err)
	}

	r := &Registry{
		byIdent: make(map[string]int, len(list)),
		nearest: expirable.NewLRU[cellKey, []int](256, nil, time.Hour),
	}
	var errs []error
	for i, ap := range list {
		ap.Ident = strings.ToUpper(strings.TrimSpace(ap.Ident))
		switch {
		case ap.Ident == "":
			errs = append(errs, fmt.Errorf("entry %d: missing ident", i))
		case !(ap.Lat >= -90 && ap.Lat <= 90) || !(ap.Lon >= -180 && ap.Lon <= 180):
			errs = append(errs, fmt.Errorf("%s: coordinates (%v, %v) out of range", ap.Ident, ap.Lat, ap.Lon))
		default:
			if _, dup := r.byIdent[ap.Ident]; dup {
				errs = append(errs, fmt.Errorf("%s: duplicate ident", ap.Ident))
				continue
			}
			r.byIdent[ap.Ident] = len(r.airports)
			r.airports = append(r.airports, ap)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("airports: %w", err)
	}
	return r, nil
}

func (r *Registry) Len() int { return len(r.airports) }

// All returns a copy of the airports sorted by ident.
func (r *Registry) All() []Airport {
	all := deep.MustCopy(r.airports)
	slices.SortFunc(all, func(a, b Airport) int { return strings.Compare(a.Ident, b.Ident) })
	return all
}

// Lookup returns the airport with the given ident, ignoring case.
func (r *Registry) Lookup(ident string) (Airport, error) {
	i, ok := r.byIdent[strings.ToUpper(strings.TrimSpace(ident))]
	if !ok {
		return Airport{}, fmt.Errorf("%q: %w", ident, ErrUnknownAirport)
	}
	return r.airports[i], nil
}

// Nearest returns the airport closest to p by straight-line distance and
// the distance to it. It returns false for an empty registry.
func (r *Registry) Nearest(p geo.Position) (Nearby, bool) {
	if len(r.airports) == 0 || math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return Nearby{}, false
	}
	p.Alt = 0
	key := cellKey{
		lat: int(math.Floor(p.Lat / nearestCell)),
		lon: int(math.Floor(geo.NormalizeLongitude(p.Lon) / nearestCell)),
	}
	i, best := 0, math.Inf(1)
	for _, j := range r.candidates(key) {
		if d := geo.DistanceKm(p, r.airports[j].Position(), 1); d < best {
			i, best = j, d
		}
	}
	return Nearby{Airport: r.airports[i], DistanceKm: best}, true
}

// candidates returns, in registry order, the airports that can be nearest
// to some point of the cell.
func (r *Registry) candidates(key cellKey) []int {
	if c, ok := r.nearest.Get(key); ok {
		return c
	}

	lat0 := mathx.Clamp(float64(key.lat)*nearestCell, -90, 90)
	lat1 := mathx.Clamp(float64(key.lat+1)*nearestCell, -90, 90)
	lon0 := float64(key.lon) * nearestCell
	lon1 := lon0 + nearestCell
	center := geo.Position{Lat: (lat0 + lat1) / 2, Lon: (lon0 + lon1) / 2}

	// reach bounds the distance from the center to any point of the cell.
	var reach float64
	for _, lat := range []float64{lat0, center.Lat, lat1} {
		for _, lon := range []float64{lon0, center.Lon, lon1} {
			reach = max(reach, geo.DistanceKm(center, geo.Position{Lat: lat, Lon: lon}, 1))
		}
	}
	reach = reach*1.01 + 1e-6

	dist := make([]float64, len(r.airports))
	best := math.Inf(1)
	for j, ap := range r.airports {
		dist[j] = geo.DistanceKm(center, ap.Position(), 1)
		best = min(best, dist[j])
	}
	// A point within reach of the center is no farther than best+reach
	// from its nearest airport, which is then within best+2*reach of the
	// center.
	var c []int
	for j, d := range dist {
		if d <= best+2*reach {
			c = append(c, j)
		}
	}
	r.nearest.Add(key, c)
	return c
}
