// Package track records the ground track of a flight and exports it as
// GeoJSON or as a compact msgpack+zstd archive.
package track

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/brunoga/deep"
	"github.com/klauspost/compress/zstd"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/simplify"
	"github.com/vmihailenco/msgpack/v5"
)

// Point is one recorded sample.
type Point struct {
	T        time.Time `json:"t" msgpack:"t"`
	Lat      float64   `json:"lat" msgpack:"lat"`
	Lon      float64   `json:"lon" msgpack:"lon"`
	Altitude float64   `json:"alt" msgpack:"alt"`
	Speed    float64   `json:"speed" msgpack:"speed"`
	Heading  float64   `json:"heading" msgpack:"heading"`
	Phase    string    `json:"phase" msgpack:"phase"`
}

// Track is a recorded flight.
type Track struct {
	Aircraft string    `json:"aircraft" msgpack:"aircraft"`
	Started  time.Time `json:"started" msgpack:"started"`
	Points   []Point   `json:"points" msgpack:"points"`
}

// Recorder samples points no more often than its interval and keeps at
// most maxPoints of them, thinning older samples when full.
type Recorder struct {
	interval  time.Duration
	maxPoints int
	track     Track
	last      time.Time
}

const DefaultMaxPoints = 4096

func NewRecorder(interval time.Duration, maxPoints int) *Recorder {
	if interval < 0 {
		interval = 0
	}
	if maxPoints < 2 {
		maxPoints = DefaultMaxPoints
	}
	return &Recorder{interval: interval, maxPoints: maxPoints}
}

// Start discards the current track and begins a new one.
func (r *Recorder) Start(aircraft string, now time.Time) {
	r.track = Track{Aircraft: aircraft, Started: now}
	r.last = time.Time{}
}

// Record appends p unless the previous sample is more recent than the
// interval. It reports whether p was kept.
func (r *Recorder) Record(p Point) bool {
	if !r.last.IsZero() && p.T.Sub(r.last) < r.interval {
		return false
	}
	if len(r.track.Points) >= r.maxPoints {
		r.thin()
	}
	r.track.Points = append(r.track.Points, p)
	r.last = p.T
	return true
}

// thin drops every other point, keeping the first, and doubles the
// interval so the track covers the whole flight at a coarser rate.
func (r *Recorder) thin() {
	pts := r.track.Points
	n := 0
	for i := 0; i < len(pts); i += 2 {
		pts[n] = pts[i]
		n++
	}
	clear(pts[n:])
	r.track.Points = pts[:n]
	r.interval = max(2*r.interval, time.Second)
}

func (r *Recorder) Len() int { return len(r.track.Points) }

// Track returns a copy of the recorded track.
func (r *Recorder) Track() Track {
	return deep.MustCopy(r.track)
}

// GeoJSON returns the track as a feature collection: one LineString or
// MultiLineString feature for the path, split where it crosses the
// antimeridian, and Point features for its two ends. A positive
// tolerance, in degrees, simplifies the path.
func (t Track) GeoJSON(tolerance float64) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if len(t.Points) == 0 {
		return fc
	}

	var lines orb.MultiLineString
	var cur orb.LineString
	for i, p := range t.Points {
		if i > 0 && math.Abs(p.Lon-t.Points[i-1].Lon) > 180 {
			lines = append(lines, cur)
			cur = nil
		}
		cur = append(cur, orb.Point{p.Lon, p.Lat})
	}
	lines = append(lines, cur)

	if tolerance > 0 {
		for i, ls := range lines {
			if s, ok := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone()).(orb.LineString); ok {
				lines[i] = s
			}
		}
	}

	var path orb.Geometry = lines
	if len(lines) == 1 {
		path = lines[0]
	}
	f := geojson.NewFeature(path)
	f.Properties["aircraft"] = t.Aircraft
	f.Properties["started"] = t.Started.UTC().Format(time.RFC3339)
	f.Properties["points"] = len(t.Points)
	fc.Append(f)

	first, last := t.Points[0], t.Points[len(t.Points)-1]
	for _, end := range []struct {
		name string
		p    Point
	}{{"start", first}, {"end", last}} {
		f := geojson.NewFeature(orb.Point{end.p.Lon, end.p.Lat})
		f.Properties["name"] = end.name
		f.Properties["time"] = end.p.T.UTC().Format(time.RFC3339)
		f.Properties["altitude"] = end.p.Altitude
		fc.Append(f)
	}
	return fc
}

// Save writes t as zstd-compressed msgpack.
func (t Track) Save(w io.Writer) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("track: %w", err)
	}
	if err := msgpack.NewEncoder(zw).Encode(t); err != nil {
		zw.Close()
		return fmt.Errorf("track: encode: %w", err)
	}
	return zw.Close()
}

// Load reads a track written by Save.
func Load(r io.Reader) (Track, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return Track{}, fmt.Errorf("track: %w", err)
	}
	defer zr.Close()

	var t Track
	if err := msgpack.NewDecoder(zr).Decode(&t); err != nil {
		return Track{}, fmt.Errorf("track: decode: %w", err)
	}
	return t, nil
}
