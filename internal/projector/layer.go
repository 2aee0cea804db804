package projector

import (
	"encoding/json"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// Layer names as they appear in the backend "results" object.
const (
	LayerWaterlogging = "waterlogging"
	LayerDrainage     = "drainage"
)

// Layer is a feature collection passed through verbatim from the backend.
type Layer struct {
	Name string `json:"name" doc:"Layer name" example:"waterlogging"`
	// Raw is the collection as received, re-encoded.
	Raw json.RawMessage `json:"-"`
	// Stats is nil when the collection is not valid GeoJSON.
	Stats *LayerStats `json:"stats,omitempty"`
}

// LayerStats summarises a layer for the telemetry panel. Area and length are
// in the units of the layer's coordinates.
type LayerStats struct {
	Features int       `json:"features" doc:"Number of features"`
	Bound    orb.Bound `json:"bound" doc:"Bounding box of all feature geometries"`
	Area     float64   `json:"area" doc:"Summed polygon area"`
	Length   float64   `json:"length" doc:"Summed line length"`
}

// FeatureCount returns the number of parsed features, 0 for a nil layer or
// one that is not valid GeoJSON.
func (l *Layer) FeatureCount() int {
	if l == nil || l.Stats == nil {
		return 0
	}
	return l.Stats.Features
}

func newLayer(name string, v any) *Layer {
	if v == nil {
		return nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return &Layer{Name: name, Raw: raw, Stats: layerStats(raw)}
}

func layerStats(raw []byte) *LayerStats {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil
	}

	stats := &LayerStats{Features: len(fc.Features)}
	first := true
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		g := f.Geometry
		if first {
			stats.Bound = g.Bound()
			first = false
		} else {
			stats.Bound = stats.Bound.Union(g.Bound())
		}

		switch g.(type) {
		case orb.Polygon, orb.MultiPolygon, orb.Ring:
			stats.Area += math.Abs(planar.Area(g))
		case orb.LineString, orb.MultiLineString:
			stats.Length += planar.Length(g)
		}
	}
	return stats
}
