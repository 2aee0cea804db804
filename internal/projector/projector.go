// Package projector turns raw terrain-analysis responses into map-ready results.
//
// The backend response is not validated against a schema. Only the presence of
// "results" is required; every other read degrades to an absent value or to the
// configured default map center.
package projector

import (
	"encoding/json"
	"fmt"
)

// MapCenter is a map-centering coordinate in degrees.
type MapCenter struct {
	Latitude  float64 `json:"latitude" doc:"Latitude in degrees" example:"48.85"`
	Longitude float64 `json:"longitude" doc:"Longitude in degrees" example:"2.35"`
}

// LatLon returns the center as [lat, lon], the order Leaflet expects.
func (c MapCenter) LatLon() [2]float64 {
	return [2]float64{c.Latitude, c.Longitude}
}

// DTMSummary is the elevation summary reported by the backend.
type DTMSummary struct {
	MinElevation float64 `json:"minElevation" doc:"Minimum terrain elevation (m)"`
	MaxElevation float64 `json:"maxElevation" doc:"Maximum terrain elevation (m)"`
	AreaCovered  float64 `json:"areaCovered,omitempty" doc:"DTM cell count reported by the backend"`
	Present      bool    `json:"present" doc:"Whether the backend reported a summary"`
}

// Projection is the projected form of one successful analysis. It is never
// modified after Project returns.
type Projection struct {
	Summary      DTMSummary `json:"summary"`
	Waterlogging *Layer     `json:"waterlogging,omitempty" doc:"Predicted standing-water polygons"`
	Drainage     *Layer     `json:"drainage,omitempty" doc:"Predicted surface flow lines"`
	Center       MapCenter  `json:"center"`

	// CenterDerived is false when Center is the configured fallback.
	CenterDerived bool `json:"centerDerived"`
	// CenterMiss names the read that failed when CenterDerived is false.
	CenterMiss string `json:"centerMiss,omitempty"`
}

// Layer returns the named layer ("waterlogging" or "drainage"), or nil.
func (p *Projection) Layer(name string) *Layer {
	switch name {
	case LayerWaterlogging:
		return p.Waterlogging
	case LayerDrainage:
		return p.Drainage
	}
	return nil
}

// LookupLayer is Layer with name validation. It returns ErrUnknownLayer for
// an invalid name and a nil layer when the backend did not report it.
func (p *Projection) LookupLayer(name string) (*Layer, error) {
	if name != LayerWaterlogging && name != LayerDrainage {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, name)
	}
	return p.Layer(name), nil
}

// Projector derives projections using a fixed fallback center.
type Projector struct {
	fallback MapCenter
}

// New creates a projector that falls back to the given center.
func New(fallback MapCenter) *Projector {
	return &Projector{fallback: fallback}
}

// Fallback returns the default map center.
func (p *Projector) Fallback() MapCenter {
	return p.fallback
}

// Project builds a Projection from a decoded backend response. It only fails
// with *MissingResultsError when raw carries no "results" payload.
func (p *Projector) Project(raw map[string]any) (*Projection, error) {
	results, ok := field(any(raw), "results")
	if !ok {
		status, _ := field(any(raw), "status")
		s, _ := status.(string)
		return nil, &MissingResultsError{Status: s}
	}

	proj := &Projection{
		Summary: readSummary(results),
		Center:  p.fallback,
	}

	wl, _ := field(results, LayerWaterlogging)
	proj.Waterlogging = newLayer(LayerWaterlogging, wl)
	dr, _ := field(results, LayerDrainage)
	proj.Drainage = newLayer(LayerDrainage, dr)

	if center, miss, ok := p.deriveCenter(wl); ok {
		proj.Center = center
		proj.CenterDerived = true
	} else {
		proj.CenterMiss = miss
	}
	return proj, nil
}

// deriveCenter reads the first position of the first waterlogging feature.
// Positions are stored [lon, lat] and are swapped into the MapCenter.
func (p *Projector) deriveCenter(waterlogging any) (MapCenter, string, bool) {
	if waterlogging == nil {
		return p.fallback, LayerWaterlogging, false
	}
	v, path, ok := walk(waterlogging, centerPath)
	if !ok {
		return p.fallback, LayerWaterlogging + path, false
	}
	lon, lat, ok := position(v)
	if !ok {
		return p.fallback, LayerWaterlogging + path + " position", false
	}
	return MapCenter{Latitude: lat, Longitude: lon}, "", true
}

func readSummary(results any) DTMSummary {
	dtm, ok := field(results, "dtm_summary")
	if !ok {
		return DTMSummary{}
	}
	var s DTMSummary
	minV, _ := field(dtm, "min_z")
	maxV, _ := field(dtm, "max_z")
	minZ, okMin := number(minV)
	maxZ, okMax := number(maxV)
	if okMin && okMax {
		s.MinElevation, s.MaxElevation, s.Present = minZ, maxZ, true
	}
	if area, ok := field(dtm, "area_covered"); ok {
		s.AreaCovered, _ = number(area)
	}
	return s
}

// Decode unmarshals a backend response body for Project.
func Decode(body []byte) (map[string]any, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
