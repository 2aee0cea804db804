package workspace

import "github.com/joeblew999/droneflow/internal/projector"

// LayerStyle is a Leaflet path style.
type LayerStyle struct {
	Color       string  `json:"color"`
	Weight      int     `json:"weight"`
	Opacity     float64 `json:"opacity,omitempty"`
	FillColor   string  `json:"fillColor,omitempty"`
	FillOpacity float64 `json:"fillOpacity,omitempty"`
	DashArray   string  `json:"dashArray,omitempty"`
}

// LayerStyles maps analysis layers to their map style.
var LayerStyles = map[string]LayerStyle{
	projector.LayerWaterlogging: {Color: "#06b6d4", Weight: 4, FillColor: "#06b6d4", FillOpacity: 0.6},
	projector.LayerDrainage:     {Color: "#a855f7", Weight: 6, Opacity: 0.9, DashArray: "15, 20"},
}

// layerOrder is the draw order: polygons below lines.
var layerOrder = []string{projector.LayerWaterlogging, projector.LayerDrainage}
