// Package surface models the map the editing session draws on.
//
// The real map lives in the browser. A [Remote] keeps the server's view of
// what is mounted and forwards every mutation as a [Command] to a sink,
// which the server streams to the browser over SSE.
package surface

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/shape"
)

// LayerType tells the browser how to build a layer.
type LayerType string

const (
	LayerShape    LayerType = "shape"    // a drawable shape from the staging group
	LayerTile     LayerType = "tile"     // an XYZ tile layer
	LayerProvider LayerType = "provider" // one or more provider basemaps stacked
	LayerGoogle   LayerType = "google"   // a third-party mapping API grid layer
)

// Layer is a map layer as the browser needs it.
type Layer struct {
	ID      string           `json:"id"`
	Type    LayerType        `json:"type"`
	Kind    entry.Kind       `json:"kind,omitempty"`
	Feature *geojson.Feature `json:"feature,omitempty"`
	Radius  float64          `json:"radius,omitempty"`
	Name    string           `json:"name,omitempty"`
	URL     string           `json:"url,omitempty"`
	Options map[string]any   `json:"options,omitempty"`
}

// ShapeLayer converts a staged shape into its surface layer.
func ShapeLayer(s shape.Shape) Layer {
	l := Layer{
		ID:      s.ID(),
		Type:    LayerShape,
		Kind:    s.Kind(),
		Feature: s.Feature(),
	}
	if c, ok := s.(*shape.Circle); ok {
		l.Radius = c.Radius
	}
	return l
}

// Control is a map control such as the draw toolbar or the layer switcher.
type Control struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	Position string `json:"position,omitempty"`
	Options  any    `json:"options,omitempty"`
}

// FitOptions constrain a bounds fit.
type FitOptions struct {
	MaxZoom int `json:"maxZoom,omitempty"`
}

// Surface is the map capability consumed by the session core.
type Surface interface {
	AddLayer(l Layer)
	RemoveLayer(id string)
	AddControl(c Control)
	RemoveControl(id string)
	FitBounds(b orb.Bound, opts FitOptions)
	AddClass(class string)
}

// ScriptInjector loads an external script into the page hosting the map.
type ScriptInjector interface {
	InjectScript(src string)
}
