// Package editmode decides how an editing session starts for an entry:
// drawing a fresh shape of some kind, or editing the entry's geometry.
package editmode

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/joeblew999/qgeomap/internal/entry"
)

// Mode is the session start mode.
type Mode string

const (
	ModeDraw Mode = "draw"
	ModeEdit Mode = "edit"
)

// Decision is computed fresh for every session start.
type Decision struct {
	Mode Mode       `json:"mode"`
	Kind entry.Kind `json:"kind,omitempty"`
}

// Draw returns a draw decision for k.
func Draw(k entry.Kind) Decision { return Decision{Mode: ModeDraw, Kind: k} }

// Edit returns an edit decision for k.
func Edit(k entry.Kind) Decision { return Decision{Mode: ModeEdit, Kind: k} }

// DrawAny is the decision for a session started without an entry.
var DrawAny = Draw(entry.KindAny)

func (d Decision) String() string {
	if d.Kind == entry.KindAny {
		return string(d.Mode) + ":any"
	}
	return string(d.Mode) + ":" + string(d.Kind)
}

// ErrUnresolvable means the entry has neither an is_new marker nor geometry.
var ErrUnresolvable = errors.New("entry has neither is_new nor geometry")

// Decide picks the start mode for e. A nil entry yields DrawAny. An is_new
// marker wins over any geometry present.
func Decide(e *entry.Entry) (Decision, error) {
	if e == nil {
		return DrawAny, nil
	}
	if e.IsNew != nil {
		return Draw(e.IsNew.GeomType), nil
	}
	if !e.HasGeometry() {
		return Decision{}, fmt.Errorf("entry %s: %w", e.Label(), ErrUnresolvable)
	}
	k, err := Classify(e.Geometry)
	if err != nil {
		return Decision{}, fmt.Errorf("entry %s: %w", e.Label(), err)
	}
	return Edit(k), nil
}

type node struct {
	Type       string            `json:"type"`
	Geometry   json.RawMessage   `json:"geometry"`
	Properties map[string]any    `json:"properties"`
	Features   []json.RawMessage `json:"features"`
	Geometries []json.RawMessage `json:"geometries"`
}

// Classify derives the shape kind of a GeoJSON value. Feature wrappers are
// unwrapped; a Point inside a Feature with a numeric radius is a circle.
// Collections are classified by their first classifiable member and an
// empty collection is KindAny.
func Classify(data json.RawMessage) (entry.Kind, error) {
	return classify(data, nil)
}

func classify(data json.RawMessage, props map[string]any) (entry.Kind, error) {
	var n node
	if err := json.Unmarshal(data, &n); err != nil {
		return entry.KindAny, fmt.Errorf("decoding geometry: %w", err)
	}

	switch n.Type {
	case "Feature":
		if n.Properties == nil {
			n.Properties = props
		}
		return classify(n.Geometry, n.Properties)
	case "FeatureCollection":
		return first(n.Features)
	case "GeometryCollection":
		return first(n.Geometries)
	case "Point", "MultiPoint":
		if _, ok := props[entry.RadiusProperty].(float64); ok && n.Type == "Point" {
			return entry.KindCircle, nil
		}
		return entry.KindPoint, nil
	case "LineString", "MultiLineString":
		return entry.KindLineString, nil
	case "Polygon", "MultiPolygon":
		return entry.KindPolygon, nil
	}
	return entry.KindAny, fmt.Errorf("unrecognized geometry type %q", n.Type)
}

func first(members []json.RawMessage) (entry.Kind, error) {
	for _, m := range members {
		if k, err := classify(m, nil); err == nil && k != entry.KindAny {
			return k, nil
		}
	}
	return entry.KindAny, nil
}
