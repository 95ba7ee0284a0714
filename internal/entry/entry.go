// Package entry defines the host-side map entry that a session edits.
//
// The session core only reads three things from an entry: its color, its
// stored GeoJSON geometry and the optional "is_new" marker. Everything else
// (ID, Name) belongs to the host application.
package entry

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Kind is the shape kind derived from a geometry or requested for a fresh draw.
type Kind string

const (
	KindAny        Kind = ""
	KindPoint      Kind = "Point"
	KindCircle     Kind = "Circle"
	KindLineString Kind = "LineString"
	KindPolygon    Kind = "Polygon"
	KindRectangle  Kind = "Rectangle"
)

// RadiusProperty is the feature property, in meters, that marks a stored
// Point as a circle.
const RadiusProperty = "radius"

// Kinds lists every concrete kind in toolbar order.
var Kinds = []Kind{KindPoint, KindCircle, KindLineString, KindPolygon, KindRectangle}

// aliases maps the names used by drawing toolbars and layer configs to kinds.
var aliases = map[string]Kind{
	"point":      KindPoint,
	"marker":     KindPoint,
	"circle":     KindCircle,
	"linestring": KindLineString,
	"line":       KindLineString,
	"polyline":   KindLineString,
	"polygon":    KindPolygon,
	"rectangle":  KindRectangle,
}

// ParseKind resolves a kind name case-insensitively, accepting toolbar aliases.
func ParseKind(s string) (Kind, bool) {
	k, ok := aliases[strings.ToLower(strings.TrimSpace(s))]
	return k, ok
}

// NewShape marks an entry with no geometry yet: a fresh draw of GeomType.
type NewShape struct {
	GeomType Kind `json:"geomType" enum:"Point,Circle,LineString,Polygon,Rectangle" doc:"Shape kind to draw" example:"Polygon"`
}

// Entry is an editable map object.
type Entry struct {
	ID       string          `json:"id,omitempty" doc:"Stable entry identifier" example:"station-42"`
	Name     string          `json:"name,omitempty" maxLength:"200" doc:"Display name" example:"Station 42"`
	Color    string          `json:"color,omitempty" doc:"Display color (CSS)" example:"#3388ff"`
	Geometry json.RawMessage `json:"geometry,omitempty" doc:"GeoJSON Point, LineString, Polygon, Feature or FeatureCollection"`
	IsNew    *NewShape       `json:"is_new,omitempty" doc:"Start a fresh draw of this shape kind instead of editing"`
}

// HasGeometry reports whether the entry carries a non-null geometry value.
func (e *Entry) HasGeometry() bool {
	if e == nil {
		return false
	}
	g := bytes.TrimSpace(e.Geometry)
	return len(g) > 0 && !bytes.Equal(g, []byte("null"))
}

// Label returns a short human-readable identity for logs.
func (e *Entry) Label() string {
	switch {
	case e == nil:
		return "<none>"
	case e.ID != "":
		return e.ID
	case e.Name != "":
		return e.Name
	}
	return "<anonymous>"
}
