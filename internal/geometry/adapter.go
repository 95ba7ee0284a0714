// Package geometry converts between entry GeoJSON and live session shapes.
//
// The circle encoding is a Feature whose geometry is a Point and whose
// properties carry a numeric "radius" in meters. ToShapes and
// ToFeatureCollection are exact inverses for that encoding.
package geometry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/shape"
	"github.com/joeblew999/qgeomap/internal/surface"
)

// RadiusProperty is the feature property that turns a Point into a circle.
const RadiusProperty = entry.RadiusProperty

// ErrUnsupported is returned for geometry values no shape can represent.
var ErrUnsupported = errors.New("unsupported geometry")

// envelope peeks at any GeoJSON object without committing to its type.
type envelope struct {
	Type       string             `json:"type"`
	Geometry   json.RawMessage    `json:"geometry"`
	Properties geojson.Properties `json:"properties"`
	Features   []json.RawMessage  `json:"features"`
}

// ToShapes materializes a GeoJSON value as an ordered, flat list of shapes.
// FeatureCollections are flattened in order; a feature that cannot be
// converted is skipped and the rest still convert. Any other failure is
// returned.
func ToShapes(data json.RawMessage) ([]shape.Shape, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding geojson: %w", err)
	}

	switch env.Type {
	case "FeatureCollection":
		var out []shape.Shape
		for i, raw := range env.Features {
			shapes, err := ToShapes(raw)
			if err != nil {
				slog.Warn("geometry_feature_skipped", "index", i, "err", err)
				continue
			}
			out = append(out, shapes...)
		}
		return out, nil

	case "Feature":
		return featureShapes(env)

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrUnsupported)
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", env.Type, err)
	}
	return fromOrb(g.Geometry(), nil)
}

// featureShapes unwraps nested Feature wrappers; the innermost feature's
// properties decide whether a point is a circle.
func featureShapes(env envelope) ([]shape.Shape, error) {
	for {
		if len(env.Geometry) == 0 || string(env.Geometry) == "null" {
			return nil, fmt.Errorf("%w: feature without geometry", ErrUnsupported)
		}
		var inner envelope
		if err := json.Unmarshal(env.Geometry, &inner); err != nil {
			return nil, fmt.Errorf("decoding feature geometry: %w", err)
		}
		if inner.Type != "Feature" {
			break
		}
		if inner.Properties == nil {
			inner.Properties = env.Properties
		}
		env = inner
	}

	g, err := geojson.UnmarshalGeometry(env.Geometry)
	if err != nil {
		return nil, fmt.Errorf("decoding feature geometry: %w", err)
	}
	return fromOrb(g.Geometry(), env.Properties)
}

func fromOrb(g orb.Geometry, props geojson.Properties) ([]shape.Shape, error) {
	switch g := g.(type) {
	case orb.Point:
		if r, ok := radius(props); ok {
			rest := props.Clone()
			delete(rest, RadiusProperty)
			return []shape.Shape{shape.NewCircle("", g, r, rest)}, nil
		}
		return []shape.Shape{shape.NewMarker("", g, props)}, nil
	case orb.MultiPoint:
		out := make([]shape.Shape, 0, len(g))
		for _, p := range g {
			out = append(out, shape.NewMarker("", p, props))
		}
		return out, nil
	case orb.LineString, orb.MultiLineString:
		return []shape.Shape{shape.NewPolyline("", g, props)}, nil
	case orb.Polygon, orb.MultiPolygon:
		return []shape.Shape{shape.NewPolygon("", g, props)}, nil
	case orb.Collection:
		var out []shape.Shape
		for _, member := range g {
			shapes, err := fromOrb(member, props)
			if err != nil {
				return nil, err
			}
			out = append(out, shapes...)
		}
		return out, nil
	case nil:
		return nil, fmt.Errorf("%w: empty geometry", ErrUnsupported)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, g.GeoJSONType())
}

func radius(props geojson.Properties) (float64, bool) {
	if props == nil {
		return 0, false
	}
	r, ok := props[RadiusProperty].(float64)
	return r, ok
}

// Materialize converts data to shapes and deposits each one on the surface
// and in the staging group, in order.
func Materialize(data json.RawMessage, surf surface.Surface, group *shape.Group) ([]shape.Shape, error) {
	shapes, err := ToShapes(data)
	if err != nil {
		return nil, err
	}
	for _, s := range shapes {
		group.Add(s)
		surf.AddLayer(surface.ShapeLayer(s))
	}
	return shapes, nil
}

// ToFeatureCollection serializes shapes in order. Circles become Point
// features with a radius property; other shapes emit their own form.
func ToFeatureCollection(shapes []shape.Shape) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, s := range shapes {
		switch s := s.(type) {
		case *shape.Circle:
			f := geojson.NewFeature(s.Center)
			for k, v := range s.Properties() {
				f.Properties[k] = v
			}
			f.Properties[RadiusProperty] = s.Radius
			fc.Append(f)
		default:
			fc.Append(s.Feature())
		}
	}
	return fc
}

// Drain serializes the group and empties it. A second call without new
// shapes yields an empty collection.
func Drain(group *shape.Group) *geojson.FeatureCollection {
	return ToFeatureCollection(group.Clear())
}
