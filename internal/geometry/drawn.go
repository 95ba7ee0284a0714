package geometry

import (
	"encoding/json"
	"fmt"

	"github.com/joeblew999/qgeomap/internal/shape"
)

// FromDrawn builds the shape for a toolkit "created" event. layerType is the
// draw tool that produced it, geometry the shape's own GeoJSON form, and
// radius the circle radius in meters (ignored for other tools).
//
// A circlemarker has a radius in screen pixels, not meters, so it becomes a
// plain marker.
func FromDrawn(layerType string, geometry json.RawMessage, radius float64) (shape.Shape, error) {
	shapes, err := ToShapes(geometry)
	if err != nil {
		return nil, err
	}
	if len(shapes) != 1 {
		return nil, fmt.Errorf("%w: drawn %s yielded %d shapes", ErrUnsupported, layerType, len(shapes))
	}
	s := shapes[0]

	switch layerType {
	case "circle":
		switch src := s.(type) {
		case *shape.Circle:
			if radius > 0 {
				return shape.NewCircle(src.ID(), src.Center, radius, src.Properties()), nil
			}
			return src, nil
		case *shape.Marker:
			return shape.NewCircle(src.ID(), src.Point, radius, src.Properties()), nil
		}
	case "rectangle":
		if p, ok := s.(*shape.Polygon); ok {
			return shape.NewRectangle(p.ID(), p.Area.Bound(), p.Properties()), nil
		}
	case "marker", "circlemarker":
		if c, ok := s.(*shape.Circle); ok {
			return shape.NewMarker(c.ID(), c.Center, c.Properties()), nil
		}
		if _, ok := s.(*shape.Marker); ok {
			return s, nil
		}
	case "polyline":
		if _, ok := s.(*shape.Polyline); ok {
			return s, nil
		}
	case "polygon":
		if _, ok := s.(*shape.Polygon); ok {
			return s, nil
		}
	default:
		return nil, fmt.Errorf("%w: unknown draw tool %q", ErrUnsupported, layerType)
	}
	return nil, fmt.Errorf("%w: %s drawn as %s", ErrUnsupported, s.Kind(), layerType)
}
