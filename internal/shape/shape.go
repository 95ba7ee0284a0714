// Package shape holds the live drawable shapes of an editing session.
//
// Shapes are a closed set of variants decided once at creation time. A
// circle is always a *Circle with an explicit center and radius, never a
// point that happens to carry a radius property.
package shape

import (
	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/qgeomap/internal/entry"
)

// Shape is a drawable shape on the map surface.
type Shape interface {
	// ID identifies the shape on the surface and in toolkit events.
	ID() string
	Kind() entry.Kind
	Bound() orb.Bound
	// Feature is the shape's own GeoJSON form. For a circle this is the
	// bare center point; the radius encoding is the adapter's concern.
	Feature() *geojson.Feature
	// Properties are the GeoJSON properties the shape was created with.
	Properties() geojson.Properties

	sealed()
}

type base struct {
	id    string
	props geojson.Properties
}

func newBase(id string, props geojson.Properties) base {
	if id == "" {
		id = uuid.NewString()
	}
	return base{id: id, props: props.Clone()}
}

func (b base) ID() string                     { return b.id }
func (b base) Properties() geojson.Properties { return b.props.Clone() }
func (b base) sealed()                        {}

func (b base) feature(g orb.Geometry) *geojson.Feature {
	f := geojson.NewFeature(g)
	for k, v := range b.props {
		f.Properties[k] = v
	}
	return f
}

// Marker is a single point.
type Marker struct {
	base
	Point orb.Point
}

// NewMarker returns a marker; an empty id gets a fresh one.
func NewMarker(id string, p orb.Point, props geojson.Properties) *Marker {
	return &Marker{base: newBase(id, props), Point: p}
}

func (m *Marker) Kind() entry.Kind          { return entry.KindPoint }
func (m *Marker) Bound() orb.Bound          { return m.Point.Bound() }
func (m *Marker) Feature() *geojson.Feature { return m.feature(m.Point) }

// Circle is a center with a radius in meters.
type Circle struct {
	base
	Center orb.Point
	Radius float64
}

// NewCircle returns a circle; an empty id gets a fresh one.
func NewCircle(id string, center orb.Point, radius float64, props geojson.Properties) *Circle {
	return &Circle{base: newBase(id, props), Center: center, Radius: radius}
}

func (c *Circle) Kind() entry.Kind { return entry.KindCircle }

func (c *Circle) Bound() orb.Bound {
	if c.Radius <= 0 {
		return c.Center.Bound()
	}
	return geo.NewBoundAroundPoint(c.Center, c.Radius)
}

func (c *Circle) Feature() *geojson.Feature { return c.feature(c.Center) }

// Polyline is a LineString or MultiLineString.
type Polyline struct {
	base
	Line orb.Geometry
}

// NewPolyline returns a polyline; an empty id gets a fresh one.
func NewPolyline(id string, line orb.Geometry, props geojson.Properties) *Polyline {
	return &Polyline{base: newBase(id, props), Line: line}
}

func (p *Polyline) Kind() entry.Kind          { return entry.KindLineString }
func (p *Polyline) Bound() orb.Bound          { return p.Line.Bound() }
func (p *Polyline) Feature() *geojson.Feature { return p.feature(p.Line) }

// Polygon is a Polygon or MultiPolygon.
type Polygon struct {
	base
	Area orb.Geometry
}

// NewPolygon returns a polygon; an empty id gets a fresh one.
func NewPolygon(id string, area orb.Geometry, props geojson.Properties) *Polygon {
	return &Polygon{base: newBase(id, props), Area: area}
}

func (p *Polygon) Kind() entry.Kind          { return entry.KindPolygon }
func (p *Polygon) Bound() orb.Bound          { return p.Area.Bound() }
func (p *Polygon) Feature() *geojson.Feature { return p.feature(p.Area) }

// Rectangle is an axis-aligned box drawn with the rectangle tool.
// Its GeoJSON form is a closed Polygon ring.
type Rectangle struct {
	base
	Bounds orb.Bound
}

// NewRectangle returns a rectangle; an empty id gets a fresh one.
func NewRectangle(id string, b orb.Bound, props geojson.Properties) *Rectangle {
	return &Rectangle{base: newBase(id, props), Bounds: b}
}

func (r *Rectangle) Kind() entry.Kind          { return entry.KindRectangle }
func (r *Rectangle) Bound() orb.Bound          { return r.Bounds }
func (r *Rectangle) Feature() *geojson.Feature { return r.feature(r.Bounds.ToPolygon()) }

// WithID returns a copy of s identified by id. An empty id returns s.
func WithID(s Shape, id string) Shape {
	if id == "" || id == s.ID() {
		return s
	}
	switch v := s.(type) {
	case *Marker:
		return NewMarker(id, v.Point, v.props)
	case *Circle:
		return NewCircle(id, v.Center, v.Radius, v.props)
	case *Polyline:
		return NewPolyline(id, v.Line, v.props)
	case *Polygon:
		return NewPolygon(id, v.Area, v.props)
	case *Rectangle:
		return NewRectangle(id, v.Bounds, v.props)
	}
	return s
}
