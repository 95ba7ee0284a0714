package mapman

import (
	"slices"

	"github.com/joeblew999/qgeomap/internal/metrics"
	"github.com/joeblew999/qgeomap/internal/shape"
	"github.com/joeblew999/qgeomap/internal/surface"
)

// Diagnostic toolkit lifecycle events. They are logged and counted only.
const (
	EventDrawStart  = "draw:drawstart"
	EventDrawStop   = "draw:drawstop"
	EventDrawVertex = "draw:drawvertex"
	EventEditStart  = "draw:editstart"
	EventEditMove   = "draw:editmove"
	EventEditResize = "draw:editresize"
	EventEditVertex = "draw:editvertex"
	EventEditStop   = "draw:editstop"
)

// DiagnosticEvents lists the lifecycle events Observe accepts.
var DiagnosticEvents = []string{
	EventDrawStart, EventDrawStop, EventDrawVertex,
	EventEditStart, EventEditMove, EventEditResize, EventEditVertex, EventEditStop,
}

// Created stages a shape the toolkit just drew. No duplicate check is made.
func (m *Manager) Created(s shape.Shape) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.group.Add(s)
	m.surf.AddLayer(surface.ShapeLayer(s))
	metrics.ShapesCreatedTotal.Inc()
	m.log.Info("shape_created", "id", s.ID(), "kind", s.Kind(), "staged", m.group.Len())
}

// Deleted unstages the shapes of a bulk delete and returns how many were
// staged. Unknown ids are ignored.
func (m *Manager) Deleted(ids ...string) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, id := range ids {
		if m.group.Remove(id) {
			m.surf.RemoveLayer(id)
			n++
		}
	}
	metrics.ShapesDeletedTotal.Add(float64(n))
	m.log.Info("shapes_deleted", "requested", len(ids), "removed", n, "staged", m.group.Len())
	return n
}

// Updated applies the toolkit's edited event: each shape replaces the
// staged shape with the same id. It returns how many were staged.
func (m *Manager) Updated(shapes ...shape.Shape) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, s := range shapes {
		if m.group.Replace(s) {
			m.surf.AddLayer(surface.ShapeLayer(s))
			n++
		}
	}
	m.log.Info("shapes_updated", "requested", len(shapes), "updated", n)
	return n
}

// Observe records a diagnostic toolkit event. It never changes state.
// Events outside DiagnosticEvents are counted as "other".
func (m *Manager) Observe(event string, attrs ...any) {
	label := event
	if !slices.Contains(DiagnosticEvents, event) {
		label = "other"
	}
	metrics.ToolkitEventsTotal.WithLabelValues(label).Inc()
	m.log.Debug("toolkit_event", append([]any{"event", event}, attrs...)...)
}
