// Package mapman runs the editing session of one map: which entry is being
// drawn or edited, the mounted draw toolbar, and the staging group of live
// shapes that becomes the entry's GeoJSON when editing ends.
//
// A Manager holds at most one session. Starting a session ends the previous
// one first. All methods are serialized, so concurrent HTTP handlers see the
// same strictly sequential order a single UI thread would.
package mapman

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/qgeomap/internal/basemap"
	"github.com/joeblew999/qgeomap/internal/editmode"
	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/geometry"
	"github.com/joeblew999/qgeomap/internal/metrics"
	"github.com/joeblew999/qgeomap/internal/shape"
	"github.com/joeblew999/qgeomap/internal/surface"
	"github.com/joeblew999/qgeomap/internal/toolbar"
)

const (
	// DefaultMaxZoom caps ZoomToEdited.
	DefaultMaxZoom = 11
	// StagingGroupID is the surface id of the staging group.
	StagingGroupID = "staging"
)

// Options configure a Manager.
type Options struct {
	InitialBaseLayer string
	MappingAPIKey    string
	// StrictTools gates draw tools by edit mode instead of enabling all.
	StrictTools bool
	// MaxZoom caps ZoomToEdited; zero means DefaultMaxZoom.
	MaxZoom int
	// Latch gates the third-party mapping layers; nil means basemap.GoogleAPI.
	Latch  *basemap.Latch
	Logger *slog.Logger
}

// Result is what an ended session hands back. Entry is nil for a session
// started without one.
type Result struct {
	Entry    *entry.Entry               `json:"entry"`
	Geometry *geojson.FeatureCollection `json:"geometry"`
}

// Status is a point-in-time view of the session.
type Status struct {
	Editing  bool              `json:"editing"`
	EntryID  string            `json:"entryId,omitempty"`
	Decision editmode.Decision `json:"decision"`
	Toolbar  string            `json:"toolbar,omitempty"`
	Staged   int               `json:"staged"`
}

// Manager is the editing session state machine of one map.
type Manager struct {
	mu    sync.Mutex
	surf  surface.Surface
	group *shape.Group
	opts  Options
	log   *slog.Logger
	setup basemap.Setup

	edited   *entry.Entry
	control  *surface.Control
	decision editmode.Decision
	seq      int
}

// New decorates the map and returns an idle manager staging into group.
func New(surf surface.Surface, group *shape.Group, opts Options) *Manager {
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = DefaultMaxZoom
	}
	if opts.Latch == nil {
		opts.Latch = basemap.GoogleAPI
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	inj, _ := surf.(surface.ScriptInjector)
	setup := basemap.Install(surf, inj, basemap.Options{
		InitialBaseLayer: opts.InitialBaseLayer,
		MappingAPIKey:    opts.MappingAPIKey,
	}, opts.Latch)

	m := &Manager{
		surf:  surf,
		group: group,
		opts:  opts,
		log:   opts.Logger.With("component", "mapman"),
		setup: setup,
	}
	m.log.Debug("map_setup", "base_layer", setup.Active, "google", setup.GoogleAvailable)
	return m
}

// Setup returns what is mounted on the map.
func (m *Manager) Setup() basemap.Setup {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setup
}

// APILoaded records that the page already has the third-party mapping API
// and, if its layers were not offered yet, installs the base layers again
// with them. The previously active layer is unmounted when the default
// changes.
func (m *Manager) APILoaded() basemap.Setup {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.opts.Latch.MarkLoaded()
	if m.setup.GoogleAvailable {
		return m.setup
	}

	prev, _ := m.setup.Layer(m.setup.Active)
	inj, _ := m.surf.(surface.ScriptInjector)
	m.setup = basemap.Install(m.surf, inj, basemap.Options{
		InitialBaseLayer: m.opts.InitialBaseLayer,
		MappingAPIKey:    m.opts.MappingAPIKey,
	}, m.opts.Latch)
	if active, _ := m.setup.Layer(m.setup.Active); active.ID != prev.ID && prev.ID != "" {
		m.surf.RemoveLayer(prev.ID)
	}
	m.log.Info("mapping_api_loaded", "base_layer", m.setup.Active)
	return m.setup
}

// IsEditing reports whether a toolbar is mounted, which is true for pure
// draw sessions without an entry too.
func (m *Manager) IsEditing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.control != nil
}

// Status returns the current session view.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Status{Editing: m.control != nil, Staged: m.group.Len()}
	if m.edited != nil {
		st.EntryID = m.edited.ID
	}
	if m.control != nil {
		st.Toolbar = m.control.ID
		st.Decision = m.decision
	}
	return st
}

// Edited returns the entry being edited, if any.
func (m *Manager) Edited() *entry.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edited
}

// StartEditing ends any current session, discarding its result, and starts
// a new one for e. It returns the previously edited entry.
//
// A nil e starts a draw-anything session. An entry with existing geometry
// has it materialized into the staging group. If the geometry cannot be
// converted the error is returned and the manager stays idle.
func (m *Manager) StartEditing(e *entry.Entry) (*entry.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.edited
	if discarded := m.end(); discarded != nil {
		m.log.Info("session_discarded", "entry", discarded.Entry.Label(),
			"features", len(discarded.Geometry.Features))
	}

	d, err := editmode.Decide(e)
	if err != nil {
		return prev, err
	}

	if e != nil && d.Mode == editmode.ModeEdit {
		if _, err := geometry.Materialize(e.Geometry, m.surf, m.group); err != nil {
			return prev, fmt.Errorf("materializing entry %s: %w", e.Label(), err)
		}
	}
	m.edited = e

	var color string
	if e != nil {
		color = e.Color
	}
	cfg := toolbar.Build(d, color, toolbar.Options{
		StagingGroup: StagingGroupID,
		StrictTools:  m.opts.StrictTools,
	})

	m.seq++
	ctrl := surface.Control{
		ID:       fmt.Sprintf("draw-toolbar-%d", m.seq),
		Kind:     "draw",
		Position: cfg.Position,
		Options:  cfg,
	}
	m.surf.AddControl(ctrl)
	m.control = &ctrl
	m.decision = d

	metrics.SessionsStartedTotal.WithLabelValues(string(d.Mode)).Inc()
	m.log.Info("session_started", "entry", e.Label(), "decision", d.String(),
		"staged", m.group.Len(), "toolbar", ctrl.ID)
	return prev, nil
}

// EndEditing unmounts the toolbar and returns the staged geometry. It
// returns nil when idle, and for a draw session without an entry that
// staged nothing.
func (m *Manager) EndEditing() *Result {
	m.mu.Lock()
	defer m.mu.Unlock()

	res := m.end()
	if res != nil {
		m.log.Info("session_ended", "entry", res.Entry.Label(), "features", len(res.Geometry.Features))
	}
	return res
}

func (m *Manager) end() *Result {
	active := m.control != nil
	if active {
		m.surf.RemoveControl(m.control.ID)
		m.control = nil
		m.decision = editmode.Decision{}
	}
	if !active && m.edited == nil {
		return nil
	}

	staged := m.group.Len()
	metrics.StagedShapes.Observe(float64(staged))
	if m.edited == nil && staged == 0 {
		metrics.SessionsEndedTotal.WithLabelValues("none").Inc()
		return nil
	}

	shapes := m.group.Shapes()
	res := &Result{Entry: m.edited, Geometry: geometry.Drain(m.group)}
	for _, s := range shapes {
		m.surf.RemoveLayer(s.ID())
	}
	m.edited = nil
	metrics.SessionsEndedTotal.WithLabelValues("geometry").Inc()
	return res
}

// ZoomToEdited fits the map to the staged shapes, capped at the configured
// max zoom. It reports false and does nothing when staging is empty.
func (m *Manager) ZoomToEdited() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.group.Bound()
	if !ok {
		return false
	}
	m.surf.FitBounds(b, surface.FitOptions{MaxZoom: m.opts.MaxZoom})
	return true
}
