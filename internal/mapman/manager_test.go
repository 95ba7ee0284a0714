package mapman

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/paulmach/orb"

	"github.com/joeblew999/qgeomap/internal/basemap"
	"github.com/joeblew999/qgeomap/internal/editmode"
	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/geometry"
	"github.com/joeblew999/qgeomap/internal/shape"
	"github.com/joeblew999/qgeomap/internal/surface"
	"github.com/joeblew999/qgeomap/internal/toolbar"
)

func newTestManager(t *testing.T, opts Options) (*Manager, *surface.Recorder, *shape.Group) {
	t.Helper()
	rec := surface.NewRecorder()
	group := shape.NewGroup()
	opts.Latch = &basemap.Latch{}
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	m := New(rec, group, opts)
	rec.Reset()
	return m, rec, group
}

func drawControls(rec *surface.Recorder) []surface.Control {
	var out []surface.Control
	for _, c := range rec.Controls() {
		if c.Kind == "draw" {
			out = append(out, c)
		}
	}
	return out
}

func circleEntry(id string) *entry.Entry {
	return &entry.Entry{
		ID:       id,
		Color:    "#00ff00",
		Geometry: json.RawMessage(`{"type":"Feature","geometry":{"type":"Point","coordinates":[-121.9,36.8]},"properties":{"radius":500}}`),
	}
}

func lineEntry(id string) *entry.Entry {
	return &entry.Entry{
		ID:       id,
		Geometry: json.RawMessage(`{"type":"LineString","coordinates":[[0,0],[1,1]]}`),
	}
}

func TestEndWhileIdle(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{})

	if res := m.EndEditing(); res != nil {
		t.Fatalf("got %+v, want nil", res)
	}
	if n := len(rec.Commands()); n != 0 {
		t.Fatalf("idle end issued %d surface commands", n)
	}
	if m.IsEditing() {
		t.Fatal("idle manager reports editing")
	}
}

func TestEditLifecycle(t *testing.T) {
	m, rec, group := newTestManager(t, Options{})

	prev, err := m.StartEditing(circleEntry("a"))
	if err != nil {
		t.Fatal(err)
	}
	if prev != nil {
		t.Fatalf("prev=%v, want nil", prev)
	}
	if !m.IsEditing() {
		t.Fatal("not editing after start")
	}
	if group.Len() != 1 {
		t.Fatalf("staged=%d, want 1", group.Len())
	}
	ctrls := drawControls(rec)
	if len(ctrls) != 1 {
		t.Fatalf("draw controls=%d, want 1", len(ctrls))
	}
	cfg := ctrls[0].Options.(toolbar.Config)
	if cfg.Decision != editmode.Edit(entry.KindCircle) {
		t.Fatalf("decision=%s", cfg.Decision)
	}
	if cfg.Draw[toolbar.ToolCircle].ShapeOptions.Color != "#00ff00" {
		t.Fatal("toolbar not styled with entry color")
	}

	res := m.EndEditing()
	if res == nil {
		t.Fatal("nil result")
	}
	if res.Entry.ID != "a" {
		t.Fatalf("result entry=%q", res.Entry.ID)
	}
	if len(res.Geometry.Features) != 1 {
		t.Fatalf("features=%d, want 1", len(res.Geometry.Features))
	}
	f := res.Geometry.Features[0]
	if f.Geometry.(orb.Point) != (orb.Point{-121.9, 36.8}) || f.Properties[geometry.RadiusProperty] != 500.0 {
		t.Fatalf("feature=%+v", f)
	}

	if m.IsEditing() || len(drawControls(rec)) != 0 {
		t.Fatal("toolbar still mounted after end")
	}
	if group.Len() != 0 {
		t.Fatal("staging not drained")
	}
	for _, l := range rec.Layers() {
		if l.Type == surface.LayerShape {
			t.Fatalf("shape layer %s left on map", l.ID)
		}
	}
	if m.EndEditing() != nil {
		t.Fatal("second end must be nil")
	}
}

func TestSingleActiveSession(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{})

	a, b := circleEntry("a"), lineEntry("b")
	if _, err := m.StartEditing(a); err != nil {
		t.Fatal(err)
	}
	prev, err := m.StartEditing(b)
	if err != nil {
		t.Fatal(err)
	}
	if prev != a {
		t.Fatalf("prev=%v, want entry a", prev)
	}

	ctrls := drawControls(rec)
	if len(ctrls) != 1 {
		t.Fatalf("draw controls=%d, want 1", len(ctrls))
	}
	if ctrls[0].Options.(toolbar.Config).Decision != editmode.Edit(entry.KindLineString) {
		t.Fatal("mounted toolbar is not b's")
	}

	res := m.EndEditing()
	if res.Entry != b {
		t.Fatal("result is not for b")
	}
	if len(res.Geometry.Features) != 1 || res.Geometry.Features[0].Geometry.GeoJSONType() != "LineString" {
		t.Fatalf("a's geometry leaked into b's result: %+v", res.Geometry.Features)
	}
}

func TestNullEntryDrawsAnything(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{StrictTools: true})

	prev, err := m.StartEditing(nil)
	if err != nil || prev != nil {
		t.Fatalf("prev=%v err=%v", prev, err)
	}
	if !m.IsEditing() {
		t.Fatal("draw-anything session must report editing")
	}
	cfg := drawControls(rec)[0].Options.(toolbar.Config)
	if cfg.Decision != editmode.DrawAny {
		t.Fatalf("decision=%s, want draw:any", cfg.Decision)
	}
	for _, tool := range []string{toolbar.ToolCircle, toolbar.ToolMarker, toolbar.ToolPolygon, toolbar.ToolPolyline, toolbar.ToolRectangle} {
		if !cfg.Draw.Enabled(tool) {
			t.Fatalf("tool %s disabled", tool)
		}
	}
	if cfg.Draw[toolbar.ToolPolygon].ShapeOptions.Color != toolbar.DefaultPolygonColor {
		t.Fatal("null entry must use default colors")
	}

	if res := m.EndEditing(); res != nil {
		t.Fatalf("empty draw session returned %+v", res)
	}
	if m.IsEditing() {
		t.Fatal("still editing")
	}
}

func TestPureDrawSurfacesGeometry(t *testing.T) {
	m, _, _ := newTestManager(t, Options{})

	if _, err := m.StartEditing(nil); err != nil {
		t.Fatal(err)
	}
	m.Created(shape.NewMarker("", orb.Point{3, 4}, nil))

	res := m.EndEditing()
	if res == nil {
		t.Fatal("drawn shapes must be surfaced")
	}
	if res.Entry != nil {
		t.Fatal("entry must be nil")
	}
	if len(res.Geometry.Features) != 1 {
		t.Fatalf("features=%d", len(res.Geometry.Features))
	}
}

func TestIsNewSkipsMaterialize(t *testing.T) {
	m, _, group := newTestManager(t, Options{})

	e := &entry.Entry{
		ID:       "fresh",
		IsNew:    &entry.NewShape{GeomType: entry.KindPolygon},
		Geometry: json.RawMessage(`{"type":"Point","coordinates":[1,2]}`),
	}
	if _, err := m.StartEditing(e); err != nil {
		t.Fatal(err)
	}
	if group.Len() != 0 {
		t.Fatal("draw mode must not materialize geometry")
	}
	if st := m.Status(); st.Decision != editmode.Draw(entry.KindPolygon) || st.EntryID != "fresh" {
		t.Fatalf("status=%+v", st)
	}

	m.Created(shape.NewPolygon("", orb.Polygon{{{0, 0}, {1, 0}, {1, 1}, {0, 0}}}, nil))
	res := m.EndEditing()
	if res.Entry != e || len(res.Geometry.Features) != 1 {
		t.Fatalf("result=%+v", res)
	}
}

func TestZoomToEdited(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{})

	if m.ZoomToEdited() {
		t.Fatal("zoom on empty staging must be false")
	}
	if rec.Count(surface.OpFitBounds) != 0 {
		t.Fatal("fitBounds issued on empty staging")
	}

	if _, err := m.StartEditing(lineEntry("l")); err != nil {
		t.Fatal(err)
	}
	m.Created(shape.NewMarker("", orb.Point{5, -2}, nil))

	if !m.ZoomToEdited() {
		t.Fatal("zoom must act with staged shapes")
	}
	var fit surface.Command
	for _, c := range rec.Commands() {
		if c.Op == surface.OpFitBounds {
			fit = c
		}
	}
	want := orb.Bound{Min: orb.Point{0, -2}, Max: orb.Point{5, 1}}
	if *fit.Bounds != want {
		t.Fatalf("bounds=%v, want %v", *fit.Bounds, want)
	}
	if fit.Fit.MaxZoom != DefaultMaxZoom {
		t.Fatalf("maxZoom=%d, want %d", fit.Fit.MaxZoom, DefaultMaxZoom)
	}
}

func TestCreatedDeletedUpdated(t *testing.T) {
	m, _, group := newTestManager(t, Options{})
	if _, err := m.StartEditing(nil); err != nil {
		t.Fatal(err)
	}

	a := shape.NewMarker("a", orb.Point{1, 1}, nil)
	b := shape.NewMarker("b", orb.Point{2, 2}, nil)
	c := shape.NewMarker("c", orb.Point{3, 3}, nil)
	m.Created(a)
	m.Created(b)
	m.Created(c)
	m.Created(a)
	if group.Len() != 4 {
		t.Fatalf("staged=%d, want 4 (no dedup)", group.Len())
	}

	if n := m.Deleted("a", "missing"); n != 1 {
		t.Fatalf("deleted=%d, want 1", n)
	}
	if group.Len() != 2 {
		t.Fatalf("staged=%d, want 2", group.Len())
	}

	moved := shape.NewMarker("b", orb.Point{9, 9}, nil)
	if n := m.Updated(moved, shape.NewMarker("zzz", orb.Point{}, nil)); n != 1 {
		t.Fatalf("updated=%d, want 1", n)
	}
	got, _ := group.Get("b")
	if got.(*shape.Marker).Point != (orb.Point{9, 9}) {
		t.Fatal("update not applied")
	}

	m.Observe(EventEditVertex, "id", "b")
	if group.Len() != 2 {
		t.Fatal("diagnostic event changed state")
	}
}

func TestMalformedGeometryLeavesIdle(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{})

	a := lineEntry("a")
	if _, err := m.StartEditing(a); err != nil {
		t.Fatal(err)
	}
	bad := &entry.Entry{ID: "bad", Geometry: json.RawMessage(`{"type":"Feature","geometry":null}`)}
	prev, err := m.StartEditing(bad)
	if err == nil {
		t.Fatal("expected error")
	}
	if prev != a {
		t.Fatal("previous entry not returned on failure")
	}
	if m.IsEditing() || len(drawControls(rec)) != 0 {
		t.Fatal("failed start must leave the manager idle")
	}
	if m.Edited() != nil {
		t.Fatal("failed entry recorded as edited")
	}
}

func TestStrictToolsEditMode(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{StrictTools: true})
	if _, err := m.StartEditing(circleEntry("c")); err != nil {
		t.Fatal(err)
	}
	cfg := drawControls(rec)[0].Options.(toolbar.Config)
	if len(cfg.Draw) != 0 {
		t.Fatalf("strict edit mode enabled %d draw tools", len(cfg.Draw))
	}
	if cfg.Edit == nil || cfg.Edit.FeatureGroup != StagingGroupID {
		t.Fatal("edit toolbar not bound to staging")
	}
}

func TestSetupDecoratesMap(t *testing.T) {
	rec := surface.NewRecorder()
	m := New(rec, shape.NewGroup(), Options{
		InitialBaseLayer: basemap.NameOpenStreetMap,
		Latch:            &basemap.Latch{},
		Logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if m.Setup().Active != basemap.NameOpenStreetMap {
		t.Fatalf("active=%q", m.Setup().Active)
	}
	if rec.Count(surface.OpAddClass) != 1 || len(rec.Controls()) != 2 {
		t.Fatal("map not decorated")
	}
}

func TestAPILoadedOffersGoogleLayers(t *testing.T) {
	m, rec, _ := newTestManager(t, Options{})
	if m.Setup().GoogleAvailable {
		t.Fatal("gated layers offered before the API loaded")
	}

	setup := m.APILoaded()
	if !setup.GoogleAvailable || len(setup.BaseLayers) != 4 || setup.Active != basemap.NameGoogleSatellite {
		t.Fatalf("setup=%+v", setup)
	}
	if rec.Count(surface.OpInjectScript) != 0 {
		t.Fatal("loaded API must not be injected again")
	}
	layers := rec.Layers()
	if len(layers) != 1 || layers[0].Name != basemap.NameGoogleSatellite {
		t.Fatalf("mounted layers=%+v", layers)
	}

	rec.Reset()
	m.APILoaded()
	if n := len(rec.Commands()); n != 0 {
		t.Fatalf("second report issued %d commands", n)
	}

	osm, rec, _ := newTestManager(t, Options{InitialBaseLayer: basemap.NameOpenStreetMap})
	osm.APILoaded()
	if layers := rec.Layers(); len(layers) != 1 || layers[0].Name != basemap.NameOpenStreetMap {
		t.Fatalf("requested base layer replaced: %+v", layers)
	}
}
