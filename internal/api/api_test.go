package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"

	"github.com/joeblew999/qgeomap/internal/basemap"
	"github.com/joeblew999/qgeomap/internal/db"
	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/mapman"
	"github.com/joeblew999/qgeomap/internal/service"
	"github.com/joeblew999/qgeomap/internal/shape"
	"github.com/joeblew999/qgeomap/internal/surface"
)

type fixture struct {
	api humatest.TestAPI
	svc *Services
	rec *surface.Recorder
}

func setup(t *testing.T) fixture {
	t.Helper()
	_, api := humatest.New(t)

	rec := surface.NewRecorder()
	svc := &Services{
		Entry: service.NewEntryService(t.TempDir()),
		Manager: mapman.New(rec, shape.NewGroup(), mapman.Options{
			Latch:  &basemap.Latch{},
			Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		}),
		Bus: service.NewEventBus(),
	}
	RegisterRoutes(api, svc)
	NewHistoryHandler(nil).RegisterRoutes(api)
	return fixture{api: api, svc: svc, rec: rec}
}

func decode[T any](t *testing.T, body io.Reader) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		t.Fatal(err)
	}
	return v
}

func TestHealth(t *testing.T) {
	f := setup(t)
	resp := f.api.Get("/health")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	body := decode[HealthBody](t, resp.Body)
	if body.Status != "ok" || body.Editing {
		t.Fatalf("body=%+v", body)
	}
}

func TestEntryCRUD(t *testing.T) {
	f := setup(t)

	resp := f.api.Post("/api/v1/entries", map[string]any{"name": "Station 42", "color": "#00ff00"})
	if resp.Code != http.StatusOK {
		t.Fatalf("create status=%d body=%s", resp.Code, resp.Body)
	}
	created := decode[CreatedEntryBody](t, resp.Body)
	if created.ID != "station_42" {
		t.Fatalf("id=%q", created.ID)
	}

	if resp := f.api.Post("/api/v1/entries", map[string]any{"id": "station_42"}); resp.Code != http.StatusConflict {
		t.Fatalf("duplicate status=%d", resp.Code)
	}
	if resp := f.api.Get("/api/v1/entries/station_42"); resp.Code != http.StatusOK {
		t.Fatalf("get status=%d", resp.Code)
	}
	if resp := f.api.Put("/api/v1/entries/missing", map[string]any{"name": "x"}); resp.Code != http.StatusNotFound {
		t.Fatalf("put missing status=%d", resp.Code)
	}
	if resp := f.api.Delete("/api/v1/entries/station_42"); resp.Code != http.StatusOK {
		t.Fatalf("delete status=%d", resp.Code)
	}
	if resp := f.api.Get("/api/v1/entries/station_42"); resp.Code != http.StatusNotFound {
		t.Fatalf("get deleted status=%d", resp.Code)
	}
}

func TestSessionApplyFlow(t *testing.T) {
	f := setup(t)
	_, err := f.svc.Entry.Create(entry.Entry{
		ID:       "a",
		Geometry: json.RawMessage(`{"type":"Feature","geometry":{"type":"Point","coordinates":[10,20]},"properties":{"radius":250}}`),
	})
	if err != nil {
		t.Fatal(err)
	}

	resp := f.api.Post("/api/v1/session/start", map[string]any{"entryId": "a"})
	if resp.Code != http.StatusOK {
		t.Fatalf("start status=%d body=%s", resp.Code, resp.Body)
	}
	started := decode[StartResult](t, resp.Body)
	if !started.Status.Editing || started.Status.EntryID != "a" || started.Status.Staged != 1 {
		t.Fatalf("status=%+v", started.Status)
	}

	resp = f.api.Post("/api/v1/session/created", map[string]any{
		"id":        "m1",
		"layerType": "marker",
		"geometry":  map[string]any{"type": "Point", "coordinates": []float64{11, 21}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("created status=%d body=%s", resp.Code, resp.Body)
	}
	created := decode[CreatedResult](t, resp.Body)
	if created.ID != "m1" || created.Staged != 2 {
		t.Fatalf("created=%+v", created)
	}

	resp = f.api.Post("/api/v1/session/zoom")
	if !decode[ZoomResult](t, resp.Body).Zoomed {
		t.Fatal("zoom with staged shapes must act")
	}

	resp = f.api.Post("/api/v1/session/end?apply=true")
	if resp.Code != http.StatusOK {
		t.Fatalf("end status=%d body=%s", resp.Code, resp.Body)
	}
	ended := decode[EndResult](t, resp.Body)
	if !ended.Ended || !ended.Applied || ended.Entry.ID != "a" {
		t.Fatalf("ended=%+v", ended)
	}

	stored, _ := f.svc.Entry.Get("a")
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	if err := json.Unmarshal(stored.Geometry, &fc); err != nil {
		t.Fatal(err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("stored geometry=%s", stored.Geometry)
	}

	if f.svc.Manager.IsEditing() {
		t.Fatal("still editing after end")
	}
}

func TestEndWhileIdle(t *testing.T) {
	f := setup(t)
	resp := f.api.Post("/api/v1/session/end")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	if ended := decode[EndResult](t, resp.Body); ended.Ended || ended.Entry != nil {
		t.Fatalf("ended=%+v", ended)
	}
}

func TestStartDrawAny(t *testing.T) {
	f := setup(t)
	resp := f.api.Post("/api/v1/session/start")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	st := decode[StartResult](t, resp.Body).Status
	if !st.Editing || st.EntryID != "" || st.Decision.Mode != "draw" {
		t.Fatalf("status=%+v", st)
	}
}

func TestStartErrors(t *testing.T) {
	f := setup(t)

	if resp := f.api.Post("/api/v1/session/start", map[string]any{"entryId": "missing"}); resp.Code != http.StatusNotFound {
		t.Fatalf("missing entry status=%d", resp.Code)
	}

	resp := f.api.Post("/api/v1/session/start", map[string]any{
		"entry": map[string]any{"id": "bad", "geometry": map[string]any{"type": "Bogus"}},
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed geometry status=%d body=%s", resp.Code, resp.Body)
	}
	if f.svc.Manager.IsEditing() {
		t.Fatal("failed start left a session")
	}
}

func TestToolkitEventsNeedSession(t *testing.T) {
	f := setup(t)

	resp := f.api.Post("/api/v1/session/created", map[string]any{
		"layerType": "marker",
		"geometry":  map[string]any{"type": "Point", "coordinates": []float64{1, 2}},
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("created while idle status=%d", resp.Code)
	}

	f.api.Post("/api/v1/session/start")

	resp = f.api.Post("/api/v1/session/created", map[string]any{
		"layerType": "polyline",
		"geometry":  map[string]any{"type": "Point", "coordinates": []float64{1, 2}},
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("mismatched tool status=%d", resp.Code)
	}

	resp = f.api.Post("/api/v1/session/edited", map[string]any{
		"shapes": []map[string]any{{
			"layerType": "marker",
			"geometry":  map[string]any{"type": "Point", "coordinates": []float64{1, 2}},
		}},
	})
	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("edited without id status=%d", resp.Code)
	}

	resp = f.api.Post("/api/v1/session/deleted", map[string]any{"ids": []string{"nope"}})
	if resp.Code != http.StatusOK {
		t.Fatalf("deleted status=%d", resp.Code)
	}
	if n := decode[CountResult](t, resp.Body).Count; n != 0 {
		t.Fatalf("deleted count=%d", n)
	}

	resp = f.api.Post("/api/v1/session/events", map[string]any{"event": "draw:drawstart"})
	if resp.Code != http.StatusNoContent {
		t.Fatalf("events status=%d", resp.Code)
	}
}

func TestEditedReplacesStagedShape(t *testing.T) {
	f := setup(t)
	f.api.Post("/api/v1/session/start")
	f.api.Post("/api/v1/session/created", map[string]any{
		"id":        "c1",
		"layerType": "circle",
		"geometry":  map[string]any{"type": "Point", "coordinates": []float64{0, 0}},
		"radius":    100,
	})
	f.rec.Reset()

	resp := f.api.Post("/api/v1/session/edited", map[string]any{
		"shapes": []map[string]any{{
			"id":        "c1",
			"layerType": "circle",
			"geometry":  map[string]any{"type": "Point", "coordinates": []float64{1, 1}},
			"radius":    300,
		}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	out := decode[CountResult](t, resp.Body)
	if out.Count != 1 || out.Staged != 1 {
		t.Fatalf("out=%+v", out)
	}
	cmds := f.rec.Commands()
	if len(cmds) != 1 || cmds[0].Op != surface.OpAddLayer || cmds[0].Layer.Radius != 300 {
		t.Fatalf("commands=%+v", cmds)
	}
}

func TestBasemaps(t *testing.T) {
	f := setup(t)
	resp := f.api.Get("/api/v1/basemaps")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d", resp.Code)
	}
	body := decode[BasemapsBody](t, resp.Body)
	if body.Active != basemap.NameOceans || body.GoogleAvailable || len(body.Layers) != 2 {
		t.Fatalf("body=%+v", body)
	}
	if body.MousePosition.Digits != 5 {
		t.Fatalf("mouse position=%+v", body.MousePosition)
	}
}

func TestEditsUnavailable(t *testing.T) {
	f := setup(t)
	if resp := f.api.Get("/api/v1/edits"); resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", resp.Code)
	}
}

func TestLinkTransformer(t *testing.T) {
	_, api := humatest.New(t, func() huma.Config {
		cfg := huma.DefaultConfig("test", "1.0.0")
		cfg.Transformers = append(cfg.Transformers, LinkTransformer())
		return cfg
	}())
	RegisterRoutes(api, &Services{})

	resp := api.Get("/health")
	links := strings.Join(resp.Header().Values("Link"), ",")
	if !strings.Contains(links, `</api/v1/entries>; rel="entries"`) {
		t.Fatalf("links=%q", links)
	}
}

func TestMappingAPILoaded(t *testing.T) {
	f := setup(t)
	resp := f.api.Post("/api/v1/basemaps/loaded")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	body := decode[BasemapsBody](t, resp.Body)
	if !body.GoogleAvailable || len(body.Layers) != 4 || body.Active != basemap.NameGoogleSatellite {
		t.Fatalf("body=%+v", body)
	}
	if !f.svc.Manager.Setup().GoogleAvailable {
		t.Fatal("manager setup not updated")
	}
}

func TestApplySurvivesHistoryFailure(t *testing.T) {
	f := setup(t)
	conn, err := db.Open("")
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()
	f.svc.Edits = db.NewEditLog(conn)

	if _, err := f.svc.Entry.Create(entry.Entry{ID: "a", IsNew: &entry.NewShape{GeomType: entry.KindPoint}}); err != nil {
		t.Fatal(err)
	}
	f.api.Post("/api/v1/session/start", map[string]any{"entryId": "a"})
	f.api.Post("/api/v1/session/created", map[string]any{
		"layerType": "marker",
		"geometry":  map[string]any{"type": "Point", "coordinates": []float64{3, 4}},
	})

	resp := f.api.Post("/api/v1/session/end?apply=true")
	if resp.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", resp.Code, resp.Body)
	}
	if ended := decode[EndResult](t, resp.Body); !ended.Applied {
		t.Fatalf("ended=%+v", ended)
	}
	if stored, _ := f.svc.Entry.Get("a"); stored.IsNew != nil || !stored.HasGeometry() {
		t.Fatalf("entry not applied: %+v", stored)
	}
}
