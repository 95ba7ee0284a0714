package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/geometry"
	"github.com/joeblew999/qgeomap/internal/mapman"
	"github.com/joeblew999/qgeomap/internal/service"
	"github.com/joeblew999/qgeomap/internal/shape"
)

type SessionOutput struct {
	Body mapman.Status
}

type StartBody struct {
	Entry   *entry.Entry `json:"entry,omitempty" doc:"Entry to edit inline; omit both fields to draw any shape"`
	EntryID string       `json:"entryId,omitempty" doc:"ID of a stored entry to edit" example:"station-42"`
}

type StartInput struct {
	Body *StartBody `required:"false"`
}

type StartResult struct {
	Previous *entry.Entry  `json:"previous,omitempty" doc:"Entry of the session that was ended"`
	Status   mapman.Status `json:"status" doc:"Session after starting"`
}

type StartOutput struct {
	Body StartResult
}

type EndInput struct {
	Apply bool `query:"apply" doc:"Store the geometry on the entry and in the edit history"`
}

type EndResult struct {
	Ended    bool            `json:"ended" doc:"Whether the session produced a result"`
	Entry    *entry.Entry    `json:"entry,omitempty" doc:"Entry the session was editing"`
	Geometry json.RawMessage `json:"geometry,omitempty" doc:"Staged shapes as a GeoJSON FeatureCollection"`
	Applied  bool            `json:"applied" doc:"Whether the geometry was stored"`
}

type EndOutput struct {
	Body EndResult
}

type ZoomResult struct {
	Zoomed bool `json:"zoomed" doc:"False when nothing is staged"`
}

type ZoomOutput struct {
	Body ZoomResult
}

// DrawnShape is a shape as reported by the drawing toolkit.
type DrawnShape struct {
	ID        string          `json:"id,omitempty" doc:"Toolkit shape id; generated when empty"`
	LayerType string          `json:"layerType" enum:"circle,circlemarker,marker,rectangle,polyline,polygon" doc:"Draw tool that produced the shape"`
	Geometry  json.RawMessage `json:"geometry" doc:"GeoJSON geometry or Feature of the shape"`
	Radius    float64         `json:"radius,omitempty" minimum:"0" doc:"Circle radius in meters"`
}

type CreatedResult struct {
	ID     string `json:"id" doc:"Staged shape id"`
	Staged int    `json:"staged" doc:"Number of staged shapes"`
}

type CreatedOutput struct {
	Body CreatedResult
}

type DeletedInput struct {
	Body struct {
		IDs []string `json:"ids" minItems:"1" doc:"Ids of the removed shapes"`
	}
}

type EditedInput struct {
	Body struct {
		Shapes []DrawnShape `json:"shapes" minItems:"1" doc:"Shapes after editing"`
	}
}

type CountResult struct {
	Count  int `json:"count" doc:"Number of staged shapes affected"`
	Staged int `json:"staged" doc:"Number of staged shapes"`
}

type CountOutput struct {
	Body CountResult
}

type ToolkitEventInput struct {
	Body struct {
		Event string         `json:"event" minLength:"1" doc:"Toolkit lifecycle event" example:"draw:drawstart"`
		Attrs map[string]any `json:"attrs,omitempty" doc:"Event details, logged only"`
	}
}

// RegisterSession registers the editing session and toolkit event routes.
func (h *APIHandler) RegisterSession(api huma.API) {
	huma.Get(api, "/api/v1/session", h.GetSession, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/start", h.StartSession, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/end", h.EndSession, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/zoom", h.ZoomSession, huma.OperationTags("session"))
	huma.Post(api, "/api/v1/session/created", h.ShapeCreated, huma.OperationTags("toolkit"))
	huma.Post(api, "/api/v1/session/deleted", h.ShapesDeleted, huma.OperationTags("toolkit"))
	huma.Post(api, "/api/v1/session/edited", h.ShapesEdited, huma.OperationTags("toolkit"))
	huma.Post(api, "/api/v1/session/events", h.ToolkitEvent, huma.OperationTags("toolkit"))
}

func (h *APIHandler) manager() (*mapman.Manager, error) {
	if h.svc == nil || h.svc.Manager == nil {
		return nil, huma.Error503ServiceUnavailable("map session not available")
	}
	return h.svc.Manager, nil
}

func (h *APIHandler) GetSession(ctx context.Context, input *struct{}) (*SessionOutput, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: m.Status()}, nil
}

func (h *APIHandler) StartSession(ctx context.Context, input *StartInput) (*StartOutput, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}

	var e *entry.Entry
	if input.Body != nil {
		switch {
		case input.Body.Entry != nil:
			e = input.Body.Entry
		case input.Body.EntryID != "":
			if h.svc.Entry == nil {
				return nil, huma.Error404NotFound("entry not found")
			}
			stored, ok := h.svc.Entry.Get(input.Body.EntryID)
			if !ok {
				return nil, huma.Error404NotFound("entry not found")
			}
			e = &stored
		}
	}

	prev, err := m.StartEditing(e)
	if err != nil {
		return nil, huma.Error422UnprocessableEntity(err.Error())
	}

	st := m.Status()
	h.svc.publish(service.Event{Resource: service.ResourceSession, Action: "started", ID: st.EntryID})

	out := &StartOutput{}
	out.Body.Previous = prev
	out.Body.Status = st
	return out, nil
}

func (h *APIHandler) EndSession(ctx context.Context, input *EndInput) (*EndOutput, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}

	res := m.EndEditing()
	h.svc.publish(service.Event{Resource: service.ResourceSession, Action: "ended"})

	out := &EndOutput{}
	if res == nil {
		return out, nil
	}
	data, err := json.Marshal(res.Geometry)
	if err != nil {
		return nil, huma.Error500InternalServerError("encoding geometry", err)
	}
	out.Body.Ended = true
	out.Body.Entry = res.Entry
	out.Body.Geometry = data

	if input.Apply && res.Entry != nil && res.Entry.ID != "" {
		applied, err := h.apply(ctx, res.Entry.ID, data, len(res.Geometry.Features))
		if err != nil {
			return nil, err
		}
		out.Body.Applied = applied
	}
	return out, nil
}

// apply stores geometry on a stored entry and records it in the edit
// history when the database is available. A failed history write is
// logged; the entry is already updated.
func (h *APIHandler) apply(ctx context.Context, id string, data json.RawMessage, features int) (bool, error) {
	if h.svc.Entry == nil {
		return false, nil
	}
	if _, err := h.svc.Entry.ApplyGeometry(id, data); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return false, nil
		}
		return false, huma.Error500InternalServerError("storing geometry", err)
	}
	h.svc.publish(service.Event{Resource: service.ResourceEntries, Action: "updated", ID: id})

	if h.svc.Edits != nil {
		if _, err := h.svc.Edits.Record(ctx, id, string(data), features); err != nil {
			slog.Warn("edit_history_failed", "entry", id, "error", err)
		}
	}
	return true, nil
}

func (h *APIHandler) ZoomSession(ctx context.Context, input *struct{}) (*ZoomOutput, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}
	out := &ZoomOutput{}
	out.Body.Zoomed = m.ZoomToEdited()
	return out, nil
}

func (h *APIHandler) editing() (*mapman.Manager, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}
	if !m.IsEditing() {
		return nil, huma.Error409Conflict("no editing session")
	}
	return m, nil
}

func drawnShape(d DrawnShape) (shape.Shape, error) {
	s, err := geometry.FromDrawn(d.LayerType, d.Geometry, d.Radius)
	if err != nil {
		if errors.Is(err, geometry.ErrUnsupported) {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}
		return nil, huma.Error400BadRequest("invalid geometry: " + err.Error())
	}
	return shape.WithID(s, d.ID), nil
}

func (h *APIHandler) ShapeCreated(ctx context.Context, input *struct{ Body DrawnShape }) (*CreatedOutput, error) {
	m, err := h.editing()
	if err != nil {
		return nil, err
	}
	s, err := drawnShape(input.Body)
	if err != nil {
		return nil, err
	}
	m.Created(s)

	out := &CreatedOutput{}
	out.Body.ID = s.ID()
	out.Body.Staged = m.Status().Staged
	return out, nil
}

func (h *APIHandler) ShapesDeleted(ctx context.Context, input *DeletedInput) (*CountOutput, error) {
	m, err := h.editing()
	if err != nil {
		return nil, err
	}
	out := &CountOutput{}
	out.Body.Count = m.Deleted(input.Body.IDs...)
	out.Body.Staged = m.Status().Staged
	return out, nil
}

func (h *APIHandler) ShapesEdited(ctx context.Context, input *EditedInput) (*CountOutput, error) {
	m, err := h.editing()
	if err != nil {
		return nil, err
	}
	shapes := make([]shape.Shape, 0, len(input.Body.Shapes))
	for _, d := range input.Body.Shapes {
		if d.ID == "" {
			return nil, huma.Error422UnprocessableEntity("edited shape without id")
		}
		s, err := drawnShape(d)
		if err != nil {
			return nil, err
		}
		shapes = append(shapes, s)
	}
	out := &CountOutput{}
	out.Body.Count = m.Updated(shapes...)
	out.Body.Staged = m.Status().Staged
	return out, nil
}

func (h *APIHandler) ToolkitEvent(ctx context.Context, input *ToolkitEventInput) (*struct{}, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}
	attrs := make([]any, 0, 2*len(input.Body.Attrs))
	for k, v := range input.Body.Attrs {
		attrs = append(attrs, k, v)
	}
	m.Observe(input.Body.Event, attrs...)
	return nil, nil
}
