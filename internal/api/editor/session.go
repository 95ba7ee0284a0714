package editor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/service"
)

// SessionHandler serves the editor buttons that start and end sessions.
// The map itself changes through the event stream; these responses only
// patch signals and the status fragment.
type SessionHandler struct {
	Deps
}

// NewSessionHandler creates a new session handler.
func NewSessionHandler(deps Deps) *SessionHandler {
	return &SessionHandler{Deps: deps}
}

func (h *SessionHandler) RegisterRoutes(api huma.API) {
	huma.Post(api, "/api/v1/editor/session/start", h.Start, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/session/end", h.End, huma.OperationTags("editor"))
	huma.Post(api, "/api/v1/editor/session/zoom", h.Zoom, huma.OperationTags("editor"))
}

// Start edits the stored entry named by the entryid signal, or starts a
// draw-anything session when it is empty.
func (h *SessionHandler) Start(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}

	var e *entry.Entry
	if id := signals.String("entryid"); id != "" {
		stored, ok := h.Entries.Get(id)
		if !ok {
			return nil, huma.Error404NotFound("entry not found")
		}
		e = &stored
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)

			if _, err := h.Manager.StartEditing(e); err != nil {
				sse.SendError(err.Error())
				return
			}
			label, id := "new drawing", ""
			if e != nil {
				label, id = e.Label(), e.ID
			}
			h.Bus.Publish(service.Event{Resource: service.ResourceSession, Action: "started", ID: id})
			sse.SendSignals(map[string]any{"editing": true, "success": "Editing " + label})
			patchStatus(h.Deps, sse)
		},
	}, nil
}

// End finishes the session. With the apply signal set, the geometry is
// stored on the entry.
func (h *SessionHandler) End(ctx context.Context, input *SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	apply := signals.Bool("apply")

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)

			res := h.Manager.EndEditing()
			h.Bus.Publish(service.Event{Resource: service.ResourceSession, Action: "ended"})

			msg := "Nothing to apply"
			if res != nil {
				msg = fmt.Sprintf("%d shapes drawn", len(res.Geometry.Features))
				if apply && res.Entry != nil && res.Entry.ID != "" {
					data, err := res.Geometry.MarshalJSON()
					if err == nil {
						_, err = h.Entries.ApplyGeometry(res.Entry.ID, data)
					}
					if err != nil {
						sse.SendError(err.Error())
						return
					}
					h.Bus.Publish(service.Event{Resource: service.ResourceEntries, Action: "updated", ID: res.Entry.ID})
					if h.Edits != nil {
						if _, err := h.Edits.Record(ctx, res.Entry.ID, string(data), len(res.Geometry.Features)); err != nil {
							slog.Warn("edit_history_failed", "entry", res.Entry.ID, "error", err)
						}
					}
					msg = fmt.Sprintf("Applied %d shapes to %s", len(res.Geometry.Features), res.Entry.ID)
				}
			}
			sse.SendSignals(map[string]any{"editing": false, "success": msg})
			patchStatus(h.Deps, sse)
		},
	}, nil
}

// Zoom fits the map to the staged shapes.
func (h *SessionHandler) Zoom(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			if !h.Manager.ZoomToEdited() {
				sse.SendError("Nothing to zoom to")
			}
		},
	}, nil
}
