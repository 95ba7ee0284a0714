package editor

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/qgeomap/internal/db"
	"github.com/joeblew999/qgeomap/internal/mapman"
	"github.com/joeblew999/qgeomap/internal/service"
	"github.com/joeblew999/qgeomap/internal/surface"
	"github.com/joeblew999/qgeomap/internal/templates"
)

// Snapshotter replays the mounted map state for a fresh browser.
type Snapshotter interface {
	Snapshot() []surface.Command
}

// Deps are what the editor handlers need.
type Deps struct {
	Manager  *mapman.Manager
	Entries  *service.EntryService
	Bus      *service.EventBus
	// Edits is nil when the database is unavailable.
	Edits    *db.EditLog
	Surface  Snapshotter
	Renderer *templates.Renderer
}

// EventHandler streams map commands and session changes to the Datastar UI.
type EventHandler struct {
	Deps
}

// NewEventHandler creates a new event handler.
func NewEventHandler(deps Deps) *EventHandler {
	return &EventHandler{Deps: deps}
}

func (h *EventHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/editor/stream", h.Stream,
		huma.OperationTags("editor"),
	)
}

// Stream replays the current map, then forwards every surface command as a
// map-command event and re-renders the session status and entry list on
// change. A stream that falls behind the bus is replayed from scratch.
func (h *EventHandler) Stream(ctx context.Context, input *EmptyInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			sse := NewSSEContext(humaCtx)
			ch := h.Bus.Subscribe()
			defer h.Bus.Unsubscribe(ch)
			resync := h.Bus.Resync(ch)

			if err := h.replay(sse); err != nil {
				return
			}

			for {
				select {
				case <-ctx.Done():
					return
				case <-resync:
					slog.Debug("editor_stream_resync")
					h.Bus.Resume(ch)
					if err := h.replay(sse); err != nil {
						return
					}
				case ev := <-ch:
					var err error
					switch ev.Resource {
					case service.ResourceMap:
						err = sse.SendCommand(*ev.Command)
					case service.ResourceSession:
						err = h.patchStatus(sse)
					case service.ResourceEntries:
						err = h.patchEntries(sse)
						sse.SSE.DispatchCustomEvent("resource-changed", map[string]any{
							"resource": ev.Resource,
							"action":   ev.Action,
							"id":       ev.ID,
						})
					}
					if err != nil {
						slog.Debug("editor_stream_closed", "error", err)
						return
					}
				}
			}
		},
	}, nil
}

// replay clears the browser map and rebuilds it from the mounted state.
func (h *EventHandler) replay(sse *SSEContext) error {
	if err := sse.SendCommand(surface.Command{Op: surface.OpReset}); err != nil {
		return err
	}
	for _, cmd := range h.Surface.Snapshot() {
		if err := sse.SendCommand(cmd); err != nil {
			return err
		}
	}
	if err := h.patchStatus(sse); err != nil {
		return err
	}
	return h.patchEntries(sse)
}

func (h *EventHandler) patchStatus(sse *SSEContext) error {
	return patchStatus(h.Deps, sse)
}

func (h *EventHandler) patchEntries(sse *SSEContext) error {
	if h.Renderer == nil || h.Entries == nil {
		return nil
	}
	html, err := h.Renderer.Render("entry-list", h.Entries.List())
	if err != nil {
		slog.Error("render_failed", "template", "entry-list", "error", err)
		return nil
	}
	return sse.PatchElements(html, "#entry-list")
}

func patchStatus(d Deps, sse *SSEContext) error {
	if d.Renderer == nil || d.Manager == nil {
		return nil
	}
	html, err := d.Renderer.Render("session-status", d.Manager.Status())
	if err != nil {
		slog.Error("render_failed", "template", "session-status", "error", err)
		return nil
	}
	return sse.PatchElements(html, "#session-status")
}
