// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/qgeomap/internal/db"
	"github.com/joeblew999/qgeomap/internal/entry"
	"github.com/joeblew999/qgeomap/internal/mapman"
	"github.com/joeblew999/qgeomap/internal/service"
)

// Services holds the service dependencies for API handlers.
type Services struct {
	Entry   *service.EntryService
	Manager *mapman.Manager
	// Edits is nil when the database is unavailable.
	Edits *db.EditLog
	Bus   *service.EventBus
}

func (s *Services) publish(e service.Event) {
	if s.Bus != nil {
		s.Bus.Publish(e)
	}
}

// RegisterRoutes registers every Register* method of the API handler.
func RegisterRoutes(api huma.API, svc *Services) {
	huma.AutoRegister(api, NewAPIHandler(svc))
}

// Types

type IDInput struct {
	ID string `path:"id" doc:"Entry ID" example:"station-42"`
}

type EntryOutput struct {
	Body entry.Entry
}

type EntriesOutput struct {
	Body []entry.Entry
}

type MessageBody struct {
	Message string `json:"message" doc:"Result message"`
}

type CreatedEntryBody struct {
	ID      string      `json:"id" doc:"Generated entry ID"`
	Entry   entry.Entry `json:"entry" doc:"Created entry"`
	Message string      `json:"message" doc:"Result message"`
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
	Editing bool   `json:"editing" doc:"Whether an editing session is active"`
}

// APIHandler holds all REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterEntries registers entry CRUD routes.
func (h *APIHandler) RegisterEntries(api huma.API) {
	huma.Get(api, "/api/v1/entries", h.GetEntries, huma.OperationTags("entries"))
	huma.Post(api, "/api/v1/entries", h.CreateEntry, huma.OperationTags("entries"))
	huma.Get(api, "/api/v1/entries/{id}", h.GetEntry, huma.OperationTags("entries"))
	huma.Put(api, "/api/v1/entries/{id}", h.PutEntry, huma.OperationTags("entries"))
	huma.Delete(api, "/api/v1/entries/{id}", h.DeleteEntry, huma.OperationTags("entries"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: "1.0.0"}
	if h.svc != nil && h.svc.Manager != nil {
		body.Editing = h.svc.Manager.IsEditing()
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetEntries(ctx context.Context, input *struct{}) (*EntriesOutput, error) {
	if h.svc == nil || h.svc.Entry == nil {
		return &EntriesOutput{Body: []entry.Entry{}}, nil
	}
	return &EntriesOutput{Body: h.svc.Entry.List()}, nil
}

func (h *APIHandler) CreateEntry(ctx context.Context, input *struct{ Body entry.Entry }) (*struct{ Body CreatedEntryBody }, error) {
	if h.svc == nil || h.svc.Entry == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	created, err := h.svc.Entry.Create(input.Body)
	if err != nil {
		if errors.Is(err, service.ErrExists) {
			return nil, huma.Error409Conflict(err.Error())
		}
		return nil, huma.Error500InternalServerError("saving entry", err)
	}
	h.svc.publish(service.Event{Resource: service.ResourceEntries, Action: "created", ID: created.ID})
	return &struct{ Body CreatedEntryBody }{Body: CreatedEntryBody{
		ID: created.ID, Entry: created, Message: "Entry created",
	}}, nil
}

func (h *APIHandler) GetEntry(ctx context.Context, input *IDInput) (*EntryOutput, error) {
	if h.svc == nil || h.svc.Entry == nil {
		return nil, huma.Error404NotFound("service not available")
	}
	e, ok := h.svc.Entry.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("entry not found")
	}
	return &EntryOutput{Body: e}, nil
}

func (h *APIHandler) PutEntry(ctx context.Context, input *struct {
	IDInput
	Body entry.Entry
}) (*EntryOutput, error) {
	if h.svc == nil || h.svc.Entry == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	updated, err := h.svc.Entry.Update(input.ID, input.Body)
	if err != nil {
		return nil, entryError(err)
	}
	h.svc.publish(service.Event{Resource: service.ResourceEntries, Action: "updated", ID: updated.ID})
	return &EntryOutput{Body: updated}, nil
}

func (h *APIHandler) DeleteEntry(ctx context.Context, input *IDInput) (*struct{ Body MessageBody }, error) {
	if h.svc == nil || h.svc.Entry == nil {
		return nil, huma.Error400BadRequest("service not available")
	}
	if err := h.svc.Entry.Delete(input.ID); err != nil {
		return nil, entryError(err)
	}
	h.svc.publish(service.Event{Resource: service.ResourceEntries, Action: "deleted", ID: input.ID})
	return &struct{ Body MessageBody }{Body: MessageBody{Message: "Entry deleted"}}, nil
}

func entryError(err error) error {
	if errors.Is(err, service.ErrNotFound) {
		return huma.Error404NotFound(err.Error())
	}
	return huma.Error500InternalServerError("saving entry", err)
}
