package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/qgeomap/internal/db"
)

// HistoryHandler serves the applied-edit history.
type HistoryHandler struct {
	edits *db.EditLog
}

// NewHistoryHandler creates a history handler. A nil log answers 503.
func NewHistoryHandler(edits *db.EditLog) *HistoryHandler {
	return &HistoryHandler{edits: edits}
}

// RegisterRoutes registers history routes with Huma.
func (h *HistoryHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/edits", h.ListEdits, huma.OperationTags("history"))
}

// EditsInput filters the history.
type EditsInput struct {
	EntryID string `query:"entryId" doc:"Only edits of this entry" example:"station-42"`
	Limit   int    `query:"limit" minimum:"1" maximum:"500" default:"50" doc:"Maximum number of edits"`
}

// EditsOutput is the response for listing edits.
type EditsOutput struct {
	Body struct {
		Edits []db.Edit `json:"edits" doc:"Applied edits, newest first"`
		Count int       `json:"count" doc:"Number of edits returned"`
	}
}

// ListEdits returns applied sessions from DuckDB.
func (h *HistoryHandler) ListEdits(ctx context.Context, input *EditsInput) (*EditsOutput, error) {
	if h.edits == nil {
		return nil, huma.Error503ServiceUnavailable("Database not available")
	}

	edits, err := h.edits.List(ctx, input.EntryID, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list edits", err)
	}

	out := &EditsOutput{}
	out.Body.Edits = edits
	out.Body.Count = len(edits)
	return out, nil
}
