// Package editor contains Datastar SSE handlers for the map editor UI.
package editor

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/qgeomap/internal/surface"
)

// MapCommandEvent is the browser event carrying one surface command.
const MapCommandEvent = "map-command"

// EmptyInput is a shared empty input struct for handlers with no parameters.
type EmptyInput struct{}

// SSEContext wraps the Datastar SSE generator with helper methods.
type SSEContext struct {
	SSE *datastar.ServerSentEventGenerator
}

// NewSSEContext creates an SSE context from a Huma context.
func NewSSEContext(humaCtx huma.Context) *SSEContext {
	r, w := humago.Unwrap(humaCtx)
	return &SSEContext{
		SSE: datastar.NewSSE(w, r),
	}
}

// PatchElements sends HTML to replace content at a selector.
func (c *SSEContext) PatchElements(html, selector string) error {
	return c.SSE.PatchElements(html, datastar.WithSelector(selector), datastar.WithModeInner())
}

// SendCommand dispatches a surface command to the browser map.
func (c *SSEContext) SendCommand(cmd surface.Command) error {
	return c.SSE.DispatchCustomEvent(MapCommandEvent, cmd)
}

// SendError sends an error signal to the client.
func (c *SSEContext) SendError(msg string) {
	c.SSE.MarshalAndPatchSignals(map[string]any{
		"error": msg,
	})
}

// SendSuccess sends a success signal to the client.
func (c *SSEContext) SendSuccess(msg string) {
	c.SSE.MarshalAndPatchSignals(map[string]any{
		"success": msg,
	})
}

// SendSignals sends arbitrary signals to the client.
func (c *SSEContext) SendSignals(signals map[string]any) {
	c.SSE.MarshalAndPatchSignals(signals)
}
