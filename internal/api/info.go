package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/qgeomap/internal/basemap"
	"github.com/joeblew999/qgeomap/internal/surface"
)

type InfoHandler struct {
	dataDir string
	dbOK    bool
}

func NewInfoHandler(dataDir string, dbOK bool) *InfoHandler {
	return &InfoHandler{dataDir: dataDir, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir" doc:"Data directory path"`
	DB       bool     `json:"db" doc:"Whether database is available"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"entries", "session", "basemaps", "sse"}
	if h.dbOK {
		features = append(features, "edit-history")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "qgeomap",
		Version:  "0.1.0",
		DataDir:  h.dataDir,
		DB:       h.dbOK,
		Features: features,
	}}, nil
}

type BasemapsBody struct {
	Layers          []surface.Layer       `json:"layers" doc:"Registered base layers"`
	Active          string                `json:"active" doc:"Base layer shown at start" example:"ESRI Oceans/Labels"`
	GoogleAvailable bool                  `json:"googleAvailable" doc:"Whether the gated satellite layers are offered"`
	MousePosition   basemap.MousePosition `json:"mousePosition" doc:"Coordinate readout settings"`
}

// RegisterBasemaps registers the base layer listing.
func (h *APIHandler) RegisterBasemaps(api huma.API) {
	huma.Get(api, "/api/v1/basemaps", h.GetBasemaps, huma.OperationTags("basemaps"))
	huma.Post(api, "/api/v1/basemaps/loaded", h.MappingAPILoaded, huma.OperationTags("basemaps"),
		func(o *huma.Operation) {
			o.Description = "Reported by a page that already has the mapping API, which enables the satellite layers."
		})
}

func (h *APIHandler) GetBasemaps(ctx context.Context, input *struct{}) (*struct{ Body BasemapsBody }, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}
	return basemapsOutput(m.Setup()), nil
}

func (h *APIHandler) MappingAPILoaded(ctx context.Context, input *struct{}) (*struct{ Body BasemapsBody }, error) {
	m, err := h.manager()
	if err != nil {
		return nil, err
	}
	return basemapsOutput(m.APILoaded()), nil
}

func basemapsOutput(setup basemap.Setup) *struct{ Body BasemapsBody } {
	return &struct{ Body BasemapsBody }{Body: BasemapsBody{
		Layers:          setup.BaseLayers,
		Active:          setup.Active,
		GoogleAvailable: setup.GoogleAvailable,
		MousePosition:   setup.MousePosition,
	}}
}
