package server

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/qgeomap/internal/api"
	"github.com/joeblew999/qgeomap/internal/api/editor"
	"github.com/joeblew999/qgeomap/internal/basemap"
	"github.com/joeblew999/qgeomap/internal/db"
	"github.com/joeblew999/qgeomap/internal/logger"
	"github.com/joeblew999/qgeomap/internal/mapman"
	"github.com/joeblew999/qgeomap/internal/metrics"
	"github.com/joeblew999/qgeomap/internal/service"
	"github.com/joeblew999/qgeomap/internal/shape"
	"github.com/joeblew999/qgeomap/internal/surface"
	"github.com/joeblew999/qgeomap/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and templates

	InitialBaseLayer string
	MappingAPIKey    string
	StrictTools      bool
	MaxZoom          int
	// Latch overrides the process-wide mapping API latch.
	Latch *basemap.Latch
	// NoDB skips opening DuckDB.
	NoDB bool
}

// Server is the qgeomap HTTP server: one map, one editing session.
type Server struct {
	config   Config
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sql.DB
	bus      *service.EventBus
	remote   *surface.Remote
	manager  *mapman.Manager
	services *api.Services
	renderer *templates.Renderer
	log      *slog.Logger
}

// New creates a new qgeomap server.
func New(cfg Config) *Server {
	log := logger.L()
	mux := http.NewServeMux()

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("qgeomap API", "1.0.0")
	humaConfig.Info.Description = "Map geometry editing sessions: draw and edit entry shapes on a browser map."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())

	humaAPI := humago.New(mux, humaConfig)

	// Every surface mutation goes out on the bus to the browser streams.
	bus := service.NewEventBus()
	remote := surface.NewRemote(func(cmd surface.Command) {
		bus.Publish(service.CommandEvent(cmd))
	})
	manager := mapman.New(remote, shape.NewGroup(), mapman.Options{
		InitialBaseLayer: cfg.InitialBaseLayer,
		MappingAPIKey:    cfg.MappingAPIKey,
		StrictTools:      cfg.StrictTools,
		MaxZoom:          cfg.MaxZoom,
		Latch:            cfg.Latch,
		Logger:           log,
	})

	s := &Server{
		config:  cfg,
		mux:     mux,
		humaAPI: humaAPI,
		bus:     bus,
		remote:  remote,
		manager: manager,
		log:     log,
	}

	s.services = &api.Services{
		Entry:   service.NewEntryService(cfg.DataDir),
		Manager: manager,
		Bus:     bus,
	}

	if !cfg.NoDB {
		conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "qgeomap"})
		if err != nil {
			log.Warn("duckdb_unavailable", "error", err)
		} else {
			s.db = conn
			s.services.Edits = db.NewEditLog(conn)
		}
	}

	s.renderer = loadRenderer(cfg.WebDir, log)

	s.routes()
	s.handler = logger.AccessMiddleware(log)(mux)
	return s
}

// loadRenderer prefers fragments under the web dir and falls back to the
// embedded ones.
func loadRenderer(webDir string, log *slog.Logger) *templates.Renderer {
	if webDir != "" {
		dir := filepath.Join(webDir, "templates", "fragments")
		if _, err := os.Stat(dir); err == nil {
			r, err := templates.New(dir)
			if err == nil {
				log.Info("fragments_loaded", "dir", dir)
				return r
			}
			log.Warn("fragments_invalid", "dir", dir, "error", err)
		}
	}
	r, err := templates.NewEmbedded()
	if err != nil {
		log.Error("fragments_embedded_invalid", "error", err)
		return nil
	}
	return r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Manager returns the map's editing session manager.
func (s *Server) Manager() *mapman.Manager {
	return s.manager
}

// Close closes server resources.
func (s *Server) Close() error {
	if s.db == nil {
		return nil
	}
	return db.Close()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services)
	api.NewInfoHandler(s.config.DataDir, s.db != nil).RegisterRoutes(s.humaAPI)
	api.NewHistoryHandler(s.services.Edits).RegisterRoutes(s.humaAPI)

	// Editor SSE routes using Huma + Datastar SDK
	deps := editor.Deps{
		Manager:  s.manager,
		Entries:  s.services.Entry,
		Bus:      s.bus,
		Edits:    s.services.Edits,
		Surface:  s.remote,
		Renderer: s.renderer,
	}
	editor.NewEventHandler(deps).RegisterRoutes(s.humaAPI)
	editor.NewSessionHandler(deps).RegisterRoutes(s.humaAPI)

	s.mux.Handle("/metrics", metrics.Handler())

	// Static files and pages
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		s.mux.HandleFunc("/editor", s.handleEditor)
	}
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"service": "qgeomap",
		"status":  "running",
		"editing": s.manager.IsEditing(),
	})
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	templatePath := filepath.Join(s.config.WebDir, "templates", "editor.html")
	http.ServeFile(w, r, templatePath)
}
