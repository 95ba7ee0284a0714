package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/qgeomap/internal/logger"
	"github.com/joeblew999/qgeomap/internal/server"
)

// Options defines all CLI flags and env vars for the qgeomap server.
// Flags: --host, --port, --data-dir, --web-dir, --base-layer, --mapping-api-key, --strict-tools, --max-zoom
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, ... (also read from .env)
type Options struct {
	Host          string `doc:"Host to bind to" default:"0.0.0.0"`
	Port          int    `doc:"Port to listen on" short:"p" default:"8087"`
	DataDir       string `doc:"Directory for entries and the edit history" default:".data"`
	WebDir        string `doc:"Path to web/ directory" default:"web"`
	BaseLayer     string `doc:"Initial base layer name, e.g. OpenStreetMap"`
	MappingAPIKey string `doc:"Key for the third-party satellite/hybrid layers"`
	StrictTools   bool   `doc:"Only enable the draw tools matching the session's shape kind"`
	MaxZoom       int    `doc:"Maximum zoom when fitting the map to edited shapes" default:"11"`
}

func newServer(opts *Options) *server.Server {
	return server.New(server.Config{
		Host:             opts.Host,
		Port:             fmt.Sprintf("%d", opts.Port),
		DataDir:          opts.DataDir,
		WebDir:           opts.WebDir,
		InitialBaseLayer: opts.BaseLayer,
		MappingAPIKey:    opts.MappingAPIKey,
		StrictTools:      opts.StrictTools,
		MaxZoom:          opts.MaxZoom,
	})
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
	}
	log := logger.Setup()

	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv := newServer(opts)

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			log.Info("server_starting",
				"addr", addr,
				"editor", baseURL+"/editor",
				"docs", baseURL+"/docs",
				"openapi", baseURL+"/openapi.json",
				"data_dir", opts.DataDir,
			)

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Error("server_error", "error", err)
				os.Exit(1)
			}
		})
		hooks.OnStop(func() {
			if err := srv.Close(); err != nil {
				log.Warn("close_failed", "error", err)
			}
		})
	})

	cli.Root().Use = "qgeomap"
	cli.Root().Short = "Map geometry editing sessions for entries"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	cli.Run()
}
