package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/plat-style/internal/logging"
	"github.com/joeblew999/plat-style/internal/persist"
	"github.com/joeblew999/plat-style/internal/server"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/viewport"
	"github.com/joeblew999/plat-style/pkg/styleclient"
)

// Options defines all CLI flags and env vars for the style editor server.
// Flags: --host, --port, --data-dir, --store, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_STORE, ...
type Options struct {
	Host         string `doc:"Host to bind to" default:"0.0.0.0"`
	Port         int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir      string `doc:"Directory for persisted state" default:".data"`
	WebDir       string `doc:"Optional web/ directory with static files and template overrides" default:""`
	Store        string `doc:"Persistence backend: file, duckdb, redis or memory" default:"file"`
	Slot         string `doc:"Persistence slot name" default:"plat-style.style"`
	RedisURL     string `doc:"Redis URL for the redis store" default:"redis://localhost:6379/0"`
	DefaultStyle string `doc:"Style file used instead of the built-in default" default:""`
	InitialView  string `doc:"Deep-link fragment applied at startup, zoom/lat/lon/bearing/pitch" default:""`
	LogLevel     string `doc:"Log level: debug, info, warn or error" default:"info"`
	LogFile      string `doc:"Also write logs to this file, rotated" default:""`
	Dev          bool   `doc:"Console logs and template reload from --web-dir" default:"false"`
}

func newLogger(opts *Options) *zap.Logger {
	log, err := logging.New(logging.Config{Level: opts.LogLevel, Dev: opts.Dev, File: opts.LogFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return log
}

func newServer(opts *Options, log *zap.Logger) (*server.Server, error) {
	return server.New(context.Background(), server.Config{
		Host:         opts.Host,
		Port:         fmt.Sprintf("%d", opts.Port),
		DataDir:      opts.DataDir,
		WebDir:       opts.WebDir,
		Store:        opts.Store,
		Slot:         opts.Slot,
		RedisURL:     opts.RedisURL,
		DefaultStyle: opts.DefaultStyle,
		InitialView:  opts.InitialView,
		Dev:          opts.Dev,
		Logger:       log,
	})
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		var httpServer *http.Server
		var srv *server.Server
		log := newLogger(opts)

		hooks.OnStart(func() {
			var err error
			srv, err = newServer(opts, log)
			if err != nil {
				log.Fatal("startup failed", zap.Error(err))
			}

			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("plat-style editor starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Store:   %s (%s)\n", opts.Store, opts.Slot)
			fmt.Println()
			fmt.Printf("  Editor:  %s/editor\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			httpServer = &http.Server{Addr: addr, Handler: srv}
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal("server error", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if httpServer != nil {
				httpServer.Shutdown(ctx)
			}
			if srv != nil {
				srv.Close()
			}
			log.Sync()
		})
	})

	cli.Root().Use = "styled"
	cli.Root().Short = "Live map style editor"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = persist.BackendMemory
			srv, err := newServer(opts, zap.NewNop())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
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

	// gen-client subcommand: generate Go client SDK via humaclient
	genClientCmd := &cobra.Command{
		Use:   "gen-client",
		Short: "Generate Go client SDK from the API",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			opts.Store = persist.BackendMemory
			srv, err := newServer(opts, zap.NewNop())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			defer srv.Close()
			outDir, _ := cmd.Flags().GetString("output")
			if err := srv.GenerateClient(outDir); err != nil {
				fmt.Fprintf(os.Stderr, "Error generating client: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Client SDK generated in %s/\n", outDir)
		}),
	}
	genClientCmd.Flags().StringP("output", "o", "pkg/styleclient", "Output directory for generated client")
	cli.Root().AddCommand(genClientCmd)

	// validate subcommand: run a style file through the edit-time checks
	validateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a style file and list its layers",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doc, err := style.Load(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", args[0], err)
				os.Exit(1)
			}
			printLayers(doc)
		},
	}
	cli.Root().AddCommand(validateCmd)

	// viewport subcommand: decode a deep-link fragment
	viewportCmd := &cobra.Command{
		Use:   "viewport <fragment>",
		Short: "Decode a zoom/lat/lon/bearing/pitch fragment",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			v, ok := viewport.Decode(args[0])
			if !ok {
				v, ok = viewport.FromURL(args[0])
			}
			if !ok {
				v = viewport.Default()
				fmt.Fprintf(os.Stderr, "%q is not a valid fragment, the default viewport is used\n", args[0])
			}
			tile := v.CenterTile()
			fmt.Printf("zoom:      %g\n", v.Zoom)
			fmt.Printf("center:    %g, %g\n", v.Latitude, v.Longitude)
			fmt.Printf("bearing:   %g\n", v.Bearing)
			fmt.Printf("pitch:     %g\n", v.Pitch)
			fmt.Printf("tile:      %d/%d/%d\n", tile.Z, tile.X, tile.Y)
			fmt.Printf("fragment:  #%s\n", viewport.Encode(v))
		},
	}
	cli.Root().AddCommand(viewportCmd)

	// push/pull subcommands: talk to a running server
	pushCmd := &cobra.Command{
		Use:   "push <file>",
		Short: "Import a style file into a running editor",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if _, _, err := remote(cmd).ImportStyle(context.Background(), data); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("imported %s\n", args[0])
		},
	}
	pullCmd := &cobra.Command{
		Use:   "pull",
		Short: "Print the style published by a running editor",
		Run: func(cmd *cobra.Command, args []string) {
			_, raw, err := remote(cmd).GetStyle(context.Background())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			doc, err := style.Parse(string(raw))
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(doc.Text())
		},
	}
	for _, c := range []*cobra.Command{pushCmd, pullCmd} {
		c.Flags().String("url", "http://localhost:8086", "Base URL of the running server")
		cli.Root().AddCommand(c)
	}

	cli.Run()
}

func remote(cmd *cobra.Command) styleclient.PlatStyleAPIClient {
	base, _ := cmd.Flags().GetString("url")
	return styleclient.New(base)
}

func printLayers(doc style.Document) {
	layers := doc.Layers()
	fmt.Printf("ok: %d layers\n", len(layers))
	if len(layers) == 0 {
		return
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSOURCE\tVISIBLE")
	for _, l := range layers {
		source := l.Source
		if l.SourceLayer != "" {
			source += "/" + l.SourceLayer
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", l.ID, l.Type, source, l.Visible)
	}
	tw.Flush()
}
