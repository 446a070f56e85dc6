package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/danielgtaylor/humaclient"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-style/internal/api"
	"github.com/joeblew999/plat-style/internal/api/editor"
	"github.com/joeblew999/plat-style/internal/bridge"
	"github.com/joeblew999/plat-style/internal/humastar"
	"github.com/joeblew999/plat-style/internal/livesync"
	"github.com/joeblew999/plat-style/internal/persist"
	"github.com/joeblew999/plat-style/internal/style"
	"github.com/joeblew999/plat-style/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host         string
	Port         string
	DataDir      string
	WebDir       string // optional web/ directory: static/ files and template overrides
	Store        string // persistence backend, see persist.Backend*
	Slot         string
	RedisURL     string
	DefaultStyle string // style file used instead of the embedded default
	InitialView  string // deep-link fragment applied at startup
	Dev          bool   // reload templates from WebDir on every page load
	Logger       *zap.Logger
}

// Server is the style editor HTTP server.
type Server struct {
	config   Config
	mux      *http.ServeMux
	humaAPI  huma.API
	log      *zap.Logger
	gateway  *persist.Gateway
	core     *livesync.Core
	bridge   *bridge.Bridge
	renderer *templates.Renderer
	links    *humastar.Links
}

// New opens the persistence slot, starts the editing session and registers
// all routes.
func New(ctx context.Context, cfg Config) (*Server, error) {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	fallback := style.Default()
	if cfg.DefaultStyle != "" {
		doc, err := style.Load(cfg.DefaultStyle)
		if err != nil {
			return nil, fmt.Errorf("default style: %w", err)
		}
		fallback = doc
	}

	gateway, err := persist.Open(ctx, persist.Config{
		Backend:  cfg.Store,
		Slot:     cfg.Slot,
		DataDir:  cfg.DataDir,
		RedisURL: cfg.RedisURL,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store, err)
	}

	core := livesync.New(livesync.Options{
		Persister: gateway,
		Fallback:  fallback,
		Logger:    log,
	})
	core.Start(ctx, cfg.InitialView)

	mux := http.NewServeMux()
	links := humastar.NewLinks()

	s := &Server{
		config:   cfg,
		mux:      mux,
		log:      log,
		gateway:  gateway,
		core:     core,
		bridge:   bridge.New(core),
		renderer: templates.Must(),
		links:    links,
	}

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := s.humaConfig()
	humaConfig.Transformers = append(humaConfig.Transformers, links.Transformer())
	s.humaAPI = humago.New(mux, humaConfig)

	s.routes()
	return s, nil
}

func (s *Server) humaConfig() huma.Config {
	humaConfig := huma.DefaultConfig("plat-style API", "1.0.0")
	humaConfig.Info.Description = "Live map style editor: the style document, its editor text, and the map camera."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", s.config.Host, s.config.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	return humaConfig
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// GenerateClient writes the Go client SDK for the REST API to outDir.
// The package is named after the last element of outDir. Editor endpoints
// serve Datastar streams to the page and are left out of the client.
func (s *Server) GenerateClient(outDir string) error {
	abs, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return err
	}

	restAPI := humago.New(http.NewServeMux(), s.humaConfig())
	api.RegisterRoutes(restAPI, &api.Services{Core: s.core},
		api.NewInfoHandler(s.core, s.config.Store, s.config.Slot, s.config.DataDir))

	// humaclient writes ./<package>/ relative to the working directory.
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	if err := os.Chdir(filepath.Dir(abs)); err != nil {
		return err
	}
	defer os.Chdir(wd)

	return humaclient.GenerateClientWithOptions(restAPI, humaclient.Options{
		PackageName: filepath.Base(abs),
		ClientName:  "PlatStyleAPIClient",
	})
}

// Core returns the sync core of the session.
func (s *Server) Core() *livesync.Core {
	return s.core
}

// Close closes server resources.
func (s *Server) Close() error {
	return s.gateway.Close()
}

func (s *Server) routes() {
	// Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, &api.Services{Core: s.core},
		api.NewInfoHandler(s.core, s.config.Store, s.config.Slot, s.config.DataDir))

	// Editor SSE routes using Huma + Datastar SDK
	editor.NewHandler(s.core, s.bridge, s.renderer, s.log).RegisterRoutes(s.humaAPI)

	s.links.Build(s.humaAPI)

	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
		}
	}

	// Page routes
	s.mux.HandleFunc("/editor", s.handleEditor)
	s.mux.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	for _, link := range s.links.For("/health") {
		w.Header().Add("Link", link)
	}
	s.handleEditor(w, r)
}

func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	if s.config.Dev && s.config.WebDir != "" {
		if err := s.renderer.Reload(filepath.Join(s.config.WebDir, "templates")); err != nil {
			s.log.Warn("template reload failed, using previous templates", zap.Error(err))
		}
	}

	html, err := s.renderer.Render("editor", map[string]any{"Title": "plat-style"})
	if err != nil {
		s.log.Error("render editor page", zap.Error(err))
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
