package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"

	"github.com/joeblew999/droneflow/internal/api"
	"github.com/joeblew999/droneflow/internal/api/workspace"
	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/templates"
	"github.com/joeblew999/droneflow/internal/workflow"
)

// Config holds the server configuration.
type Config struct {
	Host           string
	Port           string
	BackendURL     string
	BundleURL      string
	Zoom           int
	MaxUploadBytes int64
	// SpoolDir defaults to a fresh temporary directory.
	SpoolDir string
}

// Server is the droneflow view server.
type Server struct {
	config    Config
	mux       *http.ServeMux
	humaAPI   huma.API
	links     *humastar.Links
	ctrl      *workflow.Controller
	ledger    *ledger.Ledger
	workspace *workspace.Handler
	log       *logger.Logger
	ownSpool  bool
}

// New creates a server for ctrl. led and renderer may be nil: without a
// ledger the runs endpoints report unavailable, without a renderer only the
// JSON API is served.
func New(cfg Config, ctrl *workflow.Controller, led *ledger.Ledger, renderer *templates.Renderer, log *logger.Logger) (*Server, error) {
	if log == nil {
		log = logger.Discard()
	}
	mux := http.NewServeMux()

	s := &Server{
		config: cfg,
		mux:    mux,
		ctrl:   ctrl,
		ledger: led,
		log:    log,
	}

	// Create Huma API with humago (pure stdlib) adapter
	humaConfig := huma.DefaultConfig("droneflow API", api.Version)
	humaConfig.Info.Description = "Upload LiDAR point clouds for remote terrain analysis and view the predicted waterlogging and drainage layers."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers,
		humastar.LinkTransformer(func() *humastar.Links { return s.links }))

	s.humaAPI = humago.New(mux, humaConfig)

	if renderer != nil {
		if cfg.SpoolDir == "" {
			dir, err := os.MkdirTemp("", "droneflow-spool-")
			if err != nil {
				return nil, fmt.Errorf("failed to create spool directory: %w", err)
			}
			cfg.SpoolDir = dir
			s.config.SpoolDir = dir
			s.ownSpool = true
		}
		s.workspace = workspace.New(ctrl, led, renderer, workspace.Config{
			SpoolDir:       cfg.SpoolDir,
			MaxUploadBytes: cfg.MaxUploadBytes,
			BundleURL:      cfg.BundleURL,
			BackendURL:     cfg.BackendURL,
			Zoom:           cfg.Zoom,
		}, log.WithComponent("view"))
	}

	s.routes()
	return s, nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close removes spooled uploads.
func (s *Server) Close() error {
	var err error
	if s.workspace != nil {
		err = s.workspace.Close()
	}
	if s.ownSpool {
		if rmErr := os.RemoveAll(s.config.SpoolDir); err == nil {
			err = rmErr
		}
	}
	return err
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	svc := &api.Services{Workflow: s.ctrl, Ledger: s.ledger}
	huma.AutoRegister(s.humaAPI, api.NewAPIHandler(svc))
	api.NewInfoHandler(s.config.BackendURL, s.ctrl.Snapshot().Center, s.ledger != nil).RegisterRoutes(s.humaAPI)

	// Register workspace SSE routes and pages using Huma + Datastar SDK
	if s.workspace != nil {
		s.workspace.RegisterRoutes(s.humaAPI)
		s.mux.HandleFunc("GET /workspace", s.workspace.Workspace)
		s.mux.HandleFunc("GET /{$}", s.workspace.Welcome)
	} else {
		s.mux.HandleFunc("GET /{$}", s.handleRoot)
	}

	s.links = humastar.AutoLinks(s.humaAPI)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/docs", http.StatusFound)
}
