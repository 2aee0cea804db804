// Package workspace contains the Datastar SSE handlers and pages of the
// analysis workspace.
package workspace

import (
	"sync"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/workflow"
)

const basePath = "/api/v1/workspace"

// Config holds view settings.
type Config struct {
	// SpoolDir receives uploaded files before they are streamed to the backend.
	SpoolDir       string
	MaxUploadBytes int64
	BundleURL      string
	BackendURL     string
	Zoom           int
}

// Handler serves the workspace pages and their SSE operations.
type Handler struct {
	humastar.Handler
	ctrl   *workflow.Controller
	ledger *ledger.Ledger
	cfg    Config
	log    *logger.Logger
	spool  *spool

	// selectMu serializes spooling and selecting an upload.
	selectMu sync.Mutex
}

// New creates a workspace handler. led may be nil.
func New(ctrl *workflow.Controller, led *ledger.Ledger, renderer *humastar.Renderer, cfg Config, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer, Log: log},
		ctrl:    ctrl,
		ledger:  led,
		cfg:     cfg,
		log:     log,
		spool:   &spool{dir: cfg.SpoolDir},
	}
}

func (h *Handler) RegisterRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID:  "upload-file",
		Method:       "POST",
		Path:         basePath + "/upload",
		Summary:      "Select a LAS/LAZ file and upload it",
		Tags:         []string{humastar.SSETag},
		MaxBodyBytes: h.cfg.MaxUploadBytes,
	}, h.Upload)
	huma.Post(api, basePath+"/process", h.Process, huma.OperationTags(humastar.SSETag))
	huma.Post(api, basePath+"/reset", h.Reset, huma.OperationTags(humastar.SSETag))
	huma.Get(api, basePath+"/events", h.Events, huma.OperationTags(humastar.SSETag))
}

// Close removes any spooled upload.
func (h *Handler) Close() error {
	return h.spool.clear()
}
