// Package api defines the Huma JSON API routes and handlers.
package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/workflow"
)

const (
	workspacePath = "/api/v1/workspace"
	geoJSON       = "application/geo+json"
)

// Services holds the dependencies for API handlers.
type Services struct {
	Workflow *workflow.Controller
	Ledger   *ledger.Ledger
}

// Types

type LayerInput struct {
	Name string `path:"name" doc:"Layer name" example:"waterlogging"`
}

type LayerOutput struct {
	ContentType  string `header:"Content-Type"`
	CacheControl string `header:"Cache-Control"`
	Body         []byte
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
	Ledger  bool   `json:"ledger" doc:"Whether the run ledger is available"`
}

// WorkspaceBody is the workspace snapshot. Its Link headers advertise the
// operations valid in the current phase.
type WorkspaceBody struct {
	workflow.Snapshot
}

// Actions implements humastar.Actor.
func (b WorkspaceBody) Actions() []humastar.Action {
	title := "Process uploaded file"
	if b.Result != nil {
		title = "Re-run analysis"
	}

	var set humastar.ActionSet
	set.When(true, humastar.Action{
		Rel: "upload", Href: workspacePath + "/upload", Method: "POST", Title: "Upload a LAS/LAZ file",
	}).When(b.CanStart, humastar.Action{
		Rel: "process", Href: workspacePath + "/process", Method: "POST", Title: title,
	}).When(b.Phase != workflow.Idle, humastar.Action{
		Rel: "reset", Href: workspacePath + "/reset", Method: "POST", Title: "Discard file and result",
	})
	if b.Result != nil {
		for _, name := range []string{projector.LayerWaterlogging, projector.LayerDrainage} {
			set.When(b.Result.Layer(name) != nil, humastar.Action{
				Rel: name, Href: workspacePath + "/layers/" + name, Method: "GET", Type: geoJSON,
			})
		}
	}
	return set
}

// APIHandler holds the REST API handlers. Methods named Register* are
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

// RegisterWorkspace registers workspace state and layer routes.
func (h *APIHandler) RegisterWorkspace(api huma.API) {
	huma.Get(api, workspacePath, h.GetWorkspace, huma.OperationTags("workspace"))
	huma.Get(api, workspacePath+"/layers/{name}", h.GetLayer, huma.OperationTags("workspace"))
}

// RegisterRuns registers the session ledger routes.
func (h *APIHandler) RegisterRuns(api huma.API) {
	huma.Get(api, workspacePath+"/runs", h.GetRuns, huma.OperationTags("workspace"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	body := HealthBody{Status: "ok", Version: Version}
	if h.svc.Ledger != nil {
		body.Ledger = h.svc.Ledger.Ping(ctx) == nil
	}
	return &struct{ Body HealthBody }{Body: body}, nil
}

func (h *APIHandler) GetWorkspace(ctx context.Context, input *struct{}) (*struct{ Body WorkspaceBody }, error) {
	return &struct{ Body WorkspaceBody }{Body: WorkspaceBody{h.svc.Workflow.Snapshot()}}, nil
}

func (h *APIHandler) GetLayer(ctx context.Context, input *LayerInput) (*LayerOutput, error) {
	snap := h.svc.Workflow.Snapshot()
	if snap.Result == nil {
		return nil, huma.Error404NotFound("no analysis result")
	}
	layer, err := snap.Result.LookupLayer(input.Name)
	if errors.Is(err, projector.ErrUnknownLayer) {
		return nil, huma.Error404NotFound(err.Error())
	}
	if layer == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("layer %q not reported", input.Name))
	}
	return &LayerOutput{
		ContentType:  geoJSON,
		CacheControl: "no-store",
		Body:         layer.Raw,
	}, nil
}
