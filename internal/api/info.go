package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/droneflow/internal/projector"
)

// Version is reported by /health and /api/v1/info.
const Version = "0.1.0"

type InfoHandler struct {
	backendURL string
	center     projector.MapCenter
	ledgerOK   bool
}

func NewInfoHandler(backendURL string, center projector.MapCenter, ledgerOK bool) *InfoHandler {
	return &InfoHandler{backendURL: backendURL, center: center, ledgerOK: ledgerOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name          string              `json:"name" doc:"Service name"`
	Version       string              `json:"version" doc:"Service version"`
	Backend       string              `json:"backend" doc:"Terrain processing backend URL"`
	DefaultCenter projector.MapCenter `json:"defaultCenter" doc:"Map center used until an analysis provides one"`
	Ledger        bool                `json:"ledger" doc:"Whether the run ledger is available"`
	Features      []string            `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:          "droneflow",
		Version:       Version,
		Backend:       h.backendURL,
		DefaultCenter: h.center,
		Ledger:        h.ledgerOK,
		Features:      []string{"las-upload", "dtm-summary", "waterlogging", "drainage", "duckdb"},
	}}, nil
}
