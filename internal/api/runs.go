package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/ledger"
)

type RunsInput struct {
	Offset int `query:"offset" minimum:"0" default:"0" doc:"Entries to skip"`
	Limit  int `query:"limit" minimum:"1" maximum:"100" default:"20" doc:"Page size"`
}

type RunsOutput struct {
	Body humastar.PageBody[ledger.Entry]
}

// GetRuns lists finished analysis attempts, newest first.
func (h *APIHandler) GetRuns(ctx context.Context, input *RunsInput) (*RunsOutput, error) {
	if h.svc.Ledger == nil {
		return nil, huma.Error503ServiceUnavailable("Ledger not available")
	}

	total, err := h.svc.Ledger.Count(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to count runs", err)
	}
	entries, err := h.svc.Ledger.List(ctx, input.Offset, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list runs", err)
	}

	return &RunsOutput{Body: humastar.NewPage(entries, total, input.Offset, input.Limit)}, nil
}
