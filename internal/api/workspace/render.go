package workspace

import (
	"context"
	"fmt"

	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/workflow"
)

var phaseLabels = map[workflow.Phase]string{
	workflow.Idle:           "Waiting for a point cloud",
	workflow.Uploading:      "Uploading...",
	workflow.ReadyToProcess: "Uploaded, ready to process",
	workflow.Processing:     "Processing terrain...",
	workflow.Analyzed:       "Analysis complete",
}

// panel is the data for the status and telemetry fragments.
type panel struct {
	Label     string
	File      *workflow.FileInfo
	Result    *projector.Projection
	BundleURL string
}

func (h *Handler) panel(snap workflow.Snapshot) panel {
	return panel{
		Label:     phaseLabels[snap.Phase],
		File:      snap.File,
		Result:    snap.Result,
		BundleURL: h.cfg.BundleURL,
	}
}

type layerRef struct {
	Name  string     `json:"name"`
	Href  string     `json:"href"`
	Style LayerStyle `json:"style"`
}

type analysisDetail struct {
	Center [2]float64 `json:"center"`
	Layers []layerRef `json:"layers"`
}

func layerRefs(snap workflow.Snapshot) []layerRef {
	refs := []layerRef{}
	if snap.Result == nil {
		return refs
	}
	for _, name := range layerOrder {
		// Layers that do not parse as GeoJSON stay downloadable but are not drawn.
		if l := snap.Result.Layer(name); l == nil || l.Stats == nil {
			continue
		}
		refs = append(refs, layerRef{
			Name:  name,
			Href:  fmt.Sprintf("%s/layers/%s?seq=%d", basePath, name, snap.Seq),
			Style: LayerStyles[name],
		})
	}
	return refs
}

// push patches the workspace to match ev. initial is set for the first push
// on a new connection.
func (h *Handler) push(sse humastar.SSE, ev workflow.Event, initial bool) {
	snap := ev.Snapshot
	p := h.panel(snap)

	sse.Patch(h.Render("status", p), "#status")
	sse.Patch(h.Render("notice", snap.Notice), "#notice")
	sse.Patch(h.Render("telemetry", p), "#telemetry")

	signals := map[string]any{
		"phase":     snap.Phase.String(),
		"canStart":  snap.CanStart,
		"hasResult": snap.Result != nil,
	}
	switch ev.Phase {
	case workflow.Analyzed:
		signals["tab"] = "telemetry"
		signals["error"] = ""
	case workflow.Failed:
		if snap.Notice != nil {
			signals["error"] = snap.Notice.Message
		}
	case workflow.Idle, workflow.Uploading:
		signals["tab"] = "ingest"
		signals["error"] = ""
	}
	if initial && snap.Phase != workflow.Analyzed {
		signals["tab"] = "ingest"
	}
	sse.Signals(signals)

	switch {
	case snap.Phase == workflow.Analyzed && (initial || ev.Phase == workflow.Analyzed):
		sse.Dispatch("analysis-ready", analysisDetail{
			Center: snap.Center.LatLon(),
			Layers: layerRefs(snap),
		})
	case snap.Phase == workflow.Idle || snap.Phase == workflow.Uploading:
		sse.Dispatch("workspace-cleared", map[string]any{
			"center": snap.Center.LatLon(),
		})
	}
}

func (h *Handler) pushRuns(ctx context.Context, sse humastar.SSE) {
	if h.ledger == nil {
		return
	}
	entries, err := h.ledger.List(ctx, 0, 10)
	if err != nil {
		h.log.Warn("failed to list runs", logger.Err(err))
		return
	}
	sse.Patch(humastar.RenderEach(&h.Handler, "run-row", entries, humastar.Empty{
		Title:   "No runs yet",
		Message: "Finished analyses appear here.",
	}), "#runs")
}
