package workspace

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/workflow"
)

// Events streams workspace state to the page. The current state is pushed on
// connect, then every transition as it happens.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		events := h.ctrl.Subscribe()
		defer h.ctrl.Unsubscribe(events)

		var recorded chan workflow.Event
		if h.ledger != nil {
			recorded = h.ledger.Subscribe()
			defer h.ledger.Unsubscribe(recorded)
		}

		snap := h.ctrl.Snapshot()
		h.push(sse, workflow.Event{Phase: snap.Phase, Snapshot: snap}, true)
		h.pushRuns(ctx, sse)
		last := snap.Seq

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-events:
				if !ok {
					return
				}
				// already covered by the initial snapshot
				if ev.Snapshot.Seq <= last {
					continue
				}
				last = ev.Snapshot.Seq
				h.push(sse, ev, false)
			case <-recorded:
				h.pushRuns(ctx, sse)
			}
		}
	}), nil
}
