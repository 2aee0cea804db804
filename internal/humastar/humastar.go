// Package humastar serves Datastar server-sent events from Huma operations.
//
// Operations return a [huma.StreamResponse] built by [Handler.Stream]; the
// callback receives an [SSE] that patches fragments, signals and browser
// events. JSON operations get RFC 8288 Link headers from [LinkTransformer],
// fed by [AutoLinks], [Actor] and [Pager].
//
//	func (h *MyHandler) Reset(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
//	    return h.Stream(func(sse humastar.SSE) {
//	        h.ctrl.Reset()
//	        sse.Success("Workspace cleared")
//	    }), nil
//	}
package humastar

import (
	"bytes"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/templates"
)

// Renderer is the template renderer used by handlers.
type Renderer = templates.Renderer

// EmptyInput is the input of operations without parameters.
type EmptyInput struct{}

// Handler is embedded by handlers that answer with Datastar SSE.
type Handler struct {
	Renderer *Renderer
	// Log receives template failures. Nil discards them.
	Log *logger.Logger
}

// Stream returns a StreamResponse that runs fn against the request's SSE stream.
func (h *Handler) Stream(fn func(sse SSE)) *huma.StreamResponse {
	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			fn(NewSSE(ctx))
		},
	}
}

// Render executes a named template. A failure is logged and renders as "".
func (h *Handler) Render(tmpl string, data any) string {
	var buf bytes.Buffer
	if err := h.Renderer.RenderToBuffer(&buf, tmpl, data); err != nil {
		if h.Log != nil {
			h.Log.Warn("template failed", logger.F("template", tmpl), logger.Err(err))
		}
		return ""
	}
	return buf.String()
}

// Empty is the placeholder shown by RenderEach for an empty list.
type Empty struct {
	Title   string
	Message string
}

// RenderEach renders tmpl once per item, or the "empty-state" template with
// empty when there are no items.
func RenderEach[T any](h *Handler, tmpl string, items []T, empty Empty) string {
	if len(items) == 0 {
		return h.Render("empty-state", empty)
	}
	var buf bytes.Buffer
	for _, item := range items {
		buf.WriteString(h.Render(tmpl, item))
	}
	return buf.String()
}

// SSE wraps the Datastar generator of one response.
type SSE struct {
	*datastar.ServerSentEventGenerator
}

// NewSSE opens a Datastar stream on a Huma streaming context.
func NewSSE(ctx huma.Context) SSE {
	r, w := humago.Unwrap(ctx)
	return SSE{datastar.NewSSE(w, r)}
}

// Patch replaces the inner HTML of the element matching selector.
func (s SSE) Patch(html, selector string) {
	s.PatchElements(html,
		datastar.WithSelector(selector),
		datastar.WithModeInner(),
		datastar.WithViewTransitions(),
	)
}

// Error shows msg in the error banner and hides the success banner.
func (s SSE) Error(msg string) { s.notice("", msg) }

// Success shows msg in the success banner and hides the error banner.
func (s SSE) Success(msg string) { s.notice(msg, "") }

func (s SSE) notice(success, failure string) {
	s.MarshalAndPatchSignals(map[string]any{"success": success, "error": failure})
}

// Signals merges signals into the page's signal store.
func (s SSE) Signals(signals map[string]any) {
	s.MarshalAndPatchSignals(signals)
}

// Dispatch fires a DOM CustomEvent named event on the window with detail.
func (s SSE) Dispatch(event string, detail any) {
	s.DispatchCustomEvent(event, detail)
}
