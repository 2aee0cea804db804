package workspace

import (
	"net/http"

	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/workflow"
)

type pageData struct {
	Title      string
	BackendURL string
	Busy       bool

	Phase     string
	CanStart  bool
	HasResult bool
	Center    [2]float64
	Zoom      int
	Panel     panel
}

func (h *Handler) pageData(title string) pageData {
	snap := h.ctrl.Snapshot()
	return pageData{
		Title:      title,
		BackendURL: h.cfg.BackendURL,
		Busy:       snap.Phase != workflow.Idle,
		Phase:      snap.Phase.String(),
		CanStart:   snap.CanStart,
		HasResult:  snap.Result != nil,
		Center:     snap.Center.LatLon(),
		Zoom:       h.cfg.Zoom,
		Panel:      h.panel(snap),
	}
}

// Welcome serves the entry screen.
func (h *Handler) Welcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	h.page(w, "welcome", h.pageData("DroneFlow"))
}

// Workspace serves the two-tab workspace with the map.
func (h *Handler) Workspace(w http.ResponseWriter, r *http.Request) {
	h.page(w, "workspace", h.pageData("DroneFlow workspace"))
}

func (h *Handler) page(w http.ResponseWriter, name string, data pageData) {
	html, err := h.Renderer.Render(name, data)
	if err != nil {
		h.log.Error("page render failed", logger.F("page", name), logger.Err(err))
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}
