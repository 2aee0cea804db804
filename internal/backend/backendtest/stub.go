// Package backendtest provides an in-memory stand-in for the terrain-analysis
// backend. It is used by tests and by the stub-backend command for demos.
package backendtest

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Stub serves POST {prefix}/upload/ and GET {prefix}/process/{id}.
type Stub struct {
	// Center is the [lon, lat] the canned results are placed around.
	Center orb.Point
	MinZ   float64
	MaxZ   float64

	// OmitResults makes processing succeed without a "results" member.
	OmitResults bool

	mu      sync.Mutex
	files   map[string]string // file_id -> filename
	uploads atomic.Int64
	process atomic.Int64
	mux     *http.ServeMux
}

// New creates a stub mounted under prefix (e.g. "/api").
func New(prefix string) *Stub {
	s := &Stub{
		Center: orb.Point{2.35, 48.85},
		MinZ:   101.25,
		MaxZ:   118.5,
		files:  make(map[string]string),
		mux:    http.NewServeMux(),
	}
	prefix = strings.TrimRight(prefix, "/")
	s.mux.HandleFunc("POST "+prefix+"/upload/", s.handleUpload)
	s.mux.HandleFunc("GET "+prefix+"/process/{id}", s.handleProcess)
	s.mux.HandleFunc("GET "+prefix+"/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "stub terrain backend is running"})
	})
	return s
}

// ServeHTTP implements http.Handler.
func (s *Stub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Uploads returns the number of upload requests received.
func (s *Stub) Uploads() int { return int(s.uploads.Load()) }

// Processes returns the number of process requests received.
func (s *Stub) Processes() int { return int(s.process.Load()) }

// Forget drops a file id so later processing returns 404.
func (s *Stub) Forget(fileID string) {
	s.mu.Lock()
	delete(s.files, fileID)
	s.mu.Unlock()
}

func (s *Stub) handleUpload(w http.ResponseWriter, r *http.Request) {
	s.uploads.Add(1)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "field required: file")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".las" && ext != ".laz" {
		writeDetail(w, http.StatusBadRequest, "Invalid file format. Please upload a .las or .laz file.")
		return
	}
	if _, err := io.Copy(io.Discard, file); err != nil {
		writeDetail(w, http.StatusBadRequest, "Failed to read upload: "+err.Error())
		return
	}

	id := uuid.NewString()
	s.mu.Lock()
	s.files[id] = header.Filename
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{
		"file_id":  id,
		"filename": header.Filename,
		"status":   "Uploaded successfully",
	})
}

func (s *Stub) handleProcess(w http.ResponseWriter, r *http.Request) {
	s.process.Add(1)

	id := r.PathValue("id")
	s.mu.Lock()
	_, ok := s.files[id]
	s.mu.Unlock()
	if !ok {
		writeDetail(w, http.StatusNotFound, "File not found")
		return
	}

	if s.OmitResults {
		writeJSON(w, http.StatusOK, map[string]any{"status": "completed"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "completed",
		"results": s.Results(),
	})
}

// Results builds the canned analysis payload: one square depression around
// Center and one drainage line across it.
func (s *Stub) Results() map[string]any {
	const d = 0.0005
	c := s.Center

	waterlogging := geojson.NewFeatureCollection()
	pond := geojson.NewFeature(orb.Polygon{orb.Ring{
		{c[0] - d, c[1] - d},
		{c[0] + d, c[1] - d},
		{c[0] + d, c[1] + d},
		{c[0] - d, c[1] + d},
		{c[0] - d, c[1] - d},
	}})
	pond.Properties["depth"] = 1.2
	pond.Properties["type"] = "depressed_area"
	waterlogging.Append(pond)

	drainage := geojson.NewFeatureCollection()
	channel := geojson.NewFeature(orb.LineString{
		{c[0] - 4*d, c[1] - 4*d},
		{c[0] + 4*d, c[1] + 4*d},
	})
	channel.Properties["slope"] = 2.5
	channel.Properties["type"] = "optimized_drainage"
	drainage.Append(channel)

	return map[string]any{
		"waterlogging": waterlogging,
		"drainage":     drainage,
		"dtm_summary": map[string]float64{
			"min_z":        s.MinZ,
			"max_z":        s.MaxZ,
			"area_covered": 2500,
		},
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
