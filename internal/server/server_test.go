package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/backend/backendtest"
	"github.com/joeblew999/droneflow/internal/ledger"
	"github.com/joeblew999/droneflow/internal/projector"
	"github.com/joeblew999/droneflow/internal/server"
	"github.com/joeblew999/droneflow/internal/web"
	"github.com/joeblew999/droneflow/internal/workflow"
)

type fixture struct {
	srv    *httptest.Server
	ctrl   *workflow.Controller
	events chan workflow.Event
	stub   *backendtest.Stub
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	stub := backendtest.New("/api")
	backendSrv := httptest.NewServer(stub)
	t.Cleanup(backendSrv.Close)

	client := backend.New(backend.Config{BaseURL: backendSrv.URL + "/api"})
	ctrl := workflow.New(client, projector.New(projector.MapCenter{Latitude: 51.505, Longitude: -0.09}), nil)
	t.Cleanup(ctrl.Close)

	led, err := ledger.Open(nil)
	require.NoError(t, err)
	t.Cleanup(func() { led.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go led.Follow(ctx, ctrl.Subscribe())

	renderer, err := web.NewRenderer()
	require.NoError(t, err)

	s, err := server.New(server.Config{
		Host:           "127.0.0.1",
		Port:           "0",
		BackendURL:     backendSrv.URL + "/api",
		Zoom:           16,
		MaxUploadBytes: 1 << 20,
		SpoolDir:       t.TempDir(),
	}, ctrl, led, renderer, nil)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)

	return &fixture{srv: srv, ctrl: ctrl, events: ctrl.Subscribe(), stub: stub}
}

func (f *fixture) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) post(t *testing.T, path, contentType string, body io.Reader) string {
	t.Helper()
	resp, err := http.Post(f.srv.URL+path, contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (f *fixture) upload(t *testing.T, name string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = fw.Write([]byte("LASF fake point cloud"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return f.post(t, "/api/v1/workspace/upload", mw.FormDataContentType(), &buf)
}

func (f *fixture) await(t *testing.T, phases ...workflow.Phase) workflow.Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ev, err := workflow.Await(ctx, f.events, phases...)
	require.NoError(t, err)
	return ev
}

func links(resp *http.Response) string {
	return strings.Join(resp.Header.Values("Link"), ", ")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Status string `json:"status"`
		Ledger bool   `json:"ledger"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
	assert.True(t, body.Ledger)
	assert.Contains(t, links(resp), `</api/v1/workspace>; rel="workspace"`)
	assert.Contains(t, links(resp), `rel="service-desc"`)
}

func TestPages(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "DRONEFLOW")
	assert.Contains(t, string(b), `href="/workspace"`)

	resp = f.get(t, "/workspace")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, _ = io.ReadAll(resp.Body)
	assert.Contains(t, string(b), "/api/v1/workspace/events")
	assert.Contains(t, string(b), "[51.505,-0.09]")
	assert.Contains(t, string(b), "Select LAS source")
	// map updates survive a bad layer and ignore superseded analyses
	assert.Contains(t, string(b), "mine !== generation")
	assert.Contains(t, string(b), "catch (err)")
}

func TestIdleWorkspaceActions(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/api/v1/workspace")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	l := links(resp)
	assert.Contains(t, l, `rel="upload"`)
	assert.NotContains(t, l, `rel="process"`)
	assert.NotContains(t, l, `rel="reset"`)

	var body struct {
		Phase    string `json:"phase"`
		CanStart bool   `json:"canStart"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "idle", body.Phase)
	assert.False(t, body.CanStart)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/workspace/layers/waterlogging").StatusCode)
}

func TestProcessBeforeUpload(t *testing.T) {
	f := newFixture(t)

	out := f.post(t, "/api/v1/workspace/process", "application/json", nil)
	assert.Contains(t, out, "datastar-patch-signals")
	assert.Contains(t, out, "Upload a point cloud before processing")
	assert.Equal(t, workflow.Idle, f.ctrl.Snapshot().Phase)
}

func TestUploadRejectsFormat(t *testing.T) {
	f := newFixture(t)

	out := f.upload(t, "notes.txt")
	assert.Contains(t, out, "Only .las or .laz files are supported")
	assert.Equal(t, workflow.Idle, f.ctrl.Snapshot().Phase)
	assert.Equal(t, 0, f.stub.Uploads())
}

func TestAnalysisFlow(t *testing.T) {
	f := newFixture(t)

	out := f.upload(t, "site.las")
	assert.Contains(t, out, "Uploading site.las")
	ev := f.await(t, workflow.ReadyToProcess, workflow.Failed)
	require.Equal(t, workflow.ReadyToProcess, ev.Phase)
	assert.Equal(t, "site.las", ev.Snapshot.File.Name)

	resp := f.get(t, "/api/v1/workspace")
	assert.Contains(t, links(resp), `rel="process"`)

	f.post(t, "/api/v1/workspace/process", "application/json", nil)
	ev = f.await(t, workflow.Analyzed, workflow.Failed)
	require.Equal(t, workflow.Analyzed, ev.Phase)

	resp = f.get(t, "/api/v1/workspace/layers/waterlogging")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/geo+json", resp.Header.Get("Content-Type"))
	var fc struct {
		Type     string            `json:"type"`
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 1)

	assert.Equal(t, http.StatusNotFound, f.get(t, "/api/v1/workspace/layers/elevation").StatusCode)

	resp = f.get(t, "/api/v1/workspace")
	l := links(resp)
	assert.Contains(t, l, `rel="drainage"`)
	assert.Contains(t, l, `title="Re-run analysis"`)

	require.Eventually(t, func() bool {
		resp := f.get(t, "/api/v1/workspace/runs")
		var page struct {
			Total int            `json:"total"`
			Data  []ledger.Entry `json:"data"`
		}
		if json.NewDecoder(resp.Body).Decode(&page) != nil || page.Total != 1 {
			return false
		}
		return page.Data[0].Outcome == ledger.OutcomeAnalyzed && page.Data[0].FileName == "site.las"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestResetEndpoint(t *testing.T) {
	f := newFixture(t)

	f.upload(t, "site.las")
	f.await(t, workflow.ReadyToProcess)

	out := f.post(t, "/api/v1/workspace/reset", "application/json", nil)
	assert.Contains(t, out, "Workspace cleared")
	f.await(t, workflow.Idle)
	assert.Nil(t, f.ctrl.Snapshot().File)
}

func TestOpenAPIDocumentsWorkspace(t *testing.T) {
	f := newFixture(t)

	resp := f.get(t, "/openapi.json")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	for _, p := range []string{
		"/health",
		"/api/v1/workspace",
		"/api/v1/workspace/upload",
		"/api/v1/workspace/process",
		"/api/v1/workspace/reset",
		"/api/v1/workspace/events",
		"/api/v1/workspace/layers/{name}",
		"/api/v1/workspace/runs",
	} {
		assert.Contains(t, doc.Paths, p)
	}
}
