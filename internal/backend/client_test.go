package backend_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/backend/backendtest"
	"github.com/joeblew999/droneflow/internal/projector"
)

func newClient(t *testing.T) (*backend.Client, *backendtest.Stub) {
	t.Helper()
	stub := backendtest.New("/api")
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return backend.New(backend.Config{BaseURL: srv.URL + "/api/"}), stub
}

func writeCloud(t *testing.T, name string) backend.LocalFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("LASF fake point cloud"), 0o600))
	return backend.LocalFile{Path: path}
}

func TestUploadAndProcess(t *testing.T) {
	c, stub := newClient(t)
	ctx := context.Background()

	id, err := c.Upload(ctx, writeCloud(t, "site.las"))
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, 1, stub.Uploads())

	raw, err := c.Process(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "completed", raw["status"])

	proj, err := projector.New(projector.MapCenter{}).Project(raw)
	require.NoError(t, err)
	assert.True(t, proj.CenterDerived)
	assert.InDelta(t, 48.85, proj.Center.Latitude, 0.001)
	assert.InDelta(t, 2.35, proj.Center.Longitude, 0.001)
	assert.True(t, proj.Summary.Present)
}

func TestUploadRejectsUnsupportedFormatLocally(t *testing.T) {
	c, stub := newClient(t)

	_, err := c.Upload(context.Background(), writeCloud(t, "notes.txt"))
	assert.ErrorIs(t, err, backend.ErrUnsupportedFormat)
	assert.Equal(t, 0, stub.Uploads(), "nothing is sent to the backend")
}

func TestUploadDisplayNameIsSent(t *testing.T) {
	c, _ := newClient(t)
	src := writeCloud(t, "spool-123")
	src.DisplayName = "field.LAZ"

	_, err := c.Upload(context.Background(), src)
	require.NoError(t, err)
}

func TestUploadMissingFile(t *testing.T) {
	c, _ := newClient(t)
	_, err := c.Upload(context.Background(), backend.LocalFile{Path: filepath.Join(t.TempDir(), "gone.las")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestProcessUnknownID(t *testing.T) {
	c, _ := newClient(t)

	_, err := c.Process(context.Background(), "does-not-exist")
	require.Error(t, err)

	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
	assert.Equal(t, "File not found", se.Detail)
	assert.Equal(t, "process", se.Op)
	assert.True(t, backend.IsNotFound(err))
}

func TestProcessWithoutResults(t *testing.T) {
	c, stub := newClient(t)
	stub.OmitResults = true

	id, err := c.Upload(context.Background(), writeCloud(t, "site.las"))
	require.NoError(t, err)

	raw, err := c.Process(context.Background(), id)
	require.NoError(t, err, "missing results is left to the projector")
	_, hasResults := raw["results"]
	assert.False(t, hasResults)
}

func TestServerErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"dtm generation failed"}`))
	}))
	defer srv.Close()

	c := backend.New(backend.Config{BaseURL: srv.URL})
	_, err := c.Process(context.Background(), "abc")

	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.Equal(t, "dtm generation failed", se.Detail)
	assert.Contains(t, err.Error(), "500")
}

func TestServerErrorDetailTruncatesOnRuneBoundary(t *testing.T) {
	body := "x" + strings.Repeat("é", 150)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte(body))
	}))
	defer srv.Close()

	c := backend.New(backend.Config{BaseURL: srv.URL})
	_, err := c.Process(context.Background(), "abc")

	var se *backend.StatusError
	require.ErrorAs(t, err, &se)
	assert.True(t, utf8.ValidString(se.Detail))
	assert.LessOrEqual(t, len(se.Detail), 200)
	assert.Equal(t, body[:199], se.Detail)
}

func TestProcessTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := backend.New(backend.Config{BaseURL: srv.URL, ProcessTimeout: 50 * time.Millisecond})
	_, err := c.Process(context.Background(), "abc")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
