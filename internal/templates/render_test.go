package templates_test

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/droneflow/internal/templates"
)

func TestRenderFuncs(t *testing.T) {
	fsys := fstest.MapFS{
		"fragments/elev.html": {Data: []byte(`{{define "elev"}}{{fixed 2 .}} m{{end}}`)},
		"fragments/pair.html": {Data: []byte(`{{define "pair"}}{{template "kv" (dict "K" "min" "V" 3)}}{{end}}{{define "kv"}}{{.K}}={{.V}}{{end}}`)},
	}
	r, err := templates.New(fsys, "fragments/*.html")
	require.NoError(t, err)

	out, err := r.Render("elev", 101.256)
	require.NoError(t, err)
	assert.Equal(t, "101.26 m", out)

	out, err = r.Render("pair", nil)
	require.NoError(t, err)
	assert.Equal(t, "min=3", out)

	_, err = r.Render("missing", nil)
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	fsys := fstest.MapFS{"a.html": {Data: []byte(`{{define "a"}}one{{end}}`)}}
	r, err := templates.New(fsys, "*.html")
	require.NoError(t, err)

	fsys["a.html"] = &fstest.MapFile{Data: []byte(`{{define "a"}}two{{end}}`)}
	require.NoError(t, r.Reload())

	out, err := r.Render("a", nil)
	require.NoError(t, err)
	assert.Equal(t, "two", out)
}

func TestNewRejectsBadTemplate(t *testing.T) {
	_, err := templates.New(fstest.MapFS{"bad.html": {Data: []byte(`{{define "x"}}`)}}, "*.html")
	assert.Error(t, err)
}
