// Package templates handles HTML template rendering for pages and Datastar SSE fragments.
package templates

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"sync"
)

// funcMap provides common template functions.
var funcMap = template.FuncMap{
	// dict creates a map from key-value pairs, useful for passing multiple values to nested templates
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
	"fixed": func(digits int, v float64) string {
		return fmt.Sprintf("%.*f", digits, v)
	},
}

// Renderer manages named HTML templates parsed from a filesystem.
type Renderer struct {
	fsys      fs.FS
	patterns  []string
	templates *template.Template
	mu        sync.RWMutex
}

// New parses every template matching patterns in fsys.
func New(fsys fs.FS, patterns ...string) (*Renderer, error) {
	r := &Renderer{fsys: fsys, patterns: patterns}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Render renders a named template to a string.
func (r *Renderer) Render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.RenderToBuffer(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderToBuffer renders a named template to a buffer.
func (r *Renderer) RenderToBuffer(buf *bytes.Buffer, name string, data any) error {
	return r.Execute(buf, name, data)
}

// Execute renders a named template to w.
func (r *Renderer) Execute(w io.Writer, name string, data any) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.templates.ExecuteTemplate(w, name, data)
}

// Reload re-parses the templates (useful with an on-disk fs during development).
func (r *Renderer) Reload() error {
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(r.fsys, r.patterns...)
	if err != nil {
		return err
	}

	r.mu.Lock()
	r.templates = tmpl
	r.mu.Unlock()

	return nil
}
