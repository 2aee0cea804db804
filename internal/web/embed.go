// Package web embeds the HTML pages and Datastar fragments served by the view.
package web

import (
	"embed"
	"io/fs"

	"github.com/joeblew999/droneflow/internal/templates"
)

//go:embed templates
var files embed.FS

// Patterns are the template globs relative to Templates().
var Patterns = []string{"pages/*.html", "fragments/*.html"}

// Templates returns the embedded template tree with templates/ as root.
func Templates() fs.FS {
	sub, err := fs.Sub(files, "templates")
	if err != nil {
		// only fails for an invalid path literal
		panic(err)
	}
	return sub
}

// NewRenderer parses the embedded pages and fragments.
func NewRenderer() (*templates.Renderer, error) {
	return templates.New(Templates(), Patterns...)
}
