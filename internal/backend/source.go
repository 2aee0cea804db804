package backend

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for files that are not LAS/LAZ point clouds.
var ErrUnsupportedFormat = errors.New("unsupported file format: expected .las or .laz")

// Source is a local file handle that can be streamed to the backend.
type Source interface {
	Name() string
	Open() (io.ReadCloser, error)
}

// LocalFile is a Source backed by a path on disk. DisplayName overrides the
// base name sent to the backend.
type LocalFile struct {
	Path        string
	DisplayName string
}

// Name returns the file name sent to the backend.
func (f LocalFile) Name() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return filepath.Base(f.Path)
}

// Open opens the underlying file.
func (f LocalFile) Open() (io.ReadCloser, error) {
	return os.Open(f.Path)
}

// CheckFormat returns ErrUnsupportedFormat unless name ends in .las or .laz.
func CheckFormat(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".las" && ext != ".laz" {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, name)
	}
	return nil
}
