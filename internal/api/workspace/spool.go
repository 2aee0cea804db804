package workspace

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joeblew999/droneflow/internal/backend"
)

// spool keeps the most recently uploaded file on disk until it is replaced.
type spool struct {
	dir string

	mu   sync.Mutex
	path string
}

// save writes fh to a new file and removes the previous one. The returned
// source reports the browser-supplied file name.
func (s *spool) save(fh *multipart.FileHeader) (backend.LocalFile, error) {
	in, err := fh.Open()
	if err != nil {
		return backend.LocalFile{}, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer in.Close()

	name := filepath.Base(fh.Filename)
	out, err := os.CreateTemp(s.dir, "upload-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return backend.LocalFile{}, fmt.Errorf("failed to create spool file: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(out.Name())
		return backend.LocalFile{}, fmt.Errorf("failed to write spool file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(out.Name())
		return backend.LocalFile{}, err
	}

	s.mu.Lock()
	prev := s.path
	s.path = out.Name()
	s.mu.Unlock()
	if prev != "" {
		os.Remove(prev)
	}
	return backend.LocalFile{Path: out.Name(), DisplayName: name}, nil
}

func (s *spool) clear() error {
	s.mu.Lock()
	prev := s.path
	s.path = ""
	s.mu.Unlock()
	if prev == "" {
		return nil
	}
	if err := os.Remove(prev); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
