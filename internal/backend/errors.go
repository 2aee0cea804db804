package backend

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError is a non-2xx response from the backend.
type StatusError struct {
	Op         string // "upload" or "process"
	StatusCode int
	Detail     string // FastAPI "detail" message or truncated body
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("%s: backend returned %d %s", e.Op, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound reports whether err is a 404 from the backend, which for
// processing means the uploaded file is no longer known.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}
