package workflow

import (
	"errors"
	"fmt"

	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/projector"
)

var (
	// ErrNotReady is returned by Start when no uploaded file id is available
	// or an upload or processing call is in flight.
	ErrNotReady = errors.New("workflow: no uploaded file ready for processing")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("workflow: controller closed")
)

// UploadError is a failed upload. The workflow returns to Idle.
type UploadError struct {
	File  string
	Cause error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload of %s failed: %v", e.File, e.Cause)
}

func (e *UploadError) Unwrap() error { return e.Cause }

// ProcessingError is a failed processing call, including a response without
// results. The workflow returns to ReadyToProcess and keeps the file id.
type ProcessingError struct {
	FileID string
	Cause  error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing of %s failed: %v", e.FileID, e.Cause)
}

func (e *ProcessingError) Unwrap() error { return e.Cause }

// MissingResults reports whether the backend answered without results.
func (e *ProcessingError) MissingResults() bool {
	var m *projector.MissingResultsError
	return errors.As(e.Cause, &m)
}

// Notice is a user-visible failure message.
type Notice struct {
	Kind    string `json:"kind" enum:"upload,processing" doc:"Which step failed"`
	Message string `json:"message" doc:"Human readable message"`
	Err     error  `json:"-"`
}

func uploadNotice(err *UploadError) *Notice {
	msg := "Upload failed. Ensure backend is running."
	switch {
	case errors.Is(err, backend.ErrUnsupportedFormat):
		msg = "Upload failed: please select a .las or .laz file."
	case detailOf(err) != "":
		msg = "Upload failed: " + detailOf(err)
	}
	return &Notice{Kind: "upload", Message: msg, Err: err}
}

func processingNotice(err *ProcessingError) *Notice {
	msg := "Analysis failed. Please try again or check your file."
	switch {
	case err.MissingResults():
		msg = "Analysis returned no results. Please try again."
	case detailOf(err) != "":
		msg = "Analysis failed: " + detailOf(err)
	}
	return &Notice{Kind: "processing", Message: msg, Err: err}
}

func detailOf(err error) string {
	var se *backend.StatusError
	if errors.As(err, &se) {
		return se.Detail
	}
	return ""
}
