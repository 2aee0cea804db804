package workspace

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/humastar"
	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/workflow"
)

type UploadInput struct {
	RawBody multipart.Form
}

// Upload spools the posted file and makes it the current selection. The
// upload itself continues in the background; progress arrives on /events.
func (h *Handler) Upload(ctx context.Context, input *UploadInput) (*huma.StreamResponse, error) {
	files := input.RawBody.File["file"]

	return h.Stream(func(sse humastar.SSE) {
		if len(files) == 0 {
			sse.Error("No file provided")
			return
		}
		fh := files[0]
		if err := backend.CheckFormat(fh.Filename); err != nil {
			sse.Error("Only .las or .laz files are supported")
			return
		}

		src, err := h.accept(fh)
		if errors.Is(err, errSpool) {
			h.log.Error("spool failed", logger.F("file", fh.Filename), logger.Err(err))
			sse.Error("Failed to receive file")
			return
		}
		if err != nil {
			sse.Error(err.Error())
			return
		}
		sse.Success("Uploading " + src.Name())
	}), nil
}

var errSpool = errors.New("spool")

// accept spools fh and makes it the current selection. Both steps run under
// one lock, so the selected file is always the newest spool file.
func (h *Handler) accept(fh *multipart.FileHeader) (backend.LocalFile, error) {
	h.selectMu.Lock()
	defer h.selectMu.Unlock()

	src, err := h.spool.save(fh)
	if err != nil {
		return src, fmt.Errorf("%w: %w", errSpool, err)
	}
	if _, err := h.ctrl.Select(src); err != nil {
		return src, err
	}
	return src, nil
}

// Process starts analysis of the uploaded file.
func (h *Handler) Process(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		if _, err := h.ctrl.Start(); err != nil {
			if errors.Is(err, workflow.ErrNotReady) {
				sse.Error("Upload a point cloud before processing")
				return
			}
			sse.Error(err.Error())
			return
		}
		sse.Success("Processing started")
	}), nil
}

// Reset discards the current file and result.
func (h *Handler) Reset(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.ctrl.Reset()
		if err := h.spool.clear(); err != nil {
			h.log.Warn("failed to remove spool file", logger.Err(err))
		}
		sse.Success("Workspace cleared")
	}), nil
}
