// Package workflow drives the upload and analysis lifecycle of one LiDAR file.
//
// The Controller owns all workflow state. Views read immutable Snapshots and
// receive Events; they never mutate state directly. Every asynchronous backend
// call is tagged with a generation token and its completion is discarded when
// a newer selection, a newer processing run, or a reset has superseded it.
package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/logger"
	"github.com/joeblew999/droneflow/internal/projector"
)

// Backend is the remote terrain-processing service.
type Backend interface {
	Upload(ctx context.Context, src backend.Source) (string, error)
	Process(ctx context.Context, fileID string) (map[string]any, error)
}

// Controller is the workflow state machine. It is safe for concurrent use.
type Controller struct {
	backend   Backend
	projector *projector.Projector
	log       *logger.Logger
	bus       *EventBus

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	st            state
	notice        *Notice
	seq           uint64
	uploadGen     uint64
	processGen    uint64
	cancelUpload  context.CancelFunc
	cancelProcess context.CancelFunc
	closed        bool
}

// New creates an idle controller.
func New(b Backend, p *projector.Projector, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.Discard()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		backend:   b,
		projector: p,
		log:       log,
		bus:       NewEventBus(),
		ctx:       ctx,
		cancel:    cancel,
		st:        idleState{},
	}
}

// Subscribe returns a channel receiving every subsequent transition.
func (c *Controller) Subscribe() chan Event { return c.bus.Subscribe() }

// Unsubscribe stops delivery to ch and closes it.
func (c *Controller) Unsubscribe(ch chan Event) { c.bus.Unsubscribe(ch) }

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Select makes src the current file and starts uploading it. It is valid in
// every phase: any in-flight upload or processing call is superseded, the
// previous result and notice are cleared, and the map center is reset.
// It returns the upload generation.
func (c *Controller) Select(src backend.Source) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}

	c.supersedeLocked()
	gen := c.uploadGen
	file := &UploadedFile{Source: src}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelUpload = cancel
	c.notice = nil
	c.transitionLocked(uploadingState{file: file, gen: gen}, Uploading)

	c.log.Info("upload started", logger.F("file", src.Name()), logger.F("gen", gen))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		id, err := c.backend.Upload(ctx, src)
		c.finishUpload(gen, id, err)
	}()
	return gen, nil
}

// Start requests processing of the uploaded file. It is valid in
// ReadyToProcess and Analyzed, and returns ErrNotReady otherwise.
// It returns the processing generation.
func (c *Controller) Start() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}

	var file *UploadedFile
	switch s := c.st.(type) {
	case readyState:
		file = s.file
	case analyzedState:
		file = s.file
	default:
		return 0, fmt.Errorf("%w (phase %s)", ErrNotReady, c.st.phase())
	}
	if file.RemoteID == "" {
		return 0, ErrNotReady
	}

	c.processGen++
	gen := c.processGen
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelProcess = cancel
	c.notice = nil
	c.transitionLocked(processingState{file: file, gen: gen}, Processing)

	c.log.Info("processing started", logger.F("file_id", file.RemoteID), logger.F("gen", gen))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer cancel()
		raw, err := c.backend.Process(ctx, file.RemoteID)
		c.finishProcess(gen, raw, err)
	}()
	return gen, nil
}

// Reset cancels in-flight calls and returns to Idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.supersedeLocked()
	c.notice = nil
	c.transitionLocked(idleState{}, Idle)
}

// Close cancels in-flight calls and waits for their goroutines to exit.
// Completions arriving after Close are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.supersedeLocked()
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

func (c *Controller) finishUpload(gen uint64, id string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	up, ok := c.st.(uploadingState)
	if gen != c.uploadGen || !ok || up.gen != gen {
		c.log.Debug("discarding stale upload completion", logger.F("gen", gen))
		return
	}
	c.cancelUpload = nil

	if err != nil {
		uerr := &UploadError{File: up.file.Source.Name(), Cause: err}
		c.log.Warn("upload failed", logger.F("file", uerr.File), logger.Err(err))
		c.notice = uploadNotice(uerr)
		c.transitionLocked(idleState{}, Failed)
		return
	}

	file := &UploadedFile{Source: up.file.Source, RemoteID: id}
	c.log.Info("upload complete", logger.F("file", file.Source.Name()), logger.F("file_id", id))
	c.transitionLocked(readyState{file: file}, ReadyToProcess)
}

func (c *Controller) finishProcess(gen uint64, raw map[string]any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ps, ok := c.st.(processingState)
	if gen != c.processGen || !ok || ps.gen != gen {
		c.log.Debug("discarding stale processing completion", logger.F("gen", gen))
		return
	}
	c.cancelProcess = nil

	var result *projector.Projection
	if err == nil {
		result, err = c.projector.Project(raw)
	}
	if err != nil {
		perr := &ProcessingError{FileID: ps.file.RemoteID, Cause: err}
		c.log.Warn("processing failed", logger.F("file_id", perr.FileID), logger.Err(err))
		c.notice = processingNotice(perr)
		c.transitionLocked(readyState{file: ps.file}, Failed)
		return
	}

	if !result.CenterDerived {
		c.log.Debug("using default map center", logger.F("missing", result.CenterMiss))
	}
	c.log.Info("analysis complete", logger.F("file_id", ps.file.RemoteID),
		logger.F("center", result.Center.LatLon()))
	c.transitionLocked(analyzedState{file: ps.file, result: result}, Analyzed)
}

// supersedeLocked invalidates every outstanding call.
func (c *Controller) supersedeLocked() {
	c.uploadGen++
	c.processGen++
	if c.cancelUpload != nil {
		c.cancelUpload()
		c.cancelUpload = nil
	}
	if c.cancelProcess != nil {
		c.cancelProcess()
		c.cancelProcess = nil
	}
}

// transitionLocked moves to next and publishes an event reporting reported.
// The bus never blocks, so publishing under the lock keeps events ordered.
func (c *Controller) transitionLocked(next state, reported Phase) {
	from := c.st.phase()
	c.st = next
	c.seq++
	c.log.Debug("transition", logger.F("from", from), logger.F("to", next.phase()), logger.F("seq", c.seq))
	c.bus.Publish(Event{Phase: reported, Snapshot: c.snapshotLocked()})
}

func (c *Controller) snapshotLocked() Snapshot {
	s := Snapshot{
		Seq:    c.seq,
		Phase:  c.st.phase(),
		Center: c.projector.Fallback(),
		Notice: c.notice,
	}
	switch st := c.st.(type) {
	case uploadingState:
		s.File = st.file.info()
	case readyState:
		s.File = st.file.info()
		s.CanStart = true
	case processingState:
		s.File = st.file.info()
	case analyzedState:
		s.File = st.file.info()
		s.Result = st.result
		s.Center = st.result.Center
		s.CanStart = true
	}
	return s
}
