package workflow

import (
	"github.com/joeblew999/droneflow/internal/backend"
	"github.com/joeblew999/droneflow/internal/projector"
)

// UploadedFile is the selected file and, once its upload resolved, the id the
// backend assigned to it. A RemoteID belongs to the instance that received it.
type UploadedFile struct {
	Source   backend.Source
	RemoteID string
}

// FileInfo is the read-only view of an UploadedFile.
type FileInfo struct {
	Name     string `json:"name" doc:"Local file name" example:"site.las"`
	RemoteID string `json:"remoteId,omitempty" doc:"Backend file id, once uploaded"`
}

func (f *UploadedFile) info() *FileInfo {
	return &FileInfo{Name: f.Source.Name(), RemoteID: f.RemoteID}
}

// state is one resting phase of the controller. Each phase carries exactly the
// data valid for it.
type state interface {
	phase() Phase
}

type idleState struct{}

type uploadingState struct {
	file *UploadedFile
	gen  uint64
}

type readyState struct {
	file *UploadedFile
}

type processingState struct {
	file *UploadedFile
	gen  uint64
}

type analyzedState struct {
	file   *UploadedFile
	result *projector.Projection
}

func (idleState) phase() Phase       { return Idle }
func (uploadingState) phase() Phase  { return Uploading }
func (readyState) phase() Phase      { return ReadyToProcess }
func (processingState) phase() Phase { return Processing }
func (analyzedState) phase() Phase   { return Analyzed }

// Snapshot is an immutable copy of the controller state for views.
type Snapshot struct {
	Seq      uint64                `json:"seq" doc:"Transition sequence number"`
	Phase    Phase                 `json:"phase" doc:"Current workflow phase"`
	File     *FileInfo             `json:"file,omitempty" doc:"Selected file"`
	Result   *projector.Projection `json:"result,omitempty" doc:"Latest analysis result"`
	Center   projector.MapCenter   `json:"center" doc:"Map center"`
	Notice   *Notice               `json:"notice,omitempty" doc:"Last failure notice"`
	CanStart bool                  `json:"canStart" doc:"Whether processing can be started"`
}
