package workflow

import (
	"fmt"

	"github.com/danielgtaylor/huma/v2"
)

// Phase is the workflow phase driving which operations are enabled.
type Phase int

const (
	Idle Phase = iota
	Uploading
	ReadyToProcess
	Processing
	Analyzed
	// Failed is only reported on events for a failed upload or processing
	// attempt. The controller itself has already rolled back to Idle or
	// ReadyToProcess when the event is delivered.
	Failed
)

var phaseNames = [...]string{
	Idle:           "idle",
	Uploading:      "uploading",
	ReadyToProcess: "ready",
	Processing:     "processing",
	Analyzed:       "analyzed",
	Failed:         "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	for i, name := range phaseNames {
		if name == string(b) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", b)
}

// Schema describes the phase by name in OpenAPI documents.
func (p Phase) Schema(r huma.Registry) *huma.Schema {
	enum := make([]any, 0, len(phaseNames))
	for _, name := range phaseNames {
		enum = append(enum, name)
	}
	return &huma.Schema{Type: huma.TypeString, Enum: enum}
}
