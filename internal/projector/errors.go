package projector

import (
	"errors"
	"fmt"
)

// ErrUnknownLayer is returned by LookupLayer for names other than
// "waterlogging" and "drainage".
var ErrUnknownLayer = errors.New("unknown layer")

// MissingResultsError is returned when a processing response has no "results".
type MissingResultsError struct {
	// Status is the backend "status" field, if any.
	Status string
}

func (e *MissingResultsError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("analysis response has no results (status %q)", e.Status)
	}
	return "analysis response has no results"
}
