package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Step identifies one stage of segment processing.
type Step int

const (
	// StepFetch downloads the source audio.
	StepFetch Step = iota
	// StepReformat resamples the download to the canonical format.
	StepReformat
	// StepTrim cuts the segment window out of the formatted audio.
	StepTrim
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepFetch:
		return "fetch"
	case StepReformat:
		return "reformat"
	case StepTrim:
		return "trim"
	default:
		return fmt.Sprintf("Step(%d)", s)
	}
}

// Outcome is the result of processing one work-list line.
type Outcome struct {
	Line     string // Input line without terminator.
	Key      string // Segment key; empty if the line did not parse.
	SourceID string // Empty if the line did not parse.

	Ran     []Step // Steps executed (possibly on behalf of a sibling segment of the same source).
	Skipped []Step // Steps whose output already existed.

	Err error
}

// Failed reports whether processing stopped on an error.
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Interrupted reports whether the failure is due to run cancellation rather
// than the segment itself.
func (o Outcome) Interrupted() bool {
	return errors.Is(o.Err, context.Canceled)
}

// LogLine renders the outcome as an error-log entry: "<error>,<source_id>".
// Lines that did not parse have no source id and are identified by their text.
func (o Outcome) LogLine() string {
	if o.Err == nil {
		return ""
	}
	id := o.SourceID
	if id == "" {
		id = o.Line
	}
	return fmt.Sprintf("%v,%s", o.Err, id)
}
