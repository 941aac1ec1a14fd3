package mirror

import (
	"time"

	"git.home.luguber.info/inful/statique/internal/metrics"
)

// FailureKind classifies a per-entry failure.
type FailureKind string

const (
	// EntryIOFailure covers read, write and copy errors on a single entry.
	EntryIOFailure FailureKind = "entry_io"
	// StructuralConflict covers output paths that cannot be created, such as a second
	// source mapping to an already written output.
	StructuralConflict FailureKind = "structural_conflict"
)

// Failure records one skipped entry.
type Failure struct {
	Path string
	Kind FailureKind
	Err  error
}

// Document records one rendered markup document.
type Document struct {
	Path        string
	Fingerprint string
}

// Report summarizes a synchronization pass.
type Report struct {
	PassID      string
	Source      string
	Destination string
	Revision    string
	Start       time.Time
	End         time.Time

	Directories int
	Copied      int
	Transpiled  int
	Skipped     int

	Failures  []Failure
	Documents []Document
}

// Duration returns the wall time of the pass.
func (r *Report) Duration() time.Duration { return r.End.Sub(r.Start) }

// Outcome is success when no entry failed and warning otherwise.
func (r *Report) Outcome() metrics.PassOutcome {
	if len(r.Failures) > 0 {
		return metrics.OutcomeWarning
	}
	return metrics.OutcomeSuccess
}
