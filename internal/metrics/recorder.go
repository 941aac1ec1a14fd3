package metrics

import "time"

// PassOutcome enumerates final states of a synchronization pass.
type PassOutcome string

const (
	OutcomeSuccess  PassOutcome = "success"
	OutcomeWarning  PassOutcome = "warning"
	OutcomeFailed   PassOutcome = "failed"
	OutcomeCanceled PassOutcome = "canceled"
)

// Recorder defines observability hooks for synchronization passes and watch mode.
type Recorder interface {
	ObservePassDuration(d time.Duration)
	IncPassOutcome(outcome PassOutcome)
	IncEntry(action string)
	IncEntryFailure(kind string)
	IncWatchEvent()
	IncRebuildTrigger(cause string)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePassDuration(time.Duration) {}
func (NoopRecorder) IncPassOutcome(PassOutcome)        {}
func (NoopRecorder) IncEntry(string)                   {}
func (NoopRecorder) IncEntryFailure(string)            {}
func (NoopRecorder) IncWatchEvent()                    {}
func (NoopRecorder) IncRebuildTrigger(string)          {}
