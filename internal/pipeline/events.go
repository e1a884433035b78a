package pipeline

import (
	"encoding/json"
	"time"

	"prism-backend/internal/prism"
)

// Kind is the wire discriminator of an Event.
type Kind string

const (
	KindProgress    Kind = "progress"
	KindPhaseResult Kind = "phase_result"
	KindDebugLog    Kind = "debug_log"
	KindResult      Kind = "result"
	KindError       Kind = "error"
)

// Event is one element of a run's stream. The concrete types are
// ProgressEvent, PhaseResultEvent, DebugEvent, ResultEvent and ErrorEvent;
// each marshals to a JSON object carrying a "type" field.
type Event interface {
	Kind() Kind
	// Terminal reports whether the event ends the stream.
	Terminal() bool
}

// ProgressEvent is advisory UI state for the phase in flight.
type ProgressEvent struct {
	Phase   int    `json:"phase"`
	Percent int    `json:"percent"`
	Message string `json:"message"`
}

func (ProgressEvent) Kind() Kind     { return KindProgress }
func (ProgressEvent) Terminal() bool { return false }

func (e ProgressEvent) MarshalJSON() ([]byte, error) {
	type alias ProgressEvent
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindProgress, alias(e)})
}

// PhaseResultEvent carries the typed output of a completed phase.
type PhaseResultEvent struct {
	Phase            int                     `json:"phase"`
	Data             any                     `json:"data"`
	GroundingSources []prism.GroundingSource `json:"groundingSources,omitempty"`
}

func (PhaseResultEvent) Kind() Kind     { return KindPhaseResult }
func (PhaseResultEvent) Terminal() bool { return false }

func (e PhaseResultEvent) MarshalJSON() ([]byte, error) {
	type alias PhaseResultEvent
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindPhaseResult, alias(e)})
}

// DebugEvent is an optional diagnostic trace entry.
type DebugEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Label     string    `json:"label"`
	Content   string    `json:"content"`
}

func (DebugEvent) Kind() Kind     { return KindDebugLog }
func (DebugEvent) Terminal() bool { return false }

func (e DebugEvent) MarshalJSON() ([]byte, error) {
	type alias DebugEvent
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindDebugLog, alias(e)})
}

// ResultEvent ends a successful run. Data is a prism.Result for full runs
// and a prism.IterationEntry for regenerations.
type ResultEvent struct {
	RunID string `json:"runId,omitempty"`
	Data  any    `json:"data"`
}

func (ResultEvent) Kind() Kind     { return KindResult }
func (ResultEvent) Terminal() bool { return true }

func (e ResultEvent) MarshalJSON() ([]byte, error) {
	type alias ResultEvent
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindResult, alias(e)})
}

// ErrorEvent ends a failed run. Err keeps the typed cause for in-process consumers
// and is not serialized.
type ErrorEvent struct {
	Message string `json:"error"`
	Err     error  `json:"-"`
}

func (ErrorEvent) Kind() Kind     { return KindError }
func (ErrorEvent) Terminal() bool { return true }

func (e ErrorEvent) MarshalJSON() ([]byte, error) {
	type alias ErrorEvent
	return json.Marshal(struct {
		Type Kind `json:"type"`
		alias
	}{KindError, alias(e)})
}

func errorEvent(err error) ErrorEvent {
	return ErrorEvent{Message: err.Error(), Err: err}
}
