package pipeline

import (
	"context"
	"fmt"
	"time"

	"prism-backend/internal/prism"
)

// emitter writes events for one run. Percent never decreases across the run.
type emitter struct {
	ctx   context.Context
	out   chan<- Event
	debug bool
	now   func() time.Time
	last  int
}

// send delivers ev unless the consumer has gone away.
func (e *emitter) send(ev Event) bool {
	select {
	case e.out <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}

func (e *emitter) progress(phase, percent int, message string) {
	if percent < e.last {
		percent = e.last
	}
	e.last = percent
	e.send(ProgressEvent{Phase: phase, Percent: percent, Message: message})
}

func (e *emitter) phaseResult(phase int, data any, grounding []prism.GroundingSource) {
	e.send(PhaseResultEvent{Phase: phase, Data: data, GroundingSources: grounding})
}

func (e *emitter) debugLog(label, content string) {
	if !e.debug {
		return
	}
	e.send(DebugEvent{Timestamp: e.now().UTC(), Label: label, Content: content})
}

func formatStripped(stripped, known int) string {
	return fmt.Sprintf("%d unverifiable source URLs removed (%d known URLs)", stripped, known)
}
