package llm

import (
	"context"
	"strings"
	"time"
)

// AgentDelta is one incremental update from a research job.
// Exactly one of Text, Thought or Err is set. Reset marks Text as the whole report
// rather than a chunk. The channel closes after Err or completion.
type AgentDelta struct {
	Text    string
	Thought string
	Reset   bool
	Err     error
}

// ResearchAgent starts a long-running autonomous research job.
type ResearchAgent interface {
	Start(ctx context.Context, prompt string) (<-chan AgentDelta, error)
}

// AgentReport is the accumulated output of a research job.
type AgentReport struct {
	Text     string
	Thoughts []string
}

// ReportBuilder accumulates deltas into an AgentReport.
type ReportBuilder struct {
	text     strings.Builder
	thoughts []string
}

// Apply folds one delta into the report. It returns the thought summary, if any,
// or a ResearchAgentError when the job reported a failure.
func (b *ReportBuilder) Apply(d AgentDelta) (string, error) {
	if d.Err != nil {
		if IsResearchAgentError(d.Err) {
			return "", d.Err
		}
		return "", &ResearchAgentError{Reason: d.Err.Error()}
	}
	if d.Reset {
		b.text.Reset()
	}
	if d.Text != "" {
		b.text.WriteString(d.Text)
	}
	if t := strings.TrimSpace(d.Thought); t != "" {
		b.thoughts = append(b.thoughts, t)
		return t, nil
	}
	return "", nil
}

// Finish returns the report, or a ResearchAgentError when the report text is empty.
func (b *ReportBuilder) Finish() (AgentReport, error) {
	text := strings.TrimSpace(b.text.String())
	if text == "" {
		return AgentReport{}, &ResearchAgentError{Reason: "empty report"}
	}
	return AgentReport{Text: text, Thoughts: append([]string(nil), b.thoughts...)}, nil
}

// ReportHooks observes a report while it is collected. Nil fields are skipped.
type ReportHooks struct {
	// Tick, when set, drives OnTick between deltas.
	Tick      <-chan time.Time
	OnTick    func()
	OnThought func(thought string)
}

// CollectReport drains deltas until the channel closes and returns the accumulated report.
func CollectReport(ctx context.Context, deltas <-chan AgentDelta, hooks ReportHooks) (AgentReport, error) {
	var b ReportBuilder
	for {
		select {
		case <-ctx.Done():
			return AgentReport{}, ctx.Err()
		case <-hooks.Tick:
			if hooks.OnTick != nil {
				hooks.OnTick()
			}
		case d, ok := <-deltas:
			if !ok {
				return b.Finish()
			}
			thought, err := b.Apply(d)
			if err != nil {
				return AgentReport{}, err
			}
			if thought != "" && hooks.OnThought != nil {
				hooks.OnThought(thought)
			}
		}
	}
}

type unavailableAgent struct{}

// UnavailableAgent returns a ResearchAgent that always fails with ErrNoProvider.
func UnavailableAgent() ResearchAgent { return unavailableAgent{} }

func (unavailableAgent) Start(context.Context, string) (<-chan AgentDelta, error) {
	return nil, ErrNoProvider
}
