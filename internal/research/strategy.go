package research

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"prism-backend/internal/llm"
	"prism-backend/internal/prism"
	"prism-backend/internal/prompts"
)

// Span is the percent range a strategy owns while researching.
type Span struct {
	From int
	To   int
}

// Update is a progress or diagnostic message from a running strategy.
// A non-empty DebugLabel marks a diagnostic entry; Percent and Message are then unset.
type Update struct {
	Percent      int
	Message      string
	DebugLabel   string
	DebugContent string
}

// Request is the per-run input to a strategy.
type Request struct {
	Input   prism.AnalysisInput
	Prompts *prompts.Builder
	Span    Span
}

// Outcome is the unvalidated Phase 1 result with the URLs the run can vouch for.
// KnownSources is empty for strategies with no verifiable source list.
type Outcome struct {
	Phase1       prism.DeepListeningResult
	KnownSources []prism.GroundingSource
}

// Strategy gathers Phase 1 evidence for one research depth.
type Strategy interface {
	Depth() prism.ResearchDepth
	Run(ctx context.Context, req Request, updates chan<- Update) (Outcome, error)
}

// Deps are the collaborators shared by all strategies.
type Deps struct {
	LLM   *llm.Client
	Agent llm.ResearchAgent
	// AgentExpected is the typical duration of an agent job, used for progress estimation.
	AgentExpected time.Duration
	// Tick is how often agent progress is re-estimated.
	Tick time.Duration
	Now  func() time.Time
}

const (
	defaultAgentExpected = 10 * time.Minute
	defaultTick          = 2 * time.Second
)

// New returns the strategy for depth.
func New(depth prism.ResearchDepth, deps Deps) (Strategy, error) {
	if deps.AgentExpected <= 0 {
		deps.AgentExpected = defaultAgentExpected
	}
	if deps.Tick <= 0 {
		deps.Tick = defaultTick
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Agent == nil {
		deps.Agent = llm.UnavailableAgent()
	}
	switch depth {
	case prism.DepthStandard, "":
		return &standard{deps}, nil
	case prism.DepthDeep:
		return &deep{deps}, nil
	case prism.DepthManual:
		return &manual{deps}, nil
	case prism.DepthAgent:
		return &agent{deps}, nil
	default:
		return nil, prism.NewValidationError(prism.MsgUnknownDepth)
	}
}

type reporter struct {
	ctx     context.Context
	updates chan<- Update
	last    int
}

func (r *reporter) progress(percent int, message string) {
	if percent < r.last {
		percent = r.last
	}
	r.last = percent
	r.send(Update{Percent: percent, Message: message})
}

func (r *reporter) debug(label, content string) {
	r.send(Update{DebugLabel: label, DebugContent: content})
}

func (r *reporter) send(u Update) {
	if r.updates == nil {
		return
	}
	select {
	case r.updates <- u:
	case <-r.ctx.Done():
	}
}

func structure(ctx context.Context, c *llm.Client, req Request, prompt string) (prism.DeepListeningResult, error) {
	var out prism.DeepListeningResult
	err := c.GenerateJSON(ctx, llm.Call{
		Model:  req.Input.Model,
		System: req.Prompts.SystemPrompt(),
		Prompt: prompt,
		Label:  "phase1",
	}, &out)
	return out, err
}

type standard struct{ deps Deps }

func (s *standard) Depth() prism.ResearchDepth { return prism.DepthStandard }

func (s *standard) Run(ctx context.Context, req Request, updates chan<- Update) (Outcome, error) {
	r := &reporter{ctx: ctx, updates: updates}
	angles := req.Prompts.SearchAngles(req.Input)
	r.progress(req.Span.From, fmt.Sprintf("Phase 1: %d つの観点でWeb上の生活者の声を検索中...", len(angles)))

	res, err := s.deps.LLM.MultiGroundedResearch(ctx, req.Input.Model, req.Prompts.SystemPrompt(), angles)
	if err != nil {
		return Outcome{}, err
	}
	r.debug("grounded research", res.CombinedText)
	r.progress(req.Span.To, fmt.Sprintf("Phase 1: %d 件の情報源を発見 ✓ インサイトを構造化中...", len(res.Sources)))

	phase1, err := structure(ctx, s.deps.LLM, req, req.Prompts.Phase1Standard(req.Input, res.CombinedText, res.Segments, res.Sources))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Phase1: phase1, KnownSources: res.Sources}, nil
}

type deep struct{ deps Deps }

func (d *deep) Depth() prism.ResearchDepth { return prism.DepthDeep }

func (d *deep) Run(ctx context.Context, req Request, updates chan<- Update) (Outcome, error) {
	r := &reporter{ctx: ctx, updates: updates}
	r.progress(req.Span.From, "Phase 1: Web検索で情報源を収集し、ページを精読中...")

	var phase1 prism.DeepListeningResult
	res, err := d.deps.LLM.DeepResearchContent(ctx, llm.DeepRequest{
		Model:   req.Input.Model,
		System:  req.Prompts.SystemPrompt(),
		Queries: req.Prompts.SearchAngles(req.Input),
		ReadPrompt: func(urls []prism.GroundingSource) string {
			return req.Prompts.Phase1DeepRead(req.Input, urls)
		},
		FallbackPrompt: func(fetched string, urls []prism.GroundingSource) string {
			return req.Prompts.Phase1DeepFallback(req.Input, fetched, urls)
		},
	}, &phase1)
	if err != nil {
		return Outcome{}, err
	}
	r.debug("deep research", res.CombinedText)
	if res.UsedFallback {
		r.debug("deep research fallback", "page-read output was not JSON; structured from fetched text")
	}
	r.progress(req.Span.To, fmt.Sprintf("Phase 1: %d 件のページを精読 ✓", len(res.ReadURLs)))
	return Outcome{Phase1: phase1, KnownSources: res.Sources}, nil
}

type manual struct{ deps Deps }

func (m *manual) Depth() prism.ResearchDepth { return prism.DepthManual }

func (m *manual) Run(ctx context.Context, req Request, updates chan<- Update) (Outcome, error) {
	r := &reporter{ctx: ctx, updates: updates}
	r.progress(req.Span.From, "Phase 1: 外部リサーチデータを構造化中...")
	phase1, err := structure(ctx, m.deps.LLM, req, req.Prompts.Phase1Manual(req.Input))
	if err != nil {
		return Outcome{}, err
	}
	r.progress(req.Span.To, "Phase 1: 外部リサーチデータの構造化完了 ✓")
	return Outcome{Phase1: phase1}, nil
}

type agent struct{ deps Deps }

func (a *agent) Depth() prism.ResearchDepth { return prism.DepthAgent }

func (a *agent) Run(ctx context.Context, req Request, updates chan<- Update) (Outcome, error) {
	r := &reporter{ctx: ctx, updates: updates}
	r.progress(req.Span.From, "Phase 1: Deep Research エージェントを起動中...")

	deltas, err := a.deps.Agent.Start(ctx, req.Prompts.AgentResearch(req.Input))
	if err != nil {
		if !llm.IsResearchAgentError(err) {
			err = &llm.ResearchAgentError{Reason: err.Error()}
		}
		return Outcome{}, err
	}

	est := ProgressEstimator{From: req.Span.From, To: req.Span.To, Expected: a.deps.AgentExpected}
	started := a.deps.Now()
	ticker := time.NewTicker(a.deps.Tick)
	defer ticker.Stop()

	message := "Phase 1: Deep Research エージェントが調査中..."
	report, err := llm.CollectReport(ctx, deltas, llm.ReportHooks{
		Tick: ticker.C,
		OnTick: func() {
			if p := est.Percent(a.deps.Now().Sub(started)); p > r.last {
				r.progress(p, message)
			}
		},
		OnThought: func(thought string) {
			message = "Deep Research: " + headline(thought)
			r.progress(est.Percent(a.deps.Now().Sub(started)), message)
		},
	})
	if err != nil {
		return Outcome{}, err
	}
	r.debug("agent report", report.Text)
	r.progress(req.Span.To, "Phase 1: 調査レポート受信 ✓ インサイトを構造化中...")

	phase1, err := structure(ctx, a.deps.LLM, req, req.Prompts.Phase1Agent(req.Input, report.Text))
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Phase1: phase1}, nil
}

const maxHeadlineRunes = 80

// headline returns the first non-empty line of a thought summary, stripped of markdown emphasis.
func headline(thought string) string {
	line := thought
	for _, l := range strings.Split(thought, "\n") {
		if t := strings.TrimSpace(l); t != "" {
			line = t
			break
		}
	}
	line = strings.Trim(line, "*# ")
	if utf8.RuneCountInString(line) > maxHeadlineRunes {
		line = string([]rune(line)[:maxHeadlineRunes]) + "…"
	}
	return line
}
