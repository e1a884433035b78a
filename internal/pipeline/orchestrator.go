package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"prism-backend/internal/llm"
	"prism-backend/internal/prism"
	"prism-backend/internal/prompts"
	"prism-backend/internal/research"
	"prism-backend/internal/shared/metrics"
	"prism-backend/internal/shared/telemetry"
	"prism-backend/internal/sources"
)

// Recorder persists finished runs. The orchestrator never reads history back.
type Recorder interface {
	SaveRun(ctx context.Context, id string, in prism.AnalysisInput, result prism.Result) error
	AppendIteration(ctx context.Context, id string, entry prism.IterationEntry) error
}

// Orchestrator drives the four phases of a run and streams their progress.
type Orchestrator struct {
	LLM    *llm.Client
	Agent  llm.ResearchAgent
	Titles *sources.Resolver
	// Recorder is optional; nil disables persistence.
	Recorder      Recorder
	AgentExpected time.Duration
	// Debug enables debug_log events.
	Debug bool
	Now   func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o *Orchestrator) titles() *sources.Resolver {
	if o.Titles != nil {
		return o.Titles
	}
	return sources.NewResolver(nil, 0, 0)
}

// Run validates in and starts a full run. Validation failures are returned
// directly and no stream is opened. The returned channel delivers events in
// order and is closed after the terminal result or error event; when ctx is
// cancelled it is closed without a terminal event.
func (o *Orchestrator) Run(ctx context.Context, in prism.AnalysisInput, custom *prism.CustomPrompts) (<-chan Event, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	strategy, err := research.New(in.ResearchDepth, research.Deps{
		LLM:           o.LLM,
		Agent:         o.Agent,
		AgentExpected: o.AgentExpected,
		Now:           o.Now,
	})
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	runID := uuid.NewString()
	go o.run(ctx, runID, in, prompts.NewBuilder(custom), strategy, out)
	return out, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string, in prism.AnalysisInput, b *prompts.Builder, strategy research.Strategy, out chan<- Event) {
	defer close(out)
	started := o.now()
	mode := string(in.ResearchDepth)
	e := &emitter{ctx: ctx, out: out, debug: o.Debug, now: o.now}
	fields := map[string]any{"run_id": runID, "mode": mode, "model": string(in.Model)}
	telemetry.Info("pipeline.run.start", fields)

	result, err := o.execute(ctx, e, in, b, strategy, runID)
	elapsed := o.now().Sub(started)
	if err != nil {
		outcome := "error"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		metrics.ObserveRun(mode, outcome, elapsed)
		telemetry.Error("pipeline.run.failed", map[string]any{"run_id": runID, "mode": mode, "error": err})
		e.send(errorEvent(err))
		return
	}

	metrics.ObserveRun(mode, "ok", elapsed)
	telemetry.Info("pipeline.run.completed", map[string]any{"run_id": runID, "mode": mode, "duration_ms": elapsed.Milliseconds()})
	if !e.send(ResultEvent{RunID: runID, Data: result}) {
		return
	}
	if o.Recorder != nil {
		if err := o.Recorder.SaveRun(context.WithoutCancel(ctx), runID, in, result); err != nil {
			telemetry.Warn("pipeline.run.save_failed", map[string]any{"run_id": runID, "error": err})
		}
	}
}

func (o *Orchestrator) execute(ctx context.Context, e *emitter, in prism.AnalysisInput, b *prompts.Builder, strategy research.Strategy, runID string) (prism.Result, error) {
	p := planFor(in.ResearchDepth)

	phase1, grounding, err := o.phase1(ctx, e, in, b, strategy, p, runID)
	if err != nil {
		return prism.Result{}, err
	}
	phase1Summary := prompts.Phase1Summary(phase1)

	e.progress(2, p.Phase2.Start, "Phase 2: 社会言語を開発中...")
	phase2, err := llm.GenerateJSONAs[[]prism.SocialLanguage](ctx, o.LLM, llm.Call{
		Model:  in.Model,
		System: b.SystemPrompt(),
		Prompt: b.Phase2(in, phase1Summary),
		Label:  "phase2",
	})
	if err != nil {
		return prism.Result{}, err
	}
	e.progress(2, p.Phase2.Done, "Phase 2: 社会言語の開発完了 ✓")
	e.phaseResult(2, phase2, nil)

	pr, err := o.phases34(ctx, e, in, b, p, phase34Input{
		languages:          phase2,
		phase1Summary:      phase1Summary,
		marketRedefinition: phase1.MarketRedefinition,
		singleShotPhase4:   b.HasCustomPhase4(),
	})
	if err != nil {
		return prism.Result{}, err
	}

	return prism.Result{
		Input:            in,
		Phase1:           phase1,
		Phase2:           phase2,
		Phase3:           pr.phase3,
		Phase4:           pr.phase4,
		GroundingSources: grounding,
	}, nil
}

// phase1 runs the research strategy, relays its updates, then resolves titles,
// strips unverifiable source URLs and corrects voice titles.
func (o *Orchestrator) phase1(ctx context.Context, e *emitter, in prism.AnalysisInput, b *prompts.Builder, strategy research.Strategy, p plan, runID string) (prism.DeepListeningResult, []prism.GroundingSource, error) {
	updates := make(chan research.Update)
	var (
		outcome research.Outcome
		err     error
	)
	go func() {
		defer close(updates)
		outcome, err = strategy.Run(ctx, research.Request{Input: in, Prompts: b, Span: p.Research}, updates)
	}()
	for u := range updates {
		if u.DebugLabel != "" {
			e.debugLog(u.DebugLabel, u.DebugContent)
			continue
		}
		e.progress(1, u.Percent, u.Message)
	}
	if err != nil {
		return prism.DeepListeningResult{}, nil, err
	}

	resolved := o.titles().FetchActualTitles(ctx, outcome.KnownSources)
	phase1, stripped := sources.ValidateResult(outcome.Phase1, sources.NewKnownURLs(resolved))
	if stripped > 0 {
		metrics.AddSourcesStripped(stripped)
		telemetry.Warn("pipeline.sources.stripped", map[string]any{"run_id": runID, "count": stripped, "known": len(resolved)})
		e.debugLog("url validation", formatStripped(stripped, len(resolved)))
	}
	phase1 = sources.CorrectTitles(phase1, resolved)

	e.progress(1, p.Phase1, "Phase 1: ディープリスニング完了 ✓")
	e.phaseResult(1, phase1, resolved)
	return phase1, resolved, nil
}

type phase34Input struct {
	languages          []prism.SocialLanguage
	phase1Summary      string
	marketRedefinition string
	singleShotPhase4   bool
}

type phase34Result struct {
	phase3 prism.SurveyDesign
	phase4 prism.OutputGeneration
}

func (o *Orchestrator) phases34(ctx context.Context, e *emitter, in prism.AnalysisInput, b *prompts.Builder, p plan, req phase34Input) (phase34Result, error) {
	system := b.SystemPrompt()
	languages := prompts.SocialLanguagesSummary(req.languages)

	e.progress(3, p.Phase3.Start, "Phase 3: 調査設計中...")
	phase3, err := llm.GenerateJSONAs[prism.SurveyDesign](ctx, o.LLM, llm.Call{
		Model: in.Model, System: system, Prompt: b.Phase3(in, languages), Label: "phase3",
	})
	if err != nil {
		return phase34Result{}, err
	}
	e.progress(3, p.Phase3.Done, "Phase 3: 調査設計完了 ✓")
	e.phaseResult(3, phase3, nil)
	survey := prompts.SurveyDesignSummary(phase3)

	var phase4 prism.OutputGeneration
	if req.singleShotPhase4 {
		e.progress(4, p.Phase4a.Start, "Phase 4: アウトプットを生成中...")
		phase4, err = llm.GenerateJSONAs[prism.OutputGeneration](ctx, o.LLM, llm.Call{
			Model: in.Model, System: system, Prompt: b.Phase4(in, req.phase1Summary, languages, survey), Label: "phase4",
		})
		if err != nil {
			return phase34Result{}, err
		}
	} else {
		e.progress(4, p.Phase4a.Start, "Phase 4: 調査レポートサマリを生成中...")
		a, err := llm.GenerateJSONAs[struct {
			ReportSummary string `json:"reportSummary"`
		}](ctx, o.LLM, llm.Call{
			Model: in.Model, System: system, Prompt: b.Phase4a(in, req.phase1Summary, languages, survey), Label: "phase4a",
		})
		if err != nil {
			return phase34Result{}, err
		}
		e.progress(4, p.Phase4a.Done, "Phase 4: 調査レポートサマリ完了 ✓")

		e.progress(4, p.Phase4b.Start, "Phase 4: プレスリリース記事を生成中...")
		pb, err := llm.GenerateJSONAs[struct {
			PressRelease string `json:"pressRelease"`
		}](ctx, o.LLM, llm.Call{
			Model: in.Model, System: system, Prompt: b.Phase4b(in, req.marketRedefinition, languages), Label: "phase4b",
		})
		if err != nil {
			return phase34Result{}, err
		}
		e.progress(4, p.Phase4b.Done, "Phase 4: プレスリリース完了 ✓")

		e.progress(4, p.Phase4c.Start, "Phase 4: ポジショニング提案 & 見出しを生成中...")
		c, err := llm.GenerateJSONAs[struct {
			Positioning  string `json:"positioning"`
			NewsHeadline string `json:"newsHeadline"`
		}](ctx, o.LLM, llm.Call{
			Model: in.Model, System: system, Prompt: b.Phase4c(in, languages), Label: "phase4c",
		})
		if err != nil {
			return phase34Result{}, err
		}
		phase4 = prism.OutputGeneration{
			ReportSummary: a.ReportSummary,
			PressRelease:  pb.PressRelease,
			Positioning:   c.Positioning,
			NewsHeadline:  c.NewsHeadline,
		}
	}
	e.progress(4, p.Phase4c.Done, "Phase 4: アウトプット生成完了 ✓")
	e.phaseResult(4, phase4, nil)
	return phase34Result{phase3: phase3, phase4: phase4}, nil
}
