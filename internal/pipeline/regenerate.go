package pipeline

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"prism-backend/internal/llm"
	"prism-backend/internal/prism"
	"prism-backend/internal/prompts"
	"prism-backend/internal/shared/metrics"
	"prism-backend/internal/shared/telemetry"
)

// RequiredSelections is the number of social languages a regeneration needs.
const RequiredSelections = 3

// AdditionalCandidates is how many new social languages one add-languages call asks for.
const AdditionalCandidates = 3

// ErrSelectionCount rejects a regeneration without exactly three selected languages.
var ErrSelectionCount = prism.NewValidationError(prism.MsgSelectThree)

var errMissingRegenData = prism.NewValidationError(prism.MsgMissingRegenData)

// AddLanguagesRequest asks for more Phase 2 candidates.
type AddLanguagesRequest struct {
	Input            prism.AnalysisInput
	Phase1Summary    string
	ExistingKeywords []string
	Direction        string
	Custom           *prism.CustomPrompts
}

// RegenerateRequest re-runs phases 3 and 4 over a caller-chosen selection.
type RegenerateRequest struct {
	Input              prism.AnalysisInput
	Phase1Summary      string
	MarketRedefinition string
	SelectedLanguages  []prism.SocialLanguage
	Custom             *prism.CustomPrompts
	// RunID, when set, appends the iteration to that stored run.
	RunID string
}

func checkRegenBase(in prism.AnalysisInput, phase1Summary string) error {
	if strings.TrimSpace(in.ProductName) == "" || strings.TrimSpace(phase1Summary) == "" {
		return errMissingRegenData
	}
	return nil
}

// AddLanguageCandidates generates new social languages distinct from the existing keywords.
// Phases 1, 3 and 4 are untouched.
func (o *Orchestrator) AddLanguageCandidates(ctx context.Context, req AddLanguagesRequest) ([]prism.SocialLanguage, error) {
	if err := checkRegenBase(req.Input, req.Phase1Summary); err != nil {
		return nil, err
	}
	in := req.Input.Normalize()
	b := prompts.NewBuilder(req.Custom)
	langs, err := llm.GenerateJSONAs[[]prism.SocialLanguage](ctx, o.LLM, llm.Call{
		Model:  in.Model,
		System: b.SystemPrompt(),
		Prompt: b.Phase2Additional(in, req.Phase1Summary, req.ExistingKeywords, req.Direction, AdditionalCandidates),
		Label:  "phase2_additional",
	})
	if err != nil {
		telemetry.Error("pipeline.add_languages.failed", map[string]any{"error": err})
		return nil, err
	}
	return langs, nil
}

// RegeneratePhases validates req and starts a phases 3 and 4 run over the
// selected languages. The stream has the same shape as Run's; its result data
// is a prism.IterationEntry. The three Phase 4 sub-calls are always used.
func (o *Orchestrator) RegeneratePhases(ctx context.Context, req RegenerateRequest) (<-chan Event, error) {
	if err := checkRegenBase(req.Input, req.Phase1Summary); err != nil {
		return nil, err
	}
	if len(req.SelectedLanguages) != RequiredSelections {
		return nil, ErrSelectionCount
	}
	req.Input = req.Input.Normalize()
	req.SelectedLanguages = append([]prism.SocialLanguage(nil), req.SelectedLanguages...)

	out := make(chan Event)
	go o.regenerate(ctx, req, out)
	return out, nil
}

func (o *Orchestrator) regenerate(ctx context.Context, req RegenerateRequest, out chan<- Event) {
	defer close(out)
	started := o.now()
	e := &emitter{ctx: ctx, out: out, debug: o.Debug, now: o.now}
	b := prompts.NewBuilder(req.Custom)

	pr, err := o.phases34(ctx, e, req.Input, b, regenerationPlan, phase34Input{
		languages:          req.SelectedLanguages,
		phase1Summary:      req.Phase1Summary,
		marketRedefinition: req.MarketRedefinition,
	})
	if err != nil {
		metrics.ObserveRun("regenerate", "error", o.now().Sub(started))
		telemetry.Error("pipeline.regenerate.failed", map[string]any{"run_id": req.RunID, "error": err})
		e.send(errorEvent(err))
		return
	}
	metrics.ObserveRun("regenerate", "ok", o.now().Sub(started))

	entry := prism.IterationEntry{
		ID:                uuid.NewString(),
		Timestamp:         o.now().UTC(),
		SelectedLanguages: req.SelectedLanguages,
		Phase3:            pr.phase3,
		Phase4:            pr.phase4,
	}
	if !e.send(ResultEvent{RunID: req.RunID, Data: entry}) {
		return
	}
	if o.Recorder != nil && req.RunID != "" {
		if err := o.Recorder.AppendIteration(context.WithoutCancel(ctx), req.RunID, entry); err != nil {
			telemetry.Warn("pipeline.regenerate.save_failed", map[string]any{"run_id": req.RunID, "error": err})
		}
	}
}
