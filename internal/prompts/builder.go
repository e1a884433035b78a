package prompts

import (
	"strconv"
	"strings"

	"prism-backend/internal/prism"
)

// Builder fills phase templates, honoring any per-phase overrides.
type Builder struct {
	custom prism.CustomPrompts
}

// NewBuilder returns a Builder. A nil custom means all compiled-in defaults.
func NewBuilder(custom *prism.CustomPrompts) *Builder {
	b := &Builder{}
	if custom != nil {
		b.custom = *custom
	}
	return b
}

// HasCustomPhase4 reports whether a single-shot Phase 4 template override is set.
func (b *Builder) HasCustomPhase4() bool {
	return strings.TrimSpace(b.custom.Phase4Template) != ""
}

// SystemPrompt returns the system instruction for every model call of the run.
func (b *Builder) SystemPrompt() string {
	return pick(b.custom.SystemPrompt, DefaultSystemPrompt)
}

func inputVarMap(in prism.AnalysisInput) map[string]string {
	return map[string]string{
		VarProductName: in.ProductName,
		VarCategory:    in.Category,
		VarChallenges:  in.Challenges,
	}
}

// SearchAngles returns one grounded-search prompt per research angle.
func (b *Builder) SearchAngles(in prism.AnalysisInput) []string {
	vars := inputVarMap(in)
	angles := []string{AngleReviewTemplate, AngleComplaintTemplate, AngleSlangTemplate, AngleForumTemplate, AngleTrendTemplate}
	out := make([]string, 0, len(angles))
	for _, tmpl := range angles {
		out = append(out, Fill(tmpl, vars))
	}
	return out
}

// Phase1 returns the Phase 1 instruction body without any research context.
func (b *Builder) Phase1(in prism.AnalysisInput) string {
	return Fill(pick(b.custom.Phase1Template, DefaultPhase1Template), inputVarMap(in))
}

// Phase1Standard embeds multi-angle search output, per-segment hints and the URL allow-list.
func (b *Builder) Phase1Standard(in prism.AnalysisInput, research string, segments []prism.GroundingSegment, sources []prism.GroundingSource) string {
	return b.Phase1(in) + Fill(StandardContextTemplate, map[string]string{
		VarResearchData: research,
		VarSegmentHints: FormatSegmentHints(segments),
		VarSourceList:   FormatSourceList(sources),
	})
}

// Phase1DeepRead asks the page-fetching model to read the discovered URLs.
func (b *Builder) Phase1DeepRead(in prism.AnalysisInput, sources []prism.GroundingSource) string {
	return b.Phase1(in) + Fill(DeepReadContextTemplate, map[string]string{
		VarURLList: FormatSourceList(sources),
	})
}

// Phase1DeepFallback re-prompts with the fetched text when structured output failed to parse.
func (b *Builder) Phase1DeepFallback(in prism.AnalysisInput, fetched string, sources []prism.GroundingSource) string {
	return b.Phase1(in) + Fill(DeepFallbackContextTemplate, map[string]string{
		VarResearchData: fetched,
		VarSourceList:   FormatSourceList(sources),
	})
}

// Phase1Manual embeds user-pasted research text.
func (b *Builder) Phase1Manual(in prism.AnalysisInput) string {
	return b.Phase1(in) + Fill(ManualContextTemplate, map[string]string{
		VarResearchData: in.ManualResearchData,
	})
}

// AgentResearch returns the task prompt for the autonomous research agent.
func (b *Builder) AgentResearch(in prism.AnalysisInput) string {
	return Fill(DefaultAgentResearchTemplate, inputVarMap(in))
}

// Phase1Agent embeds the agent's report.
func (b *Builder) Phase1Agent(in prism.AnalysisInput, report string) string {
	return b.Phase1(in) + Fill(AgentContextTemplate, map[string]string{
		VarResearchData: report,
	})
}

// Phase2 builds the social-language development prompt.
func (b *Builder) Phase2(in prism.AnalysisInput, phase1Summary string) string {
	return Fill(pick(b.custom.Phase2Template, DefaultPhase2Template), map[string]string{
		VarProductName:   in.ProductName,
		VarCategory:      in.Category,
		VarPhase1Summary: phase1Summary,
	})
}

// Phase2Additional asks for count candidates distinct from existing.
func (b *Builder) Phase2Additional(in prism.AnalysisInput, phase1Summary string, existing []string, direction string, count int) string {
	keywords := "（なし）"
	if len(existing) > 0 {
		keywords = "- " + strings.Join(existing, "\n- ")
	}
	if strings.TrimSpace(direction) == "" {
		direction = "特になし（自由な発想で）"
	}
	return Fill(DefaultPhase2AdditionalTemplate, map[string]string{
		VarProductName:      in.ProductName,
		VarCategory:         in.Category,
		VarPhase1Summary:    phase1Summary,
		VarExistingKeywords: keywords,
		VarDirection:        direction,
		VarCount:            strconv.Itoa(count),
	})
}

// Phase3 builds the survey-design prompt.
func (b *Builder) Phase3(in prism.AnalysisInput, socialLanguages string) string {
	return Fill(pick(b.custom.Phase3Template, DefaultPhase3Template), map[string]string{
		VarProductName:     in.ProductName,
		VarCategory:        in.Category,
		VarSocialLanguages: socialLanguages,
	})
}

// Phase4 builds the single-shot output prompt.
func (b *Builder) Phase4(in prism.AnalysisInput, phase1Summary, socialLanguages, surveyDesign string) string {
	return Fill(pick(b.custom.Phase4Template, DefaultPhase4Template), phase4Vars(in, phase1Summary, socialLanguages, surveyDesign))
}

// Phase4a builds the report-summary sub-prompt.
func (b *Builder) Phase4a(in prism.AnalysisInput, phase1Summary, socialLanguages, surveyDesign string) string {
	return Fill(Phase4aTemplate, phase4Vars(in, phase1Summary, socialLanguages, surveyDesign))
}

// Phase4b builds the press-release sub-prompt.
func (b *Builder) Phase4b(in prism.AnalysisInput, marketRedefinition, socialLanguages string) string {
	return Fill(Phase4bTemplate, map[string]string{
		VarProductName:        in.ProductName,
		VarCategory:           in.Category,
		VarMarketRedefinition: marketRedefinition,
		VarSocialLanguages:    socialLanguages,
	})
}

// Phase4c builds the positioning and headline sub-prompt.
func (b *Builder) Phase4c(in prism.AnalysisInput, socialLanguages string) string {
	return Fill(Phase4cTemplate, map[string]string{
		VarProductName:     in.ProductName,
		VarCategory:        in.Category,
		VarSocialLanguages: socialLanguages,
	})
}

func phase4Vars(in prism.AnalysisInput, phase1Summary, socialLanguages, surveyDesign string) map[string]string {
	return map[string]string{
		VarProductName:     in.ProductName,
		VarCategory:        in.Category,
		VarPhase1Summary:   phase1Summary,
		VarSocialLanguages: socialLanguages,
		VarSurveyDesign:    surveyDesign,
	}
}

func pick(custom, def string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	return def
}

// VarsFor returns the variables supplied to the named compiled-in template.
func VarsFor(name string) []string {
	for _, t := range Defaults() {
		if t.Name == name {
			return t.Vars
		}
	}
	return nil
}

// UnknownPlaceholders reports, keyed by JSON field name, the placeholders in custom
// that the matching template never receives. It returns nil when every override is fillable.
func UnknownPlaceholders(custom prism.CustomPrompts) map[string][]string {
	fields := []struct {
		key, body, name string
	}{
		{"systemPrompt", custom.SystemPrompt, NameSystem},
		{"phase1Template", custom.Phase1Template, NamePhase1},
		{"phase2Template", custom.Phase2Template, NamePhase2},
		{"phase3Template", custom.Phase3Template, NamePhase3},
		{"phase4Template", custom.Phase4Template, NamePhase4},
	}
	var out map[string][]string
	for _, f := range fields {
		if missing := Missing(f.body, VarsFor(f.name)); len(missing) > 0 {
			if out == nil {
				out = map[string][]string{}
			}
			out[f.key] = missing
		}
	}
	return out
}
