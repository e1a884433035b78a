package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prism-backend/internal/prism"
)

func TestFillReplacesKnownAndKeepsUnknown(t *testing.T) {
	out := Fill("{{a}} and {{b}} and {{a}} {{ c }}", map[string]string{"a": "x"})
	assert.Equal(t, "x and {{b}} and x {{ c }}", out)
}

func TestFillDoesNotRecurseIntoValues(t *testing.T) {
	out := Fill("{{a}}", map[string]string{"a": "{{b}}", "b": "nope"})
	assert.Equal(t, "{{b}}", out)
}

func TestPlaceholdersDistinctSorted(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Placeholders("{{b}}{{a}}{{b}}"))
	assert.Empty(t, Placeholders("no vars"))
}

func TestDefaultsOnlyReferenceDeclaredVars(t *testing.T) {
	for _, tmpl := range Defaults() {
		assert.Empty(t, Missing(tmpl.Body, tmpl.Vars), "template %s", tmpl.Name)
	}
}

func TestUnknownPlaceholders(t *testing.T) {
	assert.Nil(t, UnknownPlaceholders(prism.CustomPrompts{
		Phase2Template: "{{productName}} {{phase1Summary}}",
		Phase4Template: "{{surveyDesign}}",
	}))

	got := UnknownPlaceholders(prism.CustomPrompts{
		SystemPrompt:   "{{productName}}",
		Phase2Template: "{{phase1Sumary}} {{category}}",
		Phase3Template: "{{phase1Summary}}",
	})
	assert.Equal(t, map[string][]string{
		"systemPrompt":   {"productName"},
		"phase2Template": {"phase1Sumary"},
		"phase3Template": {"phase1Summary"},
	}, got)
}

func TestDefaultsFillCompletely(t *testing.T) {
	for _, tmpl := range Defaults() {
		vars := make(map[string]string, len(tmpl.Vars))
		for _, v := range tmpl.Vars {
			vars[v] = "value-" + v
		}
		out := Fill(tmpl.Body, vars)
		assert.NotContains(t, out, "{{", "template %s left a placeholder", tmpl.Name)
	}
}

func sampleInput() prism.AnalysisInput {
	return prism.AnalysisInput{ProductName: "炭酸水", Category: "飲料", Challenges: "若年層に届かない"}
}

func TestBuilderUsesCustomPhase1AndAppendsContext(t *testing.T) {
	b := NewBuilder(&prism.CustomPrompts{Phase1Template: "CUSTOM {{productName}}"})
	out := b.Phase1Manual(prism.AnalysisInput{ProductName: "P", Category: "C", Challenges: "X", ManualResearchData: "my notes"})

	require.True(t, strings.HasPrefix(out, "CUSTOM P"))
	assert.Contains(t, out, "my notes")
}

func TestBuilderFallsBackToDefaults(t *testing.T) {
	b := NewBuilder(&prism.CustomPrompts{SystemPrompt: "   "})
	assert.Equal(t, DefaultSystemPrompt, b.SystemPrompt())
	assert.False(t, b.HasCustomPhase4())

	nilBuilder := NewBuilder(nil)
	assert.Equal(t, DefaultSystemPrompt, nilBuilder.SystemPrompt())
}

func TestBuilderPromptsHaveNoLeftoverPlaceholders(t *testing.T) {
	b := NewBuilder(nil)
	in := sampleInput()
	sources := []prism.GroundingSource{{Title: "記事", URL: "https://example.com/a"}}
	segments := []prism.GroundingSegment{{Text: "声", Sources: sources}}

	all := append(b.SearchAngles(in),
		b.Phase1Standard(in, "research", segments, sources),
		b.Phase1DeepRead(in, sources),
		b.Phase1DeepFallback(in, "fetched", sources),
		b.Phase1Agent(in, "report"),
		b.AgentResearch(in),
		b.Phase2(in, "summary"),
		b.Phase2Additional(in, "summary", []string{"a", "b"}, "", 3),
		b.Phase3(in, "langs"),
		b.Phase4(in, "summary", "langs", "survey"),
		b.Phase4a(in, "summary", "langs", "survey"),
		b.Phase4b(in, "redef", "langs"),
		b.Phase4c(in, "langs"),
	)
	for i, p := range all {
		assert.NotContains(t, p, "{{", "prompt %d", i)
	}
	assert.Len(t, b.SearchAngles(in), 5)
}

func TestPhase2AdditionalListsExistingKeywords(t *testing.T) {
	out := NewBuilder(nil).Phase2Additional(sampleInput(), "s", []string{"夜のご褒美", "ひとり乾杯"}, "若者向け", 2)
	assert.Contains(t, out, "- 夜のご褒美\n- ひとり乾杯")
	assert.Contains(t, out, "若者向け")
	assert.Contains(t, out, "2")
}

func TestSummaries(t *testing.T) {
	p1 := Phase1Summary(prism.DeepListeningResult{
		PositiveHacks:      []prism.VoiceItem{{Text: "hack"}},
		NegativePains:      []prism.VoiceItem{{Text: "pain"}},
		MarketRedefinition: "redef",
	})
	assert.Contains(t, p1, "- hack")
	assert.Contains(t, p1, "- pain")
	assert.True(t, strings.HasSuffix(p1, "市場の再定義: redef"))

	langs := SocialLanguagesSummary([]prism.SocialLanguage{
		{Keyword: "k1", Story: "s1", Fact: "f1"},
		{Keyword: "k2", Story: "s2", Fact: "f2"},
	})
	assert.Equal(t, "1. k1\n   ストーリー: s1\n   ファクト: f1\n\n2. k2\n   ストーリー: s2\n   ファクト: f2", langs)

	survey := SurveyDesignSummary(prism.SurveyDesign{Quantitative: []string{"q1", "q2"}, Qualitative: []string{"o1"}})
	assert.Equal(t, "定量設問:\n1. q1\n2. q2\n\n定性設問:\n1. o1", survey)
}

func TestFormatSourceListFallsBackToURL(t *testing.T) {
	out := FormatSourceList([]prism.GroundingSource{{URL: "https://a.example"}, {Title: "B", URL: "https://b.example"}})
	assert.Equal(t, "- https://a.example: https://a.example\n- B: https://b.example", out)
	assert.Equal(t, "（なし）", FormatSourceList(nil))
}
