package prism

import "time"

// GroundingSource is a web page discovered by search grounding or page fetching.
type GroundingSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// GroundingSegment maps a grounded text span to the sources that justify it.
type GroundingSegment struct {
	Text    string            `json:"text"`
	Sources []GroundingSource `json:"sources"`
}

// VoiceItem is one consumer statement, optionally attributed to a source page.
type VoiceItem struct {
	Text        string `json:"text"`
	SourceURL   string `json:"sourceUrl,omitempty"`
	SourceTitle string `json:"sourceTitle,omitempty"`
}

// DeepListeningResult is the Phase 1 output.
type DeepListeningResult struct {
	PositiveHacks      []VoiceItem `json:"positiveHacks"`
	NegativePains      []VoiceItem `json:"negativePains"`
	MarketRedefinition string      `json:"marketRedefinition"`
}

// SocialLanguage is one Phase 2 candidate.
type SocialLanguage struct {
	Keyword string `json:"keyword"`
	Story   string `json:"story"`
	Fact    string `json:"fact"`
}

// SurveyDesign is the Phase 3 output.
type SurveyDesign struct {
	Quantitative []string `json:"quantitative"`
	Qualitative  []string `json:"qualitative"`
}

// OutputGeneration is the Phase 4 output.
type OutputGeneration struct {
	ReportSummary string `json:"reportSummary"`
	PressRelease  string `json:"pressRelease"`
	Positioning   string `json:"positioning"`
	NewsHeadline  string `json:"newsHeadline"`
}

// Result is the terminal aggregate of one successful pipeline run.
type Result struct {
	Input            AnalysisInput       `json:"input"`
	Phase1           DeepListeningResult `json:"phase1"`
	Phase2           []SocialLanguage    `json:"phase2"`
	Phase3           SurveyDesign        `json:"phase3"`
	Phase4           OutputGeneration    `json:"phase4"`
	GroundingSources []GroundingSource   `json:"groundingSources"`
}

// WithRegeneration returns a copy of r with phase 3 and 4 replaced.
func (r Result) WithRegeneration(entry IterationEntry) Result {
	out := r
	out.Phase2 = append([]SocialLanguage(nil), entry.SelectedLanguages...)
	out.Phase3 = entry.Phase3
	out.Phase4 = entry.Phase4
	return out
}

// IterationEntry records one regeneration attempt over phases 3 and 4.
type IterationEntry struct {
	ID                string           `json:"id"`
	Timestamp         time.Time        `json:"timestamp"`
	SelectedLanguages []SocialLanguage `json:"selectedLanguages"`
	Phase3            SurveyDesign     `json:"phase3"`
	Phase4            OutputGeneration `json:"phase4"`
}

// CustomPrompts carries per-phase template overrides. Empty fields mean "use the default".
type CustomPrompts struct {
	SystemPrompt   string `json:"systemPrompt"`
	Phase1Template string `json:"phase1Template"`
	Phase2Template string `json:"phase2Template"`
	Phase3Template string `json:"phase3Template"`
	Phase4Template string `json:"phase4Template"`
}
