package prompts

import (
	"fmt"
	"strings"

	"prism-backend/internal/prism"
)

// Phase1Summary renders hacks, pains and the redefinition as a bullet block for Phase 2.
func Phase1Summary(r prism.DeepListeningResult) string {
	var b strings.Builder
	b.WriteString("ポジティブ・ハック:\n")
	for _, v := range r.PositiveHacks {
		b.WriteString("- ")
		b.WriteString(v.Text)
		b.WriteString("\n")
	}
	b.WriteString("\nネガティブ・ペイン:\n")
	for _, v := range r.NegativePains {
		b.WriteString("- ")
		b.WriteString(v.Text)
		b.WriteString("\n")
	}
	b.WriteString("\n市場の再定義: ")
	b.WriteString(r.MarketRedefinition)
	return b.String()
}

// SocialLanguagesSummary renders a numbered keyword/story/fact block.
func SocialLanguagesSummary(langs []prism.SocialLanguage) string {
	parts := make([]string, 0, len(langs))
	for i, sl := range langs {
		parts = append(parts, fmt.Sprintf("%d. %s\n   ストーリー: %s\n   ファクト: %s", i+1, sl.Keyword, sl.Story, sl.Fact))
	}
	return strings.Join(parts, "\n\n")
}

// SurveyDesignSummary renders the numbered question lists.
func SurveyDesignSummary(s prism.SurveyDesign) string {
	var b strings.Builder
	b.WriteString("定量設問:\n")
	b.WriteString(numbered(s.Quantitative))
	b.WriteString("\n\n定性設問:\n")
	b.WriteString(numbered(s.Qualitative))
	return b.String()
}

// FormatSourceList renders sources as "- title: url" lines.
func FormatSourceList(sources []prism.GroundingSource) string {
	if len(sources) == 0 {
		return "（なし）"
	}
	lines := make([]string, 0, len(sources))
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", title, s.URL))
	}
	return strings.Join(lines, "\n")
}

// FormatSegmentHints renders each grounded span with the URLs backing it.
func FormatSegmentHints(segments []prism.GroundingSegment) string {
	if len(segments) == 0 {
		return "（なし）"
	}
	lines := make([]string, 0, len(segments))
	for _, seg := range segments {
		urls := make([]string, 0, len(seg.Sources))
		for _, s := range seg.Sources {
			urls = append(urls, s.URL)
		}
		lines = append(lines, fmt.Sprintf("- 「%s」 出典: %s", strings.TrimSpace(seg.Text), strings.Join(urls, ", ")))
	}
	return strings.Join(lines, "\n")
}

func numbered(items []string) string {
	lines := make([]string, 0, len(items))
	for i, q := range items {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, q))
	}
	return strings.Join(lines, "\n")
}
