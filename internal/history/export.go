package history

import (
	"fmt"
	"strings"
	"time"

	"prism-backend/internal/prism"
)

// MarkdownReport renders a result as the downloadable PRISM report.
func MarkdownReport(r prism.Result, at time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# PRISM 分析レポート: %s\n\n", r.Input.ProductName)
	fmt.Fprintf(&b, "- カテゴリ: %s\n", r.Input.Category)
	fmt.Fprintf(&b, "- 課題・特徴: %s\n", r.Input.Challenges)
	if r.Input.ResearchDepth != "" {
		fmt.Fprintf(&b, "- リサーチ深度: %s\n", r.Input.ResearchDepth)
	}
	if !at.IsZero() {
		fmt.Fprintf(&b, "- 生成日時: %s\n", at.UTC().Format("2006-01-02 15:04 MST"))
	}

	b.WriteString("\n## Phase 1: ディープリスニング\n\n### ポジティブ・ハック\n\n")
	writeVoices(&b, r.Phase1.PositiveHacks)
	b.WriteString("\n### ネガティブ・ペイン\n\n")
	writeVoices(&b, r.Phase1.NegativePains)
	fmt.Fprintf(&b, "\n### 市場の再定義\n\n%s\n", r.Phase1.MarketRedefinition)

	b.WriteString("\n## Phase 2: 社会言語\n\n")
	for i, sl := range r.Phase2 {
		fmt.Fprintf(&b, "### %d. %s\n\n- ストーリー: %s\n- ファクト: %s\n\n", i+1, sl.Keyword, sl.Story, sl.Fact)
	}

	b.WriteString("## Phase 3: 調査設計\n\n### 定量設問\n\n")
	writeNumbered(&b, r.Phase3.Quantitative)
	b.WriteString("\n### 定性設問\n\n")
	writeNumbered(&b, r.Phase3.Qualitative)

	b.WriteString("\n## Phase 4: アウトプット\n\n")
	fmt.Fprintf(&b, "### ニュース見出し\n\n%s\n\n", r.Phase4.NewsHeadline)
	fmt.Fprintf(&b, "### 調査レポートサマリ\n\n%s\n\n", r.Phase4.ReportSummary)
	fmt.Fprintf(&b, "### プレスリリース\n\n%s\n\n", r.Phase4.PressRelease)
	fmt.Fprintf(&b, "### ポジショニング\n\n%s\n", r.Phase4.Positioning)

	if len(r.GroundingSources) > 0 {
		b.WriteString("\n## 情報源\n\n")
		for _, s := range r.GroundingSources {
			title := s.Title
			if title == "" {
				title = s.URL
			}
			fmt.Fprintf(&b, "- [%s](%s)\n", title, s.URL)
		}
	}
	return b.String()
}

func writeVoices(b *strings.Builder, voices []prism.VoiceItem) {
	for _, v := range voices {
		switch {
		case v.SourceURL != "" && v.SourceTitle != "":
			fmt.Fprintf(b, "- %s（出典: [%s](%s)）\n", v.Text, v.SourceTitle, v.SourceURL)
		case v.SourceURL != "":
			fmt.Fprintf(b, "- %s（出典: %s）\n", v.Text, v.SourceURL)
		default:
			fmt.Fprintf(b, "- %s\n", v.Text)
		}
	}
}

func writeNumbered(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}
