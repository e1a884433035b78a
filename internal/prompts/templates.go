package prompts

// Template variable names.
const (
	VarProductName        = "productName"
	VarCategory           = "category"
	VarChallenges         = "challenges"
	VarPhase1Summary      = "phase1Summary"
	VarSocialLanguages    = "socialLanguages"
	VarSurveyDesign       = "surveyDesign"
	VarMarketRedefinition = "marketRedefinition"
	VarResearchData       = "researchData"
	VarSegmentHints       = "segmentHints"
	VarSourceList         = "sourceList"
	VarURLList            = "urlList"
	VarExistingKeywords   = "existingKeywords"
	VarDirection          = "direction"
	VarCount              = "count"
)

// Template names, used as keys for the defaults listing.
const (
	NameSystem           = "system"
	NamePhase1           = "phase1"
	NamePhase2           = "phase2"
	NamePhase2Additional = "phase2Additional"
	NamePhase3           = "phase3"
	NamePhase4           = "phase4"
	NamePhase4a          = "phase4a"
	NamePhase4b          = "phase4b"
	NamePhase4c          = "phase4c"
	NameStandardContext  = "phase1StandardContext"
	NameDeepReadContext  = "phase1DeepReadContext"
	NameDeepFallback     = "phase1DeepFallbackContext"
	NameManualContext    = "phase1ManualContext"
	NameAgentResearch    = "agentResearch"
	NameAgentContext     = "phase1AgentContext"
	NameAngleReview      = "angleReview"
	NameAngleComplaint   = "angleComplaint"
	NameAngleSlang       = "angleSlang"
	NameAngleForum       = "angleForum"
	NameAngleTrend       = "angleTrend"
)

// DefaultSystemPrompt is the system instruction used when no override is stored.
const DefaultSystemPrompt = `あなたは「社会記号学者 兼 マーケティングストラテジスト」です。

【あなたの役割】
- 脱・広告: 「売り込み」のトーンを排除し、「社会的な発見」のトーンで語る。
- 脱・妥協: 「安いから我慢する」ではなく「安いからこそ面白い」というような、価値の反転（逆転）を見つけ出す。
- 共感のエンジニアリング: 生活者がSNSでつぶやきたくなる「ドヤ感」や「自己肯定感」を言語化する。

【社会言語とは】
一般呼称ではなく、特定のサービス名でもなく、社会の共感として潜在的にあったものが「言語化」されることにより、納得と賛同が広がり、新たな定義と市場が広がっていくキーワード。

【品質基準】
1. ドヤ感: その言葉を使った時、「賢い私」「工夫している私」という肯定感が生まれるか
2. 遊びの余白: 用途を限定せず、「あなたならどう使う？」という問いかけが内包されているか
3. 脱・妥協: 「我慢する」ではなく、「だからこそ最高に面白い」という価値の逆転があるか
4. メディア親和性: ニュースのテロップやSNSのハッシュタグとして違和感がないか

必ず日本語で回答してください。`

const angleHeader = `商材: {{productName}}
カテゴリ: {{category}}
特徴・課題: {{challenges}}

`

// Search-angle prompts sent with Google Search grounding.
const (
	AngleReviewTemplate = angleHeader + `この商材・カテゴリについて、レビューサイトや口コミでの生活者の具体的な評価を調査してください。
意外な使い方、満足しているポイント、購入の決め手を、実際の投稿から引用してください。日本語で回答してください。`

	AngleComplaintTemplate = angleHeader + `この商材・カテゴリについて、生活者の不満・愚痴・諦め・妥協の声を調査してください。
「仕方なく使っている」「もっとこうならいいのに」といった生々しい声を、実際の投稿から引用してください。日本語で回答してください。`

	AngleSlangTemplate = angleHeader + `この商材・カテゴリについて、SNS（X、Instagram、TikTok）で生活者が使っている独自の呼び方、スラング、ハッシュタグを調査してください。
その言葉が使われている文脈も含めて引用してください。日本語で回答してください。`

	AngleForumTemplate = angleHeader + `この商材・カテゴリについて、Yahoo!知恵袋や掲示板、ブログでの相談・体験談を調査してください。
裏ワザ、攻略法、失敗談を実際の投稿から引用してください。日本語で回答してください。`

	AngleTrendTemplate = angleHeader + `この商材・カテゴリの市場や業界について、生活者の認識の変化や最新トレンドを調査してください。
ニュース記事や調査データがあれば出典とともに示してください。日本語で回答してください。`
)

// DefaultPhase1Template holds the Phase 1 instruction body.
const DefaultPhase1Template = `【Phase 1: Deep Listening & Insight — 前提の整理】

対象商材: {{productName}}
カテゴリ: {{category}}
現状の課題・特徴: {{challenges}}

あなたのタスク:
「{{category}}」について、SNSやレビューサイトでの生活者の声を深く聴取し、以下を抽出してください。

1. **ポジティブ・ハック（Positive/Hack）**: メーカーの意図を超えた使い方、シンデレラフィット、攻略の悦び。生活者の生々しい一人称の言葉で10個。
2. **ネガティブ・ペイン（Negative/Pain）**: 諦め、虚無感、仕方なく使っている感覚。生活者の生々しい一人称の言葉で10個。
3. **市場の再定義（Market Redefinition）**: 「現在の市場は『〇〇』という認識だが、実態は『△△』で動いている」という最短の定義文。

**重要**: 各声には、その情報の出典となったWebページのURLとサイト名を含めてください。出典が不明な場合は空文字にしてください。URLを推測・創作してはいけません。

以下のJSON形式で出力してください:
{
  "positiveHacks": [{"text": "声1", "sourceUrl": "https://example.com/...", "sourceTitle": "サイト名"}, ...],
  "negativePains": [{"text": "声1", "sourceUrl": "https://example.com/...", "sourceTitle": "サイト名"}, ...],
  "marketRedefinition": "定義文"
}`

// Research-context blocks appended to the Phase 1 instructions, one per strategy.
const (
	StandardContextTemplate = `

━━━━━━━━━━━━━━━━━━━━
【参考データ: Web検索による生活者の声】
{{researchData}}

【出典付きの記述】
{{segmentHints}}

【使用可能な出典URL一覧】
以下のURL以外を sourceUrl に使用しないでください。
{{sourceList}}`

	DeepReadContextTemplate = `

━━━━━━━━━━━━━━━━━━━━
【精読対象ページ】
以下のURLのページ本文を実際に読み、そこに書かれている生活者の声だけを抽出してください。
sourceUrl には以下のURLのうち、実際に声を読んだページのURLをそのまま使用してください。
{{urlList}}`

	DeepFallbackContextTemplate = `

━━━━━━━━━━━━━━━━━━━━
【参考データ: 精読したページの内容】
{{researchData}}

【使用可能な出典URL一覧】
{{sourceList}}`

	ManualContextTemplate = `

━━━━━━━━━━━━━━━━━━━━
【参考データ: 外部リサーチ結果（ユーザー提供）】
{{researchData}}

出典URLは上記データ内に明記されているもののみ使用してください。`

	AgentContextTemplate = `

━━━━━━━━━━━━━━━━━━━━
【参考データ: Deep Research エージェントによる調査レポート】
{{researchData}}

出典URLは上記レポート内に明記されているもののみ使用してください。`
)

// DefaultAgentResearchTemplate is the task handed to the long-running research agent.
const DefaultAgentResearchTemplate = `以下の商材について、SNS・レビューサイト・掲示板・ブログ等での生活者のリアルな声を徹底的に調査し、レポートにまとめてください。

商材: {{productName}}
カテゴリ: {{category}}
特徴・課題: {{challenges}}

調査すべき内容:
1. ポジティブな声（意外な使い方、シンデレラフィット、攻略の悦び、裏ワザ）
2. ネガティブな声（不満、諦め、妥協、改善要望）
3. 市場や業界に対する生活者の認識・トレンド

それぞれの声について、引用元のURLを必ず明記してください。日本語でレポートを作成してください。`

// DefaultPhase2Template develops the social-language candidates.
const DefaultPhase2Template = `【Phase 2: Social Language Development — 社会言語開発】

対象商材: {{productName}}
カテゴリ: {{category}}
Deep Listeningの結果:
{{phase1Summary}}

あなたのタスク:
Deep Listeningで得た「生の声」を、一般名詞化された「社会言語」へと昇華させてください。

生成要件:
- 既存の意味や価値をひっくり返すアプローチであること
- ニュースのテロップやSNSのハッシュタグになり得る「現象名」であること
- 3つの社会言語を開発し、それぞれにストーリーとファクトをセットで出力

以下のJSON形式で出力してください:
[
  {
    "keyword": "【社会言語名】",
    "story": "なぜ今この言葉が必要なのかのロジック",
    "fact": "裏付ける生活者の行動事実"
  },
  ...
]

3つの社会言語を出力してください。`

// DefaultPhase2AdditionalTemplate asks for candidates distinct from the existing pool.
const DefaultPhase2AdditionalTemplate = `【Phase 2: Social Language Development — 追加案の開発】

対象商材: {{productName}}
カテゴリ: {{category}}
Deep Listeningの結果:
{{phase1Summary}}

既に開発済みの社会言語（これらとは異なる切り口にすること）:
{{existingKeywords}}

追加の方向性: {{direction}}

あなたのタスク:
既存案と重複しない、新しい社会言語を{{count}}つ開発してください。それぞれにストーリーとファクトをセットで出力してください。

以下のJSON形式で出力してください:
[
  {
    "keyword": "【社会言語名】",
    "story": "なぜ今この言葉が必要なのかのロジック",
    "fact": "裏付ける生活者の行動事実"
  }
]`

// DefaultPhase3Template designs the survey.
const DefaultPhase3Template = `【Phase 3: Evidence Design — イシューデザイン調査設計】

対象商材: {{productName}}
カテゴリ: {{category}}
開発した社会言語:
{{socialLanguages}}

あなたのタスク:
「社会言語が、実は社会の正解である」ことを証明するための調査を設計してください。

定量調査（3問）:
- 生活者が「そう言われてみればそうだ（YES）」と答えざるを得ない設問を設計する

定性調査（1問）:
- 具体的なエピソードやワクワク感を想起させ、その感情に名前をつけるような問い

以下のJSON形式で出力してください:
{
  "quantitative": ["設問1", "設問2", "設問3"],
  "qualitative": ["設問1"]
}`

// DefaultPhase4Template produces every Phase 4 field in one call.
const DefaultPhase4Template = `【Phase 4: Output Generation — アウトプット生成】

対象商材: {{productName}}
カテゴリ: {{category}}

Phase 1（Deep Listening）結果:
{{phase1Summary}}

Phase 2（社会言語）:
{{socialLanguages}}

Phase 3（調査設計）:
{{surveyDesign}}

あなたのタスク:
1. **調査レポートサマリ**: Phase 3の調査結果を想定して記述。データは仮想だが説得力のある数字を使用。
2. **プレスリリース記事**: 市場の再定義ニュースとして記事化。
3. **ポジショニング提案（結論）**: 「御社は今後、〇〇ではなく『△△』と名乗るべきである」形式。
4. **ニュース見出し案**: Yahoo!トピックス風の見出し（1行）

以下のJSON形式で出力してください:
{
  "reportSummary": "レポートサマリ（Markdown形式）",
  "pressRelease": "プレスリリース記事（Markdown形式）",
  "positioning": "ポジショニング提案文",
  "newsHeadline": "ニュース見出し（1行）"
}`

// Phase 4 sub-templates used for split execution.
const (
	Phase4aTemplate = `【Phase 4a: 調査レポートサマリ生成】

対象商材: {{productName}}
カテゴリ: {{category}}

Phase 1（Deep Listening）結果:
{{phase1Summary}}

Phase 2（社会言語）:
{{socialLanguages}}

Phase 3（調査設計）:
{{surveyDesign}}

あなたのタスク:
調査レポートサマリ（2〜3ページ分のテキスト）を生成してください。
Phase 3の調査結果を想定して記述。データは仮想だが説得力のある数字を使用。

以下のJSON形式で出力してください:
{
  "reportSummary": "レポートサマリ（Markdown形式）"
}`

	Phase4bTemplate = `【Phase 4b: プレスリリース記事生成】

対象商材: {{productName}}
カテゴリ: {{category}}

市場の再定義:
{{marketRedefinition}}

社会言語:
{{socialLanguages}}

あなたのタスク:
プレスリリース記事を生成してください。
「消費者は〇〇を求めているのではない。△△を求めているのだ」のような切り口で。

以下のJSON形式で出力してください:
{
  "pressRelease": "プレスリリース記事（Markdown形式）"
}`

	Phase4cTemplate = `【Phase 4c: ポジショニング提案 & ニュース見出し】

対象商材: {{productName}}
カテゴリ: {{category}}

社会言語:
{{socialLanguages}}

あなたのタスク:
1. **ポジショニング提案（結論）**: 「御社は今後、〇〇ではなく『△△』と名乗るべきである」形式。
2. **ニュース見出し案**: Yahoo!トピックス風の見出し（1行）

以下のJSON形式で出力してください:
{
  "positioning": "ポジショニング提案文",
  "newsHeadline": "ニュース見出し（1行）"
}`
)

// Template pairs a template body with the variables its builder supplies.
type Template struct {
	Name string   `json:"name"`
	Body string   `json:"body"`
	Vars []string `json:"vars"`
}

var inputVars = []string{VarProductName, VarCategory, VarChallenges}

// Defaults lists every compiled-in template with its variable set.
func Defaults() []Template {
	return []Template{
		{Name: NameSystem, Body: DefaultSystemPrompt},
		{Name: NameAngleReview, Body: AngleReviewTemplate, Vars: inputVars},
		{Name: NameAngleComplaint, Body: AngleComplaintTemplate, Vars: inputVars},
		{Name: NameAngleSlang, Body: AngleSlangTemplate, Vars: inputVars},
		{Name: NameAngleForum, Body: AngleForumTemplate, Vars: inputVars},
		{Name: NameAngleTrend, Body: AngleTrendTemplate, Vars: inputVars},
		{Name: NamePhase1, Body: DefaultPhase1Template, Vars: inputVars},
		{Name: NameStandardContext, Body: StandardContextTemplate, Vars: []string{VarResearchData, VarSegmentHints, VarSourceList}},
		{Name: NameDeepReadContext, Body: DeepReadContextTemplate, Vars: []string{VarURLList}},
		{Name: NameDeepFallback, Body: DeepFallbackContextTemplate, Vars: []string{VarResearchData, VarSourceList}},
		{Name: NameManualContext, Body: ManualContextTemplate, Vars: []string{VarResearchData}},
		{Name: NameAgentResearch, Body: DefaultAgentResearchTemplate, Vars: inputVars},
		{Name: NameAgentContext, Body: AgentContextTemplate, Vars: []string{VarResearchData}},
		{Name: NamePhase2, Body: DefaultPhase2Template, Vars: []string{VarProductName, VarCategory, VarPhase1Summary}},
		{Name: NamePhase2Additional, Body: DefaultPhase2AdditionalTemplate, Vars: []string{VarProductName, VarCategory, VarPhase1Summary, VarExistingKeywords, VarDirection, VarCount}},
		{Name: NamePhase3, Body: DefaultPhase3Template, Vars: []string{VarProductName, VarCategory, VarSocialLanguages}},
		{Name: NamePhase4, Body: DefaultPhase4Template, Vars: []string{VarProductName, VarCategory, VarPhase1Summary, VarSocialLanguages, VarSurveyDesign}},
		{Name: NamePhase4a, Body: Phase4aTemplate, Vars: []string{VarProductName, VarCategory, VarPhase1Summary, VarSocialLanguages, VarSurveyDesign}},
		{Name: NamePhase4b, Body: Phase4bTemplate, Vars: []string{VarProductName, VarCategory, VarMarketRedefinition, VarSocialLanguages}},
		{Name: NamePhase4c, Body: Phase4cTemplate, Vars: []string{VarProductName, VarCategory, VarSocialLanguages}},
	}
}
