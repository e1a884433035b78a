package analyses

import (
	"encoding/json"
	"strings"

	"prism-backend/internal/prism"
)

const (
	actionAddLanguages     = "add-languages"
	actionRegeneratePhases = "regenerate-phases"
)

type analyzeBody struct {
	Input         *prism.AnalysisInput `json:"input"`
	CustomPrompts *prism.CustomPrompts `json:"customPrompts"`
}

// decodeAnalyze reads an analyze body. A body without the input wrapper is
// read as the input itself.
func decodeAnalyze(raw []byte) (prism.AnalysisInput, *prism.CustomPrompts, error) {
	var body analyzeBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return prism.AnalysisInput{}, nil, prism.NewValidationError(prism.MsgInvalidRequest)
	}
	if body.Input != nil {
		return *body.Input, body.CustomPrompts, nil
	}
	var in prism.AnalysisInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return prism.AnalysisInput{}, nil, prism.NewValidationError(prism.MsgInvalidRequest)
	}
	return in, body.CustomPrompts, nil
}

type regenerateBody struct {
	Action        string               `json:"action"`
	Input         prism.AnalysisInput  `json:"input"`
	Phase1Summary string               `json:"phase1Summary"`
	ModelID       string               `json:"modelId"`
	CustomPrompts *prism.CustomPrompts `json:"customPrompts"`
	RunID         string               `json:"runId"`

	ExistingKeywords []string `json:"existingKeywords"`
	Direction        string   `json:"direction"`

	SelectedLanguages  []prism.SocialLanguage `json:"selectedLanguages"`
	MarketRedefinition string                 `json:"marketRedefinition"`
}

// input returns the body's input with modelId, when given, taking precedence.
func (b regenerateBody) input() prism.AnalysisInput {
	in := b.Input
	if id := strings.TrimSpace(b.ModelID); id != "" {
		in.Model = prism.ModelTier(id)
	}
	return in
}
