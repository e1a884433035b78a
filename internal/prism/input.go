package prism

import (
	"errors"
	"strings"
)

// ModelTier selects between the fast and the accurate model.
type ModelTier string

const (
	ModelFast     ModelTier = "fast"
	ModelAccurate ModelTier = "accurate"
)

// ResearchDepth selects the Phase 1 evidence-gathering strategy.
type ResearchDepth string

const (
	DepthStandard ResearchDepth = "standard"
	DepthDeep     ResearchDepth = "deep"
	DepthManual   ResearchDepth = "manual"
	DepthAgent    ResearchDepth = "agent"
)

// Validation messages returned to the client as-is.
const (
	MsgMissingFields     = "商材名、カテゴリ、課題のすべてを入力してください。"
	MsgMissingManualData = "マニュアルリサーチモードでは、リサーチデータを入力してください。"
	MsgUnknownDepth      = "リサーチ深度の指定が不正です。"
	MsgInvalidRequest    = "不正なリクエストです。"
	MsgMissingRegenData  = "必要なデータが不足しています。"
	MsgSelectThree       = "3つの社会言語を選択してください。"
	MsgUnknownAction     = "不明なアクションです。"
)

// AnalysisInput is the client-supplied description of the product to analyze.
type AnalysisInput struct {
	ProductName        string        `json:"productName"`
	Category           string        `json:"category"`
	Challenges         string        `json:"challenges"`
	Model              ModelTier     `json:"model,omitempty"`
	ResearchDepth      ResearchDepth `json:"researchDepth,omitempty"`
	ManualResearchData string        `json:"manualResearchData,omitempty"`
}

// ValidationError reports malformed client input. It never enters the pipeline.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError constructs a ValidationError with the given client-facing message.
func NewValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Normalize returns a copy with enum fields canonicalized. Unknown model values
// fall back to the fast tier; known raw Gemini model ids are mapped to their tier.
func (in AnalysisInput) Normalize() AnalysisInput {
	out := in
	out.Model = NormalizeModel(string(in.Model))
	switch d := ResearchDepth(strings.ToLower(strings.TrimSpace(string(in.ResearchDepth)))); d {
	case "":
		out.ResearchDepth = DepthStandard
	case "api-deep-research":
		out.ResearchDepth = DepthAgent
	default:
		out.ResearchDepth = d
	}
	return out
}

// Validate checks required fields. Call on a normalized input.
func (in AnalysisInput) Validate() error {
	if strings.TrimSpace(in.ProductName) == "" || strings.TrimSpace(in.Category) == "" || strings.TrimSpace(in.Challenges) == "" {
		return NewValidationError(MsgMissingFields)
	}
	switch in.ResearchDepth {
	case DepthStandard, DepthDeep, DepthAgent:
	case DepthManual:
		if strings.TrimSpace(in.ManualResearchData) == "" {
			return NewValidationError(MsgMissingManualData)
		}
	default:
		return NewValidationError(MsgUnknownDepth)
	}
	return nil
}

// NormalizeModel maps a client-supplied model selector to a tier.
func NormalizeModel(raw string) ModelTier {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "accurate", "pro", "gemini-3-pro-preview":
		return ModelAccurate
	default:
		return ModelFast
	}
}
