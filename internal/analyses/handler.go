package analyses

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/pipeline"
	"prism-backend/internal/prism"
	"prism-backend/internal/shared/server/respond"
	"prism-backend/internal/shared/telemetry"
)

// Pipeline is the orchestration surface the handlers drive.
type Pipeline interface {
	Run(ctx context.Context, in prism.AnalysisInput, custom *prism.CustomPrompts) (<-chan pipeline.Event, error)
	RegeneratePhases(ctx context.Context, req pipeline.RegenerateRequest) (<-chan pipeline.Event, error)
	AddLanguageCandidates(ctx context.Context, req pipeline.AddLanguagesRequest) ([]prism.SocialLanguage, error)
}

// PromptSource supplies stored custom prompts for requests that carry none.
type PromptSource interface {
	Get(ctx context.Context) (*prism.CustomPrompts, error)
}

// Handler serves the streaming pipeline endpoints.
type Handler struct {
	Pipeline Pipeline
	// Prompts is optional.
	Prompts           PromptSource
	AnalyzeTimeout    time.Duration
	RegenerateTimeout time.Duration
	Heartbeat         time.Duration
}

// NewHandler constructs a Handler with the default heartbeat.
func NewHandler(p Pipeline, prompts PromptSource, analyzeTimeout, regenerateTimeout time.Duration) *Handler {
	return &Handler{
		Pipeline:          p,
		Prompts:           prompts,
		AnalyzeTimeout:    analyzeTimeout,
		RegenerateTimeout: regenerateTimeout,
		Heartbeat:         DefaultHeartbeat,
	}
}

// RegisterRoutes attaches pipeline routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.analyze)
	rg.POST("/regenerate", h.regenerate)
}

func (h *Handler) analyze(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil {
		respondError(c, prism.NewValidationError(prism.MsgInvalidRequest))
		return
	}
	in, custom, err := decodeAnalyze(raw)
	if err != nil {
		respondError(c, err)
		return
	}
	custom = h.customPrompts(c.Request.Context(), custom)

	ctx, cancel := withTimeout(c.Request.Context(), h.AnalyzeTimeout)
	defer cancel()
	events, err := h.Pipeline.Run(ctx, in, custom)
	if err != nil {
		respondError(c, err)
		return
	}
	streamEvents(c, events, h.Heartbeat)
}

func (h *Handler) regenerate(c *gin.Context) {
	var body regenerateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondError(c, prism.NewValidationError(prism.MsgInvalidRequest))
		return
	}
	in := body.input()
	custom := h.customPrompts(c.Request.Context(), body.CustomPrompts)

	switch body.Action {
	case actionAddLanguages:
		ctx, cancel := withTimeout(c.Request.Context(), h.RegenerateTimeout)
		defer cancel()
		langs, err := h.Pipeline.AddLanguageCandidates(ctx, pipeline.AddLanguagesRequest{
			Input:            in,
			Phase1Summary:    body.Phase1Summary,
			ExistingKeywords: body.ExistingKeywords,
			Direction:        body.Direction,
			Custom:           custom,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		respond.OK(c, gin.H{"languages": langs})
	case actionRegeneratePhases:
		ctx, cancel := withTimeout(c.Request.Context(), h.RegenerateTimeout)
		defer cancel()
		events, err := h.Pipeline.RegeneratePhases(ctx, pipeline.RegenerateRequest{
			Input:              in,
			Phase1Summary:      body.Phase1Summary,
			MarketRedefinition: body.MarketRedefinition,
			SelectedLanguages:  body.SelectedLanguages,
			Custom:             custom,
			RunID:              body.RunID,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		streamEvents(c, events, h.Heartbeat)
	default:
		if in.ProductName == "" || body.Phase1Summary == "" {
			respondError(c, prism.NewValidationError(prism.MsgMissingRegenData))
			return
		}
		respondError(c, prism.NewValidationError(prism.MsgUnknownAction))
	}
}

// customPrompts returns the request's prompts, or the stored ones when the request has none.
func (h *Handler) customPrompts(ctx context.Context, fromBody *prism.CustomPrompts) *prism.CustomPrompts {
	if fromBody != nil || h.Prompts == nil {
		return fromBody
	}
	stored, err := h.Prompts.Get(ctx)
	if err != nil {
		telemetry.Warn("analyses.custom_prompts_unavailable", map[string]any{"error": err})
		return nil
	}
	return stored
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func respondError(c *gin.Context, err error) {
	var ve *prism.ValidationError
	switch {
	case errors.As(err, &ve):
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, ve.Message, nil)
	default:
		respond.Error(c, http.StatusInternalServerError, respond.CodeGeneration, err.Error(), nil)
	}
}
