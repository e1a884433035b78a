package settings

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/prism"
	"prism-backend/internal/shared/server/respond"
)

// MsgUnknownPlaceholders is the client-facing message for unfillable overrides.
const MsgUnknownPlaceholders = "テンプレートに未知のプレースホルダーが含まれています。"

// Handler serves the prompt settings endpoints.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches settings routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings/prompts", h.get)
	rg.PUT("/settings/prompts", h.save)
	rg.DELETE("/settings/prompts", h.reset)
	rg.GET("/settings/prompts/defaults", h.defaults)
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.Svc.Get(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to load prompts", nil)
		return
	}
	respond.OK(c, gin.H{"prompts": p})
}

func (h *Handler) save(c *gin.Context) {
	var p prism.CustomPrompts
	if err := c.ShouldBindJSON(&p); err != nil {
		respond.Error(c, http.StatusBadRequest, respond.CodeValidation, prism.MsgInvalidRequest, nil)
		return
	}
	if err := h.Svc.Save(c.Request.Context(), p); err != nil {
		var pe *PlaceholderError
		if errors.As(err, &pe) {
			respond.Error(c, http.StatusBadRequest, respond.CodeValidation, MsgUnknownPlaceholders, gin.H{"unknown": pe.Unknown})
			return
		}
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to save prompts", nil)
		return
	}
	stored, err := h.Svc.Get(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to load prompts", nil)
		return
	}
	respond.OK(c, gin.H{"prompts": stored})
}

func (h *Handler) reset(c *gin.Context) {
	if err := h.Svc.Reset(c.Request.Context()); err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to reset prompts", nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) defaults(c *gin.Context) {
	respond.OK(c, gin.H{"templates": h.Svc.Defaults()})
}
