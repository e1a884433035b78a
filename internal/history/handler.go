package history

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"prism-backend/internal/shared/server/respond"
	"prism-backend/internal/shared/util"
)

// Handler serves run history.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches history routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/runs", h.list)
	rg.DELETE("/runs", h.clear)
	rg.GET("/runs/:id", h.get)
	rg.DELETE("/runs/:id", h.delete)
	rg.GET("/runs/:id/export", h.export)
}

func (h *Handler) list(c *gin.Context) {
	runs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to list runs", nil)
		return
	}
	respond.OK(c, runs)
}

func (h *Handler) get(c *gin.Context) {
	run, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err, "failed to fetch run")
		return
	}
	respond.OK(c, run)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.Svc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err, "failed to delete run")
		return
	}
	respond.NoContent(c)
}

func (h *Handler) clear(c *gin.Context) {
	if err := h.Svc.Clear(c.Request.Context()); err != nil {
		respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, "failed to clear runs", nil)
		return
	}
	respond.NoContent(c)
}

func (h *Handler) export(c *gin.Context) {
	id := c.Param("id")
	run, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err, "failed to export run")
		return
	}
	md := MarkdownReport(run.Result, run.Timestamp)
	name := fmt.Sprintf("PRISM_%s_%s.md", util.SafeFileName(run.Input.ProductName, "report"), run.Timestamp.UTC().Format("2006-01-02"))
	respond.Markdown(c, name, md)
}

func (h *Handler) fail(c *gin.Context, err error, msg string) {
	if errors.Is(err, ErrNotFound) {
		respond.Error(c, http.StatusNotFound, respond.CodeNotFound, "run not found", nil)
		return
	}
	respond.Error(c, http.StatusInternalServerError, respond.CodeInternal, msg, nil)
}
