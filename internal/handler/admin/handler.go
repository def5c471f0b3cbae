package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/config"
	"github.com/claritydx/feesched-api/internal/handler"
	"github.com/claritydx/feesched-api/internal/service/admin"
	"github.com/claritydx/feesched-api/internal/service/importer"
)

type Handler struct {
	svc      admin.AdminServicer
	importer *importer.Service
	cfg      config.ImporterConfig
}

func NewHandler(svc admin.AdminServicer, imp *importer.Service, cfg config.ImporterConfig) *Handler {
	return &Handler{svc: svc, importer: imp, cfg: cfg}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	group := r.Group("/admin")
	{
		group.DELETE("/states", h.PurgeStates)
		group.POST("/import", h.Import)
	}
}

// PurgeStates removes all fee schedule data for the given states. The body
// lists two-letter codes; anything else is rejected before touching the
// database.
func (h *Handler) PurgeStates(c *gin.Context) {
	var req struct {
		States []string `json:"states" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	deleted, err := h.svc.PurgeStates(c.Request.Context(), req.States)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrBadRequest {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("purge failed"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"deleted": deleted}))
}

// Import accepts a CSV upload named like the drop files, or, with no file,
// drains the configured drop folder.
func (h *Handler) Import(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		if err := h.importer.ProcessPending(c.Request.Context(), h.cfg.DropDir, h.cfg.ProcessedDir, h.cfg.ErrorDir); err != nil {
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusOK, handler.NewSuccessResponse("drop folder processed"))
		return
	}

	stateCode, scheduleType, err := importer.ParseFilename(file.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}
	defer src.Close()

	imported, err := h.importer.ImportReader(c.Request.Context(), src, stateCode, scheduleType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"state":         stateCode,
		"schedule_type": scheduleType,
		"rows":          imported,
	}))
}
