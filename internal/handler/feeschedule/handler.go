package feeschedule

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/claritydx/feesched-api/pkg/errors"

	"github.com/claritydx/feesched-api/internal/handler"
	"github.com/claritydx/feesched-api/internal/service/resolver"
)

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Handler serves fee schedule and Medicare-derived rate lookups. Lookup
// misses are structured 404s; only infrastructure failures become 5xx.
type Handler struct {
	svc resolver.RateResolver
}

func NewHandler(svc resolver.RateResolver) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/feeschedule/:state/:procedure_code", h.GetRate)
}

func (h *Handler) GetRate(c *gin.Context) {
	state := strings.ToUpper(c.Param("state"))
	if !stateCodePattern.MatchString(state) {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("state must be a two-letter code"))
		return
	}

	req := resolver.ResolveRequest{
		StateCode:     state,
		Zip:           c.Query("zip"),
		ProcedureCode: c.Param("procedure_code"),
		ScheduleType:  c.Query("schedule_type"),
	}

	if m := c.Query("modifier"); m != "" {
		req.Modifier = &m
	}

	if d := c.Query("date"); d != "" {
		asOf, err := time.Parse("2006-01-02", d)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("date must be YYYY-MM-DD"))
			return
		}
		req.AsOf = asOf
	}

	result, err := h.svc.Resolve(c.Request.Context(), req)
	if err != nil {
		if apperrors.IsNotFoundClass(err) {
			c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, handler.NewErrorResponse("internal server error"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(result))
}
