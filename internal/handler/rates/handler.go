package rates

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/claritydx/feesched-api/internal/service/query"
)

var stateCodePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Handler serves the commercial-rate lookup surface. The response body is a
// bare JSON array of observations; an unknown key is an empty array, not an
// error.
type Handler struct {
	svc query.QueryServicer
}

func NewHandler(svc query.QueryServicer) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/rates/:state/:procedure_code", h.GetRates)
	r.GET("/stats", h.GetStats)
}

func (h *Handler) GetRates(c *gin.Context) {
	state := strings.ToUpper(c.Param("state"))
	if !stateCodePattern.MatchString(state) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state must be a two-letter code"})
		return
	}

	procedureCode := c.Param("procedure_code")
	if procedureCode == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "procedure code is required"})
		return
	}

	observations, err := h.svc.Query(c.Request.Context(), state, procedureCode)
	if err != nil {
		// Refresh failures never reach here; only a dead store does. The
		// message stays generic, the wrapped cause stays server-side.
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rate store unavailable"})
		return
	}

	c.JSON(http.StatusOK, observations)
}

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rate store unavailable"})
		return
	}

	c.JSON(http.StatusOK, stats)
}
