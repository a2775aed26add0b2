package handler

import (
	"github.com/gin-gonic/gin"

	formsapp "github.com/formbox/backend/internal/application/forms"
)

// AnalyticsHandler handles per-form analytics requests
type AnalyticsHandler struct {
	BaseHandler
	analyticsService *formsapp.AnalyticsService
}

// NewAnalyticsHandler creates a new AnalyticsHandler
func NewAnalyticsHandler(analyticsService *formsapp.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Stats handles GET /forms/:table/analytics
func (h *AnalyticsHandler) Stats(c *gin.Context) {
	resp, err := h.analyticsService.Stats(c.Request.Context(), c.Param("table"))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, resp)
}
