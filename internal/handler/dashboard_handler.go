package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritmo-app/ritmo-api/internal/service"
	"github.com/ritmo-app/ritmo-api/pkg/response"
)

// DashboardHandler exposes the month-at-a-glance summary endpoint.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Summary godoc
// @Summary Dashboard summary
// @Description Settled and expected income, expenses, active counts and sessions held
// @Tags Dashboard
// @Produce json
// @Param month query int false "Month (1-12), defaults to current"
// @Param year query int false "Year, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.dashboard.Summary(c.Request.Context(), parseIntQuery(c, "month", 0), parseIntQuery(c, "year", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
