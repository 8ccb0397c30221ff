package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/peterskelv123-tech/backend-offline/internal/response"
	"github.com/peterskelv123-tech/backend-offline/internal/service"
	"github.com/rs/zerolog"
)

// DashboardHandler handles admin dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboardData godoc
// GET /dashboard
// Returns the stat cards, the live session count and the latest scored exams.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	data, err := h.dashboardService.GetDashboardData(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, "Dashboard retrieved successfully", data)
}
