package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/marketplace-service/internal/services"
	"github.com/SAP-F-2025/marketplace-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	dashboardService services.DashboardService
}

func NewDashboardHandler(dashboardService services.DashboardService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler:      NewBaseHandler(logger),
		dashboardService: dashboardService,
	}
}

// GetStats returns catalog and sales totals
// @Summary Dashboard statistics
// @Tags admin
// @Produce json
// @Param period query int false "Trend window in days (default: 30)"
// @Success 200 {object} services.DashboardStatsResponse
// @Failure 403 {object} ErrorResponse
// @Router /admin/dashboard/stats [get]
func (h *DashboardHandler) GetStats(c *gin.Context) {
	period, _ := strconv.Atoi(c.Query("period"))

	stats, err := h.dashboardService.GetDashboardStats(c.Request.Context(), h.principal(c), period)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GetSalesTrends returns paid orders and revenue per bucket
// @Summary Sales trends
// @Tags admin
// @Produce json
// @Param period query string false "week, month or year (default: month)"
// @Success 200 {array} services.SalesTrendResponse
// @Failure 400 {object} ErrorResponse
// @Router /admin/dashboard/trends [get]
func (h *DashboardHandler) GetSalesTrends(c *gin.Context) {
	trends, err := h.dashboardService.GetSalesTrends(c.Request.Context(), h.principal(c), c.Query("period"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

// GetTopSellingCourses ranks courses by units sold
// @Summary Top selling courses
// @Tags admin
// @Produce json
// @Param limit query int false "Number of courses (default: 5, max: 20)"
// @Success 200 {array} repositories.CourseSalesData
// @Router /admin/dashboard/top-courses [get]
func (h *DashboardHandler) GetTopSellingCourses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	courses, err := h.dashboardService.GetTopSellingCourses(c.Request.Context(), h.principal(c), limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}
