// controllers/analytics_controller.go
package controllers

import (
	"memorybox/models"
	"memorybox/services"
	"memorybox/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type AnalyticsController struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsController(analyticsService *services.AnalyticsService) *AnalyticsController {
	return &AnalyticsController{
		analyticsService: analyticsService,
	}
}

// windowDays parses the trailing-window query parameter, defaulting to 30 days
func windowDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days < 1 {
		return 30
	}
	if days > 365 {
		return 365
	}
	return days
}

// GetOverview returns aggregate delivery metrics for the window
// @Summary Delivery overview
// @Description Aggregate sent/delivered/opened/clicked/failed counts and rates
// @Tags Analytics
// @Produce json
// @Param days query int false "Trailing window in days (default 30)"
// @Success 200 {object} models.APIResponse{data=models.DeliveryOverview}
// @Router /analytics/overview [get]
func (ac *AnalyticsController) GetOverview(c *gin.Context) {
	overview, err := ac.analyticsService.Overview(c.Request.Context(), windowDays(c))
	if err != nil {
		logrus.Errorf("Failed to compute delivery overview: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Delivery overview retrieved", overview)
}

// GetTrend returns per-day engagement counts for the window
// @Summary Daily engagement trend
// @Description Per-day counts for the trailing window, oldest first, zero-filled
// @Tags Analytics
// @Produce json
// @Param days query int false "Trailing window in days (default 30)"
// @Success 200 {object} models.APIResponse{data=[]models.DailyTrendPoint}
// @Router /analytics/trend [get]
func (ac *AnalyticsController) GetTrend(c *gin.Context) {
	trend, err := ac.analyticsService.DailyTrend(c.Request.Context(), windowDays(c))
	if err != nil {
		logrus.Errorf("Failed to compute daily trend: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Daily trend retrieved", trend)
}

// GetCampaignsAnalytics returns per-campaign performance
// @Summary Campaign analytics
// @Tags Analytics
// @Produce json
// @Param status query string false "Campaign status filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} models.APIResponse{data=[]models.CampaignAnalytics}
// @Router /analytics/campaigns [get]
func (ac *AnalyticsController) GetCampaignsAnalytics(c *gin.Context) {
	req := models.GetCampaignsRequest{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	analytics, total, err := ac.analyticsService.CampaignsAnalytics(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to compute campaign analytics: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(req.Page, req.PageSize, total)
	utils.SuccessResponseWithMeta(c, "Campaign analytics retrieved", analytics, meta)
}

// GetCampaignAnalytics returns performance for one campaign
// @Summary Single campaign analytics
// @Tags Analytics
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.APIResponse{data=models.CampaignAnalytics}
// @Failure 404 {object} models.APIResponse
// @Router /analytics/campaigns/{id} [get]
func (ac *AnalyticsController) GetCampaignAnalytics(c *gin.Context) {
	analytics, err := ac.analyticsService.CampaignAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign analytics retrieved", analytics)
}

// GetChannelBreakdown returns per-channel message volume
// @Summary Channel breakdown
// @Description Message counts per channel for the trailing window
// @Tags Analytics
// @Produce json
// @Param days query int false "Trailing window in days (default 30)"
// @Success 200 {object} models.APIResponse{data=models.ChannelBreakdown}
// @Router /analytics/channels [get]
func (ac *AnalyticsController) GetChannelBreakdown(c *gin.Context) {
	breakdown, err := ac.analyticsService.ChannelBreakdown(c.Request.Context(), windowDays(c))
	if err != nil {
		logrus.Errorf("Failed to compute channel breakdown: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Channel breakdown retrieved", breakdown)
}
