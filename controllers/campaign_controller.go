// controllers/campaign_controller.go
package controllers

import (
	"memorybox/models"
	"memorybox/services"
	"memorybox/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CampaignController struct {
	campaignService *services.CampaignService
}

func NewCampaignController(campaignService *services.CampaignService) *CampaignController {
	return &CampaignController{
		campaignService: campaignService,
	}
}

// CreateCampaign creates a new campaign in draft status
// @Summary Create campaign
// @Description Create a campaign targeting an audience segment
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body models.CreateCampaignRequest true "Campaign data"
// @Success 201 {object} models.APIResponse{data=models.Campaign}
// @Failure 400 {object} models.APIResponse
// @Router /campaigns [post]
func (cc *CampaignController) CreateCampaign(c *gin.Context) {
	var req models.CreateCampaignRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	campaign, err := cc.campaignService.CreateCampaign(c.Request.Context(), req)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, "Campaign created successfully", campaign)
}

// GetCampaigns lists campaigns
// @Summary List campaigns
// @Tags Campaigns
// @Produce json
// @Param type query string false "Campaign type"
// @Param status query string false "Campaign status"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} models.APIResponse{data=[]models.Campaign}
// @Router /campaigns [get]
func (cc *CampaignController) GetCampaigns(c *gin.Context) {
	req := models.GetCampaignsRequest{
		Type:   c.Query("type"),
		Status: c.Query("status"),
	}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	campaigns, total, err := cc.campaignService.GetCampaigns(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to list campaigns: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(req.Page, req.PageSize, total)
	utils.SuccessResponseWithMeta(c, "Campaigns retrieved", campaigns, meta)
}

// GetCampaign fetches a single campaign
// @Summary Get campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.APIResponse{data=models.Campaign}
// @Failure 404 {object} models.APIResponse
// @Router /campaigns/{id} [get]
func (cc *CampaignController) GetCampaign(c *gin.Context) {
	campaign, err := cc.campaignService.GetCampaign(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign retrieved", campaign)
}

// SendCampaign fans a campaign out to its resolved audience
// @Summary Send campaign
// @Description Resolve the audience and dispatch to every member. Each invocation sends again.
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.APIResponse{data=models.CampaignSendResult}
// @Failure 404 {object} models.APIResponse
// @Failure 501 {object} models.APIResponse
// @Router /campaigns/{id}/send [post]
func (cc *CampaignController) SendCampaign(c *gin.Context) {
	result, err := cc.campaignService.Send(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign sent", result)
}

// ToggleCampaign flips a campaign between active and paused
// @Summary Toggle campaign status
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.APIResponse{data=models.Campaign}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /campaigns/{id}/toggle [post]
func (cc *CampaignController) ToggleCampaign(c *gin.Context) {
	campaign, err := cc.campaignService.ToggleStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign status toggled", campaign)
}

// DeleteCampaign removes a campaign; delivery records are kept
// @Summary Delete campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /campaigns/{id} [delete]
func (cc *CampaignController) DeleteCampaign(c *gin.Context) {
	if err := cc.campaignService.DeleteCampaign(c.Request.Context(), c.Param("id")); err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Campaign deleted successfully", nil)
}
