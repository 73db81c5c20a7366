// controllers/messaging_controller.go
package controllers

import (
	"memorybox/models"
	"memorybox/services"
	"memorybox/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessagingController struct {
	notifyService   *services.NotifyService
	templateService *services.TemplateService
}

func NewMessagingController(notifyService *services.NotifyService, templateService *services.TemplateService) *MessagingController {
	return &MessagingController{
		notifyService:   notifyService,
		templateService: templateService,
	}
}

// Notify dispatches a notification to one or more recipients
// @Summary Send notifications
// @Description Send email, SMS, in-app, or multi-channel notifications to a list of recipients
// @Tags Messaging
// @Accept json
// @Produce json
// @Param request body models.NotifyRequest true "Notification data"
// @Success 200 {object} models.APIResponse{data=models.NotifyResponse}
// @Failure 400 {object} models.APIResponse
// @Failure 501 {object} models.APIResponse
// @Router /messaging/notify [post]
func (mc *MessagingController) Notify(c *gin.Context) {
	var req models.NotifyRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if len(req.Recipients) == 0 {
		utils.BadRequestResponse(c, "At least one recipient is required")
		return
	}

	if req.TemplateID == "" && req.Message == "" {
		utils.BadRequestResponse(c, "Either templateId or message is required")
		return
	}

	if req.ScheduleAt != nil {
		utils.NotImplementedResponse(c, "Scheduled sends are not implemented")
		return
	}

	if req.Type == models.NotifyTypeMultiChannel && len(req.Channels) == 0 {
		utils.BadRequestResponse(c, "Multi-channel notifications require at least one channel")
		return
	}

	var templateID *primitive.ObjectID
	var template *models.Template
	if req.TemplateID != "" {
		id, err := primitive.ObjectIDFromHex(req.TemplateID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid template ID")
			return
		}
		templateID = &id

		template, err = mc.templateService.GetTemplate(c.Request.Context(), req.TemplateID)
		if err != nil {
			utils.ServiceErrorResponse(c, err)
			return
		}
		if !template.Active {
			utils.NotFoundResponse(c, "Active template")
			return
		}
	}

	var campaignID *primitive.ObjectID
	if req.CampaignID != "" {
		id, err := primitive.ObjectIDFromHex(req.CampaignID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid campaign ID")
			return
		}
		campaignID = &id
	}

	response := mc.dispatch(c, req, template, templateID, campaignID)

	if template != nil && response.Sent > 0 {
		mc.templateService.RecordUsage(c.Request.Context(), template)
	}

	utils.SuccessResponse(c, "Notification processed", response)
}

// dispatch fans the request out to each recipient. A failing recipient never
// aborts the loop.
func (mc *MessagingController) dispatch(c *gin.Context, req models.NotifyRequest, template *models.Template, templateID, campaignID *primitive.ObjectID) *models.NotifyResponse {
	ctx := c.Request.Context()
	response := &models.NotifyResponse{
		Results: []models.RecipientResult{},
		Errors:  []models.RecipientFailure{},
	}

	for _, recipient := range req.Recipients {
		vars := recipientVariables(req, recipient)
		subject, body, html := mc.renderContent(req, template, vars)

		switch req.Type {
		case models.NotifyTypeEmail:
			if recipient.Email == "" {
				response.Failed++
				response.Errors = append(response.Errors, models.RecipientFailure{
					UserID: recipient.UserID,
					Error:  "recipient has no email address",
				})
				continue
			}
			result, err := mc.notifyService.SendEmail(ctx, services.EmailMessage{
				To:         recipient.Email,
				Subject:    subject,
				Text:       body,
				HTML:       html,
				TemplateID: templateID,
				CampaignID: campaignID,
				UserID:     recipient.UserID,
			})
			mc.collect(response, recipient, models.ChannelEmail, recipient.Email, result, err)

		case models.NotifyTypeSMS:
			if recipient.Phone == "" {
				response.Failed++
				response.Errors = append(response.Errors, models.RecipientFailure{
					UserID: recipient.UserID,
					Error:  "recipient has no phone number",
				})
				continue
			}
			result, err := mc.notifyService.SendSMS(ctx, services.SMSMessage{
				To:         recipient.Phone,
				Body:       body,
				TemplateID: templateID,
				CampaignID: campaignID,
				UserID:     recipient.UserID,
			})
			mc.collect(response, recipient, models.ChannelSMS, recipient.Phone, result, err)

		case models.NotifyTypeInApp:
			if recipient.UserID == "" {
				response.Failed++
				response.Errors = append(response.Errors, models.RecipientFailure{
					Error: "recipient has no user ID",
				})
				continue
			}
			result, err := mc.notifyService.SendInApp(ctx, services.InAppMessage{
				UserID:     recipient.UserID,
				Title:      subject,
				Body:       body,
				Priority:   req.Priority,
				TemplateID: templateID,
				CampaignID: campaignID,
			})
			mc.collect(response, recipient, models.ChannelInApp, recipient.UserID, result, err)

		case models.NotifyTypeMultiChannel:
			result := mc.notifyService.SendMultiChannel(ctx, services.MultiChannelMessage{
				UserID:     recipient.UserID,
				Email:      recipient.Email,
				Phone:      recipient.Phone,
				Channels:   req.Channels,
				Subject:    subject,
				Body:       body,
				HTMLBody:   html,
				Priority:   req.Priority,
				TemplateID: templateID,
				CampaignID: campaignID,
			})
			if result.Success {
				response.Sent++
			} else {
				response.Failed++
				for _, channelErr := range result.Errors {
					response.Errors = append(response.Errors, models.RecipientFailure{
						UserID:  recipient.UserID,
						Channel: channelErr.Channel,
						Error:   channelErr.Error,
					})
				}
			}
			response.Results = append(response.Results, models.RecipientResult{
				UserID: recipient.UserID,
				Multi:  result,
			})

		default:
			response.Failed++
			response.Errors = append(response.Errors, models.RecipientFailure{
				UserID: recipient.UserID,
				Error:  "unknown notification type: " + req.Type,
			})
		}
	}

	response.Success = true
	return response
}

// collect records the outcome of a single-channel send
func (mc *MessagingController) collect(response *models.NotifyResponse, recipient models.Recipient, channel, to string, result *models.SendResult, err error) {
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"channel": channel,
			"user_id": recipient.UserID,
		}).Warnf("Notification dispatch failed: %v", err)

		response.Failed++
		response.Errors = append(response.Errors, models.RecipientFailure{
			UserID:  recipient.UserID,
			To:      to,
			Channel: channel,
			Error:   err.Error(),
		})
		return
	}

	response.Sent++
	response.Results = append(response.Results, models.RecipientResult{
		UserID:    recipient.UserID,
		To:        to,
		Channel:   channel,
		MessageID: result.MessageID,
	})
}

// renderContent renders subject/body/html for one recipient. Template content
// wins over inline content when both are present.
func (mc *MessagingController) renderContent(req models.NotifyRequest, template *models.Template, vars map[string]string) (subject, body, html string) {
	if template != nil {
		subject = mc.templateService.Render(template.Subject, vars)
		body = mc.templateService.Render(template.Body, vars)
		html = mc.templateService.Render(template.HTML, vars)
		return subject, body, html
	}

	subject = mc.templateService.Render(req.Subject, vars)
	body = mc.templateService.Render(req.Message, vars)
	html = mc.templateService.Render(req.HTMLMessage, vars)
	return subject, body, html
}

// recipientVariables merges recipient variables over request variables, with
// contact fields filled in when the caller did not set them explicitly.
func recipientVariables(req models.NotifyRequest, recipient models.Recipient) map[string]string {
	vars := make(map[string]string, len(req.Variables)+len(recipient.Variables)+3)
	for k, v := range req.Variables {
		vars[k] = v
	}
	for k, v := range recipient.Variables {
		vars[k] = v
	}
	if _, ok := vars["firstName"]; !ok && recipient.FirstName != "" {
		vars["firstName"] = recipient.FirstName
	}
	if _, ok := vars["lastName"]; !ok && recipient.LastName != "" {
		vars["lastName"] = recipient.LastName
	}
	if _, ok := vars["email"]; !ok && recipient.Email != "" {
		vars["email"] = recipient.Email
	}
	return vars
}

// Status reports per-channel configuration health
// @Summary Messaging status
// @Description Report which channels are enabled and correctly configured
// @Tags Messaging
// @Produce json
// @Success 200 {object} models.APIResponse{data=models.ProviderStatus}
// @Router /messaging/notify [get]
func (mc *MessagingController) Status(c *gin.Context) {
	status := mc.notifyService.Status()
	utils.SuccessResponse(c, "Messaging status retrieved", status)
}

// GetMessages lists delivery records
// @Summary List delivery records
// @Description List message delivery records with optional filters
// @Tags Messaging
// @Produce json
// @Param type query string false "Channel filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} models.APIResponse{data=[]models.MessageRecord}
// @Router /messaging/messages [get]
func (mc *MessagingController) GetMessages(c *gin.Context) {
	req := models.GetMessagesRequest{
		Type:       c.Query("type"),
		Status:     c.Query("status"),
		UserID:     c.Query("userId"),
		CampaignID: c.Query("campaignId"),
	}
	req.Days, _ = strconv.Atoi(c.DefaultQuery("days", "0"))
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	records, total, err := mc.notifyService.GetMessages(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to list messages: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(req.Page, req.PageSize, total)
	utils.SuccessResponseWithMeta(c, "Messages retrieved", records, meta)
}

// RetryMessage re-dispatches a failed delivery record
// @Summary Retry a failed message
// @Description Create a new delivery attempt for a failed message
// @Tags Messaging
// @Produce json
// @Param id path string true "Message ID"
// @Success 200 {object} models.APIResponse{data=models.SendResult}
// @Failure 400 {object} models.APIResponse
// @Failure 404 {object} models.APIResponse
// @Router /messaging/messages/{id}/retry [post]
func (mc *MessagingController) RetryMessage(c *gin.Context) {
	id := c.Param("id")

	result, err := mc.notifyService.RetryMessage(c.Request.Context(), id)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Message retried", result)
}
