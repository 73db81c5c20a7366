// controllers/webhook_controller.go
package controllers

import (
	"memorybox/services"
	"memorybox/utils"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// transparentPixel is a 1x1 transparent GIF served by the open-tracking
// endpoint.
var transparentPixel = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x80, 0x00,
	0x00, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0x21, 0xf9, 0x04, 0x01, 0x00,
	0x00, 0x00, 0x00, 0x2c, 0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00,
	0x00, 0x02, 0x02, 0x44, 0x01, 0x00, 0x3b,
}

type WebhookController struct {
	webhookService *services.WebhookService
}

func NewWebhookController(webhookService *services.WebhookService) *WebhookController {
	return &WebhookController{
		webhookService: webhookService,
	}
}

// TwilioStatus ingests Twilio delivery status callbacks
// @Summary Twilio status callback
// @Description Update the matching delivery record from a Twilio status callback
// @Tags Webhooks
// @Accept x-www-form-urlencoded
// @Produce json
// @Param MessageSid formData string true "Twilio message SID"
// @Param MessageStatus formData string true "Delivery status"
// @Param ErrorCode formData string false "Twilio error code"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /webhooks/twilio/status [post]
func (wc *WebhookController) TwilioStatus(c *gin.Context) {
	messageSid := c.PostForm("MessageSid")
	messageStatus := c.PostForm("MessageStatus")
	errorCode := c.PostForm("ErrorCode")

	if messageSid == "" || messageStatus == "" {
		utils.BadRequestResponse(c, "MessageSid and MessageStatus are required")
		return
	}

	if err := wc.webhookService.HandleTwilioStatus(c.Request.Context(), messageSid, messageStatus, errorCode); err != nil {
		// Unknown SIDs are acknowledged so Twilio stops retrying
		if utils.IsNotFoundError(err) {
			logrus.WithField("message_sid", messageSid).Debug("Twilio callback for unknown message")
			utils.SuccessResponse(c, "Callback acknowledged", nil)
			return
		}
		logrus.Errorf("Failed to process Twilio status callback: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Callback processed", nil)
}

// SendGridEvents ingests SendGrid event webhook batches
// @Summary SendGrid event webhook
// @Description Apply delivered/open/click/bounce events to delivery records
// @Tags Webhooks
// @Accept json
// @Produce json
// @Param events body []services.SendGridEvent true "Event batch"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Router /webhooks/sendgrid/events [post]
func (wc *WebhookController) SendGridEvents(c *gin.Context) {
	var events []services.SendGridEvent

	if err := c.ShouldBindJSON(&events); err != nil {
		utils.BadRequestResponse(c, "Invalid event payload")
		return
	}

	applied := wc.webhookService.HandleSendGridEvents(c.Request.Context(), events)

	utils.SuccessResponse(c, "Events processed", gin.H{
		"received": len(events),
		"applied":  applied,
	})
}

// OpenPixel serves the open-tracking pixel and records the open
// @Summary Open-tracking pixel
// @Description Serve a 1x1 transparent GIF and mark the matching email opened
// @Tags Webhooks
// @Produce image/gif
// @Param token path string true "Tracking token"
// @Success 200 {file} binary
// @Router /t/o/{token} [get]
func (wc *WebhookController) OpenPixel(c *gin.Context) {
	token := c.Param("token")
	if token != "" {
		wc.webhookService.HandleOpenPixel(c.Request.Context(), token)
	}

	// The pixel is served unconditionally so broken tokens render fine in
	// email clients
	c.Header("Cache-Control", "no-store, no-cache, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Data(http.StatusOK, "image/gif", transparentPixel)
}
