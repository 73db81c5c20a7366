// controllers/notification_controller.go
package controllers

import (
	"memorybox/middleware"
	"memorybox/models"
	"memorybox/services"
	"memorybox/utils"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type NotificationController struct {
	inAppService *services.InAppService
}

func NewNotificationController(inAppService *services.InAppService) *NotificationController {
	return &NotificationController{
		inAppService: inAppService,
	}
}

// GetNotifications lists the current user's in-app notifications
// @Summary List notifications
// @Description List in-app notifications for the authenticated user
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Only unread notifications"
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} models.APIResponse{data=[]models.Notification}
// @Failure 401 {object} models.APIResponse
// @Router /notifications [get]
func (nc *NotificationController) GetNotifications(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	req := models.GetNotificationsRequest{
		UserID: userID,
		Unread: c.Query("unread") == "true",
	}
	req.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	req.PageSize, _ = strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	notifications, total, err := nc.inAppService.GetNotifications(c.Request.Context(), req)
	if err != nil {
		logrus.Errorf("Failed to list notifications: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	meta := utils.CreatePaginationMeta(req.Page, req.PageSize, total)
	utils.SuccessResponseWithMeta(c, "Notifications retrieved", notifications, meta)
}

// GetUnreadCount returns the user's unread notification count
// @Summary Unread count
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /notifications/unread-count [get]
func (nc *NotificationController) GetUnreadCount(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	count, err := nc.inAppService.CountUnread(c.Request.Context(), userID)
	if err != nil {
		logrus.Errorf("Failed to count unread notifications: %v", err)
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Unread count retrieved", gin.H{"count": count})
}

// MarkRead marks specific notifications as read
// @Summary Mark notifications read
// @Tags Notifications
// @Accept json
// @Produce json
// @Param request body models.MarkNotificationsReadRequest true "Notification IDs"
// @Success 200 {object} models.APIResponse
// @Failure 400 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /notifications/mark-read [post]
func (nc *NotificationController) MarkRead(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req models.MarkNotificationsReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body")
		return
	}

	if len(req.NotificationIDs) == 0 {
		utils.BadRequestResponse(c, "At least one notification ID is required")
		return
	}

	modified, err := nc.inAppService.MarkRead(c.Request.Context(), userID, req.NotificationIDs)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "Notifications marked read", gin.H{"modified": modified})
}

// MarkAllRead marks every unread notification as read
// @Summary Mark all notifications read
// @Tags Notifications
// @Produce json
// @Success 200 {object} models.APIResponse
// @Failure 401 {object} models.APIResponse
// @Router /notifications/mark-all-read [post]
func (nc *NotificationController) MarkAllRead(c *gin.Context) {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}

	modified, err := nc.inAppService.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		utils.ServiceErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, "All notifications marked read", gin.H{"modified": modified})
}
