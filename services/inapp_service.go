// services/inapp_service.go
package services

import (
	"context"
	"fmt"

	"memorybox/config"
	"memorybox/models"
	"memorybox/repositories"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// RealtimePusher delivers a payload to a connected user over websocket.
// Returns false when the user has no live connection.
type RealtimePusher interface {
	SendToUser(userID string, event string, payload interface{}) bool
}

// InAppService creates the user-visible notification document and pushes it
// to the user's open connections and registered device. Persistence is the
// delivery; websocket and FCM pushes are best effort on top.
type InAppService struct {
	notificationRepo *repositories.NotificationRepository
	userRepo         *repositories.UserRepository
	pusher           RealtimePusher
	fcmClient        *messaging.Client
}

func NewInAppService(
	cfg *config.MessagingConfig,
	notificationRepo *repositories.NotificationRepository,
	userRepo *repositories.UserRepository,
	pusher RealtimePusher,
) *InAppService {
	is := &InAppService{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		pusher:           pusher,
	}

	if cfg.FirebaseCredentialsPath != "" {
		client, err := newFCMClient(cfg)
		if err != nil {
			logrus.Warnf("Firebase push disabled: %v", err)
		} else {
			is.fcmClient = client
		}
	}

	return is
}

func newFCMClient(cfg *config.MessagingConfig) (*messaging.Client, error) {
	opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)

	app, err := firebase.NewApp(context.Background(), &firebase.Config{
		ProjectID: cfg.FirebaseProjectID,
	}, opt)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase: %w", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %w", err)
	}

	return client, nil
}

// Deliver creates the notification document and fans the push out. The
// returned notification carries its TTL-derived expiry.
func (is *InAppService) Deliver(ctx context.Context, userID, title, body string, data map[string]string, priority string) (*models.Notification, error) {
	if priority == "" {
		priority = models.PriorityNormal
	}

	notification := &models.Notification{
		UserID:   userID,
		Title:    title,
		Body:     body,
		Data:     data,
		Priority: priority,
	}

	if err := is.notificationRepo.Create(ctx, notification); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	is.pushRealtime(notification)
	is.pushDevice(ctx, notification)

	return notification, nil
}

func (is *InAppService) pushRealtime(notification *models.Notification) {
	if is.pusher == nil {
		return
	}

	if is.pusher.SendToUser(notification.UserID, "notification", notification) {
		logrus.Debugf("Pushed notification %s to live connection of user %s",
			notification.ID.Hex(), notification.UserID)
	}
}

func (is *InAppService) pushDevice(ctx context.Context, notification *models.Notification) {
	if is.fcmClient == nil {
		return
	}

	user, err := is.userRepo.GetByID(ctx, notification.UserID)
	if err != nil || user.DeviceToken == "" {
		return
	}

	message := &messaging.Message{
		Token: user.DeviceToken,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	}

	response, err := is.fcmClient.Send(ctx, message)
	if err != nil {
		logrus.Warnf("FCM push failed for user %s: %v", notification.UserID, err)
		return
	}

	logrus.Debugf("FCM push sent for user %s: %s", notification.UserID, response)
}

// Read-side operations backing the mobile app surface.

func (is *InAppService) GetNotifications(ctx context.Context, req models.GetNotificationsRequest) ([]models.Notification, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	return is.notificationRepo.ListByUser(ctx, req)
}

func (is *InAppService) CountUnread(ctx context.Context, userID string) (int64, error) {
	return is.notificationRepo.CountUnread(ctx, userID)
}

func (is *InAppService) MarkRead(ctx context.Context, userID string, ids []string) (int64, error) {
	return is.notificationRepo.MarkRead(ctx, userID, ids)
}

func (is *InAppService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return is.notificationRepo.MarkRead(ctx, userID, nil)
}
