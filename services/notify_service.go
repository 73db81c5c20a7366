// services/notify_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"memorybox/config"
	"memorybox/models"
	"memorybox/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageStore is the slice of the delivery-record repository the dispatcher
// needs. *repositories.MessageRepository satisfies it.
type MessageStore interface {
	Create(ctx context.Context, record *models.MessageRecord) error
	GetByID(ctx context.Context, id string) (*models.MessageRecord, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
	MarkSent(ctx context.Context, id primitive.ObjectID, providerMessageID, providerResponse string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error
	List(ctx context.Context, req models.GetMessagesRequest) ([]models.MessageRecord, int64, error)
}

// CampaignStatsStore rolls dispatch outcomes into campaign counters.
type CampaignStatsStore interface {
	IncrementStats(ctx context.Context, id primitive.ObjectID, deltas map[string]int64) error
}

// InAppDeliverer creates the user-visible notification and pushes it.
type InAppDeliverer interface {
	Deliver(ctx context.Context, userID, title, body string, data map[string]string, priority string) (*models.Notification, error)
}

// EmailMessage is one rendered email ready to dispatch.
type EmailMessage struct {
	To      string
	Subject string
	Text    string
	HTML    string

	TemplateID *primitive.ObjectID
	CampaignID *primitive.ObjectID
	UserID     string
	RetriesOf  *primitive.ObjectID
}

// SMSMessage is one rendered SMS ready to dispatch.
type SMSMessage struct {
	To   string
	Body string

	TemplateID *primitive.ObjectID
	CampaignID *primitive.ObjectID
	UserID     string
	RetriesOf  *primitive.ObjectID
}

// InAppMessage is one in-app notification ready to dispatch.
type InAppMessage struct {
	UserID   string
	Title    string
	Body     string
	Data     map[string]string
	Priority string

	TemplateID *primitive.ObjectID
	CampaignID *primitive.ObjectID
	RetriesOf  *primitive.ObjectID
}

// MultiChannelMessage fans one rendered message out over a channel subset.
type MultiChannelMessage struct {
	UserID   string
	Email    string
	Phone    string
	Channels []string

	Subject  string
	Body     string
	HTMLBody string
	Data     map[string]string
	Priority string

	TemplateID *primitive.ObjectID
	CampaignID *primitive.ObjectID
}

// NotifyService turns one rendered message + one channel + one recipient into
// exactly one delivery attempt with a durable audit trail. The pending record
// is always written before the provider is called, so a crash mid-send still
// leaves an auditable trace.
type NotifyService struct {
	cfg          *config.MessagingConfig
	messageStore MessageStore
	campaigns    CampaignStatsStore
	email        EmailProvider
	sms          SMSProvider
	inApp        InAppDeliverer
	limiters     map[string]*utils.ChannelLimiter
}

func NewNotifyService(
	cfg *config.MessagingConfig,
	messageStore MessageStore,
	campaigns CampaignStatsStore,
	email EmailProvider,
	sms SMSProvider,
	inApp InAppDeliverer,
) *NotifyService {
	limiters := make(map[string]*utils.ChannelLimiter, len(cfg.RateLimits))
	for channel, limit := range cfg.RateLimits {
		limiters[channel] = utils.NewChannelLimiter(limit.PerMinute, limit.PerHour, limit.PerDay)
	}

	return &NotifyService{
		cfg:          cfg,
		messageStore: messageStore,
		campaigns:    campaigns,
		email:        email,
		sms:          sms,
		inApp:        inApp,
		limiters:     limiters,
	}
}

// Status reports per-channel readiness for the messaging health endpoint.
func (ns *NotifyService) Status() models.ProviderStatus {
	status := models.ProviderStatus{
		Email:  ns.cfg.EmailEnabled && ns.cfg.SendGridAPIKey != "",
		SMS:    ns.cfg.SMSEnabled && ns.cfg.TwilioAccountSID != "",
		InApp:  ns.cfg.InAppEnabled,
		Errors: []string{},
	}

	for _, err := range ns.cfg.Validate() {
		status.Errors = append(status.Errors, err.Error())
	}

	return status
}

// SendEmail dispatches one email. The channel guard fails before any record
// is written; every later failure is recorded on the pending record.
func (ns *NotifyService) SendEmail(ctx context.Context, msg EmailMessage) (*models.SendResult, error) {
	if !ns.cfg.EmailEnabled {
		return nil, utils.NewConfigurationError("email channel is disabled")
	}
	if ns.cfg.SendGridAPIKey == "" {
		return nil, utils.NewConfigurationError("email channel has no SendGrid credentials")
	}

	record := &models.MessageRecord{
		Type:       models.ChannelEmail,
		To:         msg.To,
		TemplateID: msg.TemplateID,
		CampaignID: msg.CampaignID,
		UserID:     msg.UserID,
		RetriesOf:  msg.RetriesOf,
		Status:     models.MessageStatusPending,
		Provider:   models.ProviderSendGrid,
		Email: &models.EmailDetails{
			Subject: msg.Subject,
			Text:    msg.Text,
			HTML:    msg.HTML,
		},
	}

	html := msg.HTML
	if ns.cfg.OpenTrackingEnabled && html != "" {
		record.TrackingToken = uuid.NewString()
		html += fmt.Sprintf(
			`<img src="%s/t/o/%s" width="1" height="1" alt="" style="display:none"/>`,
			strings.TrimSuffix(ns.cfg.TrackingBaseURL, "/"), record.TrackingToken,
		)
	}

	if err := ns.messageStore.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create delivery record: %w", err)
	}

	if !ns.allow(models.ChannelEmail) {
		return nil, ns.fail(ctx, record, utils.NewRateLimitError(models.ChannelEmail))
	}

	providerMessageID, err := ns.email.Send(ctx, msg.To, msg.Subject, msg.Text, html)
	if err != nil {
		return nil, ns.fail(ctx, record, err)
	}

	if err := ns.messageStore.MarkSent(ctx, record.ID, providerMessageID, "accepted"); err != nil {
		logrus.Errorf("Failed to mark message %s sent: %v", record.ID.Hex(), err)
	}
	ns.bumpCampaign(ctx, record.CampaignID, "sent")

	return &models.SendResult{
		Success:           true,
		MessageID:         record.ID.Hex(),
		ProviderMessageID: providerMessageID,
	}, nil
}

// SendSMS dispatches one SMS through Twilio with the same record-then-act
// ordering as email.
func (ns *NotifyService) SendSMS(ctx context.Context, msg SMSMessage) (*models.SendResult, error) {
	if !ns.cfg.SMSEnabled {
		return nil, utils.NewConfigurationError("sms channel is disabled")
	}
	if ns.cfg.TwilioAccountSID == "" || ns.cfg.TwilioAuthToken == "" {
		return nil, utils.NewConfigurationError("sms channel has no Twilio credentials")
	}

	record := &models.MessageRecord{
		Type:       models.ChannelSMS,
		To:         msg.To,
		TemplateID: msg.TemplateID,
		CampaignID: msg.CampaignID,
		UserID:     msg.UserID,
		RetriesOf:  msg.RetriesOf,
		Status:     models.MessageStatusPending,
		Provider:   models.ProviderTwilio,
		SMS: &models.SMSDetails{
			Body: msg.Body,
		},
	}

	if err := ns.messageStore.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create delivery record: %w", err)
	}

	if !ns.allow(models.ChannelSMS) {
		return nil, ns.fail(ctx, record, utils.NewRateLimitError(models.ChannelSMS))
	}

	providerMessageID, err := ns.sms.Send(ctx, msg.To, msg.Body)
	if err != nil {
		return nil, ns.fail(ctx, record, err)
	}

	if err := ns.messageStore.MarkSent(ctx, record.ID, providerMessageID, "accepted"); err != nil {
		logrus.Errorf("Failed to mark message %s sent: %v", record.ID.Hex(), err)
	}
	ns.bumpCampaign(ctx, record.CampaignID, "sent")

	return &models.SendResult{
		Success:           true,
		MessageID:         record.ID.Hex(),
		ProviderMessageID: providerMessageID,
	}, nil
}

// SendInApp creates both the user-visible notification and its delivery
// record. In-app delivery is local and synchronous, so a successful attempt
// lands directly on delivered.
func (ns *NotifyService) SendInApp(ctx context.Context, msg InAppMessage) (*models.SendResult, error) {
	if !ns.cfg.InAppEnabled {
		return nil, utils.NewConfigurationError("in-app channel is disabled")
	}

	record := &models.MessageRecord{
		Type:       models.ChannelInApp,
		To:         msg.UserID,
		TemplateID: msg.TemplateID,
		CampaignID: msg.CampaignID,
		UserID:     msg.UserID,
		RetriesOf:  msg.RetriesOf,
		Status:     models.MessageStatusPending,
		Provider:   models.ProviderFirebase,
		InApp: &models.InAppDetails{
			Title: msg.Title,
			Body:  msg.Body,
		},
	}

	if err := ns.messageStore.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create delivery record: %w", err)
	}

	if !ns.allow(models.ChannelInApp) {
		return nil, ns.fail(ctx, record, utils.NewRateLimitError(models.ChannelInApp))
	}

	notification, err := ns.inApp.Deliver(ctx, msg.UserID, msg.Title, msg.Body, msg.Data, msg.Priority)
	if err != nil {
		return nil, ns.fail(ctx, record, err)
	}

	now := time.Now()
	err = ns.messageStore.Update(ctx, record.ID, bson.M{
		"status":               models.MessageStatusDelivered,
		"sentAt":               now,
		"deliveredAt":          now,
		"inApp.notificationId": notification.ID.Hex(),
	})
	if err != nil {
		logrus.Errorf("Failed to mark message %s delivered: %v", record.ID.Hex(), err)
	}
	ns.bumpCampaign(ctx, record.CampaignID, "sent", "delivered")

	return &models.SendResult{
		Success:        true,
		MessageID:      record.ID.Hex(),
		NotificationID: notification.ID.Hex(),
	}, nil
}

// SendMultiChannel attempts each requested channel the recipient has contact
// info for. Channels fail independently; the aggregate is success only when
// zero errors occurred.
func (ns *NotifyService) SendMultiChannel(ctx context.Context, msg MultiChannelMessage) *models.MultiChannelResult {
	result := &models.MultiChannelResult{
		Errors: []models.ChannelError{},
	}

	for _, channel := range msg.Channels {
		switch channel {
		case models.ChannelEmail:
			if msg.Email == "" {
				logrus.Debugf("Skipping email channel for user %s: no address", msg.UserID)
				continue
			}
			sendResult, err := ns.SendEmail(ctx, EmailMessage{
				To:         msg.Email,
				Subject:    msg.Subject,
				Text:       msg.Body,
				HTML:       msg.HTMLBody,
				TemplateID: msg.TemplateID,
				CampaignID: msg.CampaignID,
				UserID:     msg.UserID,
			})
			if err != nil {
				result.Errors = append(result.Errors, models.ChannelError{Channel: channel, Error: err.Error()})
				continue
			}
			result.Results.Email = sendResult

		case models.ChannelSMS:
			if msg.Phone == "" {
				logrus.Debugf("Skipping sms channel for user %s: no phone", msg.UserID)
				continue
			}
			sendResult, err := ns.SendSMS(ctx, SMSMessage{
				To:         msg.Phone,
				Body:       msg.Body,
				TemplateID: msg.TemplateID,
				CampaignID: msg.CampaignID,
				UserID:     msg.UserID,
			})
			if err != nil {
				result.Errors = append(result.Errors, models.ChannelError{Channel: channel, Error: err.Error()})
				continue
			}
			result.Results.SMS = sendResult

		case models.ChannelInApp:
			if msg.UserID == "" {
				continue
			}
			sendResult, err := ns.SendInApp(ctx, InAppMessage{
				UserID:     msg.UserID,
				Title:      msg.Subject,
				Body:       msg.Body,
				Data:       msg.Data,
				Priority:   msg.Priority,
				TemplateID: msg.TemplateID,
				CampaignID: msg.CampaignID,
			})
			if err != nil {
				result.Errors = append(result.Errors, models.ChannelError{Channel: channel, Error: err.Error()})
				continue
			}
			result.Results.InApp = sendResult

		default:
			result.Errors = append(result.Errors, models.ChannelError{
				Channel: channel,
				Error:   "unknown channel",
			})
		}
	}

	result.Success = len(result.Errors) == 0
	return result
}

// GetMessages lists delivery records with the request's filters applied.
func (ns *NotifyService) GetMessages(ctx context.Context, req models.GetMessagesRequest) ([]models.MessageRecord, int64, error) {
	return ns.messageStore.List(ctx, req)
}

// RetryMessage re-dispatches a failed message as a NEW delivery record that
// references the original, preserving the full attempt history. Only failed
// records are retryable.
func (ns *NotifyService) RetryMessage(ctx context.Context, id string) (*models.SendResult, error) {
	record, err := ns.messageStore.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if record.Status != models.MessageStatusFailed {
		return nil, utils.NewValidationError("only failed messages can be retried")
	}

	origin := record.ID
	if record.RetriesOf != nil {
		// Chain retries back to the first attempt
		origin = *record.RetriesOf
	}

	switch record.Type {
	case models.ChannelEmail:
		if record.Email == nil {
			return nil, utils.NewValidationError("email message has no email payload")
		}
		return ns.SendEmail(ctx, EmailMessage{
			To:         record.To,
			Subject:    record.Email.Subject,
			Text:       record.Email.Text,
			HTML:       record.Email.HTML,
			TemplateID: record.TemplateID,
			CampaignID: record.CampaignID,
			UserID:     record.UserID,
			RetriesOf:  &origin,
		})

	case models.ChannelSMS:
		if record.SMS == nil {
			return nil, utils.NewValidationError("sms message has no sms payload")
		}
		return ns.SendSMS(ctx, SMSMessage{
			To:         record.To,
			Body:       record.SMS.Body,
			TemplateID: record.TemplateID,
			CampaignID: record.CampaignID,
			UserID:     record.UserID,
			RetriesOf:  &origin,
		})

	case models.ChannelInApp:
		if record.InApp == nil {
			return nil, utils.NewValidationError("in-app message has no in-app payload")
		}
		return ns.SendInApp(ctx, InAppMessage{
			UserID:     record.UserID,
			Title:      record.InApp.Title,
			Body:       record.InApp.Body,
			TemplateID: record.TemplateID,
			CampaignID: record.CampaignID,
			RetriesOf:  &origin,
		})
	}

	return nil, utils.NewValidationError("unknown message type: " + record.Type)
}

// allow consumes one token for the channel. A channel with no configured
// limiter is unconstrained.
func (ns *NotifyService) allow(channel string) bool {
	limiter, ok := ns.limiters[channel]
	if !ok {
		return true
	}
	return limiter.Allow()
}

// fail records the terminal failure and passes the provider error through to
// the caller untouched.
func (ns *NotifyService) fail(ctx context.Context, record *models.MessageRecord, cause error) error {
	if err := ns.messageStore.MarkFailed(ctx, record.ID, cause.Error()); err != nil {
		logrus.Errorf("Failed to mark message %s failed: %v", record.ID.Hex(), err)
	}

	ns.bumpCampaign(ctx, record.CampaignID, "failed")

	logrus.Warnf("Dispatch failed for %s to %s: %v", record.Type, record.To, cause)
	return cause
}

func (ns *NotifyService) bumpCampaign(ctx context.Context, campaignID *primitive.ObjectID, stats ...string) {
	if campaignID == nil || ns.campaigns == nil {
		return
	}

	deltas := make(map[string]int64, len(stats))
	for _, stat := range stats {
		deltas[stat] = 1
	}

	if err := ns.campaigns.IncrementStats(ctx, *campaignID, deltas); err != nil {
		logrus.Warnf("Failed to update campaign %s stats: %v", campaignID.Hex(), err)
	}
}
