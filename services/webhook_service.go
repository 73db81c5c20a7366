// services/webhook_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"memorybox/models"
	"memorybox/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WebhookMessageStore is what the webhook applier needs from the record
// repository.
type WebhookMessageStore interface {
	GetByProviderID(ctx context.Context, providerMessageID string) (*models.MessageRecord, error)
	Update(ctx context.Context, id primitive.ObjectID, update bson.M) error
	MarkOpenedByToken(ctx context.Context, token string) (*models.MessageRecord, error)
}

// SendGridEvent is one entry of SendGrid's event webhook array.
type SendGridEvent struct {
	Email       string `json:"email"`
	Timestamp   int64  `json:"timestamp"`
	Event       string `json:"event"`
	SGMessageID string `json:"sg_message_id"`
	Reason      string `json:"reason,omitempty"`
	URL         string `json:"url,omitempty"`
}

// WebhookService applies asynchronous provider callbacks to delivery records.
// Engagement timestamps are append-only: a callback never reverts an earlier
// state, and replays are no-ops.
type WebhookService struct {
	messages  WebhookMessageStore
	campaigns CampaignStatsStore
}

func NewWebhookService(messages WebhookMessageStore, campaigns CampaignStatsStore) *WebhookService {
	return &WebhookService{
		messages:  messages,
		campaigns: campaigns,
	}
}

// HandleTwilioStatus applies one Twilio delivery-status callback
// (MessageSid/MessageStatus/ErrorCode form fields).
func (ws *WebhookService) HandleTwilioStatus(ctx context.Context, messageSid, messageStatus, errorCode string) error {
	if messageSid == "" {
		return utils.NewValidationError("MessageSid is required")
	}

	record, err := ws.messages.GetByProviderID(ctx, messageSid)
	if err != nil {
		return err
	}

	now := time.Now()

	switch messageStatus {
	case "delivered":
		if record.DeliveredAt != nil {
			return nil
		}
		err = ws.messages.Update(ctx, record.ID, bson.M{
			"status":      models.MessageStatusDelivered,
			"deliveredAt": now,
		})
		if err == nil {
			ws.bump(ctx, record.CampaignID, "delivered")
		}

	case "failed", "undelivered":
		if record.FailedAt != nil {
			return nil
		}
		errMsg := fmt.Sprintf("twilio status %s", messageStatus)
		if errorCode != "" {
			errMsg += fmt.Sprintf(" (error %s)", errorCode)
		}
		err = ws.messages.Update(ctx, record.ID, bson.M{
			"status":   models.MessageStatusFailed,
			"error":    errMsg,
			"failedAt": now,
		})
		if err == nil {
			ws.bump(ctx, record.CampaignID, "failed")
		}

	case "sent", "queued", "accepted":
		logrus.Debugf("SMS %s in transit: %s", messageSid, messageStatus)

	default:
		logrus.Warnf("Unknown Twilio status %q for %s", messageStatus, messageSid)
	}

	return err
}

// HandleSendGridEvents applies a batch of SendGrid engagement events. Events
// for unknown message IDs are skipped, not errors; SendGrid batches events
// across all mail the account sends.
func (ws *WebhookService) HandleSendGridEvents(ctx context.Context, events []SendGridEvent) int {
	applied := 0

	for _, event := range events {
		if err := ws.applySendGridEvent(ctx, event); err != nil {
			if !utils.IsNotFoundError(err) && err != mongo.ErrNoDocuments {
				logrus.Warnf("Failed to apply SendGrid %s event: %v", event.Event, err)
			}
			continue
		}
		applied++
	}

	return applied
}

func (ws *WebhookService) applySendGridEvent(ctx context.Context, event SendGridEvent) error {
	record, err := ws.messages.GetByProviderID(ctx, sendGridMessageID(event.SGMessageID))
	if err != nil {
		return err
	}

	at := time.Unix(event.Timestamp, 0)
	if event.Timestamp == 0 {
		at = time.Now()
	}

	switch event.Event {
	case "delivered":
		if record.DeliveredAt != nil {
			return nil
		}
		err = ws.messages.Update(ctx, record.ID, bson.M{
			"status":      models.MessageStatusDelivered,
			"deliveredAt": at,
		})
		if err == nil {
			ws.bump(ctx, record.CampaignID, "delivered")
		}

	case "open":
		if record.OpenedAt != nil {
			return nil
		}
		err = ws.messages.Update(ctx, record.ID, bson.M{"openedAt": at})
		if err == nil {
			ws.bump(ctx, record.CampaignID, "opened")
		}

	case "click":
		if record.ClickedAt != nil {
			return nil
		}
		err = ws.messages.Update(ctx, record.ID, bson.M{"clickedAt": at})
		if err == nil {
			ws.bump(ctx, record.CampaignID, "clicked")
		}

	case "bounce", "dropped":
		if record.FailedAt != nil {
			return nil
		}
		err = ws.messages.Update(ctx, record.ID, bson.M{
			"status":   models.MessageStatusFailed,
			"error":    fmt.Sprintf("sendgrid %s: %s", event.Event, event.Reason),
			"failedAt": at,
		})
		if err == nil {
			ws.bump(ctx, record.CampaignID, "failed")
		}

	default:
		logrus.Debugf("Ignoring SendGrid event %q for %s", event.Event, event.SGMessageID)
	}

	return err
}

// HandleOpenPixel marks the record behind a tracking token as opened. First
// hit wins; replays and unknown tokens are silent (the endpoint always serves
// the pixel).
func (ws *WebhookService) HandleOpenPixel(ctx context.Context, token string) {
	record, err := ws.messages.MarkOpenedByToken(ctx, token)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			logrus.Warnf("Open-pixel update failed for token %s: %v", token, err)
		}
		return
	}

	ws.bump(ctx, record.CampaignID, "opened")
	logrus.Debugf("Open recorded for message %s", record.ID.Hex())
}

func (ws *WebhookService) bump(ctx context.Context, campaignID *primitive.ObjectID, stat string) {
	if campaignID == nil || ws.campaigns == nil {
		return
	}

	if err := ws.campaigns.IncrementStats(ctx, *campaignID, map[string]int64{stat: 1}); err != nil {
		logrus.Warnf("Failed to update campaign %s stats: %v", campaignID.Hex(), err)
	}
}

// sendGridMessageID strips the routing suffix SendGrid appends to the
// X-Message-Id it returned at send time.
func sendGridMessageID(sgMessageID string) string {
	for i := 0; i < len(sgMessageID); i++ {
		if sgMessageID[i] == '.' {
			return sgMessageID[:i]
		}
	}
	return sgMessageID
}
