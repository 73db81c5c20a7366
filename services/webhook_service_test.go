// services/webhook_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"memorybox/models"
	"memorybox/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeWebhookStore indexes records by provider message ID and tracking token.
type fakeWebhookStore struct {
	byProviderID map[string]*models.MessageRecord
	byToken      map[string]*models.MessageRecord
	updates      []bson.M
}

func newFakeWebhookStore() *fakeWebhookStore {
	return &fakeWebhookStore{
		byProviderID: make(map[string]*models.MessageRecord),
		byToken:      make(map[string]*models.MessageRecord),
	}
}

func (f *fakeWebhookStore) GetByProviderID(ctx context.Context, providerMessageID string) (*models.MessageRecord, error) {
	record, ok := f.byProviderID[providerMessageID]
	if !ok {
		return nil, utils.NewNotFoundError("Message")
	}
	return record, nil
}

func (f *fakeWebhookStore) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	f.updates = append(f.updates, update)
	return nil
}

func (f *fakeWebhookStore) MarkOpenedByToken(ctx context.Context, token string) (*models.MessageRecord, error) {
	record, ok := f.byToken[token]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	if record.OpenedAt != nil {
		return nil, mongo.ErrNoDocuments
	}
	now := time.Now()
	record.OpenedAt = &now
	return record, nil
}

func webhookRecord(providerID string, campaignID *primitive.ObjectID) *models.MessageRecord {
	return &models.MessageRecord{
		ID:                primitive.NewObjectID(),
		Type:              models.ChannelSMS,
		Status:            models.MessageStatusSent,
		ProviderMessageID: providerID,
		CampaignID:        campaignID,
	}
}

func TestTwilioDeliveredBumpsCampaign(t *testing.T) {
	store := newFakeWebhookStore()
	stats := newFakeCampaignStats()
	campaignID := primitive.NewObjectID()
	store.byProviderID["SM1"] = webhookRecord("SM1", &campaignID)

	ws := NewWebhookService(store, stats)
	if err := ws.HandleTwilioStatus(context.Background(), "SM1", "delivered", ""); err != nil {
		t.Fatalf("HandleTwilioStatus() error = %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(store.updates))
	}
	if store.updates[0]["status"] != models.MessageStatusDelivered {
		t.Errorf("update status = %v, want delivered", store.updates[0]["status"])
	}
	if stats.deltas[campaignID.Hex()]["delivered"] != 1 {
		t.Errorf("campaign deltas = %v, want delivered=1", stats.deltas[campaignID.Hex()])
	}
}

func TestTwilioDeliveredReplayIsNoOp(t *testing.T) {
	store := newFakeWebhookStore()
	record := webhookRecord("SM1", nil)
	now := time.Now()
	record.DeliveredAt = &now
	store.byProviderID["SM1"] = record

	ws := NewWebhookService(store, nil)
	if err := ws.HandleTwilioStatus(context.Background(), "SM1", "delivered", ""); err != nil {
		t.Fatalf("HandleTwilioStatus() error = %v", err)
	}
	if len(store.updates) != 0 {
		t.Errorf("updates = %d, want 0 on replay", len(store.updates))
	}
}

func TestTwilioFailedRecordsErrorCode(t *testing.T) {
	store := newFakeWebhookStore()
	store.byProviderID["SM1"] = webhookRecord("SM1", nil)

	ws := NewWebhookService(store, nil)
	if err := ws.HandleTwilioStatus(context.Background(), "SM1", "undelivered", "30003"); err != nil {
		t.Fatalf("HandleTwilioStatus() error = %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(store.updates))
	}
	errMsg, _ := store.updates[0]["error"].(string)
	if errMsg != "twilio status undelivered (error 30003)" {
		t.Errorf("error = %q, want status and code recorded", errMsg)
	}
}

func TestTwilioTransitStatusesAreIgnored(t *testing.T) {
	store := newFakeWebhookStore()
	store.byProviderID["SM1"] = webhookRecord("SM1", nil)

	ws := NewWebhookService(store, nil)
	for _, status := range []string{"queued", "sent", "accepted"} {
		if err := ws.HandleTwilioStatus(context.Background(), "SM1", status, ""); err != nil {
			t.Errorf("HandleTwilioStatus(%q) error = %v", status, err)
		}
	}
	if len(store.updates) != 0 {
		t.Errorf("updates = %d, want 0 for in-transit statuses", len(store.updates))
	}
}

func TestTwilioUnknownSidPropagatesNotFound(t *testing.T) {
	ws := NewWebhookService(newFakeWebhookStore(), nil)

	err := ws.HandleTwilioStatus(context.Background(), "SM-unknown", "delivered", "")
	if !utils.IsNotFoundError(err) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestSendGridEventsSkipUnknownMessages(t *testing.T) {
	store := newFakeWebhookStore()
	store.byProviderID["known"] = webhookRecord("known", nil)

	ws := NewWebhookService(store, nil)
	applied := ws.HandleSendGridEvents(context.Background(), []SendGridEvent{
		{Event: "delivered", SGMessageID: "known.filter001"},
		{Event: "delivered", SGMessageID: "someone-elses-mail.filter002"},
	})

	if applied != 1 {
		t.Errorf("applied = %d, want 1 (unknown IDs are skipped)", applied)
	}
}

func TestSendGridOpenSetsTimestampOnce(t *testing.T) {
	store := newFakeWebhookStore()
	stats := newFakeCampaignStats()
	campaignID := primitive.NewObjectID()
	record := webhookRecord("msg1", &campaignID)
	store.byProviderID["msg1"] = record

	ws := NewWebhookService(store, stats)
	ws.HandleSendGridEvents(context.Background(), []SendGridEvent{
		{Event: "open", SGMessageID: "msg1", Timestamp: 1756684800},
	})

	if len(store.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(store.updates))
	}
	if _, ok := store.updates[0]["openedAt"]; !ok {
		t.Error("update missing openedAt")
	}
	if stats.deltas[campaignID.Hex()]["opened"] != 1 {
		t.Errorf("campaign deltas = %v, want opened=1", stats.deltas[campaignID.Hex()])
	}

	// Replay with the engagement already recorded is a no-op.
	now := time.Now()
	record.OpenedAt = &now
	ws.HandleSendGridEvents(context.Background(), []SendGridEvent{
		{Event: "open", SGMessageID: "msg1", Timestamp: 1756684900},
	})
	if len(store.updates) != 1 {
		t.Errorf("updates = %d after replay, want still 1", len(store.updates))
	}
}

func TestSendGridBounceMarksFailed(t *testing.T) {
	store := newFakeWebhookStore()
	store.byProviderID["msg1"] = webhookRecord("msg1", nil)

	ws := NewWebhookService(store, nil)
	applied := ws.HandleSendGridEvents(context.Background(), []SendGridEvent{
		{Event: "bounce", SGMessageID: "msg1.filter001", Reason: "550 unknown recipient"},
	})

	if applied != 1 {
		t.Fatalf("applied = %d, want 1", applied)
	}
	if store.updates[0]["status"] != models.MessageStatusFailed {
		t.Errorf("status = %v, want failed", store.updates[0]["status"])
	}
	errMsg, _ := store.updates[0]["error"].(string)
	if errMsg != "sendgrid bounce: 550 unknown recipient" {
		t.Errorf("error = %q, want bounce reason recorded", errMsg)
	}
}

func TestOpenPixelFirstHitWins(t *testing.T) {
	store := newFakeWebhookStore()
	stats := newFakeCampaignStats()
	campaignID := primitive.NewObjectID()
	record := webhookRecord("msg1", &campaignID)
	store.byToken["tok-1"] = record

	ws := NewWebhookService(store, stats)
	ws.HandleOpenPixel(context.Background(), "tok-1")
	ws.HandleOpenPixel(context.Background(), "tok-1")
	ws.HandleOpenPixel(context.Background(), "tok-unknown")

	if stats.deltas[campaignID.Hex()]["opened"] != 1 {
		t.Errorf("campaign deltas = %v, want opened=1 across replays", stats.deltas[campaignID.Hex()])
	}
}

func TestSendGridMessageIDStripsRoutingSuffix(t *testing.T) {
	if got := sendGridMessageID("abc123.filter001.recvd"); got != "abc123" {
		t.Errorf("sendGridMessageID = %q, want %q", got, "abc123")
	}
	if got := sendGridMessageID("plain"); got != "plain" {
		t.Errorf("sendGridMessageID = %q, want unchanged", got)
	}
}
