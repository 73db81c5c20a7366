// controllers/messaging_controller_test.go
package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"memorybox/config"
	"memorybox/models"
	"memorybox/services"
	"memorybox/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memoryMessageStore is an in-memory services.MessageStore for handler tests.
type memoryMessageStore struct {
	records []*models.MessageRecord
}

func (m *memoryMessageStore) Create(ctx context.Context, record *models.MessageRecord) error {
	record.ID = primitive.NewObjectID()
	m.records = append(m.records, record)
	return nil
}

func (m *memoryMessageStore) GetByID(ctx context.Context, id string) (*models.MessageRecord, error) {
	for _, record := range m.records {
		if record.ID.Hex() == id {
			return record, nil
		}
	}
	return nil, utils.NewNotFoundError("Message")
}

func (m *memoryMessageStore) Update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	return nil
}

func (m *memoryMessageStore) MarkSent(ctx context.Context, id primitive.ObjectID, providerMessageID, providerResponse string) error {
	return nil
}

func (m *memoryMessageStore) MarkFailed(ctx context.Context, id primitive.ObjectID, errMsg string) error {
	return nil
}

func (m *memoryMessageStore) List(ctx context.Context, req models.GetMessagesRequest) ([]models.MessageRecord, int64, error) {
	out := make([]models.MessageRecord, 0, len(m.records))
	for _, record := range m.records {
		out = append(out, *record)
	}
	return out, int64(len(out)), nil
}

// scriptedEmailProvider fails for addresses listed in failFor.
type scriptedEmailProvider struct {
	failFor map[string]error
	sends   []string
}

func (p *scriptedEmailProvider) Send(ctx context.Context, to, subject, text, html string) (string, error) {
	p.sends = append(p.sends, to)
	if err, ok := p.failFor[to]; ok {
		return "", err
	}
	return "sg-1", nil
}

type scriptedSMSProvider struct{}

func (p *scriptedSMSProvider) Send(ctx context.Context, to, body string) (string, error) {
	return "SM1", nil
}

type scriptedInAppDeliverer struct{}

func (p *scriptedInAppDeliverer) Deliver(ctx context.Context, userID, title, body string, data map[string]string, priority string) (*models.Notification, error) {
	return &models.Notification{ID: primitive.NewObjectID(), UserID: userID}, nil
}

type messagingTestEnv struct {
	router *gin.Engine
	store  *memoryMessageStore
	email  *scriptedEmailProvider
}

func newMessagingTestEnv() *messagingTestEnv {
	cfg := &config.MessagingConfig{
		EmailEnabled:     true,
		SendGridAPIKey:   "SG.test",
		SMSEnabled:       true,
		TwilioAccountSID: "ACtest",
		TwilioAuthToken:  "token",
		InAppEnabled:     true,
		DefaultVariables: map[string]string{"appName": "Memory Box"},
	}

	store := &memoryMessageStore{}
	email := &scriptedEmailProvider{failFor: map[string]error{}}
	notifyService := services.NewNotifyService(cfg, store, nil, email, &scriptedSMSProvider{}, &scriptedInAppDeliverer{})
	templateService := services.NewTemplateService(nil, cfg, utils.NewValidationService())
	controller := NewMessagingController(notifyService, templateService)

	router := gin.New()
	router.POST("/notify", controller.Notify)
	router.GET("/messages", controller.GetMessages)

	return &messagingTestEnv{router: router, store: store, email: email}
}

func (env *messagingTestEnv) postNotify(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/notify", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return envelope
}

func TestNotifyRequiresRecipients(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, models.NotifyRequest{
		Type:    models.NotifyTypeEmail,
		Message: "hi",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNotifyRequiresTemplateOrMessage(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, models.NotifyRequest{
		Type:       models.NotifyTypeEmail,
		Recipients: []models.Recipient{{Email: "ana@example.com"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNotifyScheduledSendNotImplemented(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, map[string]interface{}{
		"type":       models.NotifyTypeEmail,
		"message":    "hi",
		"recipients": []models.Recipient{{Email: "ana@example.com"}},
		"scheduleAt": "2026-12-24T09:00:00Z",
	})
	if w.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", w.Code)
	}
	if len(env.store.records) != 0 {
		t.Error("scheduled request created delivery records")
	}
}

func TestNotifyMultiChannelRequiresChannels(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, models.NotifyRequest{
		Type:       models.NotifyTypeMultiChannel,
		Message:    "hi",
		Recipients: []models.Recipient{{UserID: "user-1", Email: "ana@example.com"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNotifyInvalidTemplateID(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, models.NotifyRequest{
		Type:       models.NotifyTypeEmail,
		TemplateID: "not-an-object-id",
		Recipients: []models.Recipient{{Email: "ana@example.com"}},
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestNotifyEmailHappyPath(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, models.NotifyRequest{
		Type:    models.NotifyTypeEmail,
		Subject: "Hello {{firstName}}",
		Message: "Welcome to {{appName}}",
		Recipients: []models.Recipient{
			{Email: "ana@example.com", FirstName: "Ana"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}

	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]interface{})
	if data["sent"].(float64) != 1 || data["failed"].(float64) != 0 {
		t.Errorf("data = %v, want sent=1 failed=0", data)
	}

	if len(env.store.records) != 1 {
		t.Fatalf("delivery records = %d, want 1", len(env.store.records))
	}
	record := env.store.records[0]
	if record.Email.Subject != "Hello Ana" {
		t.Errorf("subject = %q, want recipient variables applied", record.Email.Subject)
	}
	if record.Email.Text != "Welcome to Memory Box" {
		t.Errorf("text = %q, want configured defaults applied", record.Email.Text)
	}
}

func TestNotifyPartialFailureIsStill200(t *testing.T) {
	env := newMessagingTestEnv()
	env.email.failFor["ben@example.com"] = errors.New("mailbox unavailable")

	w := env.postNotify(t, models.NotifyRequest{
		Type:    models.NotifyTypeEmail,
		Message: "hi",
		Recipients: []models.Recipient{
			{Email: "ana@example.com"},
			{Email: "ben@example.com"},
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 despite the failed recipient", w.Code)
	}

	envelope := decodeEnvelope(t, w)
	if envelope["success"] != true {
		t.Error("envelope success = false, want true on partial failure")
	}
	data := envelope["data"].(map[string]interface{})
	if data["sent"].(float64) != 1 || data["failed"].(float64) != 1 {
		t.Errorf("data = %v, want sent=1 failed=1", data)
	}
	failures := data["errors"].([]interface{})
	if len(failures) != 1 {
		t.Fatalf("errors = %v, want one entry", failures)
	}
}

func TestNotifySkipsRecipientWithoutAddress(t *testing.T) {
	env := newMessagingTestEnv()

	w := env.postNotify(t, models.NotifyRequest{
		Type:    models.NotifyTypeEmail,
		Message: "hi",
		Recipients: []models.Recipient{
			{UserID: "user-1"}, // no email on file
		},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	envelope := decodeEnvelope(t, w)
	data := envelope["data"].(map[string]interface{})
	if data["failed"].(float64) != 1 {
		t.Errorf("failed = %v, want 1", data["failed"])
	}
	if len(env.email.sends) != 0 {
		t.Errorf("provider sends = %d, want 0", len(env.email.sends))
	}
}

func TestGetMessagesReturnsPaginatedList(t *testing.T) {
	env := newMessagingTestEnv()
	env.postNotify(t, models.NotifyRequest{
		Type:       models.NotifyTypeEmail,
		Message:    "hi",
		Recipients: []models.Recipient{{Email: "ana@example.com"}},
	})

	req := httptest.NewRequest(http.MethodGet, "/messages?type=email&page=1&pageSize=20", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", w.Code, w.Body.String())
	}
	envelope := decodeEnvelope(t, w)
	records := envelope["data"].([]interface{})
	if len(records) != 1 {
		t.Errorf("records = %d, want 1", len(records))
	}
}
