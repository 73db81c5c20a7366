// services/campaign_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"memorybox/models"
	"memorybox/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeCampaignStore struct {
	campaigns map[string]*models.Campaign
	statuses  []string
}

func newFakeCampaignStore(campaigns ...*models.Campaign) *fakeCampaignStore {
	store := &fakeCampaignStore{campaigns: make(map[string]*models.Campaign)}
	for _, campaign := range campaigns {
		if campaign.ID.IsZero() {
			campaign.ID = primitive.NewObjectID()
		}
		store.campaigns[campaign.ID.Hex()] = campaign
	}
	return store
}

func (f *fakeCampaignStore) Create(ctx context.Context, campaign *models.Campaign) error {
	campaign.ID = primitive.NewObjectID()
	f.campaigns[campaign.ID.Hex()] = campaign
	return nil
}

func (f *fakeCampaignStore) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, ok := f.campaigns[id]
	if !ok {
		return nil, utils.NewNotFoundError("Campaign")
	}
	return campaign, nil
}

func (f *fakeCampaignStore) List(ctx context.Context, req models.GetCampaignsRequest) ([]models.Campaign, int64, error) {
	out := make([]models.Campaign, 0, len(f.campaigns))
	for _, campaign := range f.campaigns {
		out = append(out, *campaign)
	}
	return out, int64(len(out)), nil
}

func (f *fakeCampaignStore) Delete(ctx context.Context, id string) error {
	delete(f.campaigns, id)
	return nil
}

func (f *fakeCampaignStore) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	f.statuses = append(f.statuses, status)
	f.campaigns[id.Hex()].Status = status
	return nil
}

type fakeAudienceSource struct {
	users     []models.User
	err       error
	audiences []string
}

func (f *fakeAudienceSource) FindByAudience(ctx context.Context, audience string) ([]models.User, error) {
	f.audiences = append(f.audiences, audience)
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

// passthroughRenderer substitutes nothing; it records invocations so tests can
// assert rendering happened without re-testing the template engine.
type passthroughRenderer struct {
	rendered []string
}

func (r *passthroughRenderer) Render(content string, variables map[string]string) string {
	r.rendered = append(r.rendered, content)
	return content
}

func (r *passthroughRenderer) RenderTemplate(ctx context.Context, id string, variables map[string]string) (*models.Template, *models.TemplatePreview, error) {
	r.rendered = append(r.rendered, "template:"+id)
	return &models.Template{}, &models.TemplatePreview{
		Subject: "Rendered subject",
		Body:    "Rendered body for " + variables["firstName"],
	}, nil
}

// fakeDispatcher fails sends whose address appears in failFor.
type fakeDispatcher struct {
	emails  []EmailMessage
	sms     []SMSMessage
	inApp   []InAppMessage
	multi   []MultiChannelMessage
	failFor map[string]error
}

func (f *fakeDispatcher) SendEmail(ctx context.Context, msg EmailMessage) (*models.SendResult, error) {
	f.emails = append(f.emails, msg)
	if err, ok := f.failFor[msg.To]; ok {
		return nil, err
	}
	return &models.SendResult{Success: true}, nil
}

func (f *fakeDispatcher) SendSMS(ctx context.Context, msg SMSMessage) (*models.SendResult, error) {
	f.sms = append(f.sms, msg)
	if err, ok := f.failFor[msg.To]; ok {
		return nil, err
	}
	return &models.SendResult{Success: true}, nil
}

func (f *fakeDispatcher) SendInApp(ctx context.Context, msg InAppMessage) (*models.SendResult, error) {
	f.inApp = append(f.inApp, msg)
	if err, ok := f.failFor[msg.UserID]; ok {
		return nil, err
	}
	return &models.SendResult{Success: true}, nil
}

func (f *fakeDispatcher) SendMultiChannel(ctx context.Context, msg MultiChannelMessage) *models.MultiChannelResult {
	f.multi = append(f.multi, msg)
	if err, ok := f.failFor[msg.UserID]; ok {
		return &models.MultiChannelResult{
			Errors:  []models.ChannelError{{Channel: "email", Error: err.Error()}},
			Success: false,
		}
	}
	return &models.MultiChannelResult{Success: true}
}

func campaignTestUser(first, email, phone string) models.User {
	return models.User{
		ID:        primitive.NewObjectID(),
		Email:     email,
		Phone:     phone,
		FirstName: first,
		LastName:  "Tester",
		Plan:      models.PlanPremium,
		CreatedAt: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
	}
}

type campaignFixture struct {
	service    *CampaignService
	store      *fakeCampaignStore
	users      *fakeAudienceSource
	dispatcher *fakeDispatcher
	renderer   *passthroughRenderer
}

func newCampaignFixture(users []models.User, campaigns ...*models.Campaign) *campaignFixture {
	store := newFakeCampaignStore(campaigns...)
	source := &fakeAudienceSource{users: users}
	dispatcher := &fakeDispatcher{failFor: map[string]error{}}
	renderer := &passthroughRenderer{}

	return &campaignFixture{
		service:    NewCampaignService(store, source, renderer, dispatcher, utils.NewValidationService()),
		store:      store,
		users:      source,
		dispatcher: dispatcher,
		renderer:   renderer,
	}
}

func TestCreateCampaignDefaultsToDraft(t *testing.T) {
	fx := newCampaignFixture(nil)

	campaign, err := fx.service.CreateCampaign(context.Background(), models.CreateCampaignRequest{
		Name:     "Spring re-engagement",
		Type:     models.CampaignTypeEmail,
		Subject:  "We miss you",
		Message:  "Come see your memories, {{firstName}}",
		Audience: models.AudienceFree,
	})
	if err != nil {
		t.Fatalf("CreateCampaign() error = %v", err)
	}
	if campaign.Status != models.CampaignStatusDraft {
		t.Errorf("Status = %q, want %q", campaign.Status, models.CampaignStatusDraft)
	}
	if campaign.ScheduleType != models.ScheduleImmediate {
		t.Errorf("ScheduleType = %q, want %q", campaign.ScheduleType, models.ScheduleImmediate)
	}
}

func TestCreateCampaignRequiresContent(t *testing.T) {
	fx := newCampaignFixture(nil)

	_, err := fx.service.CreateCampaign(context.Background(), models.CreateCampaignRequest{
		Name:     "Empty",
		Type:     models.CampaignTypeEmail,
		Audience: models.AudienceAll,
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("CreateCampaign() error = %v, want validation error", err)
	}
}

func TestCreateCampaignMultiRequiresChannels(t *testing.T) {
	fx := newCampaignFixture(nil)

	_, err := fx.service.CreateCampaign(context.Background(), models.CreateCampaignRequest{
		Name:     "Everything everywhere",
		Type:     models.CampaignTypeMulti,
		Message:  "hi",
		Audience: models.AudienceAll,
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("CreateCampaign() error = %v, want validation error", err)
	}
}

func TestCreateCampaignScheduledRequiresTimestamp(t *testing.T) {
	fx := newCampaignFixture(nil)

	_, err := fx.service.CreateCampaign(context.Background(), models.CreateCampaignRequest{
		Name:         "Later",
		Type:         models.CampaignTypeEmail,
		Message:      "hi",
		Audience:     models.AudienceAll,
		ScheduleType: models.ScheduleScheduled,
	})
	if !utils.IsValidationError(err) {
		t.Fatalf("CreateCampaign() error = %v, want validation error", err)
	}
}

func TestResolveAudienceDerivesVariables(t *testing.T) {
	user := campaignTestUser("Ana", "ana@example.com", "+15550100")
	fx := newCampaignFixture([]models.User{user})

	recipients, err := fx.service.ResolveAudience(context.Background(), &models.Campaign{
		Audience: models.AudiencePremium,
	})
	if err != nil {
		t.Fatalf("ResolveAudience() error = %v", err)
	}
	if len(recipients) != 1 {
		t.Fatalf("recipients = %d, want 1", len(recipients))
	}

	vars := recipients[0].Variables
	if vars["firstName"] != "Ana" || vars["email"] != "ana@example.com" {
		t.Errorf("variables = %v, want firstName/email derived from the user", vars)
	}
	if vars["plan"] != models.PlanPremium {
		t.Errorf("plan = %q, want %q", vars["plan"], models.PlanPremium)
	}
	if vars["memberSince"] != "March 2025" {
		t.Errorf("memberSince = %q, want %q", vars["memberSince"], "March 2025")
	}
}

func TestResolveAudienceDefaultsPlanToFree(t *testing.T) {
	user := campaignTestUser("Ana", "ana@example.com", "")
	user.Plan = ""
	fx := newCampaignFixture([]models.User{user})

	recipients, err := fx.service.ResolveAudience(context.Background(), &models.Campaign{
		Audience: models.AudienceAll,
	})
	if err != nil {
		t.Fatalf("ResolveAudience() error = %v", err)
	}
	if recipients[0].Variables["plan"] != models.PlanFree {
		t.Errorf("plan = %q, want %q", recipients[0].Variables["plan"], models.PlanFree)
	}
}

func TestSendFansOutToResolvedAudience(t *testing.T) {
	users := []models.User{
		campaignTestUser("Ana", "ana@example.com", ""),
		campaignTestUser("Ben", "ben@example.com", ""),
	}
	campaign := &models.Campaign{
		Name:     "Digest",
		Type:     models.CampaignTypeEmail,
		Subject:  "Your week",
		Message:  "Hi {{firstName}}",
		Audience: models.AudienceAll,
		Status:   models.CampaignStatusActive,
	}
	fx := newCampaignFixture(users, campaign)

	result, err := fx.service.Send(context.Background(), campaign.ID.Hex())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if result.Audience != 2 || result.Sent != 2 || result.Failed != 0 {
		t.Errorf("result = %+v, want audience=2 sent=2 failed=0", result)
	}
	if len(fx.dispatcher.emails) != 2 {
		t.Fatalf("dispatched emails = %d, want 2", len(fx.dispatcher.emails))
	}
	for _, msg := range fx.dispatcher.emails {
		if msg.CampaignID == nil || *msg.CampaignID != campaign.ID {
			t.Error("dispatched email missing campaign back-reference")
		}
	}
	if campaign.Status != models.CampaignStatusSent {
		t.Errorf("campaign status = %q, want %q after send", campaign.Status, models.CampaignStatusSent)
	}
}

func TestSendIsolatesPerRecipientFailures(t *testing.T) {
	users := []models.User{
		campaignTestUser("Ana", "ana@example.com", ""),
		campaignTestUser("Ben", "ben@example.com", ""),
		campaignTestUser("Cleo", "cleo@example.com", ""),
	}
	campaign := &models.Campaign{
		Type:     models.CampaignTypeEmail,
		Subject:  "Hello",
		Message:  "hi",
		Audience: models.AudienceAll,
	}
	fx := newCampaignFixture(users, campaign)
	fx.dispatcher.failFor["ben@example.com"] = errors.New("mailbox full")

	result, err := fx.service.Send(context.Background(), campaign.ID.Hex())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if result.Sent != 2 || result.Failed != 1 {
		t.Errorf("result = %+v, want sent=2 failed=1", result)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want one entry", result.Errors)
	}
	// The send continues past the failure; all three recipients are attempted.
	if len(fx.dispatcher.emails) != 3 {
		t.Errorf("dispatched emails = %d, want 3", len(fx.dispatcher.emails))
	}
}

func TestSendSkipsRecipientsWithoutContactInfo(t *testing.T) {
	users := []models.User{
		campaignTestUser("Ana", "", ""), // no email address on file
	}
	campaign := &models.Campaign{
		Type:     models.CampaignTypeEmail,
		Message:  "hi",
		Audience: models.AudienceAll,
	}
	fx := newCampaignFixture(users, campaign)

	result, err := fx.service.Send(context.Background(), campaign.ID.Hex())
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1 (missing address counts against the campaign)", result.Failed)
	}
	if len(fx.dispatcher.emails) != 0 {
		t.Errorf("dispatched emails = %d, want 0", len(fx.dispatcher.emails))
	}
}

func TestSendIsNotIdempotent(t *testing.T) {
	users := []models.User{campaignTestUser("Ana", "ana@example.com", "")}
	campaign := &models.Campaign{
		Type:     models.CampaignTypeEmail,
		Message:  "hi",
		Audience: models.AudienceAll,
	}
	fx := newCampaignFixture(users, campaign)

	if _, err := fx.service.Send(context.Background(), campaign.ID.Hex()); err != nil {
		t.Fatalf("first Send() error = %v", err)
	}
	if _, err := fx.service.Send(context.Background(), campaign.ID.Hex()); err != nil {
		t.Fatalf("second Send() error = %v", err)
	}

	if len(fx.dispatcher.emails) != 2 {
		t.Errorf("dispatched emails = %d, want 2 (re-send repeats the whole audience)", len(fx.dispatcher.emails))
	}
}

func TestSendScheduledCampaignNotImplemented(t *testing.T) {
	later := time.Now().Add(24 * time.Hour)
	campaign := &models.Campaign{
		Type:         models.CampaignTypeEmail,
		Message:      "hi",
		Audience:     models.AudienceAll,
		ScheduleType: models.ScheduleScheduled,
		ScheduledAt:  &later,
	}
	fx := newCampaignFixture(nil, campaign)

	_, err := fx.service.Send(context.Background(), campaign.ID.Hex())
	serviceErr, ok := utils.GetServiceError(err)
	if !ok || serviceErr.Code != models.ErrCodeNotImplemented {
		t.Fatalf("Send() error = %v, want not-implemented", err)
	}
	if len(fx.users.audiences) != 0 {
		t.Error("scheduled send resolved the audience, want short-circuit before that")
	}
}

func TestSendUsesTemplateRenderingWhenTemplateSet(t *testing.T) {
	templateID := primitive.NewObjectID()
	users := []models.User{campaignTestUser("Ana", "ana@example.com", "")}
	campaign := &models.Campaign{
		Type:       models.CampaignTypeEmail,
		TemplateID: &templateID,
		Audience:   models.AudienceAll,
	}
	fx := newCampaignFixture(users, campaign)

	if _, err := fx.service.Send(context.Background(), campaign.ID.Hex()); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if len(fx.dispatcher.emails) != 1 {
		t.Fatalf("dispatched emails = %d, want 1", len(fx.dispatcher.emails))
	}
	msg := fx.dispatcher.emails[0]
	if msg.Subject != "Rendered subject" {
		t.Errorf("subject = %q, want the template-rendered subject", msg.Subject)
	}
	if msg.Text != "Rendered body for Ana" {
		t.Errorf("text = %q, want recipient variables applied", msg.Text)
	}
}

func TestToggleStatusFlipsActiveAndPaused(t *testing.T) {
	campaign := &models.Campaign{
		Type:     models.CampaignTypeEmail,
		Message:  "hi",
		Audience: models.AudienceAll,
		Status:   models.CampaignStatusActive,
	}
	fx := newCampaignFixture(nil, campaign)

	toggled, err := fx.service.ToggleStatus(context.Background(), campaign.ID.Hex())
	if err != nil {
		t.Fatalf("ToggleStatus() error = %v", err)
	}
	if toggled.Status != models.CampaignStatusPaused {
		t.Errorf("status = %q, want %q", toggled.Status, models.CampaignStatusPaused)
	}

	toggled, err = fx.service.ToggleStatus(context.Background(), campaign.ID.Hex())
	if err != nil {
		t.Fatalf("second ToggleStatus() error = %v", err)
	}
	if toggled.Status != models.CampaignStatusActive {
		t.Errorf("status = %q, want %q", toggled.Status, models.CampaignStatusActive)
	}
}

func TestToggleStatusRejectsDraftAndSent(t *testing.T) {
	for _, status := range []string{models.CampaignStatusDraft, models.CampaignStatusSent} {
		campaign := &models.Campaign{
			Type:     models.CampaignTypeEmail,
			Message:  "hi",
			Audience: models.AudienceAll,
			Status:   status,
		}
		fx := newCampaignFixture(nil, campaign)

		_, err := fx.service.ToggleStatus(context.Background(), campaign.ID.Hex())
		if !utils.IsValidationError(err) {
			t.Errorf("ToggleStatus() on %s campaign error = %v, want validation error", status, err)
		}
	}
}

func TestMergeVariablesRecipientWins(t *testing.T) {
	base := map[string]string{"firstName": "friend", "appName": "Memory Box"}
	overrides := map[string]string{"firstName": "Ana"}

	merged := mergeVariables(base, overrides)
	if merged["firstName"] != "Ana" {
		t.Errorf("firstName = %q, want recipient override to win", merged["firstName"])
	}
	if merged["appName"] != "Memory Box" {
		t.Errorf("appName = %q, want base value preserved", merged["appName"])
	}
	if base["firstName"] != "friend" {
		t.Error("mergeVariables mutated the base map")
	}
}
