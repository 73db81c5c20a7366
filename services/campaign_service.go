// services/campaign_service.go
package services

import (
	"context"
	"fmt"

	"memorybox/models"
	"memorybox/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CampaignStore is the slice of the campaign repository the orchestrator
// needs. *repositories.CampaignRepository satisfies it.
type CampaignStore interface {
	Create(ctx context.Context, campaign *models.Campaign) error
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, req models.GetCampaignsRequest) ([]models.Campaign, int64, error)
	Delete(ctx context.Context, id string) error
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

// Dispatcher is the slice of the notify service the orchestrator fans out
// through.
type Dispatcher interface {
	SendEmail(ctx context.Context, msg EmailMessage) (*models.SendResult, error)
	SendSMS(ctx context.Context, msg SMSMessage) (*models.SendResult, error)
	SendInApp(ctx context.Context, msg InAppMessage) (*models.SendResult, error)
	SendMultiChannel(ctx context.Context, msg MultiChannelMessage) *models.MultiChannelResult
}

// AudienceSource resolves a named segment to its current members.
type AudienceSource interface {
	FindByAudience(ctx context.Context, audience string) ([]models.User, error)
}

// Renderer renders template content with variable substitution.
type Renderer interface {
	Render(content string, variables map[string]string) string
	RenderTemplate(ctx context.Context, id string, variables map[string]string) (*models.Template, *models.TemplatePreview, error)
}

// CampaignService expands a campaign into per-recipient sends. Audience
// membership is evaluated at send time; recipients are processed sequentially
// with per-recipient error isolation.
type CampaignService struct {
	campaignRepo CampaignStore
	users        AudienceSource
	renderer     Renderer
	dispatcher   Dispatcher
	validator    *utils.ValidationService
}

func NewCampaignService(
	campaignRepo CampaignStore,
	users AudienceSource,
	renderer Renderer,
	dispatcher Dispatcher,
	validator *utils.ValidationService,
) *CampaignService {
	return &CampaignService{
		campaignRepo: campaignRepo,
		users:        users,
		renderer:     renderer,
		dispatcher:   dispatcher,
		validator:    validator,
	}
}

func (cs *CampaignService) CreateCampaign(ctx context.Context, req models.CreateCampaignRequest) (*models.Campaign, error) {
	if errs := cs.validator.ValidateStruct(req); len(errs) > 0 {
		return nil, utils.NewValidationError(errs[0].Message)
	}

	if req.TemplateID == "" && req.Message == "" {
		return nil, utils.NewValidationError("either templateId or message is required")
	}

	if req.Type == models.CampaignTypeMulti && len(req.Channels) == 0 {
		return nil, utils.NewValidationError("multi campaigns require at least one channel")
	}

	scheduleType := req.ScheduleType
	if scheduleType == "" {
		scheduleType = models.ScheduleImmediate
	}
	if scheduleType == models.ScheduleScheduled && req.ScheduledAt == nil {
		return nil, utils.NewValidationError("scheduledAt is required for scheduled campaigns")
	}

	campaign := &models.Campaign{
		Name:         req.Name,
		Description:  req.Description,
		Type:         req.Type,
		Channels:     req.Channels,
		Subject:      req.Subject,
		Message:      req.Message,
		HTMLBody:     req.HTMLBody,
		Variables:    req.Variables,
		Audience:     req.Audience,
		ScheduleType: scheduleType,
		ScheduledAt:  req.ScheduledAt,
		Status:       models.CampaignStatusDraft,
	}

	if req.TemplateID != "" {
		templateID, err := primitive.ObjectIDFromHex(req.TemplateID)
		if err != nil {
			return nil, utils.NewValidationError("invalid template ID")
		}
		campaign.TemplateID = &templateID
	}

	if err := cs.campaignRepo.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}

	logrus.Infof("Campaign created: %s (%s, audience %s)", campaign.Name, campaign.Type, campaign.Audience)
	return campaign, nil
}

func (cs *CampaignService) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	return cs.campaignRepo.GetByID(ctx, id)
}

func (cs *CampaignService) GetCampaigns(ctx context.Context, req models.GetCampaignsRequest) ([]models.Campaign, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	return cs.campaignRepo.List(ctx, req)
}

// DeleteCampaign removes the campaign record. Historical delivery records are
// kept.
func (cs *CampaignService) DeleteCampaign(ctx context.Context, id string) error {
	return cs.campaignRepo.Delete(ctx, id)
}

// ResolveAudience applies the campaign's segment predicate to the current
// user population and flattens the members into send targets. Each recipient
// carries at least plan and a human-readable memberSince variable.
func (cs *CampaignService) ResolveAudience(ctx context.Context, campaign *models.Campaign) ([]models.Recipient, error) {
	users, err := cs.users.FindByAudience(ctx, campaign.Audience)
	if err != nil {
		return nil, err
	}

	recipients := make([]models.Recipient, 0, len(users))
	for _, user := range users {
		plan := user.Plan
		if plan == "" {
			plan = models.PlanFree
		}

		recipients = append(recipients, models.Recipient{
			UserID:    user.ID.Hex(),
			Email:     user.Email,
			Phone:     user.Phone,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Variables: map[string]string{
				"firstName":   user.FirstName,
				"lastName":    user.LastName,
				"email":       user.Email,
				"plan":        plan,
				"memberSince": user.CreatedAt.Format("January 2006"),
			},
		})
	}

	return recipients, nil
}

// Send expands the campaign into per-recipient dispatches. Re-invoking Send
// resends to the whole resolved audience; there is no dedupe key.
func (cs *CampaignService) Send(ctx context.Context, id string) (*models.CampaignSendResult, error) {
	campaign, err := cs.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if campaign.ScheduleType == models.ScheduleScheduled {
		return nil, utils.NewNotImplementedError("scheduled campaign send")
	}

	recipients, err := cs.ResolveAudience(ctx, campaign)
	if err != nil {
		return nil, err
	}

	result := &models.CampaignSendResult{
		CampaignID: campaign.ID.Hex(),
		Audience:   len(recipients),
	}

	for _, recipient := range recipients {
		if err := cs.sendToRecipient(ctx, campaign, recipient); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", recipient.UserID, err))
			logrus.Warnf("Campaign %s: send to %s failed: %v", campaign.ID.Hex(), recipient.UserID, err)
			continue
		}
		result.Sent++
	}

	if err := cs.campaignRepo.SetStatus(ctx, campaign.ID, models.CampaignStatusSent); err != nil {
		logrus.Errorf("Failed to transition campaign %s to sent: %v", campaign.ID.Hex(), err)
	}

	logrus.Infof("Campaign %s sent: %d/%d recipients succeeded",
		campaign.ID.Hex(), result.Sent, result.Audience)
	return result, nil
}

// sendToRecipient renders the campaign content for one recipient and invokes
// the dispatcher for the campaign's channel(s). Recipient variables win over
// campaign variables.
func (cs *CampaignService) sendToRecipient(ctx context.Context, campaign *models.Campaign, recipient models.Recipient) error {
	variables := mergeVariables(campaign.Variables, recipient.Variables)

	subject := campaign.Subject
	body := campaign.Message
	html := campaign.HTMLBody

	if campaign.TemplateID != nil {
		_, rendered, err := cs.renderer.RenderTemplate(ctx, campaign.TemplateID.Hex(), variables)
		if err != nil {
			return err
		}
		subject = rendered.Subject
		body = rendered.Body
		html = rendered.HTML
	} else {
		subject = cs.renderer.Render(subject, variables)
		body = cs.renderer.Render(body, variables)
		html = cs.renderer.Render(html, variables)
	}

	campaignID := campaign.ID

	switch campaign.Type {
	case models.CampaignTypeEmail:
		if recipient.Email == "" {
			return utils.NewValidationError("recipient has no email address")
		}
		_, err := cs.dispatcher.SendEmail(ctx, EmailMessage{
			To:         recipient.Email,
			Subject:    subject,
			Text:       body,
			HTML:       html,
			TemplateID: campaign.TemplateID,
			CampaignID: &campaignID,
			UserID:     recipient.UserID,
		})
		return err

	case models.CampaignTypeSMS:
		if recipient.Phone == "" {
			return utils.NewValidationError("recipient has no phone number")
		}
		_, err := cs.dispatcher.SendSMS(ctx, SMSMessage{
			To:         recipient.Phone,
			Body:       body,
			TemplateID: campaign.TemplateID,
			CampaignID: &campaignID,
			UserID:     recipient.UserID,
		})
		return err

	case models.CampaignTypeInApp:
		_, err := cs.dispatcher.SendInApp(ctx, InAppMessage{
			UserID:     recipient.UserID,
			Title:      subject,
			Body:       body,
			TemplateID: campaign.TemplateID,
			CampaignID: &campaignID,
		})
		return err

	case models.CampaignTypeMulti:
		result := cs.dispatcher.SendMultiChannel(ctx, MultiChannelMessage{
			UserID:     recipient.UserID,
			Email:      recipient.Email,
			Phone:      recipient.Phone,
			Channels:   campaign.Channels,
			Subject:    subject,
			Body:       body,
			HTMLBody:   html,
			TemplateID: campaign.TemplateID,
			CampaignID: &campaignID,
		})
		if !result.Success {
			return fmt.Errorf("%d channel(s) failed", len(result.Errors))
		}
		return nil
	}

	return utils.NewValidationError("unknown campaign type: " + campaign.Type)
}

// ToggleStatus flips a campaign between active and paused. Draft and sent
// campaigns are left alone.
func (cs *CampaignService) ToggleStatus(ctx context.Context, id string) (*models.Campaign, error) {
	campaign, err := cs.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var next string
	switch campaign.Status {
	case models.CampaignStatusActive:
		next = models.CampaignStatusPaused
	case models.CampaignStatusPaused:
		next = models.CampaignStatusActive
	default:
		return nil, utils.NewValidationError(
			fmt.Sprintf("cannot toggle a %s campaign", campaign.Status))
	}

	if err := cs.campaignRepo.SetStatus(ctx, campaign.ID, next); err != nil {
		return nil, err
	}

	campaign.Status = next
	return campaign, nil
}

// mergeVariables layers overrides on top of base without mutating either.
func mergeVariables(base, overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(overrides))
	for name, value := range base {
		merged[name] = value
	}
	for name, value := range overrides {
		merged[name] = value
	}
	return merged
}
