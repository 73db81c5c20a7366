package models

import "time"

// Notify Request Type Constants
const (
	NotifyTypeEmail        = "email"
	NotifyTypeSMS          = "sms"
	NotifyTypeInApp        = "in_app"
	NotifyTypeMultiChannel = "multi_channel"
)

// NotifyRequest is the body of POST /api/v1/messaging/notify.
type NotifyRequest struct {
	Type        string            `json:"type" validate:"required,oneof=email sms in_app multi_channel"`
	Channels    []string          `json:"channels" validate:"omitempty,dive,oneof=email sms in_app"`
	Recipients  []Recipient       `json:"recipients"`
	TemplateID  string            `json:"templateId,omitempty"`
	Subject     string            `json:"subject,omitempty"`
	Message     string            `json:"message,omitempty"`
	HTMLMessage string            `json:"htmlMessage,omitempty"`
	Variables   map[string]string `json:"variables,omitempty"`
	CampaignID  string            `json:"campaignId,omitempty"`
	Priority    string            `json:"priority,omitempty" validate:"omitempty,oneof=low normal high urgent"`
	ScheduleAt  *time.Time        `json:"scheduleAt,omitempty"`
}

// NotifyResponse envelopes per-recipient outcomes. Partial failure is still a
// 200 with success=true at the envelope level.
type NotifyResponse struct {
	Success bool               `json:"success"`
	Sent    int                `json:"sent"`
	Failed  int                `json:"failed"`
	Results []RecipientResult  `json:"results"`
	Errors  []RecipientFailure `json:"errors"`
}

type RecipientResult struct {
	UserID    string      `json:"userId,omitempty"`
	To        string      `json:"to,omitempty"`
	Channel   string      `json:"channel,omitempty"`
	MessageID string      `json:"messageId,omitempty"`
	Multi     interface{} `json:"multi,omitempty"`
}

type RecipientFailure struct {
	UserID  string `json:"userId,omitempty"`
	To      string `json:"to,omitempty"`
	Channel string `json:"channel,omitempty"`
	Error   string `json:"error"`
}

// ProviderStatus is the GET /api/v1/messaging/notify health payload.
type ProviderStatus struct {
	Email  bool     `json:"email"`
	SMS    bool     `json:"sms"`
	InApp  bool     `json:"inApp"`
	Errors []string `json:"errors"`
}
