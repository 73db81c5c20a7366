package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Campaign Type Constants
const (
	CampaignTypeEmail = "email"
	CampaignTypeSMS   = "sms"
	CampaignTypeInApp = "in_app"
	CampaignTypeMulti = "multi"
)

// Campaign Audience Constants
const (
	AudienceAll     = "all"
	AudiencePremium = "premium"
	AudienceFree    = "free"
)

// Campaign Status Constants
const (
	CampaignStatusDraft  = "draft"
	CampaignStatusActive = "active"
	CampaignStatusPaused = "paused"
	CampaignStatusSent   = "sent"
)

// Campaign Schedule Constants
const (
	ScheduleImmediate = "immediate"
	ScheduleScheduled = "scheduled"
)

// Campaign is a named batch-send definition targeting an audience segment,
// optionally backed by a template.
type Campaign struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`

	Type     string   `json:"type" bson:"type"`                             // email, sms, in_app, multi
	Channels []string `json:"channels,omitempty" bson:"channels,omitempty"` // multi only

	// Content: either a template reference or inline subject/message
	TemplateID *primitive.ObjectID `json:"templateId,omitempty" bson:"templateId,omitempty"`
	Subject    string              `json:"subject,omitempty" bson:"subject,omitempty"`
	Message    string              `json:"message,omitempty" bson:"message,omitempty"`
	HTMLBody   string              `json:"htmlBody,omitempty" bson:"htmlBody,omitempty"`

	// Campaign-level template variables, overridden per recipient at send time
	Variables map[string]string `json:"variables,omitempty" bson:"variables,omitempty"`

	Audience string `json:"audience" bson:"audience"` // all, premium, free

	ScheduleType string     `json:"scheduleType" bson:"scheduleType"` // immediate, scheduled
	ScheduledAt  *time.Time `json:"scheduledAt,omitempty" bson:"scheduledAt,omitempty"`

	Status string        `json:"status" bson:"status"` // draft, active, paused, sent
	Stats  CampaignStats `json:"stats" bson:"stats"`

	SentAt    *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updatedAt"`
}

// CampaignStats counters are monotonically non-decreasing and updated only by
// the dispatcher and aggregator, never by direct user edit.
type CampaignStats struct {
	Sent      int64 `json:"sent" bson:"sent"`
	Delivered int64 `json:"delivered" bson:"delivered"`
	Opened    int64 `json:"opened" bson:"opened"`
	Clicked   int64 `json:"clicked" bson:"clicked"`
	Failed    int64 `json:"failed" bson:"failed"`
}

// Request DTOs
type CreateCampaignRequest struct {
	Name         string            `json:"name" validate:"required,min=1,max=160"`
	Description  string            `json:"description"`
	Type         string            `json:"type" validate:"required,oneof=email sms in_app multi"`
	Channels     []string          `json:"channels" validate:"omitempty,dive,oneof=email sms in_app"`
	TemplateID   string            `json:"templateId"`
	Subject      string            `json:"subject"`
	Message      string            `json:"message"`
	HTMLBody     string            `json:"htmlBody"`
	Variables    map[string]string `json:"variables"`
	Audience     string            `json:"audience" validate:"required,oneof=all premium free"`
	ScheduleType string            `json:"scheduleType" validate:"omitempty,oneof=immediate scheduled"`
	ScheduledAt  *time.Time        `json:"scheduledAt"`
}

type GetCampaignsRequest struct {
	Type     string `json:"type" form:"type"`
	Status   string `json:"status" form:"status"`
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"pageSize" form:"pageSize"`
}

// CampaignSendResult summarizes one fan-out invocation.
type CampaignSendResult struct {
	CampaignID string   `json:"campaignId"`
	Audience   int      `json:"audience"`
	Sent       int64    `json:"sent"`
	Failed     int64    `json:"failed"`
	Errors     []string `json:"errors,omitempty"`
}
