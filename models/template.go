package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Template Type Constants
const (
	TemplateTypeEmail = "email"
	TemplateTypeSMS   = "sms"
)

// Template Category Constants
const (
	TemplateCategoryWelcome      = "welcome"
	TemplateCategoryReminder     = "reminder"
	TemplateCategoryCampaign     = "campaign"
	TemplateCategoryNotification = "notification"
	TemplateCategorySecurity     = "security"
)

// Template is a reusable message skeleton with {{variable}} placeholders,
// scoped to a channel and category.
type Template struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name     string             `json:"name" bson:"name"`
	Type     string             `json:"type" bson:"type"`         // email, sms
	Category string             `json:"category" bson:"category"` // welcome, reminder, campaign, notification, security

	// Content
	Subject string `json:"subject,omitempty" bson:"subject,omitempty"` // email only
	Body    string `json:"body" bson:"body"`
	HTML    string `json:"html,omitempty" bson:"html,omitempty"` // email only

	// Variables discovered at authoring time
	Variables []string `json:"variables" bson:"variables"`

	// Inactive templates render for preview only, never for send
	Active bool `json:"active" bson:"active"`

	UsageCount int64     `json:"usageCount" bson:"usageCount"`
	CreatedAt  time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updatedAt"`
}

// TemplateValidation is the result of validating template content.
type TemplateValidation struct {
	IsValid   bool     `json:"isValid"`
	Errors    []string `json:"errors"`
	Warnings  []string `json:"warnings"`
	Variables []string `json:"variables"`
}

// TemplatePreview is a rendered template using canned sample data.
type TemplatePreview struct {
	Subject    string            `json:"subject,omitempty"`
	Body       string            `json:"body"`
	HTML       string            `json:"html,omitempty"`
	SampleData map[string]string `json:"sampleData"`
}

// Request DTOs
type CreateTemplateRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Type     string `json:"type" validate:"required,oneof=email sms"`
	Category string `json:"category" validate:"required,template_category"`
	Subject  string `json:"subject"`
	Body     string `json:"body" validate:"required"`
	HTML     string `json:"html"`
	Active   *bool  `json:"active"`
}

type UpdateTemplateRequest struct {
	Name    *string `json:"name,omitempty"`
	Subject *string `json:"subject,omitempty"`
	Body    *string `json:"body,omitempty"`
	HTML    *string `json:"html,omitempty"`
	Active  *bool   `json:"active,omitempty"`
}

type ValidateTemplateRequest struct {
	Content string `json:"content"`
}

type PreviewTemplateRequest struct {
	Category  string            `json:"category"`
	Variables map[string]string `json:"variables,omitempty"`
}

type GetTemplatesRequest struct {
	Type     string `json:"type" form:"type"`
	Category string `json:"category" form:"category"`
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"pageSize" form:"pageSize"`
}
