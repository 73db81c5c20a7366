package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message Channel Constants
const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
	ChannelInApp = "in_app"
)

// Message Status Constants
const (
	MessageStatusPending   = "pending"
	MessageStatusSent      = "sent"
	MessageStatusDelivered = "delivered"
	MessageStatusFailed    = "failed"
)

// Message Provider Constants
const (
	ProviderSendGrid = "sendgrid"
	ProviderTwilio   = "twilio"
	ProviderFirebase = "firebase"
)

// MessageRecord is the audit/tracking document created per send attempt. It is
// distinct from the user-visible in-app Notification. Exactly one record exists
// per (recipient, send) attempt; retries create a new record referencing the
// original via RetriesOf.
type MessageRecord struct {
	ID   primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Type string             `json:"type" bson:"type"` // email, sms, in_app
	To   string             `json:"to" bson:"to"`     // address, phone or userId

	// Back-references (nullable)
	TemplateID *primitive.ObjectID `json:"templateId,omitempty" bson:"templateId,omitempty"`
	CampaignID *primitive.ObjectID `json:"campaignId,omitempty" bson:"campaignId,omitempty"`
	UserID     string              `json:"userId,omitempty" bson:"userId,omitempty"`
	RetriesOf  *primitive.ObjectID `json:"retriesOf,omitempty" bson:"retriesOf,omitempty"`

	Status string `json:"status" bson:"status"` // pending -> sent|failed

	// Exactly one of these is set, matching Type.
	Email *EmailDetails `json:"email,omitempty" bson:"email,omitempty"`
	SMS   *SMSDetails   `json:"sms,omitempty" bson:"sms,omitempty"`
	InApp *InAppDetails `json:"inApp,omitempty" bson:"inApp,omitempty"`

	// Provider diagnostics
	Provider          string `json:"provider,omitempty" bson:"provider,omitempty"`
	ProviderMessageID string `json:"providerMessageId,omitempty" bson:"providerMessageId,omitempty"`
	ProviderResponse  string `json:"providerResponse,omitempty" bson:"providerResponse,omitempty"`
	Error             string `json:"error,omitempty" bson:"error,omitempty"`

	// Open-tracking token embedded in the pixel URL (email only)
	TrackingToken string `json:"trackingToken,omitempty" bson:"trackingToken,omitempty"`

	// Engagement timestamps, append-only, reported out-of-band by providers
	SentAt      *time.Time `json:"sentAt,omitempty" bson:"sentAt,omitempty"`
	DeliveredAt *time.Time `json:"deliveredAt,omitempty" bson:"deliveredAt,omitempty"`
	OpenedAt    *time.Time `json:"openedAt,omitempty" bson:"openedAt,omitempty"`
	ClickedAt   *time.Time `json:"clickedAt,omitempty" bson:"clickedAt,omitempty"`
	FailedAt    *time.Time `json:"failedAt,omitempty" bson:"failedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

type EmailDetails struct {
	Subject string `json:"subject" bson:"subject"`
	Text    string `json:"text,omitempty" bson:"text,omitempty"`
	HTML    string `json:"html,omitempty" bson:"html,omitempty"`
}

type SMSDetails struct {
	Body string `json:"body" bson:"body"`
}

type InAppDetails struct {
	Title          string `json:"title" bson:"title"`
	Body           string `json:"body" bson:"body"`
	NotificationID string `json:"notificationId,omitempty" bson:"notificationId,omitempty"`
}

// GetMessagesRequest filters the delivery record listing.
type GetMessagesRequest struct {
	Type       string `json:"type" form:"type"`
	Status     string `json:"status" form:"status"`
	CampaignID string `json:"campaignId" form:"campaignId"`
	UserID     string `json:"userId" form:"userId"`
	Days       int    `json:"days" form:"days"`
	Page       int    `json:"page" form:"page"`
	PageSize   int    `json:"pageSize" form:"pageSize"`
}

// SendResult is what the dispatcher returns for a single attempt.
type SendResult struct {
	Success           bool   `json:"success"`
	MessageID         string `json:"messageId,omitempty"`
	ProviderMessageID string `json:"providerMessageId,omitempty"`
	NotificationID    string `json:"notificationId,omitempty"` // in_app only
}

// MultiChannelResult reports every attempted channel independently; Success is
// true only when zero errors occurred across all attempted channels.
type MultiChannelResult struct {
	Results MultiChannelResults `json:"results"`
	Errors  []ChannelError      `json:"errors"`
	Success bool                `json:"success"`
}

type MultiChannelResults struct {
	Email *SendResult `json:"email,omitempty"`
	SMS   *SendResult `json:"sms,omitempty"`
	InApp *SendResult `json:"inApp,omitempty"`
}

type ChannelError struct {
	Channel string `json:"channel"`
	Error   string `json:"error"`
}
