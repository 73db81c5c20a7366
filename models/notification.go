package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notification Priority Constants
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// NotificationTTL is how long an in-app notification stays visible.
const NotificationTTL = 30 * 24 * time.Hour

// Notification is the user-visible in-app artifact. The MessageRecord created
// alongside it is the audit/analytics artifact.
type Notification struct {
	ID     primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID string             `json:"userId" bson:"userId"`

	Title    string            `json:"title" bson:"title"`
	Body     string            `json:"body" bson:"body"`
	Data     map[string]string `json:"data,omitempty" bson:"data,omitempty"`
	Priority string            `json:"priority" bson:"priority"` // low, normal, high, urgent

	Read   bool       `json:"read" bson:"read"`
	ReadAt *time.Time `json:"readAt,omitempty" bson:"readAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt" bson:"expiresAt"`
}

// Request DTOs
type GetNotificationsRequest struct {
	UserID   string `json:"userId" form:"userId"`
	Unread   bool   `json:"unread" form:"unread"`
	Page     int    `json:"page" form:"page"`
	PageSize int    `json:"pageSize" form:"pageSize"`
}

type MarkNotificationsReadRequest struct {
	NotificationIDs []string `json:"notificationIds" validate:"required,min=1"`
}
