package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User Plan Constants
const (
	PlanFree    = "free"
	PlanPremium = "premium"
)

// User is the recipient snapshot the messaging subsystem reads. Account and
// session management live elsewhere; only contact info, plan and notification
// reachability matter here.
type User struct {
	ID    primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Email string             `json:"email" bson:"email"`
	Phone string             `json:"phone,omitempty" bson:"phone,omitempty"`

	FirstName string `json:"firstName" bson:"firstName"`
	LastName  string `json:"lastName" bson:"lastName"`

	// Subscription plan; absent or "free" means the free tier
	Plan string `json:"plan,omitempty" bson:"plan,omitempty"`

	// Push reachability for the in-app channel
	DeviceToken string `json:"-" bson:"deviceToken,omitempty"`
	DeviceType  string `json:"deviceType,omitempty" bson:"deviceType,omitempty"` // ios, android

	Role     string `json:"role" bson:"role"` // user, admin
	IsActive bool   `json:"isActive" bson:"isActive"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Recipient is a resolved send target: a user flattened into the shape the
// dispatcher and template renderer consume.
type Recipient struct {
	UserID    string            `json:"userId"`
	Email     string            `json:"email,omitempty"`
	Phone     string            `json:"phone,omitempty"`
	FirstName string            `json:"firstName,omitempty"`
	LastName  string            `json:"lastName,omitempty"`
	Variables map[string]string `json:"variables,omitempty"`
}
