package models

// DeliveryOverview is the rollup over delivery records for a time window.
// Rates use fixed denominators: delivery and failure over total sent, opens
// over delivered, clicks over opened.
type DeliveryOverview struct {
	TotalSent    int64   `json:"totalSent"`
	Delivered    int64   `json:"delivered"`
	Opened       int64   `json:"opened"`
	Clicked      int64   `json:"clicked"`
	Failed       int64   `json:"failed"`
	DeliveryRate float64 `json:"deliveryRate"`
	OpenRate     float64 `json:"openRate"`
	ClickRate    float64 `json:"clickRate"`
	FailureRate  float64 `json:"failureRate"`
}

// DailyTrendPoint is one calendar-day bucket, ordered oldest to newest.
type DailyTrendPoint struct {
	Date      string `json:"date"` // YYYY-MM-DD
	Sent      int64  `json:"sent"`
	Delivered int64  `json:"delivered"`
	Opened    int64  `json:"opened"`
	Clicked   int64  `json:"clicked"`
	Failed    int64  `json:"failed"`
}

// CampaignAnalytics is a campaign with rates computed over its own records.
type CampaignAnalytics struct {
	Campaign Campaign         `json:"campaign"`
	Overview DeliveryOverview `json:"overview"`
}

// EngagementCounts is the raw tally a rate computation starts from. Implied
// states are already folded in: a click counts as an open, an open counts as
// a delivery.
type EngagementCounts struct {
	Sent      int64 `bson:"sent" json:"sent"`
	Delivered int64 `bson:"delivered" json:"delivered"`
	Opened    int64 `bson:"opened" json:"opened"`
	Clicked   int64 `bson:"clicked" json:"clicked"`
	Failed    int64 `bson:"failed" json:"failed"`
}

// ChannelBreakdown counts attempted sends per channel.
type ChannelBreakdown struct {
	Email int64 `json:"email"`
	SMS   int64 `json:"sms"`
	InApp int64 `json:"in_app"`
}
