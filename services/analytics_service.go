// services/analytics_service.go
package services

import (
	"context"
	"time"

	"memorybox/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageAnalyticsSource is the read-side slice of the delivery-record
// repository.
type MessageAnalyticsSource interface {
	CountEngagement(ctx context.Context, campaignID *primitive.ObjectID, since, until *time.Time) (*models.EngagementCounts, error)
	CountDailyEngagement(ctx context.Context, since time.Time) (map[string]models.EngagementCounts, error)
	CountByChannel(ctx context.Context, since *time.Time) (map[string]int64, error)
}

// CampaignSource reads campaigns for per-campaign rollups.
type CampaignSource interface {
	GetByID(ctx context.Context, id string) (*models.Campaign, error)
	List(ctx context.Context, req models.GetCampaignsRequest) ([]models.Campaign, int64, error)
}

// AnalyticsService computes read-only rollups over delivery records. It never
// writes; campaign stats mutation belongs to the dispatcher.
type AnalyticsService struct {
	messages  MessageAnalyticsSource
	campaigns CampaignSource
}

func NewAnalyticsService(messages MessageAnalyticsSource, campaigns CampaignSource) *AnalyticsService {
	return &AnalyticsService{
		messages:  messages,
		campaigns: campaigns,
	}
}

// ComputeOverview turns raw counts into rates. Denominators are fixed:
// delivery and failure over total sent, opens over delivered, clicks over
// opened. Empty denominators yield zero, not NaN.
func ComputeOverview(counts models.EngagementCounts) models.DeliveryOverview {
	overview := models.DeliveryOverview{
		TotalSent: counts.Sent,
		Delivered: counts.Delivered,
		Opened:    counts.Opened,
		Clicked:   counts.Clicked,
		Failed:    counts.Failed,
	}

	if counts.Sent > 0 {
		overview.DeliveryRate = float64(counts.Delivered) / float64(counts.Sent)
		overview.FailureRate = float64(counts.Failed) / float64(counts.Sent)
	}
	if counts.Delivered > 0 {
		overview.OpenRate = float64(counts.Opened) / float64(counts.Delivered)
	}
	if counts.Opened > 0 {
		overview.ClickRate = float64(counts.Clicked) / float64(counts.Opened)
	}

	return overview
}

// Overview rolls up all delivery records in the trailing window.
func (as *AnalyticsService) Overview(ctx context.Context, days int) (*models.DeliveryOverview, error) {
	since := windowStart(days)

	counts, err := as.messages.CountEngagement(ctx, nil, &since, nil)
	if err != nil {
		return nil, err
	}

	overview := ComputeOverview(*counts)
	return &overview, nil
}

// DailyTrend returns one bucket per calendar day over the trailing window,
// inclusive of today, ordered oldest to newest. Days without records are
// zero buckets.
func (as *AnalyticsService) DailyTrend(ctx context.Context, days int) ([]models.DailyTrendPoint, error) {
	if days < 1 {
		days = 7
	}

	since := windowStart(days)

	buckets, err := as.messages.CountDailyEngagement(ctx, since)
	if err != nil {
		return nil, err
	}

	trend := make([]models.DailyTrendPoint, 0, days)
	day := since
	for i := 0; i < days; i++ {
		date := day.Format("2006-01-02")
		counts := buckets[date]

		trend = append(trend, models.DailyTrendPoint{
			Date:      date,
			Sent:      counts.Sent,
			Delivered: counts.Delivered,
			Opened:    counts.Opened,
			Clicked:   counts.Clicked,
			Failed:    counts.Failed,
		})

		day = day.AddDate(0, 0, 1)
	}

	return trend, nil
}

// CampaignAnalytics scopes the overview to one campaign's records.
func (as *AnalyticsService) CampaignAnalytics(ctx context.Context, id string) (*models.CampaignAnalytics, error) {
	campaign, err := as.campaigns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	counts, err := as.messages.CountEngagement(ctx, &campaign.ID, nil, nil)
	if err != nil {
		return nil, err
	}

	return &models.CampaignAnalytics{
		Campaign: *campaign,
		Overview: ComputeOverview(*counts),
	}, nil
}

// CampaignsAnalytics lists campaigns with rates computed over each campaign's
// own records.
func (as *AnalyticsService) CampaignsAnalytics(ctx context.Context, req models.GetCampaignsRequest) ([]models.CampaignAnalytics, int64, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PageSize < 1 || req.PageSize > 100 {
		req.PageSize = 20
	}

	campaigns, total, err := as.campaigns.List(ctx, req)
	if err != nil {
		return nil, 0, err
	}

	analytics := make([]models.CampaignAnalytics, 0, len(campaigns))
	for _, campaign := range campaigns {
		counts, err := as.messages.CountEngagement(ctx, &campaign.ID, nil, nil)
		if err != nil {
			return nil, 0, err
		}

		analytics = append(analytics, models.CampaignAnalytics{
			Campaign: campaign,
			Overview: ComputeOverview(*counts),
		})
	}

	return analytics, total, nil
}

// ChannelBreakdown counts attempted sends per channel over the trailing
// window.
func (as *AnalyticsService) ChannelBreakdown(ctx context.Context, days int) (*models.ChannelBreakdown, error) {
	since := windowStart(days)

	counts, err := as.messages.CountByChannel(ctx, &since)
	if err != nil {
		return nil, err
	}

	return &models.ChannelBreakdown{
		Email: counts[models.ChannelEmail],
		SMS:   counts[models.ChannelSMS],
		InApp: counts[models.ChannelInApp],
	}, nil
}

// windowStart is midnight UTC at the start of the trailing window, counted so
// the window includes today.
func windowStart(days int) time.Time {
	if days < 1 {
		days = 7
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(days - 1))
}
