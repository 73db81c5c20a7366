// services/analytics_service_test.go
package services

import (
	"context"
	"testing"
	"time"

	"memorybox/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAnalyticsSource struct {
	counts   models.EngagementCounts
	daily    map[string]models.EngagementCounts
	channels map[string]int64

	perCampaign map[string]models.EngagementCounts
}

func (f *fakeAnalyticsSource) CountEngagement(ctx context.Context, campaignID *primitive.ObjectID, since, until *time.Time) (*models.EngagementCounts, error) {
	if campaignID != nil && f.perCampaign != nil {
		counts := f.perCampaign[campaignID.Hex()]
		return &counts, nil
	}
	counts := f.counts
	return &counts, nil
}

func (f *fakeAnalyticsSource) CountDailyEngagement(ctx context.Context, since time.Time) (map[string]models.EngagementCounts, error) {
	return f.daily, nil
}

func (f *fakeAnalyticsSource) CountByChannel(ctx context.Context, since *time.Time) (map[string]int64, error) {
	return f.channels, nil
}

type fakeCampaignSource struct {
	campaigns map[string]*models.Campaign
	list      []models.Campaign
}

func (f *fakeCampaignSource) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	return f.campaigns[id], nil
}

func (f *fakeCampaignSource) List(ctx context.Context, req models.GetCampaignsRequest) ([]models.Campaign, int64, error) {
	return f.list, int64(len(f.list)), nil
}

func TestComputeOverviewRates(t *testing.T) {
	overview := ComputeOverview(models.EngagementCounts{
		Sent:      100,
		Delivered: 80,
		Opened:    40,
		Clicked:   10,
		Failed:    20,
	})

	if overview.DeliveryRate != 0.8 {
		t.Errorf("DeliveryRate = %v, want 0.8", overview.DeliveryRate)
	}
	if overview.OpenRate != 0.5 {
		t.Errorf("OpenRate = %v, want 0.5", overview.OpenRate)
	}
	if overview.ClickRate != 0.25 {
		t.Errorf("ClickRate = %v, want 0.25", overview.ClickRate)
	}
	if overview.FailureRate != 0.2 {
		t.Errorf("FailureRate = %v, want 0.2", overview.FailureRate)
	}
}

func TestComputeOverviewZeroDenominators(t *testing.T) {
	overview := ComputeOverview(models.EngagementCounts{})

	if overview.DeliveryRate != 0 || overview.OpenRate != 0 || overview.ClickRate != 0 || overview.FailureRate != 0 {
		t.Errorf("rates on empty counts = %+v, want all zero", overview)
	}

	// Sent but nothing delivered: open rate stays zero, not NaN
	overview = ComputeOverview(models.EngagementCounts{Sent: 5, Failed: 5})
	if overview.FailureRate != 1.0 {
		t.Errorf("FailureRate = %v, want 1.0", overview.FailureRate)
	}
	if overview.OpenRate != 0 {
		t.Errorf("OpenRate = %v, want 0", overview.OpenRate)
	}
}

func TestDailyTrendZeroFillsAndOrders(t *testing.T) {
	today := time.Now().UTC().Format("2006-01-02")
	source := &fakeAnalyticsSource{
		daily: map[string]models.EngagementCounts{
			today: {Sent: 3, Delivered: 2},
		},
	}

	as := NewAnalyticsService(source, &fakeCampaignSource{})

	trend, err := as.DailyTrend(context.Background(), 7)
	if err != nil {
		t.Fatalf("DailyTrend() error = %v", err)
	}

	if len(trend) != 7 {
		t.Fatalf("DailyTrend() returned %d points, want 7", len(trend))
	}

	// Oldest first, today last
	last := trend[len(trend)-1]
	if last.Date != today {
		t.Errorf("last bucket date = %s, want %s", last.Date, today)
	}
	if last.Sent != 3 || last.Delivered != 2 {
		t.Errorf("today's bucket = %+v, want sent=3 delivered=2", last)
	}

	for _, point := range trend[:len(trend)-1] {
		if point.Sent != 0 || point.Delivered != 0 {
			t.Errorf("bucket %s = %+v, want zero-filled", point.Date, point)
		}
	}

	for i := 1; i < len(trend); i++ {
		if trend[i-1].Date >= trend[i].Date {
			t.Errorf("buckets out of order: %s before %s", trend[i-1].Date, trend[i].Date)
		}
	}
}

func TestOverviewUsesWindowCounts(t *testing.T) {
	source := &fakeAnalyticsSource{
		counts: models.EngagementCounts{Sent: 10, Delivered: 8, Opened: 4, Clicked: 1, Failed: 2},
	}
	as := NewAnalyticsService(source, &fakeCampaignSource{})

	overview, err := as.Overview(context.Background(), 30)
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}

	if overview.TotalSent != 10 || overview.DeliveryRate != 0.8 {
		t.Errorf("Overview() = %+v", overview)
	}
}

func TestCampaignAnalyticsScopesToCampaign(t *testing.T) {
	campaignID := primitive.NewObjectID()
	campaigns := &fakeCampaignSource{
		campaigns: map[string]*models.Campaign{
			campaignID.Hex(): {ID: campaignID, Name: "Spring upsell"},
		},
	}
	source := &fakeAnalyticsSource{
		counts: models.EngagementCounts{Sent: 999},
		perCampaign: map[string]models.EngagementCounts{
			campaignID.Hex(): {Sent: 50, Delivered: 45},
		},
	}

	as := NewAnalyticsService(source, campaigns)

	analytics, err := as.CampaignAnalytics(context.Background(), campaignID.Hex())
	if err != nil {
		t.Fatalf("CampaignAnalytics() error = %v", err)
	}

	if analytics.Overview.TotalSent != 50 {
		t.Errorf("TotalSent = %d, want the campaign-scoped 50", analytics.Overview.TotalSent)
	}
	if analytics.Overview.DeliveryRate != 0.9 {
		t.Errorf("DeliveryRate = %v, want 0.9", analytics.Overview.DeliveryRate)
	}
}

func TestChannelBreakdown(t *testing.T) {
	source := &fakeAnalyticsSource{
		channels: map[string]int64{
			models.ChannelEmail: 12,
			models.ChannelSMS:   3,
		},
	}
	as := NewAnalyticsService(source, &fakeCampaignSource{})

	breakdown, err := as.ChannelBreakdown(context.Background(), 30)
	if err != nil {
		t.Fatalf("ChannelBreakdown() error = %v", err)
	}

	if breakdown.Email != 12 || breakdown.SMS != 3 || breakdown.InApp != 0 {
		t.Errorf("ChannelBreakdown() = %+v", breakdown)
	}
}
