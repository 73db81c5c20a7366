// workers/cleanup_worker_test.go
package workers

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeNotificationPurger struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakeNotificationPurger) DeleteExpired(ctx context.Context) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

type fakeStalePendingCloser struct {
	failed  int64
	err     error
	cutoffs []time.Time
}

func (f *fakeStalePendingCloser) MarkStalePendingFailed(ctx context.Context, olderThan time.Time) (int64, error) {
	f.cutoffs = append(f.cutoffs, olderThan)
	return f.failed, f.err
}

func newTestCleanupWorker(notifications *fakeNotificationPurger, messages *fakeStalePendingCloser) *CleanupWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &CleanupWorker{
		notificationRepo: notifications,
		messageRepo:      messages,
		config: CleanupWorkerConfig{
			Interval:        time.Hour,
			StalePendingAge: 24 * time.Hour,
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

func TestCleanupMarksStalePendingFailed(t *testing.T) {
	notifications := &fakeNotificationPurger{deleted: 3}
	messages := &fakeStalePendingCloser{failed: 2}
	worker := newTestCleanupWorker(notifications, messages)

	worker.executeCleanup()

	if len(messages.cutoffs) != 1 {
		t.Fatalf("MarkStalePendingFailed calls = %d, want 1", len(messages.cutoffs))
	}

	// The cutoff is the configured age back from now; the records behind it
	// are marked failed, never deleted, so the attempt stays auditable.
	wantCutoff := time.Now().Add(-worker.config.StalePendingAge)
	if diff := messages.cutoffs[0].Sub(wantCutoff); diff < -time.Minute || diff > time.Minute {
		t.Errorf("cutoff = %v, want roughly %v", messages.cutoffs[0], wantCutoff)
	}

	stats := worker.GetStats()
	if stats.RunsExecuted != 1 {
		t.Errorf("RunsExecuted = %d, want 1", stats.RunsExecuted)
	}
	if stats.NotificationsCleaned != 3 {
		t.Errorf("NotificationsCleaned = %d, want 3", stats.NotificationsCleaned)
	}
	if stats.StaleRecordsFailed != 2 {
		t.Errorf("StaleRecordsFailed = %d, want 2", stats.StaleRecordsFailed)
	}
}

func TestCleanupCountsFailedRuns(t *testing.T) {
	notifications := &fakeNotificationPurger{}
	messages := &fakeStalePendingCloser{err: errors.New("mongo unavailable")}
	worker := newTestCleanupWorker(notifications, messages)

	worker.executeCleanup()

	stats := worker.GetStats()
	if stats.RunsFailed != 1 {
		t.Errorf("RunsFailed = %d, want 1", stats.RunsFailed)
	}
	if stats.RunsExecuted != 0 {
		t.Errorf("RunsExecuted = %d, want 0", stats.RunsExecuted)
	}
}
