// workers/cleanup_worker.go
package workers

import (
	"context"
	"sync"
	"time"

	"memorybox/repositories"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationPurger removes expired in-app notifications.
// *repositories.NotificationRepository satisfies it.
type NotificationPurger interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// StalePendingCloser marks abandoned pending delivery records failed.
// *repositories.MessageRepository satisfies it.
type StalePendingCloser interface {
	MarkStalePendingFailed(ctx context.Context, olderThan time.Time) (int64, error)
}

// CleanupWorker periodically purges expired in-app notifications and closes
// out delivery records stuck in pending. Stale pending records are marked
// failed, never deleted; the record is the audit trace of the attempt.
type CleanupWorker struct {
	notificationRepo NotificationPurger
	messageRepo      StalePendingCloser

	config CleanupWorkerConfig

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      CleanupWorkerStats
	statsMutex sync.RWMutex
}

type CleanupWorkerConfig struct {
	// How often the purge runs
	Interval time.Duration `json:"interval"`

	// Pending records older than this are considered abandoned and marked
	// failed
	StalePendingAge time.Duration `json:"stalePendingAge"`
}

type CleanupWorkerStats struct {
	RunsExecuted         int64     `json:"runsExecuted"`
	RunsFailed           int64     `json:"runsFailed"`
	NotificationsCleaned int64     `json:"notificationsCleaned"`
	StaleRecordsFailed   int64     `json:"staleRecordsFailed"`
	LastCleanupAt        time.Time `json:"lastCleanupAt"`
	StartTime            time.Time `json:"startTime"`
}

func NewCleanupWorker(db *mongo.Database) *CleanupWorker {
	ctx, cancel := context.WithCancel(context.Background())

	return &CleanupWorker{
		notificationRepo: repositories.NewNotificationRepository(db),
		messageRepo:      repositories.NewMessageRepository(db),
		config: CleanupWorkerConfig{
			Interval:        time.Hour,
			StalePendingAge: 24 * time.Hour,
		},
		ctx:    ctx,
		cancel: cancel,
		stats: CleanupWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (cw *CleanupWorker) Start() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if cw.isRunning {
		return nil
	}

	cw.isRunning = true

	cw.wg.Add(1)
	go cw.run()

	logrus.Infof("Cleanup worker started, interval %v", cw.config.Interval)
	return nil
}

func (cw *CleanupWorker) Stop() error {
	cw.mutex.Lock()
	defer cw.mutex.Unlock()

	if !cw.isRunning {
		return nil
	}

	cw.cancel()
	cw.isRunning = false
	cw.wg.Wait()

	logrus.Info("Cleanup worker stopped")
	return nil
}

func (cw *CleanupWorker) run() {
	defer cw.wg.Done()

	ticker := time.NewTicker(cw.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cw.executeCleanup()

		case <-cw.ctx.Done():
			return
		}
	}
}

func (cw *CleanupWorker) executeCleanup() {
	start := time.Now()

	notifications, err1 := cw.cleanupNotifications(cw.ctx)
	stale, err2 := cw.closeStalePending(cw.ctx)

	cw.statsMutex.Lock()
	defer cw.statsMutex.Unlock()

	cw.stats.LastCleanupAt = time.Now()
	if err1 != nil || err2 != nil {
		cw.stats.RunsFailed++
		return
	}

	cw.stats.RunsExecuted++
	cw.stats.NotificationsCleaned += notifications
	cw.stats.StaleRecordsFailed += stale

	logrus.WithFields(logrus.Fields{
		"notifications": notifications,
		"stale_records": stale,
		"duration":      time.Since(start).String(),
	}).Info("Cleanup run completed")
}

func (cw *CleanupWorker) cleanupNotifications(ctx context.Context) (int64, error) {
	deleted, err := cw.notificationRepo.DeleteExpired(ctx)
	if err != nil {
		logrus.Errorf("Failed to delete expired notifications: %v", err)
		return 0, err
	}
	return deleted, nil
}

func (cw *CleanupWorker) closeStalePending(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-cw.config.StalePendingAge)

	failed, err := cw.messageRepo.MarkStalePendingFailed(ctx, cutoff)
	if err != nil {
		logrus.Errorf("Failed to close stale pending records: %v", err)
		return 0, err
	}
	return failed, nil
}

func (cw *CleanupWorker) GetStats() CleanupWorkerStats {
	cw.statsMutex.RLock()
	defer cw.statsMutex.RUnlock()
	return cw.stats
}

// StartCleanupWorker builds and starts the worker
func StartCleanupWorker(db *mongo.Database) *CleanupWorker {
	worker := NewCleanupWorker(db)

	if err := worker.Start(); err != nil {
		logrus.Fatalf("Failed to start cleanup worker: %v", err)
	}

	return worker
}
