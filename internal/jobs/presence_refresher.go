package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// SessionSource lists the identities currently connected to this instance.
type SessionSource interface {
	OnlineIdentities() []string
}

// PresenceStore re-arms presence entries so they outlive their TTL.
type PresenceStore interface {
	Refresh(ctx context.Context, userIDs []string) error
}

// PresenceRefresherJob periodically refreshes the shared presence entries of
// every local session. Without it, long-lived sessions would expire from
// other instances' view.
type PresenceRefresherJob struct {
	sessions SessionSource
	store    PresenceStore
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
	cron     *cron.Cron
	stopOnce sync.Once
}

func NewPresenceRefresherJob(sessions SessionSource, store PresenceStore, schedule string, timeout time.Duration, logger *zap.Logger) *PresenceRefresherJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PresenceRefresherJob{
		sessions: sessions,
		store:    store,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger.Named("presence-refresher"),
		cron:     cron.New(),
	}
}

// Start schedules the refresh. It returns an error for an invalid schedule.
func (j *PresenceRefresherJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.RunOnce(context.Background()); err != nil {
			j.logger.Warn("presence refresh failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule presence refresh: %w", err)
	}

	j.cron.Start()
	j.logger.Info("presence refresher started", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler and waits for a running refresh to finish. It is
// safe to call more than once.
func (j *PresenceRefresherJob) Stop() {
	j.stopOnce.Do(func() {
		<-j.cron.Stop().Done()
		j.logger.Info("presence refresher stopped")
	})
}

// RunOnce refreshes every local session and returns how many were refreshed.
func (j *PresenceRefresherJob) RunOnce(ctx context.Context) (int, error) {
	ids := j.sessions.OnlineIdentities()
	if len(ids) == 0 {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	if err := j.store.Refresh(ctx, ids); err != nil {
		return 0, fmt.Errorf("refresh %d sessions: %w", len(ids), err)
	}
	j.logger.Debug("presence refreshed", zap.Int("sessions", len(ids)))
	return len(ids), nil
}
