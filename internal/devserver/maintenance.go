package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/assetflow/internal/logfields"
)

// Pruner removes cache entries last used before a cutoff; *storage.FSStore implements it.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Maintenance runs periodic housekeeping while the dev server is up.
type Maintenance struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	now       func() time.Time
}

// NewMaintenance creates the scheduler; nothing runs before Start.
func NewMaintenance(logger *slog.Logger) (*Maintenance, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{scheduler: s, logger: logger, now: time.Now}, nil
}

// ScheduleCacheGC prunes objects not accessed within ttl every interval. The first run
// happens immediately.
func (m *Maintenance) ScheduleCacheGC(ctx context.Context, p Pruner, interval, ttl time.Duration) (string, error) {
	job, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { m.pruneCache(ctx, p, ttl) }),
		gocron.WithName("image-cache-gc"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create cache gc job: %w", err)
	}
	return job.ID().String(), nil
}

func (m *Maintenance) pruneCache(ctx context.Context, p Pruner, ttl time.Duration) {
	removed, err := p.Prune(ctx, m.now().Add(-ttl))
	if err != nil {
		m.logger.Warn("Image cache GC failed", logfields.Error(err))
		return
	}
	if removed > 0 {
		m.logger.Info("Image cache GC", logfields.Files(removed))
	}
}

// Start begins running scheduled jobs.
func (m *Maintenance) Start() {
	m.scheduler.Start()
}

// Stop shuts the scheduler down, waiting for running jobs.
func (m *Maintenance) Stop() error {
	return m.scheduler.Shutdown()
}
