package maintenance

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// IngestRunner triggers one ingestion run.
type IngestRunner interface {
	RunScheduled(ctx context.Context)
}

// Scheduler drives the periodic work: weekday ingestion and weekly catalog
// repair. Schedules are standard cron specs.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewScheduler registers the ingestion and maintenance jobs. An invalid
// cron spec is a construction error — misconfigured schedules should fail
// at startup, not silently never fire.
func NewScheduler(ingest IngestRunner, maint *Service, ingestSpec, maintSpec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New()

	if _, err := c.AddFunc(ingestSpec, func() {
		ingest.RunScheduled(context.Background())
	}); err != nil {
		return nil, err
	}

	if _, err := c.AddFunc(maintSpec, func() {
		if _, err := maint.Run(context.Background()); err != nil {
			logger.Warn("scheduled maintenance failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}

	logger.Info("schedules registered", "ingest", ingestSpec, "maintenance", maintSpec)
	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins firing schedules in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the scheduler without waiting for running jobs.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}
