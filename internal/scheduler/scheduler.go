package scheduler

import (
	"context"
	"time"

	"github.com/certprep-labs/analysis-service/internal/services"
	"github.com/certprep-labs/analysis-service/internal/utils"
	"github.com/go-co-op/gocron"
)

// Scheduler runs the weekly report refresh. The job fires at the same moment
// stored reports expire, so regenerated reports land right as the old ones
// lapse.
type Scheduler struct {
	cron    *gocron.Scheduler
	reports services.ReportService
	logger  utils.Logger
}

func New(reports services.ReportService, logger utils.Logger) *Scheduler {
	return &Scheduler{
		cron:    gocron.NewScheduler(time.UTC),
		reports: reports,
		logger:  logger,
	}
}

// Start registers the weekly job and launches the scheduler in the
// background.
func (s *Scheduler) Start() error {
	_, err := s.cron.Every(1).Week().Friday().At("08:00").Do(s.refreshExpired)
	if err != nil {
		return err
	}

	s.cron.StartAsync()
	s.logger.Info("Scheduler started", "job", "weekly report refresh", "schedule", "Friday 08:00 UTC")
	return nil
}

// Stop waits for a running job to finish before returning.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	s.logger.Info("Scheduler stopped")
}

func (s *Scheduler) refreshExpired() {
	// Generous ceiling: the batch holds many sequential pipeline runs, each
	// with its own 90s budget.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	started := time.Now()
	summary, err := s.reports.RefreshAllExpiredReports(ctx)
	if err != nil {
		s.logger.Error("Weekly report refresh failed", "error", err)
		return
	}

	s.logger.Info("Weekly report refresh finished",
		"total", summary.Total,
		"refreshed", summary.Refreshed,
		"failed", summary.Failed,
		"duration", time.Since(started).String())
}
