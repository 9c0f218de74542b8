package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"strengths_manager/internal/app"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// TickRunner runs one campaign tick.
type TickRunner interface {
	RunCampaignTick(ctx context.Context) ([]app.TickOutcome, error)
}

// TickReporter is told about every scheduled tick, e.g. to notify an admin.
type TickReporter interface {
	ReportTick(ctx context.Context, summary app.TickSummary, err error)
}

type CampaignScheduler struct {
	cronEngine  *cron.Cron
	runner      TickRunner
	reporters   []TickReporter
	logger      *logrus.Entry
	cronSpec    string
	tickTimeout time.Duration

	mu      sync.Mutex
	running bool
}

func NewCampaignScheduler(
	runner TickRunner,
	logger *logrus.Entry,
	cronSpec string, // e.g., "0 9 * * 1" (9:00 AM every Monday)
	tickTimeout time.Duration,
	reporters ...TickReporter,
) *CampaignScheduler {
	return &CampaignScheduler{
		cronEngine:  cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		runner:      runner,
		reporters:   reporters,
		logger:      logger,
		cronSpec:    cronSpec,
		tickTimeout: tickTimeout,
	}
}

func (s *CampaignScheduler) Start() error {
	s.logger.WithField("cron_spec", s.cronSpec).Info("Starting campaign scheduler")

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron job triggered for weekly campaign tick")
		s.RunTick(context.Background())
	})
	if err != nil {
		return fmt.Errorf("could not add weekly campaign cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.Info("Campaign scheduler started")
	return nil
}

// RunTick runs one tick under the tick timeout and reports it. A call made while
// another tick is in progress returns false without running.
func (s *CampaignScheduler) RunTick(ctx context.Context) bool {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.logger.Warn("Campaign tick already running, skipping")
		return false
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, s.tickTimeout)
	defer cancel()

	start := time.Now()
	outcomes, err := s.runner.RunCampaignTick(ctx)
	summary := app.SummarizeOutcomes(outcomes)
	log := s.logger.WithFields(logrus.Fields{
		"processed":   summary.Total,
		"sent":        summary.Sent,
		"failed":      summary.Failed,
		"skipped":     summary.Skipped,
		"deactivated": summary.Deactivated,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.WithError(err).Error("Campaign tick failed")
	} else {
		log.Info("Campaign tick finished")
	}

	for _, r := range s.reporters {
		r.ReportTick(context.WithoutCancel(ctx), summary, err)
	}
	return true
}

func (s *CampaignScheduler) Stop() {
	s.logger.Info("Stopping campaign scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Campaign scheduler gracefully stopped")
}
