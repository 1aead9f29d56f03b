package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"mercator-hq/chronicle/pkg/history"
)

// ReportPublisher receives the rows of every scheduled report run.
type ReportPublisher interface {
	PublishReport(kind PolicyKind, rows []Row)
}

// Scheduler runs the cleanable report for every kind on a cron schedule and
// hands the rows to a publisher, typically the metrics collector. It only
// reads: deleting eligible records is left to whoever consumes the rows.
type Scheduler struct {
	aggregator *Aggregator
	publisher  ReportPublisher
	schedule   string
	kinds      []PolicyKind

	cron    *cron.Cron
	mu      sync.Mutex
	logger  *slog.Logger
	running bool
}

// NewScheduler creates a scheduler for schedule, a standard five-field cron
// expression. An empty schedule disables it.
func NewScheduler(aggregator *Aggregator, publisher ReportPublisher, schedule string) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		publisher:  publisher,
		schedule:   schedule,
		kinds:      PolicyKinds,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "retention.scheduler"),
	}
}

// Start registers the report job and starts the cron loop. It returns
// immediately; the scheduler stops when ctx is cancelled.
//
// Common cron expressions:
//   - "0 3 * * *"    - Daily at 3 AM
//   - "*/15 * * * *" - Every 15 minutes
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("report schedule not configured, skipping scheduler")
		return nil
	}
	if s.running {
		return fmt.Errorf("scheduler already running")
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reports: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("report scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// RunOnce computes the report of every kind and publishes the rows. A failing
// kind is logged and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) {
	for _, kind := range s.kinds {
		rows, err := s.aggregator.Report(ctx, NewCleanableReport(kind), history.AllResults)
		if err != nil {
			s.logger.Error("scheduled report failed", "kind", kind, "error", err)
			continue
		}
		if s.publisher != nil {
			s.publisher.PublishReport(kind, rows)
		}

		var cleanable int64
		for _, r := range rows {
			cleanable += r.CleanableCount
		}
		s.logger.Debug("scheduled report completed", "kind", kind, "rows", len(rows), "cleanable", cleanable)
	}
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("report scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled run, or nil when none is scheduled.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}
	next := entries[0].Next
	return &next
}
