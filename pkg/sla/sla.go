// Package sla periodically scans for workflows stuck in a stage and nudges
// the responsible desks. Reminders are notifications only; nothing ever
// auto-advances.
package sla

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rwcma/capitalab/pkg/engine"
)

// DefaultSchedule runs the scan every fifteen minutes.
const DefaultSchedule = "*/15 * * * *"

// DefaultStaleAfter is how long a stage may sit open before a reminder.
const DefaultStaleAfter = 24 * time.Hour

// Scanner drives periodic stalled-workflow reminders on a cron schedule.
type Scanner struct {
	engine     *engine.Engine
	logger     *slog.Logger
	cron       *cron.Cron
	staleAfter time.Duration
}

// NewScanner creates a scanner. A non-positive staleAfter falls back to the
// default.
func NewScanner(eng *engine.Engine, logger *slog.Logger, staleAfter time.Duration) *Scanner {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	return &Scanner{
		engine:     eng,
		logger:     logger,
		cron:       cron.New(),
		staleAfter: staleAfter,
	}
}

// Start schedules the scan and begins running it. An empty schedule uses
// the default.
func (s *Scanner) Start(ctx context.Context, schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	_, err := s.cron.AddFunc(schedule, func() {
		s.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("SLA reminder scanner started", "schedule", schedule, "stale_after", s.staleAfter)

	return nil
}

// Stop halts the schedule and waits for an in-flight scan to finish.
func (s *Scanner) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scanner) runOnce(ctx context.Context) {
	reminded, err := s.engine.RemindStalled(ctx, s.staleAfter)
	if err != nil {
		s.logger.Error("SLA scan failed", "error", err)

		return
	}

	if reminded > 0 {
		s.logger.Info("SLA reminders sent", "workflows", reminded)
	}
}
