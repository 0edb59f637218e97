// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the background purge cycle that reclaims expired
// events from the store.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/time/rate"

	"github.com/audithq/logkeeper/internal/engine"
)

// DefaultSchedule runs the purge daily at 03:00; retention granularity is
// days, so anything more frequent buys nothing.
const DefaultSchedule = "0 3 * * *"

// DefaultBudget bounds a single purge cycle. A cycle that exhausts its
// budget logs a warning and yields; the next tick picks up the remainder.
const DefaultBudget = 5 * time.Minute

// Manual triggers are rate limited to one per 10 seconds.
const triggerInterval = 10 * time.Second

// Config holds purger options.
type Config struct {
	Schedule string        // cron expression
	Budget   time.Duration // execution budget per cycle
}

// DefaultConfig returns the default purge schedule and budget.
func DefaultConfig() Config {
	return Config{
		Schedule: DefaultSchedule,
		Budget:   DefaultBudget,
	}
}

// Purger periodically deletes expired events. A single background task: one
// cycle at a time, with overlapping ticks skipped rather than queued.
type Purger struct {
	engine         *engine.Engine
	cron           *cron.Cron
	logger         *slog.Logger
	schedule       string
	budget         time.Duration
	running        atomic.Bool
	triggerLimiter *rate.Limiter
}

// NewPurger creates a purger over the engine.
func NewPurger(eng *engine.Engine, logger *slog.Logger, cfg Config) *Purger {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Budget <= 0 {
		cfg.Budget = DefaultBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Purger{
		engine:         eng,
		cron:           cron.New(),
		logger:         logger,
		schedule:       cfg.Schedule,
		budget:         cfg.Budget,
		triggerLimiter: rate.NewLimiter(rate.Every(triggerInterval), 1),
	}
}

// Start registers the purge job and begins the schedule.
func (p *Purger) Start() error {
	_, err := p.cron.AddFunc(p.schedule, p.runCycle)
	if err != nil {
		return err
	}
	p.cron.Start()
	p.logger.Info("purge scheduler started", "schedule", p.schedule, "budget", p.budget)
	return nil
}

// Stop gracefully stops the schedule, waiting for a running cycle to finish.
func (p *Purger) Stop() {
	ctx := p.cron.Stop()
	<-ctx.Done()
	p.logger.Info("purge scheduler stopped")
}

// TriggerNow runs a purge cycle outside the schedule, rate limited so
// operational tooling cannot hammer the store.
func (p *Purger) TriggerNow() error {
	if !p.triggerLimiter.Allow() {
		return errors.New("purge trigger rate limit exceeded, try again in a few seconds")
	}
	go p.runCycle()
	return nil
}

// runCycle executes one purge pass. The CompareAndSwap guard is
// non-reentrant by design: a tick arriving while a cycle is still running is
// skipped, not queued — the next scheduled tick catches anything missed.
func (p *Purger) runCycle() {
	if !p.running.CompareAndSwap(false, true) {
		p.logger.Warn("purge cycle still running, skipping tick")
		return
	}
	defer p.running.Store(false)

	ctx, cancel := context.WithTimeout(context.Background(), p.budget)
	defer cancel()

	start := time.Now().UTC()
	deleted, err := p.engine.DeleteExpired(ctx, start)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("purge cycle exceeded its budget, yielding until next tick", "budget", p.budget)
			return
		}
		// Store unavailable: log and retry on the next tick rather than
		// crash the process.
		p.logger.Error("purge cycle failed, will retry next tick", "error", err)
		return
	}

	p.logger.Info("purge cycle complete",
		"deleted", deleted,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
