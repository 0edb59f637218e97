// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package engine is the log governance core: it decides which operational
// events are persisted, stamps admitted events with a retention expiry, and
// exposes the query surface over the retained data. All event rows are owned
// by this package for their entire lifetime; collaborators only submit
// candidates and read query results.
package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/audithq/logkeeper/internal/model"
	"github.com/audithq/logkeeper/internal/policy"
	"github.com/audithq/logkeeper/internal/store"
)

// Candidate is an event as emitted by a collaborator, before classification
// and admission.
type Candidate struct {
	Level          model.Level
	Category       model.Category
	OperationClass model.OperationClass // empty if not an instrumented operation
	DurationMs     *int64               // nil if no measured duration
	Message        string
	Metadata       map[string]any
	Environment    model.Environment
}

// Config holds engine tuning knobs.
type Config struct {
	QueueSize int // capacity of the fire-and-forget submit queue
	Workers   int // goroutines draining the queue
}

// DefaultConfig returns submit queue defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize: 1024,
		Workers:   2,
	}
}

// Engine evaluates candidates against the active policy snapshot and owns
// the event store.
type Engine struct {
	db       *sql.DB
	queries  *store.Queries
	logger   *slog.Logger
	policies atomic.Pointer[policy.Snapshot]

	queue   chan Candidate
	workers int
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// New creates an engine over the given database with the default policy
// tables active.
func New(db *sql.DB, logger *slog.Logger, cfg Config) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		db:      db,
		queries: store.New(db),
		logger:  logger,
		queue:   make(chan Candidate, cfg.QueueSize),
		workers: cfg.Workers,
		done:    make(chan struct{}),
	}
	e.policies.Store(policy.DefaultSnapshot())
	return e
}

// Policies returns the active policy snapshot. The snapshot is immutable;
// callers may hold it across calls without observing partial updates.
func (e *Engine) Policies() *policy.Snapshot {
	return e.policies.Load()
}

// ReplacePolicies validates and atomically activates a new policy snapshot.
// On validation failure the previous snapshot stays in effect and the
// violation is returned.
func (e *Engine) ReplacePolicies(retention policy.RetentionTable, thresholds policy.ThresholdTable) error {
	snap, err := policy.NewSnapshot(retention, thresholds)
	if err != nil {
		e.logger.Error("rejected policy tables, keeping previous snapshot", "error", err)
		return err
	}
	e.policies.Store(snap)
	e.logger.Info("policy snapshot replaced")
	return nil
}

// RetentionPolicy returns a copy of the active retention table, for
// operational tooling that displays governance settings.
func (e *Engine) RetentionPolicy() policy.RetentionTable {
	return e.Policies().RetentionTable()
}

// PerformanceThresholds returns a copy of the active threshold table.
func (e *Engine) PerformanceThresholds() policy.ThresholdTable {
	return e.Policies().ThresholdTable()
}

// Append persists a candidate without an admission check, computing its
// expiry from the active retention table. The level is taken as-is; callers
// wanting classification and admission use Record or Submit. Fails with
// policy.ErrUnknownEnvironment (wrapped) when the environment has no
// retention row; nothing is written in that case.
func (e *Engine) Append(ctx context.Context, c Candidate) (model.Event, error) {
	snap := e.Policies()

	days, err := snap.RetentionDays(c.Environment, c.Level)
	if err != nil {
		return model.Event{}, fmt.Errorf("computing retention: %w", err)
	}

	now := time.Now().UTC()

	metadataJSON := "{}"
	if c.Metadata != nil {
		if b, err := json.Marshal(c.Metadata); err == nil {
			metadataJSON = string(b)
		}
	}

	var opClass sql.NullString
	if c.OperationClass != "" {
		opClass = sql.NullString{String: string(c.OperationClass), Valid: true}
	}
	var durationMs sql.NullInt64
	if c.DurationMs != nil {
		durationMs = sql.NullInt64{Int64: *c.DurationMs, Valid: true}
	}

	event, err := e.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:          c.Level,
		Severity:       int64(c.Level.Severity()),
		Category:       c.Category,
		OperationClass: opClass,
		DurationMs:     durationMs,
		Message:        c.Message,
		Metadata:       metadataJSON,
		Environment:    c.Environment,
		CreatedAt:      now,
		ExpiresAt:      now.AddDate(0, 0, days),
	})
	if err != nil {
		return model.Event{}, fmt.Errorf("appending event: %w", err)
	}
	return event, nil
}

// Record runs the full governance path synchronously: the classifier may
// promote the level, the admission filter decides keep/drop, and admitted
// events are appended with their computed expiry. A dropped candidate
// returns admitted=false with no error.
func (e *Engine) Record(ctx context.Context, c Candidate) (model.Event, bool, error) {
	snap := e.Policies()

	if c.DurationMs != nil {
		c.Level = snap.Classify(c.OperationClass, *c.DurationMs, c.Level)
	}

	if !policy.ShouldAdmit(c.Environment, c.Level, c.Category) {
		return model.Event{}, false, nil
	}

	event, err := e.Append(ctx, c)
	if err != nil {
		return model.Event{}, false, err
	}
	return event, true, nil
}

// Submit queues a candidate for fire-and-forget recording. The caller never
// blocks on persistence and never learns the admit/drop decision. When the
// queue is full the candidate is dropped with a logged warning; blocking the
// emitting request path is worse than losing a log line.
func (e *Engine) Submit(c Candidate) {
	select {
	case e.queue <- c:
	default:
		e.logger.Warn("submit queue full, dropping event",
			"category", c.Category,
			"level", c.Level,
		)
	}
}

// Start launches the submit queue workers.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.mu.Unlock()

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.worker()
	}
	e.logger.Info("engine started", "workers", e.workers, "queue_size", cap(e.queue))
}

// Stop drains in-flight submissions and stops the workers.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	close(e.done)
	e.wg.Wait()
	e.logger.Info("engine stopped")
}

// worker drains the submit queue. Store failures are logged and the event is
// lost; the engine never retries writes, to avoid duplicate entries.
func (e *Engine) worker() {
	defer e.wg.Done()
	for {
		select {
		case <-e.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case c := <-e.queue:
					e.record(c)
				default:
					return
				}
			}
		case c := <-e.queue:
			e.record(c)
		}
	}
}

func (e *Engine) record(c Candidate) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, _, err := e.Record(ctx, c); err != nil {
		e.logger.Error("failed to record submitted event",
			"error", err,
			"category", c.Category,
			"level", c.Level,
		)
	}
}

// Filter narrows event queries at the engine boundary.
type Filter struct {
	LevelMin model.Level // empty for no minimum
	Category model.Category
	From     time.Time
	To       time.Time
}

func (f Filter) storeFilter() store.EventFilter {
	minSeverity := store.NoMinSeverity
	if f.LevelMin != "" {
		minSeverity = int64(f.LevelMin.Severity())
	}
	return store.EventFilter{
		MinSeverity: minSeverity,
		Category:    f.Category,
		From:        f.From,
		To:          f.To,
	}
}

// Query starts a lazy read of retained events matching the filter, newest
// first. The returned cursor must be closed; re-issuing the query restarts
// the sequence.
func (e *Engine) Query(ctx context.Context, f Filter) (*store.EventRows, error) {
	return e.queries.QueryEvents(ctx, f.storeFilter())
}

// List returns a page of retained events, newest first, with the total
// matching count for pagination.
func (e *Engine) List(ctx context.Context, f Filter, limit, offset int64) ([]model.Event, int64, error) {
	events, err := e.queries.ListEvents(ctx, store.ListEventsParams{
		Filter: f.storeFilter(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, 0, err
	}
	total, err := e.queries.CountEvents(ctx, f.storeFilter())
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DeleteExpired removes all events whose expiry is at or before asOf and
// returns the number deleted. Safe to run concurrently with Append: every
// retention window is positive, so a racing append always carries an expiry
// in the future relative to asOf.
func (e *Engine) DeleteExpired(ctx context.Context, asOf time.Time) (int64, error) {
	return e.queries.DeleteExpiredEvents(ctx, asOf)
}
