// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store is the persistence layer for the event log: schema
// migrations, connection setup, and the SQL queries over the events table.
// It is deliberately dumb SQL; policy decisions (admission, expiry
// computation) live in the engine.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/audithq/logkeeper/internal/model"
)

// Queries wraps the database handle with typed query methods.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance over the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

const eventColumns = "id, level, severity, category, operation_class, duration_ms, message, metadata, environment, created_at, expires_at"

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Level, &e.Severity, &e.Category, &e.OperationClass,
		&e.DurationMs, &e.Message, &e.Metadata, &e.Environment,
		&e.CreatedAt, &e.ExpiresAt,
	)
	return e, err
}

// CreateEventParams holds the column values for a new event row. The caller
// (the engine) has already computed severity and expiry.
type CreateEventParams struct {
	Level          model.Level
	Severity       int64
	Category       model.Category
	OperationClass sql.NullString
	DurationMs     sql.NullInt64
	Message        string
	Metadata       string
	Environment    model.Environment
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// CreateEvent inserts an event row and returns it with its assigned id.
// AUTOINCREMENT guarantees ids are monotonically increasing and never reused.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO events (level, severity, category, operation_class, duration_ms, message, metadata, environment, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		arg.Level, arg.Severity, arg.Category, arg.OperationClass, arg.DurationMs,
		arg.Message, arg.Metadata, arg.Environment, arg.CreatedAt, arg.ExpiresAt,
	)
	if err != nil {
		return model.Event{}, fmt.Errorf("inserting event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Event{}, fmt.Errorf("reading event id: %w", err)
	}
	return model.Event{
		ID:             id,
		Level:          arg.Level,
		Severity:       arg.Severity,
		Category:       arg.Category,
		OperationClass: arg.OperationClass,
		DurationMs:     arg.DurationMs,
		Message:        arg.Message,
		Metadata:       arg.Metadata,
		Environment:    arg.Environment,
		CreatedAt:      arg.CreatedAt,
		ExpiresAt:      arg.ExpiresAt,
	}, nil
}

// GetEventByID returns a single event.
func (q *Queries) GetEventByID(ctx context.Context, id int64) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id)
	return scanEvent(row)
}

// EventFilter narrows event queries. Zero values mean "no constraint":
// MinSeverity < 0, empty Category, zero From/To.
type EventFilter struct {
	MinSeverity int64
	Category    model.Category
	From        time.Time
	To          time.Time
}

// NoMinSeverity disables the severity constraint in an EventFilter.
const NoMinSeverity = int64(-1)

// where builds the WHERE clause and bind args for a filter.
func (f EventFilter) where() (string, []any) {
	var conds []string
	var args []any
	if f.MinSeverity >= 0 {
		conds = append(conds, "severity >= ?")
		args = append(args, f.MinSeverity)
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, f.Category)
	}
	if !f.From.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListEventsParams paginates a filtered event listing.
type ListEventsParams struct {
	Filter EventFilter
	Limit  int64
	Offset int64
}

// ListEvents returns a page of events, newest first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	where, args := arg.Filter.where()
	args = append(args, arg.Limit, arg.Offset)

	rows, err := q.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events"+where+" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	return events, nil
}

// CountEvents returns the number of events matching the filter.
func (q *Queries) CountEvents(ctx context.Context, filter EventFilter) (int64, error) {
	where, args := filter.where()
	var count int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return count, nil
}

// EventRows is a lazy cursor over a filtered event query, newest first.
// Callers iterate with Next/Event and must Close when done; re-issuing the
// query restarts the sequence.
type EventRows struct {
	rows *sql.Rows
}

// QueryEvents starts a streaming read of all events matching the filter.
// The read holds only the short-lived locks of its underlying connection, so
// it never blocks writers for unbounded time.
func (q *Queries) QueryEvents(ctx context.Context, filter EventFilter) (*EventRows, error) {
	where, args := filter.where()
	rows, err := q.db.QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events"+where+" ORDER BY created_at DESC, id DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	return &EventRows{rows: rows}, nil
}

// Next advances to the next event. It returns false when the sequence is
// exhausted or an error occurred; check Err after iteration.
func (r *EventRows) Next() bool {
	return r.rows.Next()
}

// Event returns the current row.
func (r *EventRows) Event() (model.Event, error) {
	return scanEvent(r.rows)
}

// Err returns the error, if any, encountered during iteration.
func (r *EventRows) Err() error {
	return r.rows.Err()
}

// Close releases the cursor.
func (r *EventRows) Close() error {
	return r.rows.Close()
}

// DeleteExpiredEvents removes all events whose expiry is at or before asOf
// and reports how many rows went away. Idempotent: a second call with the
// same asOf deletes nothing. The delete walks idx_events_expires_at, not the
// table.
func (q *Queries) DeleteExpiredEvents(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, "DELETE FROM events WHERE expires_at <= ?", asOf)
	if err != nil {
		return 0, fmt.Errorf("deleting expired events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted events: %w", err)
	}
	return n, nil
}
