// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import (
	"github.com/audithq/logkeeper/internal/model"
)

// Snapshot is an immutable bundle of the active governance tables. Readers
// hold a Snapshot and never observe partial updates; replacing policies means
// building and validating a new Snapshot, then swapping the pointer (the
// engine owns the swap).
type Snapshot struct {
	retention  RetentionTable
	thresholds ThresholdTable
}

// NewSnapshot validates both tables and returns an immutable snapshot. The
// tables are deep-copied so later caller mutations cannot leak in.
func NewSnapshot(retention RetentionTable, thresholds ThresholdTable) (*Snapshot, error) {
	if err := retention.Validate(); err != nil {
		return nil, err
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Snapshot{
		retention:  retention.clone(),
		thresholds: thresholds.clone(),
	}, nil
}

// DefaultSnapshot returns a snapshot of the canonical tables.
func DefaultSnapshot() *Snapshot {
	s, err := NewSnapshot(DefaultRetention(), DefaultThresholds())
	if err != nil {
		// The canonical tables are constants; failing validation is a bug.
		panic(err)
	}
	return s
}

// RetentionDays returns the retention window for the environment and level.
func (s *Snapshot) RetentionDays(env model.Environment, level model.Level) (int, error) {
	return s.retention.Days(env, level)
}

// Threshold returns the latency ceiling for the operation class.
func (s *Snapshot) Threshold(class model.OperationClass) (int64, error) {
	return s.thresholds.MaxMs(class)
}

// RetentionTable returns a copy of the active retention table, for read-only
// exposure to operational tooling.
func (s *Snapshot) RetentionTable() RetentionTable {
	return s.retention.clone()
}

// ThresholdTable returns a copy of the active threshold table.
func (s *Snapshot) ThresholdTable() ThresholdTable {
	return s.thresholds.clone()
}

// Classify inspects a measured duration against the class threshold and
// returns the effective level: promoted to at least warning when the ceiling
// is exceeded, never demoted. An empty or unrecognized class passes the base
// level through unchanged — fail open, so a classification lookup miss can
// never block logging of the anomaly itself.
func (s *Snapshot) Classify(class model.OperationClass, durationMs int64, base model.Level) model.Level {
	if class == "" {
		return base
	}
	maxMs, err := s.thresholds.MaxMs(class)
	if err != nil {
		return base
	}
	if durationMs <= maxMs {
		return base
	}
	if base.AtLeast(model.LevelWarning) {
		return base
	}
	return model.LevelWarning
}
