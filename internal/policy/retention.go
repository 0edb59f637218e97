// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package policy holds the governance tables (retention windows, performance
// thresholds) and the pure decision functions (admission, classification)
// that run against them. Tables are data, not code branches: adding an
// environment or operation class is a table change validated at load time.
package policy

import (
	"errors"
	"fmt"

	"github.com/audithq/logkeeper/internal/model"
)

// Lookup and validation errors.
var (
	ErrUnknownEnvironment    = errors.New("unknown environment")
	ErrUnknownLevel          = errors.New("unknown level")
	ErrUnknownOperationClass = errors.New("unknown operation class")

	// ErrInvariantViolation marks a table that must not be activated.
	ErrInvariantViolation = errors.New("policy invariant violation")
)

// RetentionTable maps environment and level to a retention window in days.
type RetentionTable map[model.Environment]map[model.Level]int

// DefaultRetention returns the canonical retention table.
//
// The debug row equals the info row: always-admit categories can carry debug
// severity into any environment, so the lookup has to be total. Whether debug
// audit events deserve a longer floor is a product decision; change the table,
// not the code.
func DefaultRetention() RetentionTable {
	return RetentionTable{
		model.EnvProduction: {
			model.LevelDebug:    7,
			model.LevelInfo:     7,
			model.LevelWarning:  30,
			model.LevelError:    90,
			model.LevelCritical: 180,
		},
		model.EnvDevelopment: {
			model.LevelDebug:    3,
			model.LevelInfo:     3,
			model.LevelWarning:  7,
			model.LevelError:    30,
			model.LevelCritical: 90,
		},
	}
}

// Days returns the retention window for the environment and level. Unknown
// environments and levels fail explicitly; a misconfigured deployment must
// surface as a configuration error, never as zero retention.
func (t RetentionTable) Days(env model.Environment, level model.Level) (int, error) {
	row, ok := t[env]
	if !ok {
		return 0, fmt.Errorf("retention lookup for %q: %w", env, ErrUnknownEnvironment)
	}
	days, ok := row[level]
	if !ok {
		return 0, fmt.Errorf("retention lookup for %q/%q: %w", env, level, ErrUnknownLevel)
	}
	return days, nil
}

// Validate checks the table invariants: at least one environment, every row
// total over all known levels, all windows positive, and retention
// non-decreasing as severity increases. A table failing validation must not
// be activated.
func (t RetentionTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("retention table has no environments: %w", ErrInvariantViolation)
	}
	for env, row := range t {
		prev := 0
		for _, level := range model.Levels {
			days, ok := row[level]
			if !ok {
				return fmt.Errorf("retention table %q missing level %q: %w", env, level, ErrInvariantViolation)
			}
			if days <= 0 {
				return fmt.Errorf("retention table %q/%q = %d days, must be positive: %w", env, level, days, ErrInvariantViolation)
			}
			if days < prev {
				return fmt.Errorf("retention table %q/%q = %d days, below lower-severity window %d: %w",
					env, level, days, prev, ErrInvariantViolation)
			}
			prev = days
		}
	}
	return nil
}

// clone returns a deep copy so snapshots never share mutable state.
func (t RetentionTable) clone() RetentionTable {
	out := make(RetentionTable, len(t))
	for env, row := range t {
		cp := make(map[model.Level]int, len(row))
		for level, days := range row {
			cp[level] = days
		}
		out[env] = cp
	}
	return out
}
