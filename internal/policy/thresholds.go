// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import (
	"fmt"

	"github.com/audithq/logkeeper/internal/model"
)

// ThresholdTable maps an operation class to its maximum acceptable duration
// in milliseconds.
type ThresholdTable map[model.OperationClass]int64

// DefaultThresholds returns the canonical performance threshold table.
func DefaultThresholds() ThresholdTable {
	return ThresholdTable{
		model.OpClassDatabase:  100,
		model.OpClassAPI:       1000,
		model.OpClassOperation: 500,
	}
}

// MaxMs returns the latency ceiling for the operation class. Unknown classes
// fail explicitly; callers that want fail-open behavior (the classifier)
// handle the miss themselves.
func (t ThresholdTable) MaxMs(class model.OperationClass) (int64, error) {
	ms, ok := t[class]
	if !ok {
		return 0, fmt.Errorf("threshold lookup for %q: %w", class, ErrUnknownOperationClass)
	}
	return ms, nil
}

// Validate checks that the table is non-empty and every threshold is positive.
func (t ThresholdTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("threshold table is empty: %w", ErrInvariantViolation)
	}
	for class, ms := range t {
		if ms <= 0 {
			return fmt.Errorf("threshold %q = %dms, must be positive: %w", class, ms, ErrInvariantViolation)
		}
	}
	return nil
}

func (t ThresholdTable) clone() ThresholdTable {
	out := make(ThresholdTable, len(t))
	for class, ms := range t {
		out[class] = ms
	}
	return out
}
