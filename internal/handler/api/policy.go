// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
)

// RetentionPolicy handles GET /api/v1/policy/retention. Levels are listed in
// ascending severity order so the monotonic windows read naturally.
func (h *Handler) RetentionPolicy(w http.ResponseWriter, _ *http.Request) {
	table := h.engine.RetentionPolicy()

	out := make(map[string]map[string]int, len(table))
	for env, levels := range table {
		row := make(map[string]int, len(levels))
		for level, days := range levels {
			row[string(level)] = days
		}
		out[string(env)] = row
	}
	WriteSuccess(w, out, nil)
}

// PerformanceThresholds handles GET /api/v1/policy/thresholds.
func (h *Handler) PerformanceThresholds(w http.ResponseWriter, _ *http.Request) {
	table := h.engine.PerformanceThresholds()

	out := make(map[string]int64, len(table))
	for class, maxMs := range table {
		out[string(class)] = maxMs
	}
	WriteSuccess(w, out, nil)
}
