// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the API router, mounted by the server under /api/v1.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.Status)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.SubmitEvent)
	})

	r.Route("/policy", func(r chi.Router) {
		r.Get("/retention", h.RetentionPolicy)
		r.Get("/thresholds", h.PerformanceThresholds)
	})

	r.Post("/purge", h.TriggerPurge)

	return r
}
