// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/audithq/logkeeper/internal/engine"
	"github.com/audithq/logkeeper/internal/model"
)

const (
	defaultPerPage = 50
	maxPerPage     = 200
	maxMessageLen  = 4096
)

// eventJSON is the wire form of a persisted event.
type eventJSON struct {
	ID             int64           `json:"id"`
	Level          model.Level     `json:"level"`
	Category       model.Category  `json:"category"`
	OperationClass string          `json:"operation_class,omitempty"`
	DurationMs     *int64          `json:"duration_ms,omitempty"`
	Message        string          `json:"message"`
	Metadata       json.RawMessage `json:"metadata"`
	Environment    string          `json:"environment"`
	CreatedAt      time.Time       `json:"created_at"`
	ExpiresAt      time.Time       `json:"expires_at"`
}

func toEventJSON(e model.Event) eventJSON {
	out := eventJSON{
		ID:          e.ID,
		Level:       e.Level,
		Category:    e.Category,
		Message:     e.Message,
		Metadata:    json.RawMessage(e.Metadata),
		Environment: string(e.Environment),
		CreatedAt:   e.CreatedAt,
		ExpiresAt:   e.ExpiresAt,
	}
	if e.OperationClass.Valid {
		out.OperationClass = e.OperationClass.String
	}
	if e.DurationMs.Valid {
		ms := e.DurationMs.Int64
		out.DurationMs = &ms
	}
	return out
}

// ListEvents handles GET /api/v1/events. Supported query parameters:
// level_min, category, from, to (RFC 3339), page, per_page.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter engine.Filter

	if lm := q.Get("level_min"); lm != "" {
		level := model.Level(lm)
		if !level.Valid() {
			WriteBadRequest(w, fmt.Sprintf("unknown level_min %q", lm))
			return
		}
		filter.LevelMin = level
	}
	filter.Category = model.Category(q.Get("category"))

	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			WriteBadRequest(w, "from must be an RFC 3339 timestamp")
			return
		}
		filter.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			WriteBadRequest(w, "to must be an RFC 3339 timestamp")
			return
		}
		filter.To = t
	}

	page := parsePositiveInt(q.Get("page"), 1)
	perPage := parsePositiveInt(q.Get("per_page"), defaultPerPage)
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	offset := int64(page-1) * int64(perPage)

	events, total, err := h.engine.List(r.Context(), filter, int64(perPage), offset)
	if err != nil {
		WriteInternalError(w, "querying events failed")
		return
	}

	items := make([]eventJSON, 0, len(events))
	for _, e := range events {
		items = append(items, toEventJSON(e))
	}

	pages := int(total) / perPage
	if int(total)%perPage > 0 {
		pages++
	}
	WriteSuccess(w, items, &Meta{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	})
}

// submitRequest is the POST /api/v1/events payload.
type submitRequest struct {
	Level          string         `json:"level"`
	Category       string         `json:"category"`
	OperationClass string         `json:"operation_class"`
	DurationMs     *int64         `json:"duration_ms"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata"`
	Environment    string         `json:"environment"`
}

// SubmitEvent handles POST /api/v1/events. The candidate is queued for
// asynchronous governance; the response carries a receipt, not the admit
// decision. A dropped candidate is indistinguishable from an admitted one on
// this path, which is the point of fire-and-forget submission.
func (h *Handler) SubmitEvent(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "invalid JSON body")
		return
	}

	level := model.Level(req.Level)
	if !level.Valid() {
		WriteBadRequest(w, fmt.Sprintf("unknown level %q", req.Level))
		return
	}
	if req.Category == "" {
		WriteBadRequest(w, "category is required")
		return
	}
	if req.Message == "" {
		WriteBadRequest(w, "message is required")
		return
	}
	if len(req.Message) > maxMessageLen {
		WriteBadRequest(w, fmt.Sprintf("message exceeds %d bytes", maxMessageLen))
		return
	}
	if req.DurationMs != nil && *req.DurationMs < 0 {
		WriteBadRequest(w, "duration_ms must be non-negative")
		return
	}

	env := h.environment
	if req.Environment != "" {
		env = model.Environment(req.Environment)
	}

	h.engine.Submit(engine.Candidate{
		Level:          level,
		Category:       model.Category(req.Category),
		OperationClass: model.OperationClass(req.OperationClass),
		DurationMs:     req.DurationMs,
		Message:        req.Message,
		Metadata:       req.Metadata,
		Environment:    env,
	})

	WriteAccepted(w, map[string]string{"receipt": uuid.New().String()})
}

func parsePositiveInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}
