// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST surface over the governance engine: event
// submission and querying, read-only policy accessors, and the manual purge
// trigger.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/audithq/logkeeper/internal/engine"
	"github.com/audithq/logkeeper/internal/model"
	"github.com/audithq/logkeeper/internal/scheduler"
)

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	engine      *engine.Engine
	purger      *scheduler.Purger
	environment model.Environment // default for submissions that omit it
}

// NewHandler creates a new API handler.
func NewHandler(eng *engine.Engine, purger *scheduler.Purger, env model.Environment) *Handler {
	return &Handler{
		engine:      eng,
		purger:      purger,
		environment: env,
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Pages   int   `json:"pages"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteAccepted writes a 202 Accepted JSON response.
func WriteAccepted(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusAccepted, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message)
}

// WriteTooManyRequests writes a 429 Too Many Requests response.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, "rate_limited", message)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message)
}

// Status reports service status and the environment events default to.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, map[string]string{
		"status":      "ok",
		"environment": string(h.environment),
	}, nil)
}

// TriggerPurge kicks off an immediate purge cycle. Triggers are rate
// limited; a rejected trigger returns 429 and the scheduled run still
// happens on time.
func (h *Handler) TriggerPurge(w http.ResponseWriter, _ *http.Request) {
	if err := h.purger.TriggerNow(); err != nil {
		WriteTooManyRequests(w, err.Error())
		return
	}
	WriteAccepted(w, map[string]string{"status": "purge started"})
}
