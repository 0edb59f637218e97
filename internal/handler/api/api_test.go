// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/audithq/logkeeper/internal/engine"
	"github.com/audithq/logkeeper/internal/model"
	"github.com/audithq/logkeeper/internal/scheduler"
	"github.com/audithq/logkeeper/internal/store"
)

// testHandler wires a handler over a temp database with started workers.
func testHandler(t *testing.T) (*Handler, *engine.Engine) {
	t.Helper()

	f, err := os.CreateTemp("", "logkeeper-api-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	f.Close()

	db, err := store.NewDB(dbPath)
	if err != nil {
		os.Remove(dbPath)
		t.Fatalf("NewDB: %v", err)
	}
	if err := store.Migrate(db); err != nil {
		db.Close()
		os.Remove(dbPath)
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(db, logger, engine.DefaultConfig())
	eng.Start()
	t.Cleanup(eng.Stop)

	purger := scheduler.NewPurger(eng, logger, scheduler.DefaultConfig())
	return NewHandler(eng, purger, model.EnvProduction), eng
}

// seedEvent appends an event synchronously, bypassing admission.
func seedEvent(t *testing.T, eng *engine.Engine, level model.Level, category model.Category) model.Event {
	t.Helper()
	e, err := eng.Append(context.Background(), engine.Candidate{
		Level:       level,
		Category:    category,
		Message:     "seeded " + string(level),
		Environment: model.EnvProduction,
	})
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	return e
}

func doRequest(t *testing.T, h *Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.Routes().ServeHTTP(rec, req)
	return rec
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, out any) *Meta {
	t.Helper()
	var resp struct {
		Data json.RawMessage `json:"data"`
		Meta *Meta           `json:"meta"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v\nbody: %s", err, rec.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			t.Fatalf("decoding data: %v\nbody: %s", err, rec.Body.String())
		}
	}
	return resp.Meta
}

func TestStatus(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var data map[string]string
	decodeData(t, rec, &data)
	if data["status"] != "ok" {
		t.Errorf("status = %q, want ok", data["status"])
	}
	if data["environment"] != "production" {
		t.Errorf("environment = %q, want production", data["environment"])
	}
}

func TestSubmitEvent_Accepted(t *testing.T) {
	h, eng := testHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/events", `{
		"level": "error",
		"category": "system_action",
		"message": "payment processor unreachable",
		"metadata": {"processor": "stripe"}
	}`)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202; body: %s", rec.Code, rec.Body.String())
	}

	var data map[string]string
	decodeData(t, rec, &data)
	if data["receipt"] == "" {
		t.Error("response missing receipt")
	}

	// The candidate is queued; poll until the worker persists it.
	deadline := time.Now().Add(5 * time.Second)
	for {
		events, total, err := eng.List(context.Background(), engine.Filter{}, 10, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total == 1 {
			if events[0].Message != "payment processor unreachable" {
				t.Errorf("Message = %q", events[0].Message)
			}
			if events[0].Environment != model.EnvProduction {
				t.Errorf("Environment = %q, want handler default", events[0].Environment)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("submitted event never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSubmitEvent_Validation(t *testing.T) {
	h, _ := testHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"invalid JSON", `{`},
		{"unknown level", `{"level":"fatal","category":"security","message":"x"}`},
		{"missing category", `{"level":"error","message":"x"}`},
		{"missing message", `{"level":"error","category":"security"}`},
		{"negative duration", `{"level":"error","category":"security","message":"x","duration_ms":-5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(t, h, http.MethodPost, "/events", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestListEvents_LevelMinFilter(t *testing.T) {
	h, eng := testHandler(t)

	seedEvent(t, eng, model.LevelInfo, model.CategorySystemAction)
	seedEvent(t, eng, model.LevelWarning, model.CategorySystemAction)
	seedEvent(t, eng, model.LevelCritical, model.CategorySecurity)

	rec := doRequest(t, h, http.MethodGet, "/events?level_min=warning", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var items []eventJSON
	meta := decodeData(t, rec, &items)
	if meta == nil || meta.Total != 2 {
		t.Fatalf("meta = %+v, want total 2", meta)
	}
	for _, item := range items {
		if !item.Level.AtLeast(model.LevelWarning) {
			t.Errorf("event %d level %q below warning", item.ID, item.Level)
		}
	}
}

func TestListEvents_Pagination(t *testing.T) {
	h, eng := testHandler(t)

	for i := 0; i < 5; i++ {
		seedEvent(t, eng, model.LevelError, model.CategorySystemAction)
	}

	rec := doRequest(t, h, http.MethodGet, "/events?page=2&per_page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var items []eventJSON
	meta := decodeData(t, rec, &items)
	if len(items) != 2 {
		t.Errorf("len(items) = %d, want 2", len(items))
	}
	if meta.Total != 5 || meta.Page != 2 || meta.PerPage != 2 || meta.Pages != 3 {
		t.Errorf("meta = %+v", meta)
	}
}

func TestListEvents_BadParams(t *testing.T) {
	h, _ := testHandler(t)

	for _, target := range []string{
		"/events?level_min=verbose",
		"/events?from=yesterday",
		"/events?to=2026-13-99",
	} {
		rec := doRequest(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestRetentionPolicy(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/policy/retention", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var table map[string]map[string]int
	decodeData(t, rec, &table)
	if table["production"]["critical"] != 180 {
		t.Errorf("production critical = %d, want 180", table["production"]["critical"])
	}
	if table["development"]["warning"] != 7 {
		t.Errorf("development warning = %d, want 7", table["development"]["warning"])
	}
}

func TestPerformanceThresholds(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodGet, "/policy/thresholds", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var table map[string]int64
	decodeData(t, rec, &table)
	if table["database"] != 100 {
		t.Errorf("database = %d, want 100", table["database"])
	}
	if table["api"] != 1000 {
		t.Errorf("api = %d, want 1000", table["api"])
	}
}

func TestTriggerPurge_RateLimited(t *testing.T) {
	h, _ := testHandler(t)

	rec := doRequest(t, h, http.MethodPost, "/purge", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first trigger: status = %d, want 202", rec.Code)
	}

	rec = doRequest(t, h, http.MethodPost, "/purge", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second trigger: status = %d, want 429", rec.Code)
	}
}
