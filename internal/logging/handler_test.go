package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/audithq/logkeeper/internal/engine"
	"github.com/audithq/logkeeper/internal/model"
	"github.com/audithq/logkeeper/internal/store"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()

	f, err := os.CreateTemp("", "logkeeper-logging-test-*.db")
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

	eng := engine.New(db, slog.New(slog.NewTextHandler(io.Discard, nil)), engine.DefaultConfig())
	eng.Start()
	t.Cleanup(eng.Stop)
	return eng
}

// waitForEvents polls until the engine has persisted want events.
func waitForEvents(t *testing.T, eng *engine.Engine, want int64) []model.Event {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		events, total, err := eng.List(context.Background(), engine.Filter{}, 100, 0)
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if total >= want {
			return events
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d events, have %d", want, total)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHandle_ForwardsToInnerAndEngine(t *testing.T) {
	eng := testEngine(t)

	var buf bytes.Buffer
	inner := slog.NewTextHandler(&buf, nil)
	logger := slog.New(NewEngineHandler(inner, eng, model.EnvProduction))

	logger.Warn("cache backend degraded", "backend", "redis")

	if !bytes.Contains(buf.Bytes(), []byte("cache backend degraded")) {
		t.Error("inner handler did not receive the record")
	}

	events := waitForEvents(t, eng, 1)
	e := events[0]
	if e.Level != model.LevelWarning {
		t.Errorf("Level = %q, want warning", e.Level)
	}
	if e.Category != model.CategorySystemAction {
		t.Errorf("Category = %q, want system_action", e.Category)
	}
	if e.Message != "cache backend degraded" {
		t.Errorf("Message = %q", e.Message)
	}
	if e.Metadata != `{"backend":"redis"}` {
		t.Errorf("Metadata = %q", e.Metadata)
	}
}

func TestHandle_BelowThresholdNotSubmitted(t *testing.T) {
	eng := testEngine(t)

	logger := slog.New(NewEngineHandler(slog.NewTextHandler(io.Discard, nil), eng, model.EnvDevelopment))
	logger.Info("routine startup message")

	// Give the queue a moment; nothing should land.
	time.Sleep(100 * time.Millisecond)
	_, total, err := eng.List(context.Background(), engine.Filter{}, 1, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 0 {
		t.Errorf("info record was submitted; total = %d, want 0", total)
	}
}

func TestHandle_CategoryAttributeOverridesDefault(t *testing.T) {
	eng := testEngine(t)

	logger := slog.New(NewEngineHandler(slog.NewTextHandler(io.Discard, nil), eng, model.EnvProduction))
	logger.Error("login lockout threshold reached", "category", "security", "account", "ops@example.com")

	events := waitForEvents(t, eng, 1)
	e := events[0]
	if e.Category != model.CategorySecurity {
		t.Errorf("Category = %q, want security", e.Category)
	}
	if e.Metadata != `{"account":"ops@example.com"}` {
		t.Errorf("Metadata = %q (category attr must not leak into metadata)", e.Metadata)
	}
}

func TestEventLevelMapping(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want model.Level
	}{
		{slog.LevelDebug, model.LevelDebug},
		{slog.LevelInfo, model.LevelInfo},
		{slog.LevelWarn, model.LevelWarning},
		{slog.LevelError, model.LevelError},
		{LevelCritical, model.LevelCritical},
		{LevelCritical + 2, model.LevelCritical},
	}
	for _, tt := range tests {
		if got := eventLevel(tt.in); got != tt.want {
			t.Errorf("eventLevel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewEngineHandlerWithLevel(t *testing.T) {
	eng := testEngine(t)

	h := NewEngineHandlerWithLevel(slog.NewTextHandler(io.Discard, nil), eng, model.EnvDevelopment, slog.LevelInfo)
	logger := slog.New(h)
	logger.Info("tracked at info")

	events := waitForEvents(t, eng, 1)
	if events[0].Level != model.LevelInfo {
		t.Errorf("Level = %q, want info", events[0].Level)
	}
}
