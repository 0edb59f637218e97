// Package logging provides a slog handler that routes the application's own
// operational logs through the governance engine. Records at WARN and above
// are submitted as system_action events, so process noise is subject to the
// same admission and retention rules as everything else.
package logging

import (
	"context"
	"log/slog"

	"github.com/audithq/logkeeper/internal/engine"
	"github.com/audithq/logkeeper/internal/model"
)

// LevelCritical extends slog's levels for records that should land as
// critical events.
const LevelCritical = slog.LevelError + 4

// EngineHandler wraps another slog.Handler and also submits WARN+ records to
// the engine. Submission is fire-and-forget; a full queue never slows down
// logging.
type EngineHandler struct {
	inner       slog.Handler
	engine      *engine.Engine
	environment model.Environment
	minLevel    slog.Level
}

// NewEngineHandler creates a handler that forwards WARN and above.
func NewEngineHandler(inner slog.Handler, eng *engine.Engine, env model.Environment) *EngineHandler {
	return &EngineHandler{
		inner:       inner,
		engine:      eng,
		environment: env,
		minLevel:    slog.LevelWarn,
	}
}

// NewEngineHandlerWithLevel creates a handler with a custom forwarding
// threshold.
func NewEngineHandlerWithLevel(inner slog.Handler, eng *engine.Engine, env model.Environment, min slog.Level) *EngineHandler {
	return &EngineHandler{
		inner:       inner,
		engine:      eng,
		environment: env,
		minLevel:    min,
	}
}

// Enabled implements slog.Handler.
func (h *EngineHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EngineHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}
	if r.Level >= h.minLevel {
		h.submit(r)
	}
	return nil
}

// WithAttrs implements slog.Handler.
func (h *EngineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EngineHandler{
		inner:       h.inner.WithAttrs(attrs),
		engine:      h.engine,
		environment: h.environment,
		minLevel:    h.minLevel,
	}
}

// WithGroup implements slog.Handler.
func (h *EngineHandler) WithGroup(name string) slog.Handler {
	return &EngineHandler{
		inner:       h.inner.WithGroup(name),
		engine:      h.engine,
		environment: h.environment,
		minLevel:    h.minLevel,
	}
}

// submit turns a log record into a candidate event. A "category" attribute
// overrides the system_action default so instrumented call sites can tag
// themselves.
func (h *EngineHandler) submit(r slog.Record) {
	category := model.CategorySystemAction
	metadata := make(map[string]any, r.NumAttrs())

	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "category" {
			category = model.Category(a.Value.String())
			return true
		}
		metadata[a.Key] = a.Value.String()
		return true
	})
	if len(metadata) == 0 {
		metadata = nil
	}

	h.engine.Submit(engine.Candidate{
		Level:       eventLevel(r.Level),
		Category:    category,
		Message:     r.Message,
		Metadata:    metadata,
		Environment: h.environment,
	})
}

// eventLevel maps a slog level to an event level.
func eventLevel(level slog.Level) model.Level {
	switch {
	case level >= LevelCritical:
		return model.LevelCritical
	case level >= slog.LevelError:
		return model.LevelError
	case level >= slog.LevelWarn:
		return model.LevelWarning
	case level >= slog.LevelInfo:
		return model.LevelInfo
	default:
		return model.LevelDebug
	}
}
