package model

import (
	"database/sql"
	"time"
)

// Level is an event severity level. Levels are ordered; use Severity for
// comparisons.
type Level string

// Event levels, lowest to highest severity.
const (
	LevelDebug    Level = "debug"
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// levelSeverity maps each level to its ordinal severity.
var levelSeverity = map[Level]int{
	LevelDebug:    0,
	LevelInfo:     1,
	LevelWarning:  2,
	LevelError:    3,
	LevelCritical: 4,
}

// Levels lists all known levels in ascending severity order.
var Levels = []Level{LevelDebug, LevelInfo, LevelWarning, LevelError, LevelCritical}

// Severity returns the ordinal severity of the level, or -1 if the level is
// not known.
func (l Level) Severity() int {
	s, ok := levelSeverity[l]
	if !ok {
		return -1
	}
	return s
}

// Valid reports whether the level is a known level.
func (l Level) Valid() bool {
	_, ok := levelSeverity[l]
	return ok
}

// AtLeast reports whether the level is at or above other in severity.
// Unknown levels are never at least anything.
func (l Level) AtLeast(other Level) bool {
	ls, ok := levelSeverity[l]
	if !ok {
		return false
	}
	os, ok := levelSeverity[other]
	if !ok {
		return false
	}
	return ls >= os
}

// Category tags an event with its semantic kind. Categories are an open set;
// the constants below are the ones the admission rules know about.
type Category string

// Event categories.
const (
	CategoryUserAction        Category = "user_action"
	CategorySystemAction      Category = "system_action"
	CategorySecurity          Category = "security"
	CategoryCriticalOperation Category = "critical_operation"
	CategoryPerformance       Category = "performance"
)

// alwaysAdmit categories carry audit/compliance weight and are exempt from
// the production noise-reduction rule.
var alwaysAdmit = map[Category]bool{
	CategorySecurity:          true,
	CategorySystemAction:      true,
	CategoryCriticalOperation: true,
}

// AlwaysAdmit reports whether the category must never be dropped.
func (c Category) AlwaysAdmit() bool {
	return alwaysAdmit[c]
}

// Environment identifies the deployment environment an event was emitted in.
type Environment string

// Deployment environments.
const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"
)

// OperationClass is a coarse bucket used to pick a latency threshold. It is
// distinct from severity.
type OperationClass string

// Operation classes.
const (
	OpClassDatabase  OperationClass = "database"
	OpClassAPI       OperationClass = "api"
	OpClassOperation OperationClass = "operation"
)

// Event is a persisted log entry. Events are created by the engine at
// admission time and are immutable until the purge cycle deletes them.
type Event struct {
	ID             int64
	Level          Level
	Severity       int64
	Category       Category
	OperationClass sql.NullString
	DurationMs     sql.NullInt64
	Message        string
	Metadata       string // JSON string
	Environment    Environment
	CreatedAt      time.Time
	ExpiresAt      time.Time
}
