// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package policy

import "github.com/audithq/logkeeper/internal/model"

// ShouldAdmit decides whether an event is worth persisting. Pure function of
// its inputs; safe for concurrent use without synchronization.
//
// Rules, first match wins:
//  1. Outside production everything is kept: debugging visibility beats
//     noise reduction.
//  2. Always-admit categories (security, system_action, critical_operation)
//     are never dropped, irrespective of level.
//  3. Warning and above is kept everywhere.
//  4. Everything else (production, ordinary category, info/debug) is dropped.
func ShouldAdmit(env model.Environment, level model.Level, category model.Category) bool {
	if env != model.EnvProduction {
		return true
	}
	if category.AlwaysAdmit() {
		return true
	}
	return level.AtLeast(model.LevelWarning)
}
