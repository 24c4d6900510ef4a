// SPDX-License-Identifier: Apache-2.0
// Package units ships the assistant's capability units. Each unit is a
// core.Builder: a cheap dependency probe plus a set of named operations.
package units

import (
	"fmt"

	"github.com/dmoret/adjutant/pkg/config"
	"github.com/dmoret/adjutant/pkg/core"
	"github.com/dmoret/adjutant/pkg/memory"
	"github.com/dmoret/adjutant/pkg/notify"
)

// Manifest assembles every builder in load order: the parallel planning
// members first, then the sequential processing members.
func Manifest(cfg *config.Config, store notify.Store, recaller memory.Recaller) []core.Builder {
	return []core.Builder{
		NewPlanner(),
		NewCalendar(),
		NewFlight(cfg.Units.Flight),
		NewCommute(cfg.Units.Maps),
		NewNotification(store),
		NewCritic(),
		NewEmail(cfg.Units.Email),
		NewFocus(),
		NewKnowledge(cfg.Units.Knowledge),
		NewMemory(recaller),
		NewWellness(),
	}
}

// stringArg reads a string field from an operation input.
func stringArg(input map[string]any, key string) string {
	if input == nil {
		return ""
	}
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}

// boolArg reads a bool field from an operation input.
func boolArg(input map[string]any, key string, fallback bool) bool {
	if input == nil {
		return fallback
	}
	if v, ok := input[key].(bool); ok {
		return v
	}
	return fallback
}

// intArg reads an integer field, tolerating the float64 that JSON
// decoding produces.
func intArg(input map[string]any, key string, fallback int64) int64 {
	if input == nil {
		return fallback
	}
	switch v := input[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	case string:
		var n int64
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}
