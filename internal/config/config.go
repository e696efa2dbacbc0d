// Package config centralizes the environment-derived settings
// cmd/fleetledgerd boots with, the same "read env, default safely" idiom
// the teacher repo's main.go:initConfig uses for OWNWORLD_COMMAND_CONTROL
// and OWNWORLD_PEERING_MODE.
package config

import (
	"os"
	"strconv"
)

// Config is the ledger process's boot-time configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// EventBusCapacity bounds each EventBus subscriber's buffered channel.
	EventBusCapacity int
	// DebugLayout gates the permissive 3-cell debug fleet-validity rule
	// (spec.md §4.2.1, §9). Must default to false.
	DebugLayout bool
	// AuditDBPath, if non-empty, enables the sqlite audit mirror
	// (internal/audit). Empty disables it entirely.
	AuditDBPath string
}

// FromEnv builds a Config from the process environment, defaulting every
// field the way the teacher's initConfig defaults OWNWORLD_* variables.
func FromEnv() Config {
	cfg := Config{
		Addr:             ":8090",
		EventBusCapacity: 100,
		DebugLayout:      false,
		AuditDBPath:      "",
	}

	if v := os.Getenv("FLEET_ADDR"); v != "" {
		cfg.Addr = v
	}
	if v := os.Getenv("FLEET_EVENTBUS_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EventBusCapacity = n
		}
	}
	if v := os.Getenv("FLEET_DEBUG_LAYOUT"); v == "true" {
		cfg.DebugLayout = true
	}
	if v := os.Getenv("FLEET_AUDIT_DB"); v != "" {
		cfg.AuditDBPath = v
	}

	return cfg
}
