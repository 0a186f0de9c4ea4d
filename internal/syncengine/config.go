// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

package syncengine

import "time"

// Config names the timing windows that govern a session. Each knob is a
// trade, not a tuning detail:
//
//   - DebounceWindow: larger values cut write volume, at the price of a
//     wider staleness window for other editors.
//   - EchoSuppressWindow: larger values remove more own-write flicker,
//     at the risk of briefly delaying a genuinely fast foreign edit
//     that carries no attribution.
//   - ReadinessTimeout: how long a write waits for the initial snapshot
//     before proceeding anyway (with a warning).
//   - OwnWriteMinHold / OwnWriteMaxHold: bounds on how long the
//     own-write flag outlives a commit, covering the round-trip of the
//     commit notification.
type Config struct {
	DebounceWindow     time.Duration `koanf:"debounce_window"`
	EchoSuppressWindow time.Duration `koanf:"echo_suppress_window"`
	ReadinessTimeout   time.Duration `koanf:"readiness_timeout"`
	OwnWriteMinHold    time.Duration `koanf:"own_write_min_hold"`
	OwnWriteMaxHold    time.Duration `koanf:"own_write_max_hold"`
}

// DefaultConfig returns the production timing windows.
func DefaultConfig() Config {
	return Config{
		DebounceWindow:     10 * time.Second,
		EchoSuppressWindow: 1 * time.Second,
		ReadinessTimeout:   1 * time.Second,
		OwnWriteMinHold:    500 * time.Millisecond,
		OwnWriteMaxHold:    2 * time.Second,
	}
}

// withDefaults fills zero values so a partially specified Config is
// usable.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.DebounceWindow <= 0 {
		c.DebounceWindow = def.DebounceWindow
	}
	if c.EchoSuppressWindow <= 0 {
		c.EchoSuppressWindow = def.EchoSuppressWindow
	}
	if c.ReadinessTimeout <= 0 {
		c.ReadinessTimeout = def.ReadinessTimeout
	}
	if c.OwnWriteMinHold <= 0 {
		c.OwnWriteMinHold = def.OwnWriteMinHold
	}
	if c.OwnWriteMaxHold <= 0 {
		c.OwnWriteMaxHold = def.OwnWriteMaxHold
	}
	return c
}

// ownWriteHold computes how long the own-write flag is held after a
// successful commit: max(OwnWriteMinHold, OwnWriteMaxHold - commit
// duration), so the suppression window covers the notification
// round-trip without being shortened by a slow commit.
func (c Config) ownWriteHold(commitDuration time.Duration) time.Duration {
	hold := c.OwnWriteMaxHold - commitDuration
	if hold < c.OwnWriteMinHold {
		hold = c.OwnWriteMinHold
	}
	return hold
}
