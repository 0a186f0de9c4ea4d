// Concepto - Collaborative Episode Production
// Copyright 2026 Project EAX
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/projecteax/concepto-sub007

// Package logging provides centralized zerolog-based logging for Concepto.
//
// All packages log through the global logger configured here:
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("episode_id", id).Msg("session opened")
//	logging.Ctx(ctx).Warn().Msg("commit slow")
//
// Always terminate log chains with .Msg() or .Send(); an unterminated
// chain is silently dropped by zerolog.
package logging
