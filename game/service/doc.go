// Package service provides the business logic layer for Geocard games.
//
// The service package implements:
//   - Game creation from a lobby roster or a list of player tokens
//   - Token resolution before any player-facing operation
//   - The round flow: round card, action cards, guesses, reveal
//   - Optional server-side round timers
//   - Snapshot fan-out and archiving of finished games
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager owns the live sessions and serializes access to each one.
// PresetStore serves the rule presets.
// IdentityResolver, Roster, Notifier and Archiver connect the service to
// authentication, lobbies, connected clients and storage.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and
// the game engine. Every mutation runs inside SessionManager.WithSession, so
// operations on one game are serialized and a failed operation leaves the
// game as it was. Notifications and archiving happen after the session is
// released and never fail the operation.
//
// Usage:
//
//	sessions := session.NewManager()
//	presets, _ := config.NewManager("presets")
//	svc := service.NewGameService(sessions, presets, resolver, coords.NewResilientSource(src),
//		service.WithNotifier(hub),
//		service.WithArchiver(store),
//		service.WithRoundTimers(nil),
//	)
//
//	game, err := svc.CreateGame(ctx, service.CreateGameRequest{PlayerTokens: tokens})
//	snap, err := svc.SelectRoundCard(ctx, game.ID, token, cardID)
//
// Round Timers:
//
// With WithRoundTimers the action card window closes after the preset's
// action_window_seconds, and the guess window is force-resolved after the
// round card's time plus guess_grace_seconds. A timer only acts if its
// round is still in the phase it was scheduled for.
package service
