// Package session provides the registry of live Geocard games.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Exclusive per-session mutation through WithSession
//   - Idle and finished session cleanup
//
// Core Types:
//
// Manager maps session ids to sessions. Each session carries its own
// engine instance and metadata like creation time and last access time.
//
// Session Identifiers:
//
// Sessions use 6-character hex IDs generated from cryptographic randomness.
// Caller-supplied ids are accepted as long as they are free. Lookups are
// case-insensitive.
//
// Concurrency:
//
// Every session has its own lock. WithSession holds it for the duration of
// the callback, so operations on one session are totally ordered while
// different sessions proceed in parallel. The callback receives a private
// copy of the session; the copy is committed only when the callback returns
// nil. Get and List return copies as well.
//
// Usage:
//
//	manager := session.NewManager()
//
//	sess, err := manager.Create("", players, engine.DefaultRules())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = manager.WithSession(sess.ID, func(s *service.Session) error {
//		return s.Engine.StartGuessing(playerID)
//	})
//
// Cleanup:
//
// Sessions can be deleted explicitly. CleanupExpiredSessions drops sessions
// nobody touched for a while and CleanupFinishedSessions drops finished
// games once clients had time to read the final state.
package session
