// Package websocket pushes game snapshots and events to connected clients.
//
// A single Hub goroutine owns the subscriber sets. Each connection gets a
// read loop, which only answers pings, and a write loop.
//
// Frames:
//
// Subscribers only listen. Every frame is one JSON message:
//
//	{"game_id": "a1b2c3", "event": "snapshot", "snapshot": {...}}
//	{"game_id": "a1b2c3", "event": "round_resolved", "data": {...}}
//
// A snapshot follows every state transition; named events carry extra
// detail such as the round result or the game summary. A client joining a
// running game that others already watch first receives its latest
// snapshot.
//
// Subscribing:
//
// Clients pick a game with the query parameter (?game=a1b2c3) when
// connecting; the api package resolves the id before calling Serve.
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	svc := service.NewGameService(..., service.WithNotifier(hub))
//
// Publishing never blocks the caller. A full queue drops new messages and a
// subscriber that cannot keep up is disconnected.
package websocket
