// Package api provides the HTTP REST API of the Geocard game server.
//
// Endpoints:
//
// Game Management:
//   - POST /api/games - Create a game from a lobby or a list of player tokens
//   - GET /api/games - List live games, optionally ?status=AWAITING_GUESSES
//   - GET /api/games/{id} - Get a game with its public snapshot
//   - DELETE /api/games/{id} - A player deletes their game
//   - GET /api/games/{id}/inventory - The caller's own cards and effects
//
// Round Flow:
//   - POST /api/games/{id}/round-card - Turn player picks the round card
//   - POST /api/games/{id}/action-card - Play an action card on a target
//   - POST /api/games/{id}/guessing - Turn player closes the action window
//   - POST /api/games/{id}/guess - Submit or replace a guess
//   - POST /api/games/{id}/resolve - Turn player resolves the round with the guesses so far
//   - POST /api/games/{id}/next-round - Start the next round or end the game
//
// Lobbies:
//   - PUT /api/lobbies/{id} - Set the ordered player tokens of a lobby
//   - DELETE /api/lobbies/{id} - Forget a lobby
//
// Presets and History:
//   - GET /api/presets - List rule presets
//   - GET /api/history - List finished games, newest first, ?limit=N
//   - GET /api/history/{id} - Get the summary of a finished game
//
// GET /api/health reports liveness and the number of WebSocket subscribers.
// Real-time updates are served on GET /ws?game={id}.
//
// Player operations read the player token from the Authorization header:
//
//	Authorization: Bearer <token>
//
// Errors are returned as JSON with the matching HTTP status code:
//
//	{
//	  "error": "invalid transition: round card already selected",
//	  "code": 409
//	}
//
// Unknown games map to 404, bad tokens to 401, acting for someone else or out
// of turn to 403, phase violations and reused cards to 409, finished games to
// 410 and invalid input to 400.
package api
