// Package mcp exposes the Geocard REST API as Model Context Protocol tools.
//
// The client holds no game state. Every tool call is proxied to the REST
// server and the JSON response is rendered as text for the agent.
//
// Tools:
//   - create_game, list_games, get_game: game management
//   - my_inventory: the calling player's cards and effects
//   - select_round_card, play_action_card, start_guessing, submit_guess:
//     player moves, authenticated with a bearer token
//   - resolve_round, next_round: advance the game
//   - list_presets, game_history, game_instructions
//
// Player tools accept a token argument. When it is omitted the token given
// with WithPlayerToken is used, so one agent process can play as one player.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080", mcp.WithPlayerToken(token))
//	server.ServeStdio(client.GetMCPServer())
package mcp
