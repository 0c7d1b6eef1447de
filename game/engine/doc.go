// Package engine implements the game session state machine for Geocard.
//
// The engine package covers:
//   - Round card selection and the round lifecycle
//   - Action card play and effect bookkeeping
//   - Guess submission and haversine scoring
//   - Round and game winner resolution
//   - Round card and action card inventories
//
// Core Types:
//
// GameEngine wraps a GameState and applies every operation to it after
// validating the request. GameState is the single aggregate for one session;
// Rules holds the tunable limits loaded from presets.
//
// Usage:
//
//	players := []engine.Player{{ID: "p1", DisplayName: "Ada"}, {ID: "p2", DisplayName: "Lin"}}
//	eng, err := engine.NewEngine("a1b2", players, engine.DefaultRules())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	card := eng.State().Inventories["p1"].RoundCards[0]
//	if err := eng.SelectRoundCard(ctx, source, "p1", card.ID); err != nil {
//		log.Fatal(err)
//	}
//	_ = eng.StartGuessing("p1")
//	_, _ = eng.SubmitGuess("p1", geo.Coordinate{Lat: 44, Lng: 44})
//
// Game Rules:
//
// Players take turns spending a round card to start a round. The round card
// sets the guess timer. After a short action card window every player guesses
// the location; the closest guess wins the round and its owner starts the next
// one. The game ends when the round cap is reached or a player has no round
// cards left. The player with the most round wins takes the game, with the
// lowest total distance breaking ties.
//
// A GameEngine is not safe for concurrent use. Callers serialize access per
// session, which the session package does.
package engine
