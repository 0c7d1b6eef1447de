// Package bot plays Geocard games over the REST API.
//
// A Runner holds the tokens of the seats it plays. Each step it reads the
// game, acts for whichever of its seats can move, and waits otherwise, so bots
// can share a game with human players. Requests that lose a race against a
// round timer come back as 409 and are retried on the next step.
//
//	runner := bot.NewRunner(bot.NewClient(url), bot.NewContinentStrategy(seed), tokens)
//	summary, err := runner.Run(ctx, service.CreateGameRequest{Preset: "quick"})
package bot
