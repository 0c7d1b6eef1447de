package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/service"
	"github.com/wricardo/geocard/platform/log"
)

// Seat is one player the runner plays for.
type Seat struct {
	Token    string
	PlayerID string
}

// Runner plays every bot seat of a game until it is over. Seats owned by
// other clients are waited on.
type Runner struct {
	client   *Client
	strategy Strategy
	seats    []*Seat
	// MaxSteps bounds the number of state polls per game.
	MaxSteps int
	// Poll is how long to wait when no bot can act.
	Poll time.Duration
	// Delay is a pause between bot moves.
	Delay time.Duration
}

func NewRunner(client *Client, strategy Strategy, tokens []string) *Runner {
	seats := make([]*Seat, 0, len(tokens))
	for _, t := range tokens {
		seats = append(seats, &Seat{Token: t})
	}
	return &Runner{
		client:   client,
		strategy: strategy,
		seats:    seats,
		MaxSteps: 1000,
		Poll:     250 * time.Millisecond,
	}
}

// Run creates a game and plays it to the end. Without a lobby the bot tokens
// are the player list.
func (r *Runner) Run(ctx context.Context, req service.CreateGameRequest) (*engine.Summary, error) {
	if req.LobbyID == "" && len(req.PlayerTokens) == 0 {
		for _, s := range r.seats {
			req.PlayerTokens = append(req.PlayerTokens, s.Token)
		}
	}

	game, err := r.client.CreateGame(ctx, req)
	if err != nil {
		return nil, err
	}
	log.Info("[BOT] created game %s with %d players", game.ID, len(game.Snapshot.Players))

	return r.Play(ctx, game.ID)
}

// Play drives an existing game.
func (r *Runner) Play(ctx context.Context, gameID string) (*engine.Summary, error) {
	if len(r.seats) == 0 {
		return nil, errors.New("runner has no seats")
	}
	if err := r.resolveSeats(ctx, gameID); err != nil {
		return nil, err
	}

	lastRound := 0
	for step := 0; step < r.MaxSteps; step++ {
		game, err := r.client.GetGame(ctx, gameID)
		if err != nil {
			return nil, err
		}
		snap := &game.Snapshot

		if snap.CurrentRound != lastRound {
			lastRound = snap.CurrentRound
			log.Info("[BOT] game %s round %d/%d, turn %s", gameID, snap.CurrentRound, snap.MaxRounds, snap.CurrentTurnPlayer)
		}

		var acted bool
		switch snap.Status {
		case engine.GameOver:
			if game.Summary == nil {
				return nil, fmt.Errorf("game %s is over without a summary", gameID)
			}
			log.Info("[BOT] game %s won by %s", gameID, game.Summary.Winner)
			return game.Summary, nil
		case engine.AwaitingRoundCard:
			acted, err = r.selectRoundCard(ctx, gameID, snap)
		case engine.AwaitingActionCards:
			acted, err = r.playActions(ctx, gameID, snap)
		case engine.AwaitingGuesses:
			acted, err = r.guess(ctx, gameID, snap)
		case engine.RoundComplete:
			if snap.LastRoundWinner != "" {
				log.Info("[BOT] round %d won by %s", snap.CurrentRound, snap.LastRoundWinner)
			}
			_, err = r.client.NextRound(ctx, gameID, r.seats[0].Token)
			acted = true
		default:
			return nil, fmt.Errorf("game %s in unknown status %q", gameID, snap.Status)
		}
		if err != nil && !IsConflict(err) {
			return nil, err
		}

		wait := r.Delay
		if !acted {
			wait = r.Poll
		}
		if err := sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("game %s not finished after %d steps", gameID, r.MaxSteps)
}

func (r *Runner) resolveSeats(ctx context.Context, gameID string) error {
	for _, s := range r.seats {
		if s.PlayerID != "" {
			continue
		}
		inv, err := r.client.Inventory(ctx, gameID, s.Token)
		if err != nil {
			return fmt.Errorf("resolve seat: %w", err)
		}
		s.PlayerID = inv.PlayerID
	}
	return nil
}

func (r *Runner) seatFor(playerID string) *Seat {
	for _, s := range r.seats {
		if s.PlayerID == playerID {
			return s
		}
	}
	return nil
}

func (r *Runner) selectRoundCard(ctx context.Context, gameID string, snap *engine.Snapshot) (bool, error) {
	seat := r.seatFor(snap.CurrentTurnPlayer)
	if seat == nil {
		return false, nil
	}
	inv, err := r.client.Inventory(ctx, gameID, seat.Token)
	if err != nil {
		return false, err
	}
	if len(inv.RoundCards) == 0 {
		return false, errors.New("turn player has no round cards left")
	}
	card := inv.RoundCards[0]
	if _, err := r.client.SelectRoundCard(ctx, gameID, seat.Token, card.ID); err != nil {
		return false, err
	}
	log.Debug("[BOT] %s selected %s", seat.PlayerID, card.Kind)
	return true, nil
}

func (r *Runner) playActions(ctx context.Context, gameID string, snap *engine.Snapshot) (bool, error) {
	var acted bool
	for _, seat := range r.seats {
		inv, err := r.client.Inventory(ctx, gameID, seat.Token)
		if err != nil {
			return acted, err
		}
		cardID, target := r.strategy.Action(inv, opponents(snap, seat.PlayerID))
		if cardID == "" {
			continue
		}
		if _, err := r.client.PlayActionCard(ctx, gameID, seat.Token, cardID, target); err != nil {
			if IsConflict(err) {
				return acted, err
			}
			log.Warn("[BOT] %s could not play %s: %v", seat.PlayerID, cardID, err)
			continue
		}
		acted = true
		log.Debug("[BOT] %s played %s", seat.PlayerID, cardID)
	}

	if seat := r.seatFor(snap.CurrentTurnPlayer); seat != nil {
		if _, err := r.client.StartGuessing(ctx, gameID, seat.Token); err != nil {
			return acted, err
		}
		acted = true
	}
	return acted, nil
}

func (r *Runner) guess(ctx context.Context, gameID string, snap *engine.Snapshot) (bool, error) {
	var acted bool
	for _, seat := range r.seats {
		if snap.PlayerInfo[seat.PlayerID].HasGuessed {
			continue
		}
		inv, err := r.client.Inventory(ctx, gameID, seat.Token)
		if err != nil {
			return acted, err
		}
		c := r.strategy.Guess(inv)
		result, err := r.client.SubmitGuess(ctx, gameID, seat.Token, c.Lat, c.Lng)
		if err != nil {
			return acted, err
		}
		acted = true
		log.Debug("[BOT] %s guessed %s", seat.PlayerID, c)
		if result.Outcome != nil {
			// round resolved on this guess
			break
		}
	}
	return acted, nil
}

func opponents(snap *engine.Snapshot, self string) []string {
	var ids []string
	for _, p := range snap.Players {
		if p.ID != self {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
