package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wricardo/geocard/auth"
	"github.com/wricardo/geocard/game/cards"
	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/game/geo"
	"github.com/wricardo/geocard/platform/log"
)

const archiveTimeout = 10 * time.Second

// errStaleTimer aborts a timer callback whose round already moved on.
var errStaleTimer = errors.New("stale round timer")

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions   SessionManager
	presets    PresetStore
	identities IdentityResolver
	coords     engine.CoordinateSource
	roster     Roster
	notifier   Notifier
	archiver   Archiver
	timers     *roundTimers
	tracer     trace.Tracer
}

// Option configures the game service
type Option func(*gameServiceImpl)

// WithRoster lets games be created from a lobby id.
func WithRoster(r Roster) Option {
	return func(s *gameServiceImpl) { s.roster = r }
}

// WithNotifier sets where snapshots are pushed after each transition.
func WithNotifier(n Notifier) Option {
	return func(s *gameServiceImpl) { s.notifier = n }
}

// WithArchiver sets where summaries of finished games go.
func WithArchiver(a Archiver) Option {
	return func(s *gameServiceImpl) { s.archiver = a }
}

// WithRoundTimers closes the action window and force-resolves the guess
// window on the server. after may be nil to use time.AfterFunc.
func WithRoundTimers(after AfterFunc) Option {
	return func(s *gameServiceImpl) { s.timers = newRoundTimers(after) }
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, presets PresetStore, identities IdentityResolver, coords engine.CoordinateSource, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions:   sessions,
		presets:    presets,
		identities: identities,
		coords:     coords,
		tracer:     otel.Tracer("github.com/wricardo/geocard/game/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateGame resolves the players and starts a session
func (s *gameServiceImpl) CreateGame(ctx context.Context, req CreateGameRequest) (info *GameInfo, err error) {
	ctx, span := s.startSpan(ctx, "CreateGame", req.GameID)
	defer func() { endSpan(span, err) }()

	rules := s.presets.Default()
	if req.Preset != "" {
		rules, err = s.presets.LoadPreset(req.Preset)
		if err != nil {
			return nil, fmt.Errorf("%w: preset %q: %w", engine.ErrInvalidArgument, req.Preset, err)
		}
	}

	tokens := req.PlayerTokens
	if req.LobbyID != "" {
		if s.roster == nil {
			return nil, fmt.Errorf("%w: lobbies are not available", engine.ErrInvalidArgument)
		}
		tokens, err = s.roster.RosterFor(ctx, req.LobbyID)
		if err != nil {
			return nil, fmt.Errorf("lobby %s: %w", req.LobbyID, err)
		}
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("%w: no players", engine.ErrInvalidArgument)
	}

	players := make([]engine.Player, 0, len(tokens))
	for _, token := range tokens {
		id, err := s.resolve(ctx, token)
		if err != nil {
			return nil, err
		}
		players = append(players, engine.Player{ID: id.PlayerID, DisplayName: id.DisplayName})
	}

	sess, err := s.sessions.Create(req.GameID, players, rules)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	span.SetAttributes(attribute.String("game.id", sess.ID), attribute.Int("game.players", len(players)))

	info = gameInfo(sess)
	log.Info("[GAME] %s created with %d players, rules %q", sess.ID, len(players), rules.Name)
	s.publish(sess.ID, info.Snapshot, EventGameCreated, map[string]interface{}{"players": info.Snapshot.Players})
	return info, nil
}

// GetGame retrieves game information
func (s *gameServiceImpl) GetGame(ctx context.Context, gameID string) (*GameInfo, error) {
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, err
	}
	return gameInfo(sess), nil
}

// ListGames returns all live games, oldest first
func (s *gameServiceImpl) ListGames(ctx context.Context) ([]*GameInfo, error) {
	sessions := s.sessions.List()
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
		}
		return sessions[i].ID < sessions[j].ID
	})

	result := make([]*GameInfo, 0, len(sessions))
	for _, sess := range sessions {
		result = append(result, gameInfo(sess))
	}
	return result, nil
}

// DeleteGame removes a game. Only its players may delete it.
func (s *gameServiceImpl) DeleteGame(ctx context.Context, gameID, token string) error {
	id, err := s.resolve(ctx, token)
	if err != nil {
		return err
	}
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return err
	}
	if !sess.Engine.HasPlayer(id.PlayerID) {
		return engine.ErrUnknownPlayer
	}

	if err := s.sessions.Delete(gameID); err != nil {
		return err
	}
	s.timers.cancel(gameID)
	if s.notifier != nil {
		s.notifier.PublishEvent(gameID, EventGameDeleted, nil)
	}
	log.Info("[GAME] %s deleted", gameID)
	return nil
}

// GetInventory returns the caller's own hand
func (s *gameServiceImpl) GetInventory(ctx context.Context, gameID, token string) (*InventoryView, error) {
	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(gameID)
	if err != nil {
		return nil, err
	}

	inv, err := sess.Engine.Inventory(id.PlayerID)
	if err != nil {
		return nil, err
	}
	st := sess.Engine.State()

	view := &InventoryView{
		GameID:        sess.ID,
		PlayerID:      id.PlayerID,
		RoundCards:    inv.RoundCards,
		ActionCards:   make([]cards.ActionCard, 0, len(inv.ActionCards)),
		ActiveEffects: append([]cards.Effect{}, st.ActiveEffects[id.PlayerID]...),
		IsTurnPlayer:  st.CurrentTurnPlayer == id.PlayerID,
	}
	for _, cardID := range inv.ActionCards {
		if card, ok := cards.LookupActionCard(cardID); ok {
			view.ActionCards = append(view.ActionCards, card)
		}
	}
	_, view.HasGuessed = st.PlayerGuesses[id.PlayerID]
	view.CanPlayAction = st.Status == engine.AwaitingActionCards &&
		!st.CardsPlayedThisRound[id.PlayerID] && len(inv.ActionCards) > 0
	return view, nil
}

// SelectRoundCard starts a round with the caller's round card
func (s *gameServiceImpl) SelectRoundCard(ctx context.Context, gameID, token, cardID string) (snap *engine.Snapshot, err error) {
	ctx, span := s.startSpan(ctx, "SelectRoundCard", gameID)
	defer func() { endSpan(span, err) }()

	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	var out engine.Snapshot
	var actionWindow int
	err = s.sessions.WithSession(gameID, func(sess *Session) error {
		if err := sess.Engine.SelectRoundCard(ctx, s.coords, id.PlayerID, cardID); err != nil {
			return err
		}
		out = sess.Engine.Snapshot()
		actionWindow = sess.Engine.Rules().ActionWindowSeconds
		s.publish(gameID, out, EventRoundStarted, map[string]interface{}{
			"round":     out.CurrentRound,
			"player_id": id.PlayerID,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("[GAME] %s round %d started by %s", gameID, out.CurrentRound, id.PlayerID)
	if actionWindow > 0 {
		round := out.CurrentRound
		s.timers.schedule(gameID, time.Duration(actionWindow)*time.Second, func() {
			s.expireActionWindow(gameID, round)
		})
	}
	return &out, nil
}

// PlayActionCard plays one of the caller's action cards
func (s *gameServiceImpl) PlayActionCard(ctx context.Context, gameID, token, cardID, targetPlayerID string) (result *ActionResult, err error) {
	ctx, span := s.startSpan(ctx, "PlayActionCard", gameID)
	defer func() { endSpan(span, err) }()

	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	result = &ActionResult{}
	err = s.sessions.WithSession(gameID, func(sess *Session) error {
		effect, err := sess.Engine.PlayActionCard(id.PlayerID, cardID, targetPlayerID)
		if err != nil {
			return err
		}
		result.Effect = effect
		result.Snapshot = sess.Engine.Snapshot()
		s.publish(gameID, result.Snapshot, EventActionPlayed, map[string]interface{}{
			"player_id": id.PlayerID,
			"card_id":   cardID,
			"target":    effect.Target,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// StartGuessing closes the action window on the turn owner's request
func (s *gameServiceImpl) StartGuessing(ctx context.Context, gameID, token string) (snap *engine.Snapshot, err error) {
	ctx, span := s.startSpan(ctx, "StartGuessing", gameID)
	defer func() { endSpan(span, err) }()

	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	var out engine.Snapshot
	var grace int
	err = s.sessions.WithSession(gameID, func(sess *Session) error {
		if err := sess.Engine.StartGuessing(id.PlayerID); err != nil {
			return err
		}
		out = sess.Engine.Snapshot()
		grace = sess.Engine.Rules().GuessGraceSeconds
		s.publish(gameID, out, EventGuessingOpen, map[string]interface{}{"round": out.CurrentRound})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.scheduleGuessWindow(gameID, out, grace)
	return &out, nil
}

// SubmitGuess scores the caller's guess. The last missing guess resolves the
// round.
func (s *gameServiceImpl) SubmitGuess(ctx context.Context, gameID, token string, lat, lng float64) (result *GuessResult, err error) {
	ctx, span := s.startSpan(ctx, "SubmitGuess", gameID)
	defer func() { endSpan(span, err) }()

	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	result = &GuessResult{}
	err = s.sessions.WithSession(gameID, func(sess *Session) error {
		guess, err := sess.Engine.SubmitGuess(id.PlayerID, geo.Coordinate{Lat: lat, Lng: lng})
		if err != nil {
			return err
		}
		result.Guess = guess

		if sess.Engine.AllGuessesSubmitted() {
			round, err := sess.Engine.DetermineRoundWinner()
			if err != nil {
				return err
			}
			result.Outcome = &RoundOutcome{Result: round, Snapshot: sess.Engine.Snapshot()}
		}
		result.Snapshot = sess.Engine.Snapshot()
		s.publish(gameID, result.Snapshot, EventGuessReceived, map[string]interface{}{"player_id": id.PlayerID})
		if result.Outcome != nil {
			s.publish(gameID, result.Outcome.Snapshot, EventRoundResolved, result.Outcome.Result)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Outcome != nil {
		s.roundResolved(gameID, result.Outcome)
	}
	return result, nil
}

// ForceResolve resolves the round with the guesses received so far. Only the
// turn owner may cut the guess window short; the round timer resolves on
// everyone else's behalf.
func (s *gameServiceImpl) ForceResolve(ctx context.Context, gameID, token string) (outcome *RoundOutcome, err error) {
	ctx, span := s.startSpan(ctx, "ForceResolve", gameID)
	defer func() { endSpan(span, err) }()

	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	outcome = &RoundOutcome{}
	err = s.sessions.WithSession(gameID, func(sess *Session) error {
		if !sess.Engine.HasPlayer(id.PlayerID) {
			return engine.ErrUnknownPlayer
		}
		if sess.Engine.IsGameOver() {
			return engine.ErrGameAlreadyOver
		}
		if sess.Engine.State().CurrentTurnPlayer != id.PlayerID {
			return engine.ErrNotYourTurn
		}
		round, err := sess.Engine.ForceResolve()
		if err != nil {
			return err
		}
		outcome.Result = round
		outcome.Snapshot = sess.Engine.Snapshot()
		s.publish(gameID, outcome.Snapshot, EventRoundResolved, round)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.roundResolved(gameID, outcome)
	return outcome, nil
}

// NextRound leaves the reveal screen on behalf of one of the players. When the
// game ends the summary is archived before NextRound returns.
func (s *gameServiceImpl) NextRound(ctx context.Context, gameID, token string) (snap *engine.Snapshot, err error) {
	ctx, span := s.startSpan(ctx, "NextRound", gameID)
	defer func() { endSpan(span, err) }()

	id, err := s.resolve(ctx, token)
	if err != nil {
		return nil, err
	}

	var out engine.Snapshot
	var summary engine.Summary
	var over bool
	err = s.sessions.WithSession(gameID, func(sess *Session) error {
		if !sess.Engine.HasPlayer(id.PlayerID) {
			return engine.ErrUnknownPlayer
		}
		if err := sess.Engine.AdvanceRound(); err != nil {
			return err
		}
		out = sess.Engine.Snapshot()
		summary, over = sess.Engine.Summary()
		if over {
			s.publish(gameID, out, EventGameOver, summary)
		} else {
			s.publish(gameID, out, "", nil)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !over {
		return &out, nil
	}

	s.timers.cancel(gameID)
	log.Info("[GAME] %s over after %d rounds, winner %s", gameID, summary.RoundsPlayed, summary.Winner)
	s.archive(ctx, summary)
	return &out, nil
}

// ListPresets returns the available rule presets
func (s *gameServiceImpl) ListPresets(ctx context.Context) ([]*PresetInfo, error) {
	return s.presets.ListPresets()
}

// scheduleGuessWindow arms the timer that force-resolves the round once the
// guess window and its grace period are over.
func (s *gameServiceImpl) scheduleGuessWindow(gameID string, snap engine.Snapshot, grace int) {
	if snap.GuessWindow == nil {
		return
	}
	round := snap.CurrentRound
	d := time.Duration(snap.GuessWindow.Seconds+grace) * time.Second
	s.timers.schedule(gameID, d, func() {
		s.expireGuessWindow(gameID, round)
	})
}

// roundResolved runs after the lock is released; the outcome was already
// published.
func (s *gameServiceImpl) roundResolved(gameID string, outcome *RoundOutcome) {
	s.timers.cancel(gameID)
	r := outcome.Result
	log.Info("[GAME] %s round %d resolved, winner %q at %.0f m (forced=%t)", gameID, r.Round, r.Winner, r.WinningDistance, r.Forced)
}

// expireActionWindow runs when the action card phase times out.
func (s *gameServiceImpl) expireActionWindow(gameID string, round int) {
	var out engine.Snapshot
	var grace int
	err := s.sessions.WithSession(gameID, func(sess *Session) error {
		st := sess.Engine.State()
		if st.CurrentRound != round || st.Status != engine.AwaitingActionCards {
			return errStaleTimer
		}
		if err := sess.Engine.ExpireActionWindow(); err != nil {
			return err
		}
		out = sess.Engine.Snapshot()
		grace = sess.Engine.Rules().GuessGraceSeconds
		s.publish(gameID, out, EventGuessingOpen, map[string]interface{}{"round": out.CurrentRound})
		return nil
	})
	if err != nil {
		if !errors.Is(err, errStaleTimer) {
			log.Debug("[TIMER] %s action window: %v", gameID, err)
		}
		return
	}

	log.Debug("[TIMER] %s round %d action window closed", gameID, round)
	s.scheduleGuessWindow(gameID, out, grace)
}

// expireGuessWindow force-resolves a round whose guess window ran out.
func (s *gameServiceImpl) expireGuessWindow(gameID string, round int) {
	outcome := &RoundOutcome{}
	err := s.sessions.WithSession(gameID, func(sess *Session) error {
		st := sess.Engine.State()
		if st.CurrentRound != round || st.Status != engine.AwaitingGuesses {
			return errStaleTimer
		}
		result, err := sess.Engine.ForceResolve()
		if err != nil {
			return err
		}
		outcome.Result = result
		outcome.Snapshot = sess.Engine.Snapshot()
		s.publish(gameID, outcome.Snapshot, EventRoundResolved, result)
		return nil
	})
	if err != nil {
		if !errors.Is(err, errStaleTimer) {
			log.Debug("[TIMER] %s guess window: %v", gameID, err)
		}
		return
	}

	s.roundResolved(gameID, outcome)
}

func (s *gameServiceImpl) resolve(ctx context.Context, token string) (auth.Identity, error) {
	if token == "" {
		return auth.Identity{}, fmt.Errorf("%w: missing player token", engine.ErrUnauthorized)
	}
	id, err := s.identities.ResolvePlayer(ctx, token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %w", engine.ErrUnauthorized, err)
	}
	return id, nil
}

// publish pushes the snapshot and, when event is set, the event. Callers hold
// the session lock so snapshots of one game go out in commit order. Delivery
// failures never reach the caller.
func (s *gameServiceImpl) publish(gameID string, snap engine.Snapshot, event string, data interface{}) {
	if s.notifier == nil {
		return
	}
	s.notifier.PublishSnapshot(gameID, &snap)
	if event != "" {
		s.notifier.PublishEvent(gameID, event, data)
	}
}

func (s *gameServiceImpl) archive(ctx context.Context, summary engine.Summary) {
	if s.archiver == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
	defer cancel()

	if err := s.archiver.Archive(ctx, summary); err != nil {
		log.Error("[GAME] %s archive failed: %v", summary.SessionID, err)
	}
}

func (s *gameServiceImpl) startSpan(ctx context.Context, op, gameID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "GameService."+op, trace.WithAttributes(attribute.String("game.id", gameID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func gameInfo(sess *Session) *GameInfo {
	rules := *sess.Engine.Rules()
	info := &GameInfo{
		ID:             sess.ID,
		Rules:          &rules,
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		Snapshot:       sess.Engine.Snapshot(),
	}
	if summary, ok := sess.Engine.Summary(); ok {
		info.Summary = &summary
	}
	return info
}
