package service

import (
	"context"
	"time"

	"github.com/wricardo/geocard/auth"
	"github.com/wricardo/geocard/game/engine"
)

// GameService defines all game-related operations. Player-facing operations
// take the caller's token and resolve it to a player before touching a game.
type GameService interface {
	// Game management
	CreateGame(ctx context.Context, req CreateGameRequest) (*GameInfo, error)
	GetGame(ctx context.Context, gameID string) (*GameInfo, error)
	ListGames(ctx context.Context) ([]*GameInfo, error)
	DeleteGame(ctx context.Context, gameID, token string) error
	GetInventory(ctx context.Context, gameID, token string) (*InventoryView, error)

	// Round flow
	SelectRoundCard(ctx context.Context, gameID, token, cardID string) (*engine.Snapshot, error)
	PlayActionCard(ctx context.Context, gameID, token, cardID, targetPlayerID string) (*ActionResult, error)
	StartGuessing(ctx context.Context, gameID, token string) (*engine.Snapshot, error)
	SubmitGuess(ctx context.Context, gameID, token string, lat, lng float64) (*GuessResult, error)
	ForceResolve(ctx context.Context, gameID, token string) (*RoundOutcome, error)
	NextRound(ctx context.Context, gameID, token string) (*engine.Snapshot, error)

	// Rules
	ListPresets(ctx context.Context) ([]*PresetInfo, error)
}

// SessionManager owns the live sessions and serializes access to each one.
type SessionManager interface {
	Create(id string, players []engine.Player, rules *engine.Rules) (*Session, error)
	Get(id string) (*Session, error)
	WithSession(id string, fn func(*Session) error) error
	List() []*Session
	Delete(id string) error
}

// PresetStore serves rule presets by id.
type PresetStore interface {
	LoadPreset(id string) (*engine.Rules, error)
	ListPresets() ([]*PresetInfo, error)
	Default() *engine.Rules
}

// IdentityResolver turns an opaque player token into a player identity.
type IdentityResolver interface {
	ResolvePlayer(ctx context.Context, token string) (auth.Identity, error)
}

// Roster returns the ordered player tokens of a lobby.
type Roster interface {
	RosterFor(ctx context.Context, lobbyID string) ([]string, error)
}

// Notifier pushes snapshots and events to connected clients. Delivery is best
// effort. The service publishes while it holds the session lock, so
// implementations must not block.
type Notifier interface {
	PublishSnapshot(gameID string, snapshot *engine.Snapshot)
	PublishEvent(gameID string, event string, data interface{})
}

// Archiver stores the summary of a finished game.
type Archiver interface {
	Archive(ctx context.Context, summary engine.Summary) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
