package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/wricardo/geocard/game/engine"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS archived_games (
	session_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	winner TEXT NOT NULL,
	rounds_played INTEGER NOT NULL,
	round_card_start_amount INTEGER NOT NULL,
	completed_at INTEGER NOT NULL,
	PRIMARY KEY (session_id, started_at)
);
CREATE TABLE IF NOT EXISTS archived_game_players (
	session_id TEXT NOT NULL,
	started_at INTEGER NOT NULL,
	position INTEGER NOT NULL,
	player_id TEXT NOT NULL,
	display_name TEXT NOT NULL,
	round_wins INTEGER NOT NULL,
	total_distance REAL NOT NULL,
	guesses_submitted INTEGER NOT NULL,
	xp INTEGER NOT NULL,
	PRIMARY KEY (session_id, started_at, player_id),
	FOREIGN KEY (session_id, started_at) REFERENCES archived_games(session_id, started_at) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS archived_games_completed_at ON archived_games(completed_at);
`

// SQLiteStore archives games in a SQLite database. Times are stored as unix
// nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (r *SQLiteStore) Archive(ctx context.Context, summary engine.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	started := summary.StartedAt.UnixNano()
	q := `DELETE FROM archived_game_players WHERE session_id = ? AND started_at = ?`
	if _, err := tx.ExecContext(ctx, q, summary.SessionID, started); err != nil {
		return fmt.Errorf("failed to clear players: %w", err)
	}
	q = `
	INSERT OR REPLACE INTO archived_games (session_id, started_at, winner, rounds_played, round_card_start_amount, completed_at)
	VALUES (?, ?, ?, ?, ?, ?);
	`
	_, err = tx.ExecContext(ctx, q, summary.SessionID, started, summary.Winner, summary.RoundsPlayed,
		summary.RoundCardStartAmount, summary.CompletedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}

	for i, p := range summary.Players {
		q := `
		INSERT INTO archived_game_players (session_id, started_at, position, player_id, display_name, round_wins, total_distance, guesses_submitted, xp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
		`
		_, err = tx.ExecContext(ctx, q, summary.SessionID, started, i, p.PlayerID, p.DisplayName,
			p.RoundWins, p.TotalDistance, p.GuessesSubmitted, p.XP)
		if err != nil {
			return fmt.Errorf("failed to insert player: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteStore) Get(ctx context.Context, sessionID string) (*engine.Summary, error) {
	q := `
	SELECT session_id, winner, rounds_played, round_card_start_amount, started_at, completed_at
	FROM archived_games WHERE session_id = ? ORDER BY completed_at DESC LIMIT 1;
	`
	s, err := scanGame(r.db.QueryRowContext(ctx, q, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	if err := r.loadPlayers(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SQLiteStore) List(ctx context.Context, limit int) ([]engine.Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	q := `
	SELECT session_id, winner, rounds_played, round_card_start_amount, started_at, completed_at
	FROM archived_games ORDER BY completed_at DESC LIMIT ?;
	`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}

	var out []engine.Summary
	for rows.Next() {
		s, err := scanGame(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		out = append(out, *s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	// players are loaded after the games cursor is closed; the pool has one connection
	for i := range out {
		if err := r.loadPlayers(ctx, &out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *SQLiteStore) Close(ctx context.Context) error {
	return r.db.Close()
}

func (r *SQLiteStore) loadPlayers(ctx context.Context, s *engine.Summary) error {
	q := `
	SELECT player_id, display_name, round_wins, total_distance, guesses_submitted, xp
	FROM archived_game_players WHERE session_id = ? AND started_at = ? ORDER BY position;
	`
	rows, err := r.db.QueryContext(ctx, q, s.SessionID, s.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p engine.PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.DisplayName, &p.RoundWins, &p.TotalDistance, &p.GuessesSubmitted, &p.XP); err != nil {
			return fmt.Errorf("failed to scan player: %w", err)
		}
		s.Players = append(s.Players, p)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (*engine.Summary, error) {
	var s engine.Summary
	var started, completed int64
	if err := row.Scan(&s.SessionID, &s.Winner, &s.RoundsPlayed, &s.RoundCardStartAmount, &started, &completed); err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(0, started).UTC()
	s.CompletedAt = time.Unix(0, completed).UTC()
	return &s, nil
}
