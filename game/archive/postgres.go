package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wricardo/geocard/game/engine"
	"github.com/wricardo/geocard/platform/log"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS archived_games (
	session_id TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	winner TEXT NOT NULL,
	rounds_played INTEGER NOT NULL,
	round_card_start_amount INTEGER NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (session_id, started_at)
);
CREATE TABLE IF NOT EXISTS archived_game_players (
	session_id TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	position INTEGER NOT NULL,
	player_id TEXT NOT NULL,
	display_name TEXT NOT NULL,
	round_wins INTEGER NOT NULL,
	total_distance DOUBLE PRECISION NOT NULL,
	guesses_submitted INTEGER NOT NULL,
	xp INTEGER NOT NULL,
	PRIMARY KEY (session_id, started_at, player_id),
	FOREIGN KEY (session_id, started_at) REFERENCES archived_games(session_id, started_at) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS archived_games_completed_at ON archived_games(completed_at DESC);
`

// PostgresStore archives games in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	var username, database string
	err = pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&username, &database)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to query database: %w", err)
	}
	log.Info("Archive connected to %s as %s", database, username)

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (r *PostgresStore) Archive(ctx context.Context, summary engine.Summary) error {
	if err := validate(summary); err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := `
	INSERT INTO archived_games (session_id, started_at, winner, rounds_played, round_card_start_amount, completed_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (session_id, started_at) DO UPDATE SET winner = $3, rounds_played = $4,
		round_card_start_amount = $5, completed_at = $6;
	`
	_, err = tx.Exec(ctx, q, summary.SessionID, summary.StartedAt, summary.Winner, summary.RoundsPlayed,
		summary.RoundCardStartAmount, summary.CompletedAt)
	if err != nil {
		return fmt.Errorf("failed to insert game: %w", err)
	}
	q = `DELETE FROM archived_game_players WHERE session_id = $1 AND started_at = $2`
	if _, err := tx.Exec(ctx, q, summary.SessionID, summary.StartedAt); err != nil {
		return fmt.Errorf("failed to clear players: %w", err)
	}

	batch := &pgx.Batch{}
	for i, p := range summary.Players {
		batch.Queue(`
		INSERT INTO archived_game_players (session_id, started_at, position, player_id, display_name, round_wins, total_distance, guesses_submitted, xp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
		`, summary.SessionID, summary.StartedAt, i, p.PlayerID, p.DisplayName, p.RoundWins, p.TotalDistance, p.GuessesSubmitted, p.XP)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert players: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *PostgresStore) Get(ctx context.Context, sessionID string) (*engine.Summary, error) {
	q := `
	SELECT session_id, winner, rounds_played, round_card_start_amount, started_at, completed_at
	FROM archived_games WHERE session_id = $1 ORDER BY completed_at DESC LIMIT 1;
	`
	var s engine.Summary
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&s.SessionID, &s.Winner, &s.RoundsPlayed,
		&s.RoundCardStartAmount, &s.StartedAt, &s.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan game: %w", err)
	}
	if s.Players, err = r.players(ctx, s.SessionID, s.StartedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresStore) List(ctx context.Context, limit int) ([]engine.Summary, error) {
	q := `
	SELECT session_id, winner, rounds_played, round_card_start_amount, started_at, completed_at
	FROM archived_games ORDER BY completed_at DESC
	`
	args := []any{}
	if limit > 0 {
		q += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var out []engine.Summary
	for rows.Next() {
		var s engine.Summary
		if err := rows.Scan(&s.SessionID, &s.Winner, &s.RoundsPlayed, &s.RoundCardStartAmount, &s.StartedAt, &s.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate games: %w", err)
	}

	for i := range out {
		if out[i].Players, err = r.players(ctx, out[i].SessionID, out[i].StartedAt); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *PostgresStore) Close(ctx context.Context) error {
	r.pool.Close()
	return nil
}

func (r *PostgresStore) players(ctx context.Context, sessionID string, startedAt time.Time) ([]engine.PlayerResult, error) {
	rows, err := r.pool.Query(ctx, `
	SELECT player_id, display_name, round_wins, total_distance, guesses_submitted, xp
	FROM archived_game_players WHERE session_id = $1 AND started_at = $2 ORDER BY position;
	`, sessionID, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var out []engine.PlayerResult
	for rows.Next() {
		var p engine.PlayerResult
		if err := rows.Scan(&p.PlayerID, &p.DisplayName, &p.RoundWins, &p.TotalDistance, &p.GuessesSubmitted, &p.XP); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
