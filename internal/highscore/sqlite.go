package highscore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lox/cupsandcoins/internal/game"
)

// SQLiteStore keeps best scores and the full game history in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens (creating if needed) and migrates the database at
// path. ":memory:" gives a throwaway database.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite store requires a path")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises
	// the read-compare-write in RecordGame.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			id TEXT PRIMARY KEY,
			difficulty INTEGER NOT NULL,
			score INTEGER NOT NULL,
			rounds INTEGER NOT NULL,
			correct INTEGER NOT NULL,
			best_streak INTEGER NOT NULL,
			finished_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS high_scores (
			difficulty INTEGER PRIMARY KEY,
			score INTEGER NOT NULL,
			game_id TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_games_finished_at ON games(finished_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_games_difficulty_score ON games(difficulty, score DESC)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) RecordGame(ctx context.Context, result game.GameResult) (best int, newBest bool, err error) {
	if err := checkDifficulty(result.Difficulty); err != nil {
		return 0, false, err
	}
	if result.GameID == "" {
		result.GameID = uuid.New().String()
	}
	if result.FinishedAt.IsZero() {
		result.FinishedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO games (id, difficulty, score, rounds, correct, best_streak, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		result.GameID, int(result.Difficulty), result.Score, result.Rounds,
		result.Correct, result.BestStreak, result.FinishedAt.UnixNano())
	if err != nil {
		return 0, false, fmt.Errorf("insert game: %w", err)
	}

	var prev int
	err = tx.QueryRowContext(ctx,
		`SELECT score FROM high_scores WHERE difficulty = ?`, int(result.Difficulty)).Scan(&prev)
	seen := true
	if errors.Is(err, sql.ErrNoRows) {
		seen, err = false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read best: %w", err)
	}

	best = prev
	if !seen || result.Score > prev {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO high_scores (difficulty, score, game_id, updated_at) VALUES (?, ?, ?, ?)
			 ON CONFLICT(difficulty) DO UPDATE SET
			   score = excluded.score, game_id = excluded.game_id, updated_at = excluded.updated_at`,
			int(result.Difficulty), result.Score, result.GameID, result.FinishedAt.UnixNano())
		if err != nil {
			return 0, false, fmt.Errorf("update best: %w", err)
		}
		best = result.Score
		newBest = result.Score > prev
	}

	if err = tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return best, newBest, nil
}

func (s *SQLiteStore) Best(ctx context.Context, d game.Difficulty) (int, error) {
	if err := checkDifficulty(d); err != nil {
		return 0, err
	}
	var score int
	err := s.db.QueryRowContext(ctx,
		`SELECT score FROM high_scores WHERE difficulty = ?`, int(d)).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read best: %w", err)
	}
	return score, nil
}

func (s *SQLiteStore) All(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT difficulty, score, game_id, updated_at FROM high_scores ORDER BY difficulty`)
	if err != nil {
		return nil, fmt.Errorf("list bests: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			d       int
			updated int64
		)
		if err := rows.Scan(&d, &e.Score, &e.GameID, &updated); err != nil {
			return nil, fmt.Errorf("scan best: %w", err)
		}
		e.Difficulty = game.Difficulty(d)
		e.UpdatedAt = time.Unix(0, updated).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Recent returns up to limit finished games, newest first. A zero
// difficulty matches every difficulty.
func (s *SQLiteStore) Recent(ctx context.Context, d game.Difficulty, limit int) ([]game.GameResult, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, difficulty, score, rounds, correct, best_streak, finished_at FROM games`
	args := []any{}
	if d != 0 {
		query += ` WHERE difficulty = ?`
		args = append(args, int(d))
	}
	query += ` ORDER BY finished_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	var results []game.GameResult
	for rows.Next() {
		var (
			r        game.GameResult
			diff     int
			finished int64
		)
		if err := rows.Scan(&r.GameID, &diff, &r.Score, &r.Rounds, &r.Correct, &r.BestStreak, &finished); err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		r.Difficulty = game.Difficulty(diff)
		r.FinishedAt = time.Unix(0, finished).UTC()
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
