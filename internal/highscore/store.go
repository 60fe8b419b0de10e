// Package highscore persists best scores per difficulty.
//
// Every Store implements game.ScoreKeeper, so a controller records finished
// games straight into it:
//
//	store, err := highscore.Open(highscore.DriverSQLite, "cupsandcoins.db")
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//	ctrl := game.NewController(game.WithScoreKeeper(store))
package highscore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lox/cupsandcoins/internal/game"
)

// Drivers accepted by Open.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// ErrUnknownDriver is returned by Open for unsupported drivers.
var ErrUnknownDriver = errors.New("unknown high score driver")

// Entry is the best score held for one difficulty.
type Entry struct {
	Difficulty game.Difficulty `json:"difficulty"`
	Score      int             `json:"score"`
	GameID     string          `json:"gameId,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Store keeps the best score per difficulty.
type Store interface {
	game.ScoreKeeper

	// Best returns the best score for d, or 0 if none has been recorded.
	Best(ctx context.Context, d game.Difficulty) (int, error)

	// All returns every recorded best, ordered by difficulty.
	All(ctx context.Context) ([]Entry, error)

	Close() error
}

// Open creates a store for driver. path is ignored by the memory driver.
func Open(driver, path string) (Store, error) {
	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverFile:
		return OpenFileStore(path)
	case DriverSQLite:
		return OpenSQLiteStore(path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}
}

// improve applies result to the per-difficulty table and reports the best
// score afterwards. The first game at a difficulty is a new best only if it
// scored above zero.
func improve(best map[game.Difficulty]Entry, result game.GameResult) (int, bool) {
	prev, seen := best[result.Difficulty]
	if seen && result.Score <= prev.Score {
		return prev.Score, false
	}
	best[result.Difficulty] = Entry{
		Difficulty: result.Difficulty,
		Score:      result.Score,
		GameID:     result.GameID,
		UpdatedAt:  result.FinishedAt,
	}
	return result.Score, result.Score > prev.Score
}

func sortedEntries(best map[game.Difficulty]Entry) []Entry {
	entries := make([]Entry, 0, len(best))
	for _, e := range best {
		entries = append(entries, e)
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return int(a.Difficulty) - int(b.Difficulty)
	})
	return entries
}

func checkDifficulty(d game.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", game.ErrInvalidDifficulty, int(d))
	}
	return nil
}

// History is implemented by stores that keep every finished game.
type History interface {
	Recent(ctx context.Context, d game.Difficulty, limit int) ([]game.GameResult, error)
}
