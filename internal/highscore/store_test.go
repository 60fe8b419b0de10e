package highscore

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cupsandcoins/internal/game"
)

var (
	_ Store   = (*MemoryStore)(nil)
	_ Store   = (*FileStore)(nil)
	_ Store   = (*SQLiteStore)(nil)
	_ History = (*SQLiteStore)(nil)
)

func openStore(t *testing.T, driver string) Store {
	t.Helper()

	var path string
	switch driver {
	case DriverFile:
		path = filepath.Join(t.TempDir(), "scores.hcl")
	case DriverSQLite:
		path = filepath.Join(t.TempDir(), "scores.db")
	}
	store, err := Open(driver, path)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func result(id string, d game.Difficulty, score int) game.GameResult {
	return game.GameResult{
		GameID:     id,
		Difficulty: d,
		Score:      score,
		Rounds:     5,
		Correct:    score / 10,
		FinishedAt: time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC),
	}
}

func TestStoresKeepTheMaximum(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := openStore(t, driver)

			best, err := store.Best(ctx, game.Easy)
			require.NoError(t, err)
			assert.Zero(t, best)

			steps := []struct {
				score       int
				wantBest    int
				wantNewBest bool
			}{
				{30, 30, true},
				{20, 30, false},
				{30, 30, false},
				{45, 45, true},
			}
			for i, s := range steps {
				best, newBest, err := store.RecordGame(ctx, result(string(rune('a'+i)), game.Easy, s.score))
				require.NoError(t, err)
				assert.Equal(t, s.wantBest, best, "step %d", i)
				assert.Equal(t, s.wantNewBest, newBest, "step %d", i)
			}

			best, err = store.Best(ctx, game.Easy)
			require.NoError(t, err)
			assert.Equal(t, 45, best)

			best, err = store.Best(ctx, game.Hard)
			require.NoError(t, err)
			assert.Zero(t, best, "difficulties are tracked separately")
		})
	}
}

func TestStoresZeroScoreIsNotANewBest(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			store := openStore(t, driver)

			best, newBest, err := store.RecordGame(context.Background(), result("z", game.Medium, 0))
			require.NoError(t, err)
			assert.Zero(t, best)
			assert.False(t, newBest)
		})
	}
}

func TestStoresListEntries(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := openStore(t, driver)

			for _, r := range []game.GameResult{
				result("h1", game.Hard, 60),
				result("e1", game.Easy, 20),
				result("x1", game.Expert, 90),
			} {
				_, _, err := store.RecordGame(ctx, r)
				require.NoError(t, err)
			}

			entries, err := store.All(ctx)
			require.NoError(t, err)
			require.Len(t, entries, 3)
			assert.Equal(t, game.Easy, entries[0].Difficulty)
			assert.Equal(t, game.Hard, entries[1].Difficulty)
			assert.Equal(t, game.Expert, entries[2].Difficulty)
			assert.Equal(t, "x1", entries[2].GameID)
			assert.Equal(t, 90, entries[2].Score)
			assert.True(t, entries[2].UpdatedAt.Equal(result("", 0, 0).FinishedAt))
		})
	}
}

func TestStoresRejectUnknownDifficulty(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := openStore(t, driver)

			_, _, err := store.RecordGame(ctx, result("bad", game.Difficulty(0), 10))
			assert.ErrorIs(t, err, game.ErrInvalidDifficulty)

			_, err = store.Best(ctx, game.Difficulty(12))
			assert.ErrorIs(t, err, game.ErrInvalidDifficulty)
		})
	}
}

func TestStoresConcurrentRecords(t *testing.T) {
	t.Parallel()

	for _, driver := range []string{DriverMemory, DriverFile, DriverSQLite} {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := openStore(t, driver)

			var wg sync.WaitGroup
			for i := 1; i <= 20; i++ {
				wg.Add(1)
				go func(score int) {
					defer wg.Done()
					_, _, err := store.RecordGame(ctx, game.GameResult{
						Difficulty: game.Medium,
						Score:      score,
						FinishedAt: time.Now(),
					})
					assert.NoError(t, err)
				}(i * 5)
			}
			wg.Wait()

			best, err := store.Best(ctx, game.Medium)
			require.NoError(t, err)
			assert.Equal(t, 100, best)
		})
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := Open("redis", "localhost:6379")
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = Open(DriverFile, "")
	assert.Error(t, err)

	_, err = Open(DriverSQLite, "")
	assert.Error(t, err)
}

func TestFileStorePersists(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "scores.hcl")

	store, err := OpenFileStore(path)
	require.NoError(t, err)
	_, _, err = store.RecordGame(ctx, result("game-1", game.Hard, 55))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `best "hard"`)
	assert.Contains(t, string(data), `"game-1"`)

	reopened, err := OpenFileStore(path)
	require.NoError(t, err)
	best, err := reopened.Best(ctx, game.Hard)
	require.NoError(t, err)
	assert.Equal(t, 55, best)

	entries, err := reopened.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "game-1", entries[0].GameID)
	assert.True(t, entries[0].UpdatedAt.Equal(result("", 0, 0).FinishedAt))

	matches, err := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, matches, "no temp files left behind")
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "scores.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`best "hard" {`), 0o644))
	_, err := OpenFileStore(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`best "legendary" { score = 1 }`), 0o644))
	_, err = OpenFileStore(path)
	assert.ErrorIs(t, err, game.ErrInvalidDifficulty)
}

func TestSQLiteStoreHistory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, d := range []game.Difficulty{game.Easy, game.Hard, game.Easy, game.Easy} {
		_, _, err := store.RecordGame(ctx, game.GameResult{
			Difficulty: d,
			Score:      (i + 1) * 10,
			Rounds:     5,
			Correct:    i + 1,
			BestStreak: i,
			FinishedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	all, err := store.Recent(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, 40, all[0].Score, "newest first")
	assert.NotEmpty(t, all[0].GameID, "missing IDs are minted")
	assert.True(t, all[3].FinishedAt.Equal(base))

	easy, err := store.Recent(ctx, game.Easy, 2)
	require.NoError(t, err)
	require.Len(t, easy, 2)
	for _, r := range easy {
		assert.Equal(t, game.Easy, r.Difficulty)
	}
	assert.Equal(t, 40, easy[0].Score)
	assert.Equal(t, 30, easy[1].Score)
}

func TestSQLiteStoreReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scores.db")

	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)
	_, _, err = store.RecordGame(ctx, result("g1", game.Expert, 120))
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = OpenSQLiteStore(path)
	require.NoError(t, err)
	defer store.Close()

	best, err := store.Best(ctx, game.Expert)
	require.NoError(t, err)
	assert.Equal(t, 120, best)

	_, _, err = store.RecordGame(ctx, result("g1", game.Expert, 10))
	assert.Error(t, err, "game IDs are unique")
}
