package simulator

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/highscore"
)

func testLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.WarnLevel})
}

func TestNewDefaults(t *testing.T) {
	t.Parallel()

	sim, err := New(Config{Games: 3, Seed: 12345})
	require.NoError(t, err)
	assert.Equal(t, "tracker", sim.config.Strategy)
	assert.Equal(t, 1, sim.config.Parallel)
	assert.Equal(t, int64(12345), sim.Seed())
	assert.Equal(t, game.DefaultRules(), sim.config.Rules)

	sim, err = New(Config{Games: 1})
	require.NoError(t, err)
	assert.NotZero(t, sim.Seed(), "a zero seed is resolved so the run can be replayed")
}

func TestNewRejectsBadConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		config Config
	}{
		{"no games", Config{}},
		{"unknown strategy", Config{Games: 1, Strategy: "psychic"}},
		{"bad difficulty", Config{Games: 1, Difficulty: 9}},
		{"bad rules", Config{Games: 1, Rules: game.Rules{Levels: map[game.Difficulty]game.Level{}, RoundsPerGame: 1}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			assert.Error(t, err)
		})
	}
}

func TestTrackerAlwaysWins(t *testing.T) {
	t.Parallel()

	sim, err := New(Config{
		Games:    24,
		Strategy: "tracker",
		Seed:     7,
		Parallel: 4,
		Logger:   testLogger(),
	})
	require.NoError(t, err)

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	rounds := game.DefaultRules().RoundsPerGame
	assert.Equal(t, 24, stats.Games)
	assert.Equal(t, 24*rounds, stats.Rounds)
	assert.Equal(t, stats.Rounds, stats.Correct)
	assert.Equal(t, 24, stats.PerfectGames)
	assert.Equal(t, rounds, stats.BestStreak)

	// 10 + 10 + 15 + 15 + 15 with the default combo rule.
	assert.Equal(t, 65.0, stats.Mean())
	for _, d := range game.Difficulties {
		assert.Equal(t, 6, stats.ByDifficulty[d].Games, d.String())
	}
}

func TestTrackerWinsWithStreakScoring(t *testing.T) {
	t.Parallel()

	rules := game.DefaultRules()
	sim, err := New(Config{
		Games:      4,
		Difficulty: game.Expert,
		Seed:       99,
		Scorer:     game.NewStreakBonusScorer(rules),
		Logger:     testLogger(),
	})
	require.NoError(t, err)

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1.0, stats.Accuracy())
	// Streaks 1-5 at multiplier 4: bonuses 5,10,15,20,20.
	assert.Equal(t, float64(5*10+(5+10+15+20+20)*4), stats.Mean())
}

func TestRandomIsDeterministicAcrossParallelism(t *testing.T) {
	t.Parallel()

	run := func(parallel int) []float64 {
		sim, err := New(Config{
			Games:    30,
			Strategy: "random",
			Seed:     2024,
			Parallel: parallel,
			Logger:   testLogger(),
		})
		require.NoError(t, err)
		stats, err := sim.Run(context.Background())
		require.NoError(t, err)
		require.NoError(t, stats.Validate())
		assert.Less(t, stats.Accuracy(), 1.0)
		return stats.Values
	}

	assert.Equal(t, run(1), run(8))
}

func TestFirstStrategy(t *testing.T) {
	t.Parallel()

	sim, err := New(Config{Games: 10, Strategy: "first", Difficulty: game.Easy, Seed: 3, Logger: testLogger()})
	require.NoError(t, err)

	stats, err := sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, stats.Rounds)
	assert.LessOrEqual(t, stats.Correct, stats.Rounds)
}

func TestRunRecordsIntoKeeper(t *testing.T) {
	t.Parallel()

	store := highscore.NewMemoryStore()
	sim, err := New(Config{
		Games:      3,
		Difficulty: game.Medium,
		Seed:       1,
		Keeper:     store,
		Logger:     testLogger(),
	})
	require.NoError(t, err)

	_, err = sim.Run(context.Background())
	require.NoError(t, err)

	best, err := store.Best(context.Background(), game.Medium)
	require.NoError(t, err)
	assert.Equal(t, 65, best)
}

func TestRunReportsProgress(t *testing.T) {
	t.Parallel()

	var (
		mu    sync.Mutex
		calls []int
	)
	sim, err := New(Config{
		Games:    5,
		Seed:     11,
		Parallel: 2,
		Logger:   testLogger(),
		Progress: func(done, total int) {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, 5, total)
			calls = append(calls, done)
		},
	})
	require.NoError(t, err)

	_, err = sim.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, calls)
}

func TestRunCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim, err := New(Config{Games: 50, Seed: 1, Timeout: time.Second, Logger: testLogger()})
	require.NoError(t, err)

	_, err = sim.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	sim, err := New(Config{Games: 4, Seed: 5, Logger: testLogger()})
	require.NoError(t, err)
	stats, err := sim.Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintSummary(&buf, stats, "tracker")

	out := buf.String()
	assert.Contains(t, out, "RESULTS for tracker strategy")
	assert.Contains(t, out, "Games played: 4")
	assert.Contains(t, out, "Correct guesses: 20/20 (100.0%)")
	assert.Contains(t, out, "easy:")
	assert.Contains(t, out, "expert:")
}

func TestLookupStrategy(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"first", "random", "tracker"}, Strategies())
	for _, name := range Strategies() {
		_, err := LookupStrategy(name)
		assert.NoError(t, err)
	}
	_, err := LookupStrategy("nope")
	assert.Error(t, err)
}
