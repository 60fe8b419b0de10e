// Package simulator plays many headless games concurrently with automated
// guessing strategies.
package simulator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/randutil"
	"github.com/lox/cupsandcoins/internal/statistics"
)

// Config holds configuration for running simulations
type Config struct {
	Games      int
	Difficulty game.Difficulty // zero cycles through every difficulty
	Strategy   string
	Seed       int64
	Parallel   int
	Timeout    time.Duration // per game
	Rules      game.Rules
	Scorer     game.Scorer
	Keeper     game.ScoreKeeper // receives every finished game when set
	Logger     *log.Logger
	Progress   func(done, total int)
}

// Simulator runs headless games
type Simulator struct {
	config   Config
	strategy Strategy
}

// New creates a simulator, filling in defaults for unset fields.
func New(config Config) (*Simulator, error) {
	if config.Games <= 0 {
		return nil, fmt.Errorf("games must be positive, got %d", config.Games)
	}
	if config.Difficulty != 0 && !config.Difficulty.Valid() {
		return nil, fmt.Errorf("%w: %d", game.ErrInvalidDifficulty, int(config.Difficulty))
	}
	if config.Strategy == "" {
		config.Strategy = "tracker"
	}
	strategy, err := LookupStrategy(config.Strategy)
	if err != nil {
		return nil, err
	}
	if config.Parallel <= 0 {
		config.Parallel = 1
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Rules.Levels == nil {
		config.Rules = game.DefaultRules()
	}
	if err := config.Rules.Validate(); err != nil {
		return nil, err
	}
	if config.Scorer == nil {
		config.Scorer = game.NewComboScorer()
	}
	if config.Logger == nil {
		config.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if config.Seed == 0 {
		_, config.Seed = randutil.Resolve(0)
	}

	return &Simulator{config: config, strategy: strategy}, nil
}

// Seed returns the base seed, so a run can be replayed.
func (s *Simulator) Seed() int64 {
	return s.config.Seed
}

// Run plays every game and aggregates the results. Results are added in game
// order, so equal seeds give equal statistics at any parallelism.
func (s *Simulator) Run(ctx context.Context) (*statistics.Statistics, error) {
	results := make([]game.GameResult, s.config.Games)

	var (
		mu   sync.Mutex
		done int
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Parallel)

	for i := 0; i < s.config.Games; i++ {
		g.Go(func() error {
			result, err := s.playGame(ctx, i)
			if err != nil {
				return err
			}
			results[i] = result

			if s.config.Progress != nil {
				mu.Lock()
				done++
				s.config.Progress(done, s.config.Games)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats := &statistics.Statistics{}
	for _, r := range results {
		stats.Add(r)
	}
	if err := stats.Validate(); err != nil {
		return nil, fmt.Errorf("statistics validation failed: %w", err)
	}
	return stats, nil
}

func (s *Simulator) difficultyFor(i int) game.Difficulty {
	if s.config.Difficulty != 0 {
		return s.config.Difficulty
	}
	return game.Difficulties[i%len(game.Difficulties)]
}

// playGame runs one game on the real clock with every pause removed.
func (s *Simulator) playGame(ctx context.Context, i int) (game.GameResult, error) {
	seed := randutil.Derive(s.config.Seed, i)
	d := s.difficultyFor(i)
	logger := s.config.Logger.With("game", i+1, "seed", seed)

	opts := []game.Option{
		game.WithClock(quartz.NewReal()),
		game.WithRNG(randutil.New(seed)),
		game.WithLogger(logger),
		game.WithRules(s.config.Rules.ScaleSwaps(0)),
		game.WithTimings(game.Timings{}),
		game.WithScorer(s.config.Scorer),
	}
	if s.config.Keeper != nil {
		opts = append(opts, game.WithScoreKeeper(s.config.Keeper))
	}
	ctrl := game.NewController(opts...)
	defer ctrl.Stop()

	player := s.strategy(randutil.New(randutil.Derive(seed, 1)))
	ctrl.Subscribe(player)

	over := make(chan game.GameResult, 1)
	ctrl.Subscribe(game.SubscriberFunc(func(e game.GameEvent) {
		switch ev := e.(type) {
		case game.PhaseChangeEvent:
			if ev.To == game.PhaseAwaitingGuess {
				slot := player.Pick(ev.State)
				if !ctrl.Guess(slot) {
					logger.Warn("Guess rejected", "slot", slot, "cups", ev.State.CupCount)
				}
			}
		case game.GameOverEvent:
			over <- ev.Result
		}
	}))

	if err := ctrl.StartGame(d); err != nil {
		return game.GameResult{}, err
	}

	gameCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	select {
	case result := <-over:
		logger.Debug("Game finished", "difficulty", d, "score", result.Score, "correct", result.Correct)
		return result, nil
	case <-gameCtx.Done():
		if err := ctx.Err(); err != nil {
			return game.GameResult{}, err
		}
		state := ctrl.State()
		return game.GameResult{}, fmt.Errorf("game %d timed out after %v (seed: %d, phase: %s, round: %d)",
			i+1, s.config.Timeout, seed, state.Phase, state.Round)
	}
}

// PrintSummary writes a summary of simulation results
func PrintSummary(w io.Writer, stats *statistics.Statistics, strategy string) {
	low, high := stats.ConfidenceInterval95()

	fmt.Fprintf(w, "\n=== RESULTS for %s strategy ===\n", strategy)
	fmt.Fprintf(w, "Games played: %d (%d rounds)\n", stats.Games, stats.Rounds)

	fmt.Fprintf(w, "\n=== SCORE ===\n")
	fmt.Fprintf(w, "Mean: %.2f points/game\n", stats.Mean())
	fmt.Fprintf(w, "Median: %.2f\n", stats.Median())
	fmt.Fprintf(w, "Std Dev: %.2f\n", stats.StdDev())
	fmt.Fprintf(w, "95%% CI: [%.2f, %.2f]\n", low, high)
	fmt.Fprintf(w, "Percentiles: P5=%.1f, P25=%.1f, P75=%.1f, P95=%.1f\n",
		stats.Percentile(0.05), stats.Percentile(0.25), stats.Percentile(0.75), stats.Percentile(0.95))
	fmt.Fprintf(w, "Best: %d points, longest streak %d\n", stats.BestScore, stats.BestStreak)

	fmt.Fprintf(w, "\n=== ACCURACY ===\n")
	fmt.Fprintf(w, "Correct guesses: %d/%d (%.1f%%)\n", stats.Correct, stats.Rounds, stats.Accuracy()*100)
	fmt.Fprintf(w, "Perfect games: %d (%.1f%%)\n", stats.PerfectGames,
		float64(stats.PerfectGames)/float64(max(stats.Games, 1))*100)

	fmt.Fprintf(w, "\n=== BY DIFFICULTY ===\n")
	for _, d := range game.Difficulties {
		ds := stats.ByDifficulty[d]
		if ds.Games == 0 {
			continue
		}
		fmt.Fprintf(w, "%-7s %d games, %.2f points/game, %.1f%% correct, best %d\n",
			d.String()+":", ds.Games, stats.DifficultyMean(d), stats.DifficultyAccuracy(d)*100, ds.BestScore)
	}
}
