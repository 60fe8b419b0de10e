package main

import (
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/cupsandcoins/cmd/cupsandcoins/shared"
	"github.com/lox/cupsandcoins/internal/config"
	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/randutil"
	"github.com/lox/cupsandcoins/internal/tui"
)

// PlayCmd runs the terminal UI.
type PlayCmd struct {
	Difficulty string  `short:"d" help:"Starting difficulty (easy, medium, hard, expert or 1-4)"`
	Rounds     int     `help:"Rounds per game (overrides config)"`
	Speed      float64 `default:"1" help:"Pause multiplier; 0.5 plays twice as fast"`
}

func (c *PlayCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if c.Rounds > 0 {
		cfg.Game.RoundsPerGame = c.Rounds
	}
	if c.Difficulty != "" {
		cfg.Game.Difficulty = c.Difficulty
	}

	// The UI owns the terminal, so logs only go somewhere when a file is set.
	logger := shared.DiscardLogger()
	if cfg.Log.File != "" {
		var closeLog func()
		logger, closeLog, err = g.logger(cfg)
		if err != nil {
			return err
		}
		defer closeLog()
	}

	opts, d, err := controllerOptions(cfg, logger, c.Speed)
	if err != nil {
		return err
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	return tui.Play(ctx, d, logger, append(opts, game.WithScoreKeeper(store))...)
}

// controllerOptions turns the config into controller options plus the
// starting difficulty. speed scales every pause and swap.
func controllerOptions(cfg *config.Config, logger *log.Logger, speed float64) ([]game.Option, game.Difficulty, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, 0, err
	}
	timings, err := cfg.Timings()
	if err != nil {
		return nil, 0, err
	}
	scorer, err := cfg.Scorer(rules)
	if err != nil {
		return nil, 0, err
	}
	d, err := cfg.StartDifficulty()
	if err != nil {
		return nil, 0, err
	}
	if speed > 0 && speed != 1 {
		rules = rules.ScaleSwaps(speed)
		timings = timings.Scale(speed)
	}

	rng, seed := randutil.Resolve(cfg.Game.Seed)
	logger.Info("Using seed", "seed", seed)

	return []game.Option{
		game.WithClock(quartz.NewReal()),
		game.WithRNG(rng),
		game.WithLogger(logger),
		game.WithRules(rules),
		game.WithTimings(timings),
		game.WithScorer(scorer),
	}, d, nil
}
