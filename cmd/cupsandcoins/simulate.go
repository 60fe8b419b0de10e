package main

import (
	"fmt"
	"runtime"
	"time"

	"github.com/lox/cupsandcoins/cmd/cupsandcoins/shared"
	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/simulator"
)

// SimulateCmd plays headless games with a scripted player.
type SimulateCmd struct {
	Games      int           `short:"n" default:"1000" help:"Number of games"`
	Difficulty string        `short:"d" help:"Difficulty to play (default cycles through all)"`
	Strategy   string        `short:"s" default:"tracker" help:"Player strategy (tracker, random, first)"`
	Parallel   int           `short:"p" help:"Games played concurrently (default GOMAXPROCS)"`
	Timeout    time.Duration `default:"10s" help:"Per-game timeout"`
	Record     bool          `help:"Record finished games in the high score store"`
	Quiet      bool          `short:"q" help:"Hide the progress bar"`
}

func (c *SimulateCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := g.logger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	scorer, err := cfg.Scorer(rules)
	if err != nil {
		return err
	}

	var d game.Difficulty
	if c.Difficulty != "" {
		if d, err = game.ParseDifficulty(c.Difficulty); err != nil {
			return err
		}
	}
	parallel := c.Parallel
	if parallel <= 0 {
		parallel = runtime.GOMAXPROCS(0)
	}

	simCfg := simulator.Config{
		Games:      c.Games,
		Difficulty: d,
		Strategy:   c.Strategy,
		Seed:       cfg.Game.Seed,
		Parallel:   parallel,
		Timeout:    c.Timeout,
		Rules:      rules,
		Scorer:     scorer,
		Logger:     logger,
	}
	if !c.Quiet {
		simCfg.Progress = newProgressMonitor(g.stdout()).Update
	}
	if c.Record {
		store, err := openStore(cfg, logger)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		simCfg.Keeper = store
	}

	sim, err := simulator.New(simCfg)
	if err != nil {
		return fmt.Errorf("configure simulator: %w", err)
	}
	logger.Info("Starting simulation",
		"games", c.Games,
		"strategy", c.Strategy,
		"difficulty", difficultyLabel(d),
		"parallel", parallel,
		"seed", sim.Seed())

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	stats, err := sim.Run(ctx)
	if err != nil {
		return fmt.Errorf("simulation failed: %w", err)
	}

	simulator.PrintSummary(g.stdout(), stats, c.Strategy)
	fmt.Fprintf(g.stdout(), "\nSeed: %d\n", sim.Seed())
	return nil
}

func difficultyLabel(d game.Difficulty) string {
	if d == 0 {
		return "all"
	}
	return d.String()
}
