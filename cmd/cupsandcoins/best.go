package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/highscore"
	"github.com/lox/cupsandcoins/internal/simulator"
	"github.com/lox/cupsandcoins/internal/statistics"
)

// BestCmd lists best scores and, for stores that keep them, past games.
type BestCmd struct {
	Difficulty string `short:"d" help:"Only show this difficulty"`
	History    bool   `help:"Summarise recorded games (sqlite store only)"`
	Limit      int    `default:"20" help:"Most recent games to list with --history"`
}

func (c *BestCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := g.logger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	var d game.Difficulty
	if c.Difficulty != "" {
		if d, err = game.ParseDifficulty(c.Difficulty); err != nil {
			return err
		}
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := c.printBest(ctx, g, store, d); err != nil {
		return err
	}
	if !c.History {
		return nil
	}

	history, ok := store.(highscore.History)
	if !ok {
		return fmt.Errorf("the %s store does not keep game history", cfg.Store.Driver)
	}
	return c.printHistory(ctx, g, history, d)
}

func (c *BestCmd) printBest(ctx context.Context, g *Globals, store highscore.Store, d game.Difficulty) error {
	entries, err := store.All(ctx)
	if err != nil {
		return fmt.Errorf("list best scores: %w", err)
	}

	tw := tabwriter.NewWriter(g.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DIFFICULTY\tBEST\tGAME\tWHEN")
	shown := 0
	for _, e := range entries {
		if d != 0 && e.Difficulty != d {
			continue
		}
		when := "-"
		if !e.UpdatedAt.IsZero() {
			when = e.UpdatedAt.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", e.Difficulty, e.Score, e.GameID, when)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(tw, "(no games recorded)\t\t\t")
	}
	return tw.Flush()
}

func (c *BestCmd) printHistory(ctx context.Context, g *Globals, history highscore.History, d game.Difficulty) error {
	games, err := history.Recent(ctx, d, c.Limit)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	fmt.Fprintf(g.stdout(), "\nLast %d games:\n", len(games))
	tw := tabwriter.NewWriter(g.stdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FINISHED\tDIFFICULTY\tSCORE\tCORRECT\tSTREAK")
	stats := &statistics.Statistics{}
	for _, r := range games {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d/%d\t%d\n",
			r.FinishedAt.Local().Format(time.DateTime), r.Difficulty, r.Score, r.Correct, r.Rounds, r.BestStreak)
		stats.Add(r)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if stats.Games > 0 {
		simulator.PrintSummary(g.stdout(), stats, "recorded")
	}
	return nil
}
