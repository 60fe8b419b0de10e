// Package game implements the rendering-agnostic core of the cups and coins
// shell game.
//
// The main type is Controller, which owns a GameState and drives it through
// the round phases:
//
//	Idle → Preview → Hiding → Shuffling → AwaitingGuess → Resolving → RoundEnd → (Preview | GameOver)
//
// # Basic Usage
//
// Create a controller, register for events and start a game:
//
//	c := game.NewController(
//	    game.WithClock(quartz.NewReal()),
//	    game.WithRenderer(myRenderer),
//	)
//	c.OnPhaseChange(func(e game.PhaseChangeEvent) {
//	    if e.To == game.PhaseAwaitingGuess {
//	        // enable input
//	    }
//	})
//	if err := c.StartGame(game.Medium); err != nil {
//	    // unknown difficulty
//	}
//	// later, from the input layer
//	c.Guess(slot)
//
// # Deterministic Testing
//
// Every delay goes through a quartz.Clock and every random choice through an
// injected *rand.Rand, so tests can replay a game exactly:
//
//	clk := quartz.NewMock(t)
//	c := game.NewController(game.WithClock(clk), game.WithRNG(randutil.New(42)))
//	_, w := clk.AdvanceNext()
//	w.MustWait(ctx)
//
// # Architecture
//
// Controller delegates to specialised components:
//   - ShuffleSequencer: yields pairwise swaps and tracks the coin slot
//   - Scorer: maps (streak, difficulty) to points
//   - Renderer: draws cup snapshots (presentation adapter)
//   - ScoreKeeper: persists finished games and the best score
package game
