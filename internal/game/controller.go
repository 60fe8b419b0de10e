package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
)

var (
	// ErrGuessOutOfPhase is the reason a guess outside AwaitingGuess is ignored.
	ErrGuessOutOfPhase = errors.New("guess outside awaiting_guess phase")

	// ErrInvalidGuessIndex is the reason a guess for a missing slot is ignored.
	ErrInvalidGuessIndex = errors.New("guess slot out of range")
)

// recordTimeout bounds how long game over waits on the ScoreKeeper.
const recordTimeout = 5 * time.Second

// Controller runs rounds of the shell game. It is safe for concurrent use;
// renderer calls and events are delivered one at a time, in order, outside
// the controller's lock, so subscribers may call back into it.
type Controller struct {
	mu       sync.Mutex
	clock    quartz.Clock
	rng      *rand.Rand
	logger   *log.Logger
	rules    Rules
	timings  Timings
	scorer   Scorer
	renderer Renderer
	keeper   ScoreKeeper
	bus      *SimpleEventBus
	newID    func() string

	state GameState
	level Level
	cups  Cups
	seq   *ShuffleSequencer

	// gen identifies the one timer callback allowed to run. Scheduling or
	// cancelling bumps it, so stale callbacks find a mismatch and return.
	gen   uint64
	timer *quartz.Timer

	queue       []func()
	dispatching bool
}

// NewController creates an idle controller. It panics if the configured rules
// are invalid.
func NewController(opts ...Option) *Controller {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.rules.Validate(); err != nil {
		panic("invalid rules: " + err.Error())
	}
	if cfg.rng == nil {
		panic("rng is required")
	}
	if cfg.scorer == nil {
		cfg.scorer = NewComboScorer()
	}
	if cfg.renderer == nil {
		cfg.renderer = nopRenderer{}
	}
	if cfg.keeper == nil {
		cfg.keeper = newMemoryKeeper()
	}

	return &Controller{
		clock:    cfg.clock,
		rng:      cfg.rng,
		logger:   cfg.logger.WithPrefix("controller"),
		rules:    cfg.rules,
		timings:  cfg.timings,
		scorer:   cfg.scorer,
		renderer: cfg.renderer,
		keeper:   cfg.keeper,
		bus:      NewEventBus(),
		newID:    cfg.newID,
		state: GameState{
			Phase:         PhaseIdle,
			RoundsPerGame: cfg.rules.RoundsPerGame,
			CoinSlot:      -1,
		},
	}
}

// StartGame resets the game and deals round 1 at difficulty d. Any delayed
// transition still pending from an earlier game is discarded. An unknown
// difficulty returns ErrInvalidDifficulty and leaves the state untouched.
func (c *Controller) StartGame(d Difficulty) error {
	lvl, err := c.rules.Level(d)
	if err != nil {
		c.logger.Error("Refusing to start game", "difficulty", int(d), "error", err)
		return fmt.Errorf("start game: %w", err)
	}

	c.mu.Lock()
	c.cancelLocked()
	c.state = GameState{
		GameID:        c.newID(),
		Difficulty:    d,
		RoundsPerGame: c.rules.RoundsPerGame,
		Phase:         c.state.Phase,
	}
	c.level = lvl
	c.logger.Info("Starting game",
		"game", c.state.GameID,
		"difficulty", d,
		"cups", lvl.Cups,
		"swaps", lvl.Swaps,
		"rounds", c.rules.RoundsPerGame)
	c.dealLocked(true)
	c.mu.Unlock()

	c.flush()
	return nil
}

// Guess submits the player's pick for the current round. It returns false and
// changes nothing unless the controller is awaiting a guess and slot is a
// valid cup; the rejection is logged and published as GuessRejectedEvent.
func (c *Controller) Guess(slot int) bool {
	c.mu.Lock()

	if reason := c.checkGuessLocked(slot); reason != nil {
		c.logger.Debug("Ignoring guess", "slot", slot, "phase", c.state.Phase, "reason", reason)
		c.publishLocked(GuessRejectedEvent{
			Slot:      slot,
			Phase:     c.state.Phase,
			Reason:    reason,
			timestamp: c.clock.Now(),
		})
		c.mu.Unlock()
		c.flush()
		return false
	}

	coin := c.cups.CoinSlot()
	correct := slot == coin
	points := 0
	if correct {
		c.state.Streak++
		c.state.BestStreak = max(c.state.BestStreak, c.state.Streak)
		points = c.scorer.Score(c.state.Streak, c.state.Difficulty)
		c.state.Score += points
		c.state.Correct++
	} else {
		c.state.Streak = 0
	}

	c.logger.Debug("Guess resolved",
		"round", c.state.Round,
		"slot", slot,
		"coin", coin,
		"correct", correct,
		"points", points,
		"score", c.state.Score)

	if c.transitionLocked(PhaseResolving) {
		c.publishLocked(RoundResolvedEvent{
			Round:     c.state.Round,
			Guess:     slot,
			CoinSlot:  coin,
			Correct:   correct,
			Points:    points,
			Score:     c.state.Score,
			Streak:    c.state.Streak,
			timestamp: c.clock.Now(),
		})
		c.afterLocked(c.timings.Reveal, c.roundEndLocked)
	}
	c.mu.Unlock()

	c.flush()
	return true
}

// Stop cancels any pending phase transition. The state stays as it is; a
// later StartGame begins a fresh game.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.cancelLocked()
	c.mu.Unlock()
}

// State returns a snapshot of the current game.
func (c *Controller) State() GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Rules returns the rule set the controller plays by.
func (c *Controller) Rules() Rules {
	return c.rules
}

// Subscribe registers for every game event.
func (c *Controller) Subscribe(sub EventSubscriber) (unsubscribe func()) {
	return c.bus.Subscribe(sub)
}

// OnPhaseChange registers fn for phase transitions only.
func (c *Controller) OnPhaseChange(fn func(PhaseChangeEvent)) (unsubscribe func()) {
	return c.bus.Subscribe(SubscriberFunc(func(e GameEvent) {
		if pc, ok := e.(PhaseChangeEvent); ok {
			fn(pc)
		}
	}))
}

func (c *Controller) checkGuessLocked(slot int) error {
	if c.state.Phase != PhaseAwaitingGuess {
		return ErrGuessOutOfPhase
	}
	if slot < 0 || slot >= len(c.cups) {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrInvalidGuessIndex, slot, len(c.cups))
	}
	return nil
}

// dealLocked starts the next round: fresh cups, random coin slot, Preview.
func (c *Controller) dealLocked(fresh bool) {
	cups, err := DealCups(c.rng, c.level.Cups)
	if err != nil {
		// Rules are validated at construction, so this is a programming error.
		c.logger.Error("Failed to deal cups", "error", err)
		return
	}

	c.state.Round++
	c.cups = cups
	c.seq = nil

	if fresh {
		c.setPhaseLocked(PhasePreview)
	} else if !c.transitionLocked(PhasePreview) {
		return
	}
	c.afterLocked(c.timings.Preview, c.hideLocked)
}

func (c *Controller) hideLocked() {
	if c.transitionLocked(PhaseHiding) {
		c.afterLocked(c.timings.Hide, c.shuffleLocked)
	}
}

func (c *Controller) shuffleLocked() {
	if !c.transitionLocked(PhaseShuffling) {
		return
	}
	seq, err := NewShuffleSequencer(c.rng, c.cups, c.level.Swaps)
	if err != nil {
		c.logger.Error("Failed to start shuffle", "error", err)
		c.afterLocked(c.timings.PostShuffle, c.awaitGuessLocked)
		return
	}
	c.seq = seq
	c.stepShuffleLocked()
}

func (c *Controller) stepShuffleLocked() {
	sw, ok := c.seq.Next()
	if !ok {
		c.logger.Debug("Shuffle complete", "round", c.state.Round, "swaps", c.seq.Total())
		c.afterLocked(c.timings.PostShuffle, c.awaitGuessLocked)
		return
	}
	if err := c.cups.Validate(); err != nil {
		c.logger.Error("Coin invariant broken during shuffle", "swap", sw, "error", err)
	}

	c.renderLocked()
	c.publishLocked(SwapEvent{
		Swap:      sw,
		Index:     c.seq.Total() - c.seq.Remaining(),
		Total:     c.seq.Total(),
		Duration:  c.level.SwapDuration,
		timestamp: c.clock.Now(),
	})
	c.afterLocked(c.level.SwapDuration, c.stepShuffleLocked)
}

func (c *Controller) awaitGuessLocked() {
	c.transitionLocked(PhaseAwaitingGuess)
}

func (c *Controller) roundEndLocked() {
	if c.transitionLocked(PhaseRoundEnd) {
		c.afterLocked(c.timings.RoundEnd, c.nextRoundLocked)
	}
}

func (c *Controller) nextRoundLocked() {
	if c.state.Round >= c.state.RoundsPerGame {
		c.gameOverLocked()
		return
	}
	c.dealLocked(false)
}

func (c *Controller) gameOverLocked() {
	if !c.transitionLocked(PhaseGameOver) {
		return
	}

	result := GameResult{
		GameID:     c.state.GameID,
		Difficulty: c.state.Difficulty,
		Score:      c.state.Score,
		Rounds:     c.state.Round,
		Correct:    c.state.Correct,
		BestStreak: c.state.BestStreak,
		FinishedAt: c.clock.Now(),
	}
	c.logger.Info("Game over",
		"game", result.GameID,
		"score", result.Score,
		"correct", result.Correct,
		"rounds", result.Rounds)

	// Recording may do IO, so it runs with the rest of the queue outside the lock.
	c.queue = append(c.queue, func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()

		best, newBest, err := c.keeper.RecordGame(ctx, result)
		if err != nil {
			c.logger.Warn("Failed to record game", "game", result.GameID, "error", err)
		}
		c.bus.Publish(GameOverEvent{
			Result:    result,
			Best:      best,
			NewBest:   newBest,
			timestamp: c.clock.Now(),
		})
	})
}

// transitionLocked moves to target if the phase table allows it.
func (c *Controller) transitionLocked(target Phase) bool {
	if !c.state.Phase.CanTransitionTo(target) {
		c.logger.Error("Invalid phase transition", "from", c.state.Phase, "to", target)
		return false
	}
	c.setPhaseLocked(target)
	return true
}

func (c *Controller) setPhaseLocked(target Phase) {
	from := c.state.Phase
	c.state.Phase = target
	c.logger.Debug("Phase change", "from", from, "to", target, "round", c.state.Round)

	c.renderLocked()
	c.publishLocked(PhaseChangeEvent{
		From:      from,
		To:        target,
		State:     c.snapshotLocked(),
		timestamp: c.clock.Now(),
	})
}

// afterLocked schedules fn on the clock, replacing any pending callback.
func (c *Controller) afterLocked(d time.Duration, fn func()) {
	c.cancelLocked()
	gen := c.gen

	c.timer = c.clock.AfterFunc(d, func() {
		c.mu.Lock()
		if c.gen != gen {
			c.mu.Unlock()
			return
		}
		c.timer = nil
		fn()
		c.mu.Unlock()
		c.flush()
	}, "controller", string(c.state.Phase))
}

func (c *Controller) cancelLocked() {
	c.gen++
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

func (c *Controller) snapshotLocked() GameState {
	s := c.state
	s.CupCount = len(c.cups)
	s.CoinSlot = -1
	if s.Phase == PhasePreview || s.Phase.revealsCups() {
		s.CoinSlot = c.cups.CoinSlot()
	}
	return s
}

func (c *Controller) renderLocked() {
	views := c.cups.Views(c.state.Phase)
	c.queue = append(c.queue, func() { c.renderer.RenderCups(views) })
}

func (c *Controller) publishLocked(e GameEvent) {
	c.queue = append(c.queue, func() { c.bus.Publish(e) })
}

// flush drains the delivery queue. Only one goroutine drains at a time; a
// re-entrant call (a subscriber calling Guess, say) just leaves its work on
// the queue for the active drainer.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true

	for len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()
		next()
		c.mu.Lock()
	}

	c.dispatching = false
	c.mu.Unlock()
}

// memoryKeeper is the default ScoreKeeper: best scores per difficulty for the
// lifetime of the controller.
type memoryKeeper struct {
	mu   sync.Mutex
	best map[Difficulty]int
}

func newMemoryKeeper() *memoryKeeper {
	return &memoryKeeper{best: make(map[Difficulty]int)}
}

func (k *memoryKeeper) RecordGame(_ context.Context, result GameResult) (int, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	prev, seen := k.best[result.Difficulty]
	if !seen || result.Score > prev {
		k.best[result.Difficulty] = result.Score
		return result.Score, result.Score > prev, nil
	}
	return prev, false, nil
}
