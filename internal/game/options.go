package game

import (
	"io"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/lox/cupsandcoins/internal/randutil"
)

// Option configures a Controller during creation.
type Option func(*controllerConfig)

// controllerConfig holds all configuration for creating a controller.
type controllerConfig struct {
	clock    quartz.Clock
	rng      *rand.Rand
	logger   *log.Logger
	rules    Rules
	timings  Timings
	scorer   Scorer
	renderer Renderer
	keeper   ScoreKeeper
	newID    func() string
}

func defaultConfig() *controllerConfig {
	return &controllerConfig{
		clock:   quartz.NewReal(),
		rng:     randutil.New(time.Now().UnixNano()),
		logger:  log.NewWithOptions(io.Discard, log.Options{}),
		rules:   DefaultRules(),
		timings: DefaultTimings(),
		newID: func() string {
			return uuid.Must(uuid.NewV7()).String()
		},
	}
}

// WithClock sets the clock every phase delay is scheduled on.
// Default is the real clock.
func WithClock(clock quartz.Clock) Option {
	return func(c *controllerConfig) {
		c.clock = clock
	}
}

// WithRNG sets the source for deals and shuffles.
// Default is a time-seeded generator.
func WithRNG(rng *rand.Rand) Option {
	return func(c *controllerConfig) {
		c.rng = rng
	}
}

// WithLogger sets the logger. Default discards output.
func WithLogger(logger *log.Logger) Option {
	return func(c *controllerConfig) {
		c.logger = logger
	}
}

// WithRules sets the level table and game length.
func WithRules(rules Rules) Option {
	return func(c *controllerConfig) {
		c.rules = rules
	}
}

// WithTimings sets the pauses between phases.
func WithTimings(timings Timings) Option {
	return func(c *controllerConfig) {
		c.timings = timings
	}
}

// WithScorer sets the scoring rule. Default is NewComboScorer.
func WithScorer(scorer Scorer) Option {
	return func(c *controllerConfig) {
		c.scorer = scorer
	}
}

// WithRenderer sets the presentation adapter cups are drawn through.
func WithRenderer(renderer Renderer) Option {
	return func(c *controllerConfig) {
		c.renderer = renderer
	}
}

// WithScoreKeeper sets where finished games are recorded. Default keeps best
// scores in memory for the controller's lifetime.
func WithScoreKeeper(keeper ScoreKeeper) Option {
	return func(c *controllerConfig) {
		c.keeper = keeper
	}
}

// WithIDGenerator overrides how game IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(c *controllerConfig) {
		c.newID = newID
	}
}
