package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidDifficulty is returned for difficulty keys that have no level.
var ErrInvalidDifficulty = errors.New("invalid difficulty")

// Difficulty selects a Level. The numeric values match the level keys used by
// the difficulty selector (1-4).
type Difficulty int

const (
	Easy Difficulty = iota + 1
	Medium
	Hard
	Expert
)

// Difficulties lists every known difficulty in ascending order.
var Difficulties = []Difficulty{Easy, Medium, Hard, Expert}

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	case Expert:
		return "expert"
	default:
		return fmt.Sprintf("difficulty(%d)", int(d))
	}
}

// Valid reports whether d is one of the known difficulties.
func (d Difficulty) Valid() bool {
	return d >= Easy && d <= Expert
}

// Next returns the following difficulty, wrapping from Expert to Easy.
func (d Difficulty) Next() Difficulty {
	if !d.Valid() || d == Expert {
		return Easy
	}
	return d + 1
}

// ParseDifficulty accepts either a name ("hard") or a level number ("3").
func ParseDifficulty(s string) (Difficulty, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, d := range Difficulties {
		if key == d.String() {
			return d, nil
		}
	}
	if n, err := strconv.Atoi(key); err == nil && Difficulty(n).Valid() {
		return Difficulty(n), nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// MarshalText implements encoding.TextMarshaler.
func (d Difficulty) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDifficulty, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Difficulty) UnmarshalText(text []byte) error {
	parsed, err := ParseDifficulty(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

const (
	MinCups = 3
	MaxCups = 6
)

// Level holds the per-difficulty parameters of a round.
type Level struct {
	Cups         int
	Swaps        int
	SwapDuration time.Duration
	Multiplier   int // used by StreakBonusScorer
}

// Rules is the complete rule set a Controller plays by.
type Rules struct {
	Levels        map[Difficulty]Level
	RoundsPerGame int
}

// DefaultRules returns the stock level table: more cups, more swaps and
// faster swaps as difficulty rises.
func DefaultRules() Rules {
	return Rules{
		Levels: map[Difficulty]Level{
			Easy:   {Cups: 3, Swaps: 5, SwapDuration: 650 * time.Millisecond, Multiplier: 1},
			Medium: {Cups: 4, Swaps: 8, SwapDuration: 550 * time.Millisecond, Multiplier: 2},
			Hard:   {Cups: 5, Swaps: 12, SwapDuration: 450 * time.Millisecond, Multiplier: 3},
			Expert: {Cups: 6, Swaps: 15, SwapDuration: 350 * time.Millisecond, Multiplier: 4},
		},
		RoundsPerGame: 5,
	}
}

// Level returns the level for d, or ErrInvalidDifficulty.
func (r Rules) Level(d Difficulty) (Level, error) {
	lvl, ok := r.Levels[d]
	if !ok {
		return Level{}, fmt.Errorf("%w: %s", ErrInvalidDifficulty, d)
	}
	return lvl, nil
}

// Validate checks the rule set for values the controller cannot play.
func (r Rules) Validate() error {
	if r.RoundsPerGame < 1 {
		return fmt.Errorf("rounds per game must be positive, got %d", r.RoundsPerGame)
	}
	if len(r.Levels) == 0 {
		return fmt.Errorf("at least one difficulty level must be configured")
	}
	for d, lvl := range r.Levels {
		if !d.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidDifficulty, int(d))
		}
		if lvl.Cups < MinCups || lvl.Cups > MaxCups {
			return fmt.Errorf("%s: cups must be between %d and %d, got %d", d, MinCups, MaxCups, lvl.Cups)
		}
		if lvl.Swaps < 0 {
			return fmt.Errorf("%s: swaps cannot be negative", d)
		}
		if lvl.SwapDuration < 0 {
			return fmt.Errorf("%s: swap duration cannot be negative", d)
		}
		if lvl.Multiplier < 0 {
			return fmt.Errorf("%s: multiplier cannot be negative", d)
		}
	}
	return nil
}

// Timings are the fixed pauses between phases.
type Timings struct {
	Preview     time.Duration // coin cup lifted
	Hide        time.Duration // cups closed, before the first swap
	PostShuffle time.Duration // after the last swap, before input opens
	Reveal      time.Duration // all cups lifted after a guess
	RoundEnd    time.Duration // before the next deal or game over
}

// DefaultTimings returns the stock phase pauses.
func DefaultTimings() Timings {
	return Timings{
		Preview:     1500 * time.Millisecond,
		Hide:        500 * time.Millisecond,
		PostShuffle: 300 * time.Millisecond,
		Reveal:      1500 * time.Millisecond,
		RoundEnd:    500 * time.Millisecond,
	}
}

// Scale multiplies every pause by f. Scale(0) removes all pauses.
func (t Timings) Scale(f float64) Timings {
	scale := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * f)
	}
	return Timings{
		Preview:     scale(t.Preview),
		Hide:        scale(t.Hide),
		PostShuffle: scale(t.PostShuffle),
		Reveal:      scale(t.Reveal),
		RoundEnd:    scale(t.RoundEnd),
	}
}

// ScaleSwaps returns a copy of r with every level's swap duration scaled by f.
func (r Rules) ScaleSwaps(f float64) Rules {
	levels := make(map[Difficulty]Level, len(r.Levels))
	for d, lvl := range r.Levels {
		lvl.SwapDuration = time.Duration(float64(lvl.SwapDuration) * f)
		levels[d] = lvl
	}
	return Rules{Levels: levels, RoundsPerGame: r.RoundsPerGame}
}
