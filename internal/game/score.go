package game

import (
	"fmt"
	"math"
)

// Scorer maps a winning streak to points. streak counts the win being scored,
// so the first correct guess in a row is scored with streak 1.
type Scorer interface {
	Score(streak int, d Difficulty) int
}

const (
	DefaultBasePoints      = 10
	DefaultComboThreshold  = 3
	DefaultComboMultiplier = 1.5
	DefaultStreakBonus     = 5
	DefaultStreakBonusCap  = 20
)

// ComboScorer awards Base points, multiplied by Multiplier once the streak
// reaches Threshold. Results are rounded half away from zero.
type ComboScorer struct {
	Base       int
	Threshold  int
	Multiplier float64
}

// NewComboScorer returns the default combo rule: 10 points, x1.5 from the
// third consecutive win.
func NewComboScorer() ComboScorer {
	return ComboScorer{
		Base:       DefaultBasePoints,
		Threshold:  DefaultComboThreshold,
		Multiplier: DefaultComboMultiplier,
	}
}

func (s ComboScorer) Score(streak int, _ Difficulty) int {
	base := max(s.Base, 0)
	mult := 1.0
	if streak >= s.Threshold && s.Multiplier > 1 {
		mult = s.Multiplier
	}
	return int(math.Round(float64(base) * mult))
}

// StreakBonusScorer awards Base plus a capped per-win bonus scaled by the
// level's multiplier.
type StreakBonusScorer struct {
	Base     int
	PerWin   int
	Cap      int
	Rules    Rules
	Fallback int // multiplier for difficulties missing from Rules
}

// NewStreakBonusScorer returns the default streak rule against rules.
func NewStreakBonusScorer(rules Rules) StreakBonusScorer {
	return StreakBonusScorer{
		Base:     DefaultBasePoints,
		PerWin:   DefaultStreakBonus,
		Cap:      DefaultStreakBonusCap,
		Rules:    rules,
		Fallback: 1,
	}
}

func (s StreakBonusScorer) Score(streak int, d Difficulty) int {
	streak = max(streak, 0)
	mult := s.Fallback
	if lvl, ok := s.Rules.Levels[d]; ok {
		mult = lvl.Multiplier
	}
	bonus := min(streak*max(s.PerWin, 0), max(s.Cap, 0))
	return max(s.Base, 0) + bonus*max(mult, 0)
}

// Scoring strategy names accepted by NewScorer.
const (
	ScoringCombo  = "combo"
	ScoringStreak = "streak"
)

// NewScorer returns the scorer registered under name.
func NewScorer(name string, rules Rules) (Scorer, error) {
	switch name {
	case "", ScoringCombo:
		return NewComboScorer(), nil
	case ScoringStreak:
		return NewStreakBonusScorer(rules), nil
	default:
		return nil, fmt.Errorf("unknown scoring strategy %q", name)
	}
}
