package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComboScorer(t *testing.T) {
	t.Parallel()

	s := NewComboScorer()
	tests := []struct {
		streak int
		want   int
	}{
		{1, 10},
		{2, 10},
		{3, 15},
		{4, 15},
		{10, 15},
	}

	for _, tt := range tests {
		for _, d := range Difficulties {
			assert.Equal(t, tt.want, s.Score(tt.streak, d), "streak %d at %s", tt.streak, d)
		}
	}
}

func TestComboScorerRoundsHalfAwayFromZero(t *testing.T) {
	t.Parallel()

	s := ComboScorer{Base: 5, Threshold: 1, Multiplier: 1.5}
	assert.Equal(t, 8, s.Score(1, Easy), "7.5 rounds up")

	s = ComboScorer{Base: -10, Threshold: 1, Multiplier: 2}
	assert.Equal(t, 0, s.Score(1, Easy), "negative base is clamped")
}

func TestStreakBonusScorer(t *testing.T) {
	t.Parallel()

	s := NewStreakBonusScorer(DefaultRules())
	tests := []struct {
		name   string
		streak int
		d      Difficulty
		want   int
	}{
		{"first win easy", 1, Easy, 15},
		{"first win medium", 1, Medium, 20},
		{"third win hard", 3, Hard, 10 + 15*3},
		{"bonus capped", 10, Easy, 30},
		{"bonus capped expert", 10, Expert, 10 + 20*4},
		{"zero streak", 0, Hard, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Score(tt.streak, tt.d))
		})
	}
}

func TestStreakBonusScorerFallback(t *testing.T) {
	t.Parallel()

	rules := DefaultRules()
	delete(rules.Levels, Hard)
	s := NewStreakBonusScorer(rules)
	assert.Equal(t, 15, s.Score(1, Hard), "missing level uses fallback multiplier 1")
}

func TestNewScorer(t *testing.T) {
	t.Parallel()

	s, err := NewScorer("", DefaultRules())
	require.NoError(t, err)
	assert.IsType(t, ComboScorer{}, s)

	s, err = NewScorer(ScoringCombo, DefaultRules())
	require.NoError(t, err)
	assert.IsType(t, ComboScorer{}, s)

	s, err = NewScorer(ScoringStreak, DefaultRules())
	require.NoError(t, err)
	assert.IsType(t, StreakBonusScorer{}, s)

	_, err = NewScorer("fibonacci", DefaultRules())
	assert.Error(t, err)
}
