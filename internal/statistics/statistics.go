// Package statistics aggregates finished games into score and accuracy
// summaries.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/lox/cupsandcoins/internal/game"
)

// DifficultyStats tracks games played at one difficulty.
type DifficultyStats struct {
	Games     int
	SumScore  float64
	Rounds    int
	Correct   int
	BestScore int
}

// Statistics tracks results across many games
type Statistics struct {
	Games     int
	SumScore  float64
	SumScore2 float64   // Sum of squares for variance calculation
	Values    []float64 // Every score, for median/percentile calculation

	Rounds       int
	Correct      int
	PerfectGames int // every round guessed correctly
	BestScore    int
	BestStreak   int

	ByDifficulty [game.Expert + 1]DifficultyStats // index 0 unused
}

// Mean returns the mean score per game
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.SumScore / float64(s.Games)
}

// Variance returns the sample variance of scores
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumScore2 - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Accuracy is the fraction of all rounds guessed correctly.
func (s *Statistics) Accuracy() float64 {
	if s.Rounds == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Rounds)
}

// Add incorporates a finished game
func (s *Statistics) Add(result game.GameResult) {
	score := float64(result.Score)
	s.Games++
	s.SumScore += score
	s.SumScore2 += score * score
	s.Values = append(s.Values, score)

	s.Rounds += result.Rounds
	s.Correct += result.Correct
	if result.Rounds > 0 && result.Correct == result.Rounds {
		s.PerfectGames++
	}
	if s.Games == 1 || result.Score > s.BestScore {
		s.BestScore = result.Score
	}
	s.BestStreak = max(s.BestStreak, result.BestStreak)

	if d := result.Difficulty; d.Valid() {
		ds := &s.ByDifficulty[d]
		ds.Games++
		ds.SumScore += score
		ds.Rounds += result.Rounds
		ds.Correct += result.Correct
		if ds.Games == 1 || result.Score > ds.BestScore {
			ds.BestScore = result.Score
		}
	}
}

// Merge folds other into s.
func (s *Statistics) Merge(other *Statistics) {
	if other == nil || other.Games == 0 {
		return
	}
	if s.Games == 0 || other.BestScore > s.BestScore {
		s.BestScore = other.BestScore
	}
	s.Games += other.Games
	s.SumScore += other.SumScore
	s.SumScore2 += other.SumScore2
	s.Values = append(s.Values, other.Values...)
	s.Rounds += other.Rounds
	s.Correct += other.Correct
	s.PerfectGames += other.PerfectGames
	s.BestStreak = max(s.BestStreak, other.BestStreak)

	for d := range s.ByDifficulty {
		src := other.ByDifficulty[d]
		if src.Games == 0 {
			continue
		}
		dst := &s.ByDifficulty[d]
		if dst.Games == 0 || src.BestScore > dst.BestScore {
			dst.BestScore = src.BestScore
		}
		dst.Games += src.Games
		dst.SumScore += src.SumScore
		dst.Rounds += src.Rounds
		dst.Correct += src.Correct
	}
}

func (s *Statistics) sorted() []float64 {
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)
	return sorted
}

// Median returns the median score
func (s *Statistics) Median() float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := s.sorted()

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// Percentile returns the score at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := s.sorted()

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// DifficultyMean returns the mean score at d
func (s *Statistics) DifficultyMean(d game.Difficulty) float64 {
	if !d.Valid() {
		return 0
	}
	ds := s.ByDifficulty[d]
	if ds.Games == 0 {
		return 0
	}
	return ds.SumScore / float64(ds.Games)
}

// DifficultyAccuracy returns the fraction of rounds guessed correctly at d
func (s *Statistics) DifficultyAccuracy(d game.Difficulty) float64 {
	if !d.Valid() {
		return 0
	}
	ds := s.ByDifficulty[d]
	if ds.Rounds == 0 {
		return 0
	}
	return float64(ds.Correct) / float64(ds.Rounds)
}

// Validate checks the aggregates agree with each other
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}

	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)",
			len(s.Values), s.Games)
	}

	if s.Correct > s.Rounds {
		return fmt.Errorf("correct guesses (%d) exceed rounds played (%d)", s.Correct, s.Rounds)
	}

	if s.PerfectGames > s.Games {
		return fmt.Errorf("perfect games (%d) exceed games (%d)", s.PerfectGames, s.Games)
	}

	total := 0
	for _, ds := range s.ByDifficulty {
		total += ds.Games
	}
	if total != s.Games {
		return fmt.Errorf("difficulty games total (%d) does not match total games (%d)",
			total, s.Games)
	}

	return nil
}
