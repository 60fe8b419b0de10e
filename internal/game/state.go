package game

import (
	"context"
	"time"
)

// GameState is a read-only snapshot of a game. CoinSlot is -1 unless the
// phase shows cups to the player.
type GameState struct {
	GameID        string     `json:"gameId,omitempty"`
	Difficulty    Difficulty `json:"difficulty,omitempty"`
	Score         int        `json:"score"`
	Streak        int        `json:"streak"`
	BestStreak    int        `json:"bestStreak"`
	Round         int        `json:"round"`
	RoundsPerGame int        `json:"roundsPerGame"`
	Correct       int        `json:"correct"`
	Phase         Phase      `json:"phase"`
	CupCount      int        `json:"cupCount"`
	CoinSlot      int        `json:"coinSlot"`
}

// Over reports whether the game has finished.
func (s GameState) Over() bool {
	return s.Phase == PhaseGameOver
}

// GameResult summarises a finished game.
type GameResult struct {
	GameID     string
	Difficulty Difficulty
	Score      int
	Rounds     int
	Correct    int
	BestStreak int
	FinishedAt time.Time
}

// Accuracy returns the fraction of rounds guessed correctly.
func (r GameResult) Accuracy() float64 {
	if r.Rounds == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Rounds)
}

// Renderer draws the cups. Calls are fire-and-forget and arrive in order.
type Renderer interface {
	RenderCups(cups []CupView)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(cups []CupView)

func (f RendererFunc) RenderCups(cups []CupView) { f(cups) }

// ScoreKeeper persists finished games and reports the best score for the
// result's difficulty, including the result itself.
type ScoreKeeper interface {
	RecordGame(ctx context.Context, result GameResult) (best int, newBest bool, err error)
}

type nopRenderer struct{}

func (nopRenderer) RenderCups([]CupView) {}
