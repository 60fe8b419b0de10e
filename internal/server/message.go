package server

import (
	"encoding/json"
	"time"

	"github.com/lox/cupsandcoins/internal/game"
)

// MessageType represents a WebSocket message type with type safety
type MessageType string

const (
	// Client to server messages
	MessageTypeStart MessageType = "start"
	MessageTypeGuess MessageType = "guess"

	// MessageTypeState travels both ways: a client sends it to ask for a
	// snapshot, the server sends it after every phase change.
	MessageTypeState MessageType = "state"

	// Server to client messages
	MessageTypeCups        MessageType = "cups"
	MessageTypeSwap        MessageType = "swap"
	MessageTypeRoundResult MessageType = "round_result"
	MessageTypeRejected    MessageType = "rejected"
	MessageTypeGameOver    MessageType = "game_over"
	MessageTypeError       MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}

// Message is the envelope every frame is wrapped in.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data any) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

// StartData asks for a new game. Difficulty is a name ("easy") or level ("1").
type StartData struct {
	Difficulty game.Difficulty `json:"difficulty"`
}

type GuessData struct {
	Slot int `json:"slot"`
}

// Server → Client Messages

type CupsData struct {
	Cups []game.CupView `json:"cups"`
}

type SwapData struct {
	A          int   `json:"a"`
	B          int   `json:"b"`
	Index      int   `json:"index"`
	Total      int   `json:"total"`
	DurationMs int64 `json:"durationMs"`
}

type RoundResultData struct {
	Round    int  `json:"round"`
	Guess    int  `json:"guess"`
	CoinSlot int  `json:"coinSlot"`
	Correct  bool `json:"correct"`
	Points   int  `json:"points"`
	Score    int  `json:"score"`
	Streak   int  `json:"streak"`
}

type RejectedData struct {
	Slot   int        `json:"slot"`
	Phase  game.Phase `json:"phase"`
	Reason string     `json:"reason"`
}

type GameOverData struct {
	GameID     string          `json:"gameId"`
	Difficulty game.Difficulty `json:"difficulty"`
	Score      int             `json:"score"`
	Rounds     int             `json:"rounds"`
	Correct    int             `json:"correct"`
	BestStreak int             `json:"bestStreak"`
	Best       int             `json:"best"`
	NewBest    bool            `json:"newBest"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// messageFromEvent converts a controller event into the frame sent to the
// client. ok is false for events that have no client representation.
func messageFromEvent(e game.GameEvent) (mt MessageType, data any, ok bool) {
	switch ev := e.(type) {
	case game.PhaseChangeEvent:
		return MessageTypeState, ev.State, true

	case game.SwapEvent:
		return MessageTypeSwap, SwapData{
			A:          ev.Swap.A,
			B:          ev.Swap.B,
			Index:      ev.Index,
			Total:      ev.Total,
			DurationMs: ev.Duration.Milliseconds(),
		}, true

	case game.GuessRejectedEvent:
		reason := ""
		if ev.Reason != nil {
			reason = ev.Reason.Error()
		}
		return MessageTypeRejected, RejectedData{Slot: ev.Slot, Phase: ev.Phase, Reason: reason}, true

	case game.RoundResolvedEvent:
		return MessageTypeRoundResult, RoundResultData{
			Round:    ev.Round,
			Guess:    ev.Guess,
			CoinSlot: ev.CoinSlot,
			Correct:  ev.Correct,
			Points:   ev.Points,
			Score:    ev.Score,
			Streak:   ev.Streak,
		}, true

	case game.GameOverEvent:
		return MessageTypeGameOver, GameOverData{
			GameID:     ev.Result.GameID,
			Difficulty: ev.Result.Difficulty,
			Score:      ev.Result.Score,
			Rounds:     ev.Result.Rounds,
			Correct:    ev.Result.Correct,
			BestStreak: ev.Result.BestStreak,
			Best:       ev.Best,
			NewBest:    ev.NewBest,
		}, true
	}
	return "", nil, false
}
