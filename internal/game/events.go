package game

import (
	"sync"
	"time"
)

// EventType represents a game event type with type safety
type EventType string

// EventType constants for game domain events
const (
	EventTypePhaseChange   EventType = "phase_change"
	EventTypeSwap          EventType = "swap"
	EventTypeGuessRejected EventType = "guess_rejected"
	EventTypeRoundResolved EventType = "round_resolved"
	EventTypeGameOver      EventType = "game_over"
)

// String returns the string representation of the event type
func (et EventType) String() string {
	return string(et)
}

// GameEvent represents any event that occurs during a game
type GameEvent interface {
	EventType() EventType
	Timestamp() time.Time
}

// PhaseChangeEvent is published after every phase transition. State is the
// snapshot taken right after the transition.
type PhaseChangeEvent struct {
	From      Phase
	To        Phase
	State     GameState
	timestamp time.Time
}

func (e PhaseChangeEvent) EventType() EventType { return EventTypePhaseChange }
func (e PhaseChangeEvent) Timestamp() time.Time { return e.timestamp }

// SwapEvent is published for each swap while shuffling. Index is 1-based.
type SwapEvent struct {
	Swap      Swap
	Index     int
	Total     int
	Duration  time.Duration // time allotted to animate this swap
	timestamp time.Time
}

func (e SwapEvent) EventType() EventType { return EventTypeSwap }
func (e SwapEvent) Timestamp() time.Time { return e.timestamp }

// GuessRejectedEvent is published when Guess ignores a call. Reason is
// ErrGuessOutOfPhase or ErrInvalidGuessIndex.
type GuessRejectedEvent struct {
	Slot      int
	Phase     Phase
	Reason    error
	timestamp time.Time
}

func (e GuessRejectedEvent) EventType() EventType { return EventTypeGuessRejected }
func (e GuessRejectedEvent) Timestamp() time.Time { return e.timestamp }

// RoundResolvedEvent is published when an accepted guess has been graded.
type RoundResolvedEvent struct {
	Round     int
	Guess     int
	CoinSlot  int
	Correct   bool
	Points    int
	Score     int
	Streak    int
	timestamp time.Time
}

func (e RoundResolvedEvent) EventType() EventType { return EventTypeRoundResolved }
func (e RoundResolvedEvent) Timestamp() time.Time { return e.timestamp }

// GameOverEvent is published once per finished game, after the result has
// been offered to the ScoreKeeper.
type GameOverEvent struct {
	Result    GameResult
	Best      int
	NewBest   bool
	timestamp time.Time
}

func (e GameOverEvent) EventType() EventType { return EventTypeGameOver }
func (e GameOverEvent) Timestamp() time.Time { return e.timestamp }

// EventSubscriber can subscribe to game events
type EventSubscriber interface {
	OnEvent(event GameEvent)
}

// SubscriberFunc adapts a function to EventSubscriber.
type SubscriberFunc func(event GameEvent)

func (f SubscriberFunc) OnEvent(event GameEvent) { f(event) }

// EventBus manages event publishing and subscription. Subscribe returns a
// function that removes the subscription.
type EventBus interface {
	Subscribe(subscriber EventSubscriber) (unsubscribe func())
	Publish(event GameEvent)
}

type subscription struct {
	id  uint64
	sub EventSubscriber
}

// SimpleEventBus is a basic in-memory event bus delivering synchronously in
// subscription order.
type SimpleEventBus struct {
	mu          sync.RWMutex
	nextID      uint64
	subscribers []subscription
}

// NewEventBus creates a new event bus
func NewEventBus() *SimpleEventBus {
	return &SimpleEventBus{}
}

// Subscribe adds a subscriber to receive events
func (bus *SimpleEventBus) Subscribe(subscriber EventSubscriber) func() {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.nextID++
	id := bus.nextID
	bus.subscribers = append(bus.subscribers, subscription{id: id, sub: subscriber})

	var once sync.Once
	return func() {
		once.Do(func() { bus.unsubscribe(id) })
	}
}

func (bus *SimpleEventBus) unsubscribe(id uint64) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	for i, s := range bus.subscribers {
		if s.id == id {
			bus.subscribers = append(bus.subscribers[:i:i], bus.subscribers[i+1:]...)
			return
		}
	}
}

// Publish sends an event to all subscribers
func (bus *SimpleEventBus) Publish(event GameEvent) {
	bus.mu.RLock()
	subs := make([]EventSubscriber, len(bus.subscribers))
	for i, s := range bus.subscribers {
		subs[i] = s.sub
	}
	bus.mu.RUnlock()

	for _, subscriber := range subs {
		subscriber.OnEvent(event)
	}
}
