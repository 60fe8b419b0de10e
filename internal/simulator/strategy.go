package simulator

import (
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/lox/cupsandcoins/internal/game"
)

// Player makes guesses for one headless game. It sees every event before it
// is asked to Pick.
type Player interface {
	game.EventSubscriber
	Pick(state game.GameState) int
}

// Strategy creates a fresh Player per game.
type Strategy func(rng *rand.Rand) Player

var strategies = map[string]Strategy{
	"tracker": func(*rand.Rand) Player { return &trackerPlayer{slot: -1} },
	"random":  func(rng *rand.Rand) Player { return &randomPlayer{rng: rng} },
	"first":   func(*rand.Rand) Player { return firstPlayer{} },
}

// Strategies lists the registered strategy names.
func Strategies() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupStrategy returns the strategy registered under name.
func LookupStrategy(name string) (Strategy, error) {
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v)", name, Strategies())
	}
	return s, nil
}

// trackerPlayer watches the coin during the preview and follows it through
// every swap, the way a perfectly attentive player would.
type trackerPlayer struct {
	slot int
}

func (p *trackerPlayer) OnEvent(e game.GameEvent) {
	switch ev := e.(type) {
	case game.PhaseChangeEvent:
		if ev.To == game.PhasePreview {
			p.slot = ev.State.CoinSlot
		}
	case game.SwapEvent:
		switch p.slot {
		case ev.Swap.A:
			p.slot = ev.Swap.B
		case ev.Swap.B:
			p.slot = ev.Swap.A
		}
	}
}

func (p *trackerPlayer) Pick(game.GameState) int { return p.slot }

type randomPlayer struct {
	rng *rand.Rand
}

func (p *randomPlayer) OnEvent(game.GameEvent) {}

func (p *randomPlayer) Pick(state game.GameState) int {
	return p.rng.IntN(state.CupCount)
}

// firstPlayer always picks slot 0.
type firstPlayer struct{}

func (firstPlayer) OnEvent(game.GameEvent) {}

func (firstPlayer) Pick(game.GameState) int { return 0 }
