package game

import (
	"errors"
	"fmt"
	"math/rand/v2"
)

// ErrCoinInvariant reports a cup set without exactly one coin.
var ErrCoinInvariant = errors.New("exactly one cup must hold the coin")

// Cup is one cup on the table. ID is the slot it was dealt into and stays
// with the cup as it moves; the slot is the cup's index in Cups.
type Cup struct {
	ID      int
	HasCoin bool
}

// CupView is the renderer's view of a cup at a slot. HasCoin is only set
// while the cup is lifted.
type CupView struct {
	Slot    int  `json:"slot"`
	ID      int  `json:"id"`
	HasCoin bool `json:"hasCoin"`
	Lifted  bool `json:"lifted"`
}

// Cups is an ordered row of cups indexed by slot.
type Cups []Cup

// CreateCups deals n cups with the coin under coinSlot.
func CreateCups(n, coinSlot int) (Cups, error) {
	if n < MinCups || n > MaxCups {
		return nil, fmt.Errorf("cup count must be between %d and %d, got %d", MinCups, MaxCups, n)
	}
	if coinSlot < 0 || coinSlot >= n {
		return nil, fmt.Errorf("coin slot %d out of range [0,%d)", coinSlot, n)
	}
	cups := make(Cups, n)
	for i := range cups {
		cups[i] = Cup{ID: i, HasCoin: i == coinSlot}
	}
	return cups, nil
}

// DealCups deals n cups with the coin under a random slot.
func DealCups(rng *rand.Rand, n int) (Cups, error) {
	if n < MinCups || n > MaxCups {
		return nil, fmt.Errorf("cup count must be between %d and %d, got %d", MinCups, MaxCups, n)
	}
	return CreateCups(n, rng.IntN(n))
}

// CoinSlot returns the slot holding the coin, or -1 if none does.
func (c Cups) CoinSlot() int {
	for i, cup := range c {
		if cup.HasCoin {
			return i
		}
	}
	return -1
}

// CoinCount returns how many cups hold a coin.
func (c Cups) CoinCount() int {
	n := 0
	for _, cup := range c {
		if cup.HasCoin {
			n++
		}
	}
	return n
}

// Validate checks the single-coin invariant.
func (c Cups) Validate() error {
	if n := c.CoinCount(); n != 1 {
		return fmt.Errorf("%w: found %d", ErrCoinInvariant, n)
	}
	return nil
}

// Swap exchanges the cups at slots a and b.
func (c Cups) Swap(a, b int) {
	c[a], c[b] = c[b], c[a]
}

// Clone returns an independent copy.
func (c Cups) Clone() Cups {
	out := make(Cups, len(c))
	copy(out, c)
	return out
}

// Views builds renderer snapshots for phase p.
func (c Cups) Views(p Phase) []CupView {
	views := make([]CupView, len(c))
	for i, cup := range c {
		lifted := p.revealsCups() || (p == PhasePreview && cup.HasCoin)
		views[i] = CupView{
			Slot:    i,
			ID:      cup.ID,
			HasCoin: cup.HasCoin && lifted,
			Lifted:  lifted,
		}
	}
	return views
}
