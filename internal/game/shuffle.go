package game

import (
	"fmt"
	"iter"
	"math/rand/v2"
)

// Swap is an exchange of the cups at slots A and B.
type Swap struct {
	A int `json:"a"`
	B int `json:"b"`
}

// ShuffleSequencer yields a fixed number of random swaps, applying each one to
// its cups as it is produced. The sequence is single use: once exhausted it
// stays exhausted.
type ShuffleSequencer struct {
	rng   *rand.Rand
	cups  Cups
	total int
	done  int
}

// NewShuffleSequencer shuffles cups in place over swapCount swaps. The caller
// keeps the slice; every Next call mutates it.
func NewShuffleSequencer(rng *rand.Rand, cups Cups, swapCount int) (*ShuffleSequencer, error) {
	if rng == nil {
		return nil, fmt.Errorf("rng is required for shuffling")
	}
	if len(cups) < 2 {
		return nil, fmt.Errorf("need at least 2 cups to shuffle, got %d", len(cups))
	}
	if swapCount < 0 {
		return nil, fmt.Errorf("swap count cannot be negative, got %d", swapCount)
	}
	if err := cups.Validate(); err != nil {
		return nil, err
	}
	return &ShuffleSequencer{rng: rng, cups: cups, total: swapCount}, nil
}

// Next picks two distinct slots, swaps their cups and returns the swap. It
// returns false once swapCount swaps have been produced.
func (s *ShuffleSequencer) Next() (Swap, bool) {
	if s.done >= s.total {
		return Swap{}, false
	}

	n := len(s.cups)
	a := s.rng.IntN(n)
	// Draw from the n-1 other slots so a != b without rejection sampling.
	b := s.rng.IntN(n - 1)
	if b >= a {
		b++
	}

	s.cups.Swap(a, b)
	s.done++
	return Swap{A: a, B: b}, true
}

// All returns the remaining swaps as an iterator. Stopping early leaves the
// rest of the sequence available to Next.
func (s *ShuffleSequencer) All() iter.Seq[Swap] {
	return func(yield func(Swap) bool) {
		for {
			sw, ok := s.Next()
			if !ok || !yield(sw) {
				return
			}
		}
	}
}

// CoinSlot is the slot currently holding the coin. After the sequence is
// exhausted it is the answer for the round.
func (s *ShuffleSequencer) CoinSlot() int {
	return s.cups.CoinSlot()
}

// Remaining returns how many swaps are left.
func (s *ShuffleSequencer) Remaining() int {
	return s.total - s.done
}

// Total returns the number of swaps the sequence was created with.
func (s *ShuffleSequencer) Total() int {
	return s.total
}

// Done reports whether the sequence is exhausted.
func (s *ShuffleSequencer) Done() bool {
	return s.done >= s.total
}
