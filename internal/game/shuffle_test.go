package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cupsandcoins/internal/randutil"
)

func TestShuffleSequencerKeepsOneCoin(t *testing.T) {
	t.Parallel()

	rng := randutil.New(99)
	for n := MinCups; n <= MaxCups; n++ {
		cups, err := DealCups(rng, n)
		require.NoError(t, err)

		seq, err := NewShuffleSequencer(rng, cups, 50)
		require.NoError(t, err)

		count := 0
		for sw := range seq.All() {
			count++
			assert.NotEqual(t, sw.A, sw.B)
			assert.GreaterOrEqual(t, sw.A, 0)
			assert.Less(t, sw.A, n)
			assert.GreaterOrEqual(t, sw.B, 0)
			assert.Less(t, sw.B, n)
			require.NoError(t, cups.Validate(), "after swap %d", count)
		}
		assert.Equal(t, 50, count)
		assert.True(t, seq.Done())
		assert.Equal(t, cups.CoinSlot(), seq.CoinSlot())
	}
}

func TestShuffleSequencerFollowsCoin(t *testing.T) {
	t.Parallel()

	cups, err := CreateCups(3, 0)
	require.NoError(t, err)
	seq, err := NewShuffleSequencer(randutil.New(2024), cups, 5)
	require.NoError(t, err)

	tracked := 0
	for {
		sw, ok := seq.Next()
		if !ok {
			break
		}
		switch tracked {
		case sw.A:
			tracked = sw.B
		case sw.B:
			tracked = sw.A
		}
	}

	assert.Equal(t, tracked, seq.CoinSlot())
	assert.Equal(t, 0, seq.Remaining())
	assert.Equal(t, 5, seq.Total())
}

func TestShuffleSequencerDeterministic(t *testing.T) {
	t.Parallel()

	run := func(seed int64) ([]Swap, int) {
		cups, err := CreateCups(3, 1)
		require.NoError(t, err)
		seq, err := NewShuffleSequencer(randutil.New(seed), cups, 5)
		require.NoError(t, err)

		var swaps []Swap
		for sw := range seq.All() {
			swaps = append(swaps, sw)
		}
		return swaps, seq.CoinSlot()
	}

	swapsA, slotA := run(12345)
	swapsB, slotB := run(12345)
	assert.Equal(t, swapsA, swapsB)
	assert.Equal(t, slotA, slotB)
	assert.Len(t, swapsA, 5)
}

func TestShuffleSequencerReachesEverySlot(t *testing.T) {
	t.Parallel()

	for n := MinCups; n <= MaxCups; n++ {
		seen := make(map[int]bool)
		for seed := int64(1); seed <= 300; seed++ {
			cups, err := CreateCups(n, 0)
			require.NoError(t, err)
			seq, err := NewShuffleSequencer(randutil.New(seed), cups, 8)
			require.NoError(t, err)
			for range seq.All() {
			}
			seen[seq.CoinSlot()] = true
		}
		assert.Len(t, seen, n, "every final slot should be reachable with %d cups", n)
	}
}

func TestShuffleSequencerZeroSwaps(t *testing.T) {
	t.Parallel()

	cups, err := CreateCups(4, 2)
	require.NoError(t, err)
	seq, err := NewShuffleSequencer(randutil.New(1), cups, 0)
	require.NoError(t, err)

	_, ok := seq.Next()
	assert.False(t, ok)
	assert.True(t, seq.Done())
	assert.Equal(t, 2, seq.CoinSlot())
}

func TestShuffleSequencerExhaustedStaysExhausted(t *testing.T) {
	t.Parallel()

	cups, err := CreateCups(3, 0)
	require.NoError(t, err)
	seq, err := NewShuffleSequencer(randutil.New(5), cups, 2)
	require.NoError(t, err)

	for range seq.All() {
	}
	before := cups.Clone()
	for i := 0; i < 3; i++ {
		_, ok := seq.Next()
		assert.False(t, ok)
	}
	assert.Equal(t, before, cups)
}

func TestNewShuffleSequencerValidation(t *testing.T) {
	t.Parallel()

	good, err := CreateCups(3, 0)
	require.NoError(t, err)

	_, err = NewShuffleSequencer(nil, good, 1)
	assert.Error(t, err, "nil rng")

	_, err = NewShuffleSequencer(randutil.New(1), Cups{{HasCoin: true}}, 1)
	assert.Error(t, err, "single cup")

	_, err = NewShuffleSequencer(randutil.New(1), good, -1)
	assert.Error(t, err, "negative swaps")

	_, err = NewShuffleSequencer(randutil.New(1), Cups{{ID: 0}, {ID: 1}, {ID: 2}}, 1)
	assert.ErrorIs(t, err, ErrCoinInvariant)
}
