package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cupsandcoins/internal/randutil"
)

func TestCreateCups(t *testing.T) {
	t.Parallel()

	for n := MinCups; n <= MaxCups; n++ {
		for slot := 0; slot < n; slot++ {
			cups, err := CreateCups(n, slot)
			require.NoError(t, err)
			require.Len(t, cups, n)
			assert.Equal(t, 1, cups.CoinCount())
			assert.Equal(t, slot, cups.CoinSlot())
			for i, cup := range cups {
				assert.Equal(t, i, cup.ID)
			}
		}
	}
}

func TestCreateCupsRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		n    int
		slot int
	}{
		{"too few cups", 2, 0},
		{"too many cups", 7, 0},
		{"negative slot", 3, -1},
		{"slot past end", 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateCups(tt.n, tt.slot)
			assert.Error(t, err)
		})
	}
}

func TestDealCupsCoversEverySlot(t *testing.T) {
	t.Parallel()

	rng := randutil.New(1)
	for n := MinCups; n <= MaxCups; n++ {
		seen := make(map[int]bool)
		for i := 0; i < 500; i++ {
			cups, err := DealCups(rng, n)
			require.NoError(t, err)
			require.NoError(t, cups.Validate())
			seen[cups.CoinSlot()] = true
		}
		assert.Len(t, seen, n, "coin should land under every slot of %d cups", n)
	}
}

func TestCupsValidate(t *testing.T) {
	t.Parallel()

	assert.ErrorIs(t, Cups{{ID: 0}, {ID: 1}, {ID: 2}}.Validate(), ErrCoinInvariant)
	assert.ErrorIs(t, Cups{{ID: 0, HasCoin: true}, {ID: 1, HasCoin: true}, {ID: 2}}.Validate(), ErrCoinInvariant)
	assert.Equal(t, -1, Cups{{ID: 0}, {ID: 1}}.CoinSlot())
}

func TestCupsSwapMovesIdentity(t *testing.T) {
	t.Parallel()

	cups, err := CreateCups(4, 1)
	require.NoError(t, err)

	clone := cups.Clone()
	cups.Swap(1, 3)

	assert.Equal(t, 3, cups.CoinSlot())
	assert.Equal(t, 1, cups[3].ID, "the cup keeps its ID as it moves")
	assert.Equal(t, 3, cups[1].ID)
	assert.Equal(t, 1, clone.CoinSlot(), "clone is unaffected")
}

func TestCupsViews(t *testing.T) {
	t.Parallel()

	cups, err := CreateCups(3, 2)
	require.NoError(t, err)

	tests := []struct {
		phase      Phase
		wantLifted []bool
		wantCoin   []bool
	}{
		{PhasePreview, []bool{false, false, true}, []bool{false, false, true}},
		{PhaseHiding, []bool{false, false, false}, []bool{false, false, false}},
		{PhaseShuffling, []bool{false, false, false}, []bool{false, false, false}},
		{PhaseAwaitingGuess, []bool{false, false, false}, []bool{false, false, false}},
		{PhaseResolving, []bool{true, true, true}, []bool{false, false, true}},
		{PhaseRoundEnd, []bool{true, true, true}, []bool{false, false, true}},
		{PhaseGameOver, []bool{true, true, true}, []bool{false, false, true}},
	}

	for _, tt := range tests {
		t.Run(string(tt.phase), func(t *testing.T) {
			views := cups.Views(tt.phase)
			require.Len(t, views, 3)
			for i, v := range views {
				assert.Equal(t, i, v.Slot)
				assert.Equal(t, tt.wantLifted[i], v.Lifted, "slot %d lifted", i)
				assert.Equal(t, tt.wantCoin[i], v.HasCoin, "slot %d coin", i)
			}
		})
	}
}
