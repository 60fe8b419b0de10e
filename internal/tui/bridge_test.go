package tui

import (
	"context"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/randutil"
)

type recordingSender struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (s *recordingSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
}

func TestBridgeForwardsAfterAttach(t *testing.T) {
	b := NewBridge()
	b.RenderCups([]game.CupView{{Slot: 0}})

	s := &recordingSender{}
	b.Attach(s)
	b.RenderCups([]game.CupView{{Slot: 0}, {Slot: 1}})
	b.OnEvent(game.SwapEvent{Index: 1})

	require.Len(t, s.msgs, 2)
	assert.Equal(t, cupsMsg{cups: []game.CupView{{Slot: 0}, {Slot: 1}}}, s.msgs[0])
	assert.Equal(t, eventMsg{event: game.SwapEvent{Index: 1}}, s.msgs[1])
}

// modelSender applies messages straight to a model, standing in for a
// running program.
type modelSender struct {
	mu sync.Mutex
	m  *Model
}

func (s *modelSender) Send(msg tea.Msg) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m.Update(msg)
}

func (s *modelSender) view() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.m.View()
}

func TestBridgeDrivesModelThroughARound(t *testing.T) {
	clk := quartz.NewMock(t)
	b := NewBridge()
	ctrl := game.NewController(
		game.WithClock(clk),
		game.WithRNG(randutil.New(3)),
		game.WithRenderer(b),
		game.WithLogger(quietLogger()),
	)
	ctrl.Subscribe(b)

	sender := &modelSender{m: NewModel(ctrl, game.Easy, quietLogger())}
	b.Attach(sender)

	require.NoError(t, ctrl.StartGame(game.Easy))
	assert.Contains(t, sender.view(), "Remember where the coin is")
	assert.Contains(t, sender.view(), "●")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := 0; i < 50 && ctrl.State().Phase != game.PhaseAwaitingGuess; i++ {
		_, w := clk.AdvanceNext()
		w.MustWait(ctx)
	}

	view := sender.view()
	assert.Contains(t, view, "Where is the coin? Press 1-3")
	assert.NotContains(t, view, "●")

	require.True(t, ctrl.Guess(0))
	view = sender.view()
	assert.Contains(t, view, "Revealing")
	assert.Contains(t, view, "●")
	assert.Contains(t, view, "Round 1:")
}
