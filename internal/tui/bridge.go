package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lox/cupsandcoins/internal/game"
)

// Sender is the part of *tea.Program the bridge needs.
type Sender interface {
	Send(msg tea.Msg)
}

// Bridge forwards controller output into a running Bubble Tea program. It is
// both the controller's Renderer and an event subscriber. Output produced
// before Attach is dropped.
type Bridge struct {
	mu     sync.RWMutex
	sender Sender
}

func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach starts forwarding to s.
func (b *Bridge) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = s
}

func (b *Bridge) send(msg tea.Msg) {
	b.mu.RLock()
	s := b.sender
	b.mu.RUnlock()
	if s != nil {
		s.Send(msg)
	}
}

func (b *Bridge) RenderCups(cups []game.CupView) {
	b.send(cupsMsg{cups: cups})
}

func (b *Bridge) OnEvent(e game.GameEvent) {
	b.send(eventMsg{event: e})
}
