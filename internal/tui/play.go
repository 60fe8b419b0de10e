package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/cupsandcoins/internal/game"
)

// Play runs an interactive game in the terminal until the player quits or ctx
// is cancelled. opts configure the controller; its renderer is the UI.
func Play(ctx context.Context, d game.Difficulty, logger *log.Logger, opts ...game.Option) error {
	bridge := NewBridge()
	ctrl := game.NewController(append(opts, game.WithRenderer(bridge))...)
	defer ctrl.Stop()
	unsubscribe := ctrl.Subscribe(bridge)
	defer unsubscribe()

	program := tea.NewProgram(NewModel(ctrl, d, logger),
		tea.WithAltScreen(),
		tea.WithContext(ctx))
	bridge.Attach(program)

	if _, err := program.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("terminal UI: %w", err)
	}
	return nil
}
