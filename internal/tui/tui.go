package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/lox/cupsandcoins/internal/game"
)

// Game is the part of the controller the UI drives.
type Game interface {
	StartGame(d game.Difficulty) error
	Guess(slot int) bool
	State() game.GameState
}

// cupsMsg carries a renderer snapshot into the update loop.
type cupsMsg struct {
	cups []game.CupView
}

// eventMsg carries a controller event into the update loop.
type eventMsg struct {
	event game.GameEvent
}

// errMsg reports a failed controller call.
type errMsg struct {
	err error
}

// Model is the Bubble Tea model for a local game.
type Model struct {
	game   Game
	logger *log.Logger

	keys        keyMap
	help        help.Model
	logViewport viewport.Model

	difficulty game.Difficulty
	state      game.GameState
	cups       []game.CupView
	swap       *game.Swap
	status     string
	best       int
	gameLog    []string

	width    int
	height   int
	quitting bool
}

// NewModel creates a model that starts games at difficulty d.
func NewModel(g Game, d game.Difficulty, logger *log.Logger) *Model {
	vp := viewport.New(40, 6)
	vp.KeyMap = viewport.KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k")),
		Down:     key.NewBinding(key.WithKeys("down", "j")),
		PageUp:   key.NewBinding(key.WithKeys("pgup")),
		PageDown: key.NewBinding(key.WithKeys("pgdown")),
	}

	if !d.Valid() {
		d = game.Easy
	}

	return &Model{
		game:        g,
		logger:      logger.WithPrefix("tui"),
		keys:        defaultKeyMap(),
		help:        help.New(),
		logViewport: vp,
		difficulty:  d,
		state:       g.State(),
		status:      "Press n to start a game",
	}
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.logViewport.Width = max(msg.Width-2, 10)
		m.logViewport.Height = max(msg.Height-16, 3)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case cupsMsg:
		m.cups = msg.cups
		return m, nil

	case eventMsg:
		m.handleEvent(msg.event)
		return m, nil

	case errMsg:
		m.status = ErrorStyle.Render(msg.err.Error())
		m.addLogEntry("Error: " + msg.err.Error())
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

// handleKey maps keys to controller calls. Calls run as commands because the
// controller delivers its events back through the program synchronously.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Guess):
		slot := int(msg.String()[0] - '1')
		g := m.game
		return m, func() tea.Msg {
			g.Guess(slot)
			return nil
		}

	case key.Matches(msg, m.keys.NewGame):
		if m.state.Phase != game.PhaseIdle && !m.state.Over() {
			return m, nil
		}
		return m, m.startGame()

	case key.Matches(msg, m.keys.Difficulty):
		m.difficulty = m.difficulty.Next()
		m.status = fmt.Sprintf("Difficulty set to %s for the next game", m.difficulty)
		return m, nil

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.logViewport, cmd = m.logViewport.Update(msg)
	return m, cmd
}

func (m *Model) startGame() tea.Cmd {
	g, d := m.game, m.difficulty
	return func() tea.Msg {
		if err := g.StartGame(d); err != nil {
			return errMsg{err: err}
		}
		return nil
	}
}

func (m *Model) handleEvent(e game.GameEvent) {
	switch ev := e.(type) {
	case game.PhaseChangeEvent:
		m.state = ev.State
		m.status = phaseStatus(ev.State)
		if ev.To != game.PhaseShuffling {
			m.swap = nil
		}
		if ev.To == game.PhasePreview {
			m.addLogEntry(fmt.Sprintf("Round %d/%d: watch the coin", ev.State.Round, ev.State.RoundsPerGame))
		}

	case game.SwapEvent:
		sw := ev.Swap
		m.swap = &sw
		m.status = fmt.Sprintf("Shuffling... %d/%d", ev.Index, ev.Total)

	case game.GuessRejectedEvent:
		m.logger.Debug("Guess rejected", "slot", ev.Slot, "reason", ev.Reason)
		if ev.Phase == game.PhaseAwaitingGuess {
			m.status = WarningStyle.Render(fmt.Sprintf("There is no cup %d", ev.Slot+1))
		}

	case game.RoundResolvedEvent:
		if ev.Correct {
			m.addLogEntry(SuccessStyle.Render(fmt.Sprintf("Round %d: found it under cup %d! +%d (streak %d)",
				ev.Round, ev.CoinSlot+1, ev.Points, ev.Streak)))
		} else {
			m.addLogEntry(ErrorStyle.Render(fmt.Sprintf("Round %d: cup %d was empty, the coin was under cup %d",
				ev.Round, ev.Guess+1, ev.CoinSlot+1)))
		}

	case game.GameOverEvent:
		m.best = ev.Best
		line := fmt.Sprintf("Game over: %d points, %d/%d correct", ev.Result.Score, ev.Result.Correct, ev.Result.Rounds)
		if ev.NewBest {
			line += " - new best!"
		}
		m.addLogEntry(ScoreStyle.Render(line))
		m.status = "Press n to play again, d to change difficulty"
	}
}

func phaseStatus(s game.GameState) string {
	switch s.Phase {
	case game.PhasePreview:
		return "Remember where the coin is..."
	case game.PhaseHiding:
		return "Hiding the coin"
	case game.PhaseShuffling:
		return "Shuffling..."
	case game.PhaseAwaitingGuess:
		return fmt.Sprintf("Where is the coin? Press 1-%d", s.CupCount)
	case game.PhaseResolving, game.PhaseRoundEnd:
		return "Revealing..."
	case game.PhaseGameOver:
		return "Game over"
	default:
		return "Press n to start a game"
	}
}

func (m *Model) addLogEntry(entry string) {
	m.gameLog = append(m.gameLog, entry)
	m.logViewport.SetContent(strings.Join(m.gameLog, "\n"))
	m.logViewport.GotoBottom()
}

func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.renderCups())
	b.WriteString("\n\n")
	b.WriteString(m.status)
	b.WriteString("\n\n")
	b.WriteString(LogPaneStyle.Render(m.logViewport.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) renderHeader() string {
	title := HeaderStyle.Render("Cups & Coins")
	info := fmt.Sprintf(" %s | Score %d | Streak %d",
		m.difficulty, m.state.Score, m.state.Streak)
	if m.state.Round > 0 {
		info += fmt.Sprintf(" | Round %d/%d", m.state.Round, m.state.RoundsPerGame)
	}
	if m.best > 0 {
		info += fmt.Sprintf(" | Best %d", m.best)
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, title, ScoreStyle.Render(info))
}

func (m *Model) renderCups() string {
	if len(m.cups) == 0 {
		return InfoStyle.Render("(no cups on the table)")
	}

	columns := make([]string, len(m.cups))
	for i, cup := range m.cups {
		style := CupStyle
		content := " "
		switch {
		case cup.Lifted && cup.HasCoin:
			style = LiftedCupStyle
			content = CoinStyle.Render("●")
		case cup.Lifted:
			style = LiftedCupStyle
		case m.swap != nil && (m.swap.A == i || m.swap.B == i):
			style = SwappingCupStyle
		}
		columns[i] = lipgloss.JoinVertical(lipgloss.Center,
			style.Render(content),
			SlotLabelStyle.Render(fmt.Sprintf("[%d]", i+1)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, columns...)
}
