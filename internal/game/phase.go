package game

// Phase is one stage of a round's lifecycle.
type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhasePreview       Phase = "preview"
	PhaseHiding        Phase = "hiding"
	PhaseShuffling     Phase = "shuffling"
	PhaseAwaitingGuess Phase = "awaiting_guess"
	PhaseResolving     Phase = "resolving"
	PhaseRoundEnd      Phase = "round_end"
	PhaseGameOver      Phase = "game_over"
)

func (p Phase) String() string {
	return string(p)
}

// transitions is the phase table the controller is driven by. StartGame may
// enter Preview from any phase and is not listed here.
var transitions = map[Phase][]Phase{
	PhasePreview:       {PhaseHiding},
	PhaseHiding:        {PhaseShuffling},
	PhaseShuffling:     {PhaseAwaitingGuess},
	PhaseAwaitingGuess: {PhaseResolving},
	PhaseResolving:     {PhaseRoundEnd},
	PhaseRoundEnd:      {PhasePreview, PhaseGameOver},
}

// CanTransitionTo reports whether the table allows p → target.
func (p Phase) CanTransitionTo(target Phase) bool {
	for _, next := range transitions[p] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether only StartGame can leave p.
func (p Phase) Terminal() bool {
	return p == PhaseGameOver
}

// revealsCups reports whether cups are lifted for everyone in p.
func (p Phase) revealsCups() bool {
	switch p {
	case PhaseResolving, PhaseRoundEnd, PhaseGameOver:
		return true
	}
	return false
}
