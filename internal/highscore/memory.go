package highscore

import (
	"context"
	"sync"

	"github.com/lox/cupsandcoins/internal/game"
)

// MemoryStore keeps best scores for the life of the process.
type MemoryStore struct {
	mu   sync.Mutex
	best map[game.Difficulty]Entry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{best: make(map[game.Difficulty]Entry)}
}

func (s *MemoryStore) RecordGame(_ context.Context, result game.GameResult) (int, bool, error) {
	if err := checkDifficulty(result.Difficulty); err != nil {
		return 0, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	best, newBest := improve(s.best, result)
	return best, newBest, nil
}

func (s *MemoryStore) Best(_ context.Context, d game.Difficulty) (int, error) {
	if err := checkDifficulty(d); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best[d].Score, nil
}

func (s *MemoryStore) All(context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedEntries(s.best), nil
}

func (s *MemoryStore) Close() error { return nil }
