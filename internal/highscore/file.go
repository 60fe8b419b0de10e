package highscore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/lox/cupsandcoins/internal/game"
)

// scoreFile is the on-disk layout:
//
//	best "hard" {
//	  score      = 45
//	  game_id    = "0193..."
//	  updated_at = "2025-01-02T15:04:05Z"
//	}
type scoreFile struct {
	Best []bestBlock `hcl:"best,block"`
}

type bestBlock struct {
	Difficulty string `hcl:"difficulty,label"`
	Score      int    `hcl:"score"`
	GameID     string `hcl:"game_id,optional"`
	UpdatedAt  string `hcl:"updated_at,optional"`
}

// FileStore keeps best scores in an HCL file, rewritten atomically on every
// new best.
type FileStore struct {
	path string

	mu   sync.Mutex
	best map[game.Difficulty]Entry
}

// OpenFileStore loads path, which need not exist yet.
func OpenFileStore(path string) (*FileStore, error) {
	if path == "" {
		return nil, fmt.Errorf("file store requires a path")
	}
	s := &FileStore{path: path, best: make(map[game.Difficulty]Entry)}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) load() error {
	if _, err := os.Stat(s.path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(s.path)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse score file: %s", diags.Error())
	}

	var sf scoreFile
	if diags := gohcl.DecodeBody(file.Body, nil, &sf); diags.HasErrors() {
		return fmt.Errorf("failed to decode score file: %s", diags.Error())
	}

	for _, b := range sf.Best {
		d, err := game.ParseDifficulty(b.Difficulty)
		if err != nil {
			return fmt.Errorf("score file %s: %w", s.path, err)
		}
		entry := Entry{Difficulty: d, Score: b.Score, GameID: b.GameID}
		if b.UpdatedAt != "" {
			if entry.UpdatedAt, err = time.Parse(time.RFC3339Nano, b.UpdatedAt); err != nil {
				return fmt.Errorf("score file %s: best %q: %w", s.path, b.Difficulty, err)
			}
		}
		s.best[d] = entry
	}
	return nil
}

func (s *FileStore) saveLocked() error {
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, e := range sortedEntries(s.best) {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock("best", []string{e.Difficulty.String()}).Body()
		block.SetAttributeValue("score", cty.NumberIntVal(int64(e.Score)))
		if e.GameID != "" {
			block.SetAttributeValue("game_id", cty.StringVal(e.GameID))
		}
		if !e.UpdatedAt.IsZero() {
			block.SetAttributeValue("updated_at", cty.StringVal(e.UpdatedAt.UTC().Format(time.RFC3339Nano)))
		}
	}
	return writeFileAtomic(s.path, f.Bytes(), 0o644)
}

func (s *FileStore) RecordGame(_ context.Context, result game.GameResult) (int, bool, error) {
	if err := checkDifficulty(result.Difficulty); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, hadPrev := s.best[result.Difficulty]
	best, newBest := improve(s.best, result)
	if s.best[result.Difficulty] == prev {
		return best, newBest, nil
	}
	if err := s.saveLocked(); err != nil {
		if hadPrev {
			s.best[result.Difficulty] = prev
		} else {
			delete(s.best, result.Difficulty)
		}
		return prev.Score, false, fmt.Errorf("save high scores: %w", err)
	}
	return best, newBest, nil
}

func (s *FileStore) Best(_ context.Context, d game.Difficulty) (int, error) {
	if err := checkDifficulty(d); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best[d].Score, nil
}

func (s *FileStore) All(context.Context) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedEntries(s.best), nil
}

// Path returns the score file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Close() error { return nil }
