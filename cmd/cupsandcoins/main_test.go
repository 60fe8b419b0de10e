package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cupsandcoins/internal/config"
	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/highscore"
)

func writeConfig(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cupsandcoins.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
game { seed = 5 }
log  { level = "warn" }
`)
	g := &Globals{Config: path, LogLevel: "debug", Seed: 99, Store: "sqlite"}
	cfg, err := g.loadConfig()
	require.NoError(t, err)

	assert.Equal(t, int64(99), cfg.Game.Seed)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, config.DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, config.DefaultStorePath(config.DriverSQLite), cfg.Store.Path)
}

func TestLoadConfigRejectsBadOverride(t *testing.T) {
	t.Parallel()

	g := &Globals{Config: filepath.Join(t.TempDir(), "missing.hcl"), LogLevel: "shouty"}
	_, err := g.loadConfig()
	assert.Error(t, err)
}

func TestBestCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "scores.db")
	path := writeConfig(t, `
store {
  driver = "sqlite"
  path   = "`+filepath.ToSlash(dbPath)+`"
}
log { level = "error" }
`)

	store, err := highscore.Open(highscore.DriverSQLite, dbPath)
	require.NoError(t, err)
	ctx := context.Background()
	for _, r := range []game.GameResult{
		{GameID: "a", Difficulty: game.Easy, Score: 30, Rounds: 5, Correct: 3},
		{GameID: "b", Difficulty: game.Easy, Score: 65, Rounds: 5, Correct: 5},
		{GameID: "c", Difficulty: game.Expert, Score: 10, Rounds: 5, Correct: 1},
	} {
		_, _, err := store.RecordGame(ctx, r)
		require.NoError(t, err)
	}
	require.NoError(t, store.Close())

	var out bytes.Buffer
	g := &Globals{Config: path, Stdout: &out}

	require.NoError(t, (&BestCmd{Limit: 10}).Run(g))
	text := out.String()
	assert.Contains(t, text, "DIFFICULTY")
	assert.Regexp(t, `easy\s+65\s+b`, text)
	assert.Regexp(t, `expert\s+10\s+c`, text)

	out.Reset()
	require.NoError(t, (&BestCmd{Difficulty: "easy", History: true, Limit: 10}).Run(g))
	text = out.String()
	assert.NotContains(t, text, "expert")
	assert.Contains(t, text, "Last 2 games")
	assert.Contains(t, text, "Games played: 2")
}

func TestBestHistoryNeedsSQLite(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `store { driver = "memory" }`)
	var out bytes.Buffer
	err := (&BestCmd{History: true}).Run(&Globals{Config: path, Stdout: &out})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "history")
	assert.Contains(t, out.String(), "no games recorded")
}

func TestSimulateCommand(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
game { seed = 1234 }
log  { level = "error" }
store { driver = "memory" }
`)
	var out bytes.Buffer
	cmd := &SimulateCmd{Games: 8, Strategy: "tracker", Parallel: 2, Timeout: 10 * time.Second, Record: true}
	require.NoError(t, cmd.Run(&Globals{Config: path, Stdout: &out}))

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "Simulating "+strings.Repeat(".", progressDots)+" 8 games"), "progress bar first: %q", text)
	assert.Contains(t, text, "Games played: 8 (40 rounds)")
	assert.Contains(t, text, "Correct guesses: 40/40")
	assert.Contains(t, text, "Seed: 1234")
}

func TestSimulateRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `log { level = "error" }`)
	err := (&SimulateCmd{Games: 1, Strategy: "psychic", Quiet: true}).Run(&Globals{Config: path, Stdout: &bytes.Buffer{}})
	assert.ErrorContains(t, err, "psychic")
}

func TestPrintJoinCode(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	require.NoError(t, printJoinCode(&out, "http://192.168.1.10:8080/"))
	assert.True(t, strings.HasPrefix(out.String(), "Join at http://192.168.1.10:8080/"))
	assert.Greater(t, strings.Count(out.String(), "\n"), 10)
}

func TestProgressMonitor(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	m := newProgressMonitor(&out)
	for i := 1; i <= 3; i++ {
		m.Update(i, 3)
	}
	m.Update(3, 3)

	text := out.String()
	assert.Equal(t, 1, strings.Count(text, "Simulating"))
	assert.Contains(t, text, "Simulating "+strings.Repeat(".", progressDots)+" 3 games in")
}
