// Package config loads the HCL configuration file for cupsandcoins.
//
// Every block is optional. A missing file, block or attribute falls back to
// the defaults returned by Default:
//
//	game {
//	  rounds_per_game = 5
//	  difficulty      = "easy"
//	}
//
//	difficulty "expert" {
//	  swaps         = 20
//	  swap_duration = "300ms"
//	}
//
//	scoring {
//	  strategy = "streak"
//	}
//
//	store {
//	  driver = "sqlite"
//	  path   = "scores.db"
//	}
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/cupsandcoins/internal/game"
)

// Store drivers accepted in the store block.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

const (
	defaultAddress    = "localhost"
	defaultPort       = 8080
	defaultLogLevel   = "info"
	defaultFilePath   = "cupsandcoins-scores.hcl"
	defaultSQLitePath = "cupsandcoins.db"
)

// Config is the resolved configuration with every default applied.
type Config struct {
	Game    GameSettings
	Levels  []LevelConfig
	Scoring ScoringSettings
	Timing  TimingSettings
	Store   StoreSettings
	Server  ServerSettings
	Log     LogSettings
}

// GameSettings controls game length and the starting difficulty.
type GameSettings struct {
	RoundsPerGame int    `hcl:"rounds_per_game,optional"`
	Difficulty    string `hcl:"difficulty,optional"`
	Seed          int64  `hcl:"seed,optional"`
}

// LevelConfig overrides one row of the difficulty table.
type LevelConfig struct {
	Name         string `hcl:"name,label"`
	Cups         int    `hcl:"cups,optional"`
	Swaps        int    `hcl:"swaps,optional"`
	SwapDuration string `hcl:"swap_duration,optional"`
	Multiplier   int    `hcl:"multiplier,optional"`
}

// ScoringSettings selects and tunes the scoring rule.
type ScoringSettings struct {
	Strategy        string  `hcl:"strategy,optional"`
	Base            int     `hcl:"base,optional"`
	ComboThreshold  int     `hcl:"combo_threshold,optional"`
	ComboMultiplier float64 `hcl:"combo_multiplier,optional"`
	StreakBonus     int     `hcl:"streak_bonus,optional"`
	StreakCap       int     `hcl:"streak_cap,optional"`
}

// TimingSettings are the phase pauses as Go duration strings.
type TimingSettings struct {
	Preview     string `hcl:"preview,optional"`
	Hide        string `hcl:"hide,optional"`
	PostShuffle string `hcl:"post_shuffle,optional"`
	Reveal      string `hcl:"reveal,optional"`
	RoundEnd    string `hcl:"round_end,optional"`
}

// StoreSettings chooses where best scores are kept.
type StoreSettings struct {
	Driver string `hcl:"driver,optional"`
	Path   string `hcl:"path,optional"`
}

// ServerSettings configures the websocket server.
type ServerSettings struct {
	Address   string `hcl:"address,optional"`
	Port      int    `hcl:"port,optional"`
	PublicURL string `hcl:"public_url,optional"`
}

// LogSettings configures logging.
type LogSettings struct {
	Level string `hcl:"level,optional"`
	File  string `hcl:"file,optional"`
}

// fileConfig mirrors the file layout; absent blocks decode to nil.
type fileConfig struct {
	Game    *GameSettings    `hcl:"game,block"`
	Levels  []LevelConfig    `hcl:"difficulty,block"`
	Scoring *ScoringSettings `hcl:"scoring,block"`
	Timing  *TimingSettings  `hcl:"timing,block"`
	Store   *StoreSettings   `hcl:"store,block"`
	Server  *ServerSettings  `hcl:"server,block"`
	Log     *LogSettings     `hcl:"log,block"`
}

// Default returns the stock configuration.
func Default() *Config {
	rules := game.DefaultRules()
	timings := game.DefaultTimings()

	levels := make([]LevelConfig, 0, len(game.Difficulties))
	for _, d := range game.Difficulties {
		lvl := rules.Levels[d]
		levels = append(levels, LevelConfig{
			Name:         d.String(),
			Cups:         lvl.Cups,
			Swaps:        lvl.Swaps,
			SwapDuration: lvl.SwapDuration.String(),
			Multiplier:   lvl.Multiplier,
		})
	}

	return &Config{
		Game: GameSettings{
			RoundsPerGame: rules.RoundsPerGame,
			Difficulty:    game.Easy.String(),
		},
		Levels: levels,
		Scoring: ScoringSettings{
			Strategy:        game.ScoringCombo,
			Base:            game.DefaultBasePoints,
			ComboThreshold:  game.DefaultComboThreshold,
			ComboMultiplier: game.DefaultComboMultiplier,
			StreakBonus:     game.DefaultStreakBonus,
			StreakCap:       game.DefaultStreakBonusCap,
		},
		Timing: TimingSettings{
			Preview:     timings.Preview.String(),
			Hide:        timings.Hide.String(),
			PostShuffle: timings.PostShuffle.String(),
			Reveal:      timings.Reveal.String(),
			RoundEnd:    timings.RoundEnd.String(),
		},
		Store: StoreSettings{
			Driver: DriverFile,
			Path:   defaultFilePath,
		},
		Server: ServerSettings{
			Address: defaultAddress,
			Port:    defaultPort,
		},
		Log: LogSettings{
			Level: defaultLogLevel,
		},
	}
}

// Load reads filename. A missing file yields Default.
func Load(filename string) (*Config, error) {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}
	return decode(file)
}

// Parse decodes configuration source. filename is only used in diagnostics.
func Parse(src []byte, filename string) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL: %s", diags.Error())
	}
	return decode(file)
}

func decode(file *hcl.File) (*Config, error) {
	var raw fileConfig
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	cfg := Default()

	if g := raw.Game; g != nil {
		if g.RoundsPerGame != 0 {
			cfg.Game.RoundsPerGame = g.RoundsPerGame
		}
		if g.Difficulty != "" {
			cfg.Game.Difficulty = g.Difficulty
		}
		cfg.Game.Seed = g.Seed
	}

	for _, lc := range raw.Levels {
		d, err := game.ParseDifficulty(lc.Name)
		if err != nil {
			return nil, fmt.Errorf("difficulty block: %w", err)
		}
		cfg.Levels[d-game.Easy] = mergeLevel(cfg.Levels[d-game.Easy], lc)
	}

	if s := raw.Scoring; s != nil {
		if s.Strategy != "" {
			cfg.Scoring.Strategy = s.Strategy
		}
		if s.Base != 0 {
			cfg.Scoring.Base = s.Base
		}
		if s.ComboThreshold != 0 {
			cfg.Scoring.ComboThreshold = s.ComboThreshold
		}
		if s.ComboMultiplier != 0 {
			cfg.Scoring.ComboMultiplier = s.ComboMultiplier
		}
		if s.StreakBonus != 0 {
			cfg.Scoring.StreakBonus = s.StreakBonus
		}
		if s.StreakCap != 0 {
			cfg.Scoring.StreakCap = s.StreakCap
		}
	}

	if t := raw.Timing; t != nil {
		override(&cfg.Timing.Preview, t.Preview)
		override(&cfg.Timing.Hide, t.Hide)
		override(&cfg.Timing.PostShuffle, t.PostShuffle)
		override(&cfg.Timing.Reveal, t.Reveal)
		override(&cfg.Timing.RoundEnd, t.RoundEnd)
	}

	if s := raw.Store; s != nil {
		if s.Driver != "" {
			cfg.Store.Driver = s.Driver
			cfg.Store.Path = DefaultStorePath(s.Driver)
		}
		override(&cfg.Store.Path, s.Path)
	}

	if s := raw.Server; s != nil {
		override(&cfg.Server.Address, s.Address)
		if s.Port != 0 {
			cfg.Server.Port = s.Port
		}
		override(&cfg.Server.PublicURL, s.PublicURL)
	}

	if l := raw.Log; l != nil {
		override(&cfg.Log.Level, l.Level)
		override(&cfg.Log.File, l.File)
	}

	return cfg, nil
}

func mergeLevel(base, lc LevelConfig) LevelConfig {
	base.Name = lc.Name
	if lc.Cups != 0 {
		base.Cups = lc.Cups
	}
	if lc.Swaps != 0 {
		base.Swaps = lc.Swaps
	}
	override(&base.SwapDuration, lc.SwapDuration)
	if lc.Multiplier != 0 {
		base.Multiplier = lc.Multiplier
	}
	return base
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// DefaultStorePath returns where driver keeps scores unless configured.
func DefaultStorePath(driver string) string {
	switch driver {
	case DriverSQLite:
		return defaultSQLitePath
	case DriverFile:
		return defaultFilePath
	default:
		return ""
	}
}

// Validate checks the configuration for values the game cannot run with.
func (c *Config) Validate() error {
	if _, err := c.Rules(); err != nil {
		return err
	}
	if _, err := c.Timings(); err != nil {
		return err
	}
	if _, err := c.StartDifficulty(); err != nil {
		return err
	}

	switch c.Scoring.Strategy {
	case game.ScoringCombo, game.ScoringStreak:
	default:
		return fmt.Errorf("invalid scoring strategy %q", c.Scoring.Strategy)
	}
	if c.Scoring.Base < 0 {
		return fmt.Errorf("scoring base cannot be negative")
	}
	if c.Scoring.ComboMultiplier < 1 {
		return fmt.Errorf("combo multiplier must be at least 1, got %g", c.Scoring.ComboMultiplier)
	}

	switch c.Store.Driver {
	case DriverMemory:
	case DriverFile, DriverSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store driver %s requires a path", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid store driver %q", c.Store.Driver)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// Rules builds the controller rule set from the game and difficulty blocks.
func (c *Config) Rules() (game.Rules, error) {
	rules := game.Rules{
		Levels:        make(map[game.Difficulty]game.Level, len(c.Levels)),
		RoundsPerGame: c.Game.RoundsPerGame,
	}
	for _, lc := range c.Levels {
		d, err := game.ParseDifficulty(lc.Name)
		if err != nil {
			return game.Rules{}, err
		}
		dur, err := parseDuration("swap_duration", lc.SwapDuration)
		if err != nil {
			return game.Rules{}, fmt.Errorf("difficulty %s: %w", d, err)
		}
		rules.Levels[d] = game.Level{
			Cups:         lc.Cups,
			Swaps:        lc.Swaps,
			SwapDuration: dur,
			Multiplier:   lc.Multiplier,
		}
	}
	if err := rules.Validate(); err != nil {
		return game.Rules{}, err
	}
	return rules, nil
}

// Timings converts the timing block.
func (c *Config) Timings() (game.Timings, error) {
	var (
		t   game.Timings
		err error
	)
	fields := []struct {
		name string
		src  string
		dst  *time.Duration
	}{
		{"preview", c.Timing.Preview, &t.Preview},
		{"hide", c.Timing.Hide, &t.Hide},
		{"post_shuffle", c.Timing.PostShuffle, &t.PostShuffle},
		{"reveal", c.Timing.Reveal, &t.Reveal},
		{"round_end", c.Timing.RoundEnd, &t.RoundEnd},
	}
	for _, f := range fields {
		if *f.dst, err = parseDuration(f.name, f.src); err != nil {
			return game.Timings{}, fmt.Errorf("timing: %w", err)
		}
	}
	return t, nil
}

// Scorer builds the configured scoring rule.
func (c *Config) Scorer(rules game.Rules) (game.Scorer, error) {
	switch c.Scoring.Strategy {
	case game.ScoringCombo:
		return game.ComboScorer{
			Base:       c.Scoring.Base,
			Threshold:  c.Scoring.ComboThreshold,
			Multiplier: c.Scoring.ComboMultiplier,
		}, nil
	case game.ScoringStreak:
		return game.StreakBonusScorer{
			Base:     c.Scoring.Base,
			PerWin:   c.Scoring.StreakBonus,
			Cap:      c.Scoring.StreakCap,
			Rules:    rules,
			Fallback: 1,
		}, nil
	default:
		return nil, fmt.Errorf("invalid scoring strategy %q", c.Scoring.Strategy)
	}
}

// StartDifficulty is the difficulty a new session begins at.
func (c *Config) StartDifficulty() (game.Difficulty, error) {
	return game.ParseDifficulty(c.Game.Difficulty)
}

// LogLevel parses the log block's level.
func (c *Config) LogLevel() (log.Level, error) {
	lvl, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	return lvl, nil
}

// ServerAddress returns host:port for the listener.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

func parseDuration(name, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s cannot be negative", name)
	}
	return d, nil
}
