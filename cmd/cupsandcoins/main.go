package main

import (
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lox/cupsandcoins/cmd/cupsandcoins/shared"
	"github.com/lox/cupsandcoins/internal/config"
	"github.com/lox/cupsandcoins/internal/highscore"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `short:"c" default:"cupsandcoins.hcl" type:"path" help:"HCL config file (missing file uses defaults)"`
	LogLevel string `help:"Override the configured log level (debug, info, warn, error)"`
	Seed     int64  `help:"Deterministic RNG seed (0 picks one and logs it)"`
	Store    string `help:"Override the high score driver (memory, file, sqlite)"`

	Stdout io.Writer `kong:"-"`
}

type CLI struct {
	Globals

	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Play     PlayCmd          `cmd:"" default:"1" help:"Play in the terminal"`
	Simulate SimulateCmd      `cmd:"" help:"Play headless games with a scripted player"`
	Serve    ServeCmd         `cmd:"" help:"Serve games over WebSocket"`
	Best     BestCmd          `cmd:"" help:"Show best scores"`
}

func main() {
	cli := CLI{Globals: Globals{Stdout: os.Stdout}}
	ctx := kong.Parse(&cli,
		kong.Name("cupsandcoins"),
		kong.Description("Follow the coin under the shuffling cups"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run(&cli.Globals)
	ctx.FatalIfErrorf(err)
}

// loadConfig reads the config file and applies flag overrides.
func (g *Globals) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.Config)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	if g.Seed != 0 {
		cfg.Game.Seed = g.Seed
	}
	if g.Store != "" && g.Store != cfg.Store.Driver {
		cfg.Store.Driver = g.Store
		cfg.Store.Path = config.DefaultStorePath(g.Store)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", g.Config, err)
	}
	return cfg, nil
}

// logger returns a stderr logger unless the config names a log file.
func (g *Globals) logger(cfg *config.Config) (*log.Logger, func(), error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Log.File == "" {
		return shared.SetupLogger(os.Stderr, level), func() {}, nil
	}
	logger, f, err := shared.SetupFileLogger(cfg.Log.File, level)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}

func openStore(cfg *config.Config, logger *log.Logger) (highscore.Store, error) {
	store, err := highscore.Open(cfg.Store.Driver, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
	}
	logger.Debug("Opened high score store", "driver", cfg.Store.Driver, "path", cfg.Store.Path)
	return store, nil
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout == nil {
		return os.Stdout
	}
	return g.Stdout
}
