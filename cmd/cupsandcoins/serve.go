package main

import (
	"fmt"
	"io"

	"github.com/skip2/go-qrcode"

	"github.com/lox/cupsandcoins/cmd/cupsandcoins/shared"
	"github.com/lox/cupsandcoins/internal/server"
)

// ServeCmd serves games over WebSocket.
type ServeCmd struct {
	Addr      string `help:"Listen address host:port (overrides config)"`
	PublicURL string `name:"public-url" help:"URL players join at, shown as a QR code"`
	NoQR      bool   `name:"no-qr" help:"Do not print the join QR code"`
}

func (c *ServeCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	logger, closeLog, err := g.logger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	rules, err := cfg.Rules()
	if err != nil {
		return err
	}
	timings, err := cfg.Timings()
	if err != nil {
		return err
	}
	scorer, err := cfg.Scorer(rules)
	if err != nil {
		return err
	}

	addr := cfg.ServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}
	publicURL := cfg.Server.PublicURL
	if c.PublicURL != "" {
		publicURL = c.PublicURL
	}

	store, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	srv := server.NewServer(server.Config{
		Rules:     rules,
		Timings:   timings,
		Scorer:    scorer,
		Seed:      cfg.Game.Seed,
		PublicURL: publicURL,
	}, store, logger)

	if publicURL != "" && !c.NoQR {
		if err := printJoinCode(g.stdout(), publicURL); err != nil {
			logger.Warn("Could not render join code", "url", publicURL, "error", err)
		}
	}

	ctx, cancel := shared.SetupSignalHandler(logger)
	defer cancel()

	return srv.Serve(ctx, addr)
}

// printJoinCode writes a terminal QR code for url.
func printJoinCode(w io.Writer, url string) error {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return fmt.Errorf("encode %q: %w", url, err)
	}
	fmt.Fprintf(w, "Join at %s\n\n%s\n", url, qr.ToSmallString(false))
	return nil
}
