// Package server serves Cups and Coins over WebSocket. Every connection plays
// its own game on its own controller; high scores are shared through the
// configured store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/lox/cupsandcoins/internal/game"
	"github.com/lox/cupsandcoins/internal/highscore"
	"github.com/lox/cupsandcoins/internal/randutil"
)

// QRSize is the edge length in pixels of the /qr image.
const QRSize = 320

const shutdownTimeout = 5 * time.Second

// Config holds the game settings applied to every connection.
type Config struct {
	Rules   game.Rules
	Timings game.Timings
	Scorer  game.Scorer

	// Seed is the base seed. Connection n plays with randutil.Derive(Seed, n).
	// Zero picks a time-derived seed.
	Seed int64

	// PublicURL is the address players join at, encoded by /qr. When empty
	// the URL is derived from the request.
	PublicURL string
}

// DefaultConfig returns the stock rules and timings.
func DefaultConfig() Config {
	return Config{
		Rules:   game.DefaultRules(),
		Timings: game.DefaultTimings(),
		Scorer:  game.NewComboScorer(),
	}
}

// Option configures a Server.
type Option func(*Server)

// WithClock sets the clock connection controllers schedule on.
func WithClock(clock quartz.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// Server represents the WebSocket server
type Server struct {
	config   Config
	store    highscore.Store
	clock    quartz.Clock
	logger   *log.Logger
	upgrader websocket.Upgrader
	router   *httprouter.Router

	seed    int64
	nextID  atomic.Uint64
	mu      sync.RWMutex
	clients map[*Connection]struct{}
}

// NewServer creates a server recording finished games in store.
func NewServer(cfg Config, store highscore.Store, logger *log.Logger, opts ...Option) *Server {
	if cfg.Scorer == nil {
		cfg.Scorer = game.NewComboScorer()
	}
	_, seed := randutil.Resolve(cfg.Seed)

	s := &Server{
		config: cfg,
		store:  store,
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("server"),
		upgrader: websocket.Upgrader{
			// Players join from phones on the LAN, so any origin is accepted.
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		seed:    seed,
		clients: make(map[*Connection]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router = httprouter.New()
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/best", s.handleBestAll)
	s.router.GET("/best/:difficulty", s.handleBest)
	s.router.GET("/qr", s.handleQR)
	s.router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		s.logger.Error("Handler panicked", "path", r.URL.Path, "panic", v)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}

	return s
}

// Seed returns the base seed connections derive their generators from.
func (s *Server) Seed() int64 {
	return s.seed
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve listens on addr until ctx is cancelled, then closes every connection
// and shuts the HTTP server down.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       10 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting WebSocket server", "addr", addr, "seed", s.seed)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen on %s: %w", addr, err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down", "clients", s.ClientCount())
	s.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Stop closes every open connection.
func (s *Server) Stop() {
	s.mu.RLock()
	clients := make([]*Connection, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		_ = c.Close()
	}
}

// ClientCount returns the number of open connections.
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) register(c *Connection) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	total := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("Client connected", "conn", c.id, "total", total)
}

func (s *Server) unregister(c *Connection) {
	s.mu.Lock()
	delete(s.clients, c)
	total := len(s.clients)
	s.mu.Unlock()
	s.logger.Info("Client disconnected", "conn", c.id, "total", total)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	n := s.nextID.Add(1)
	id := "c" + strconv.FormatUint(n, 10)
	client := NewConnection(id, conn, s.logger,
		game.WithClock(s.clock),
		game.WithRNG(randutil.New(randutil.Derive(s.seed, int(n)))),
		game.WithLogger(s.logger),
		game.WithRules(s.config.Rules),
		game.WithTimings(s.config.Timings),
		game.WithScorer(s.config.Scorer),
		game.WithScoreKeeper(s.store),
	)

	s.register(client)
	go func() {
		<-client.Done()
		s.unregister(client)
	}()
	client.Start()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

type bestResponse struct {
	Difficulty game.Difficulty `json:"difficulty"`
	Score      int             `json:"score"`
}

func (s *Server) handleBest(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	d, err := game.ParseDifficulty(ps.ByName("difficulty"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	score, err := s.store.Best(r.Context(), d)
	if err != nil {
		s.logger.Error("Failed to read best score", "difficulty", d, "error", err)
		http.Error(w, "failed to read best score", http.StatusInternalServerError)
		return
	}

	writeJSON(w, bestResponse{Difficulty: d, Score: score})
}

func (s *Server) handleBestAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries, err := s.store.All(r.Context())
	if err != nil {
		s.logger.Error("Failed to list best scores", "error", err)
		http.Error(w, "failed to list best scores", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []highscore.Entry{}
	}
	writeJSON(w, entries)
}

// handleQR renders a PNG QR code of the join URL.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	url := s.config.PublicURL
	if url == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		url = scheme + "://" + r.Host + "/"
	}

	png, err := qrcode.Encode(url, qrcode.Medium, QRSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
