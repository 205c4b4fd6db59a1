package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/server/handler"
	"github.com/alanyoungcy/fantasybet/internal/server/middleware"
	"github.com/alanyoungcy/fantasybet/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port               int
	CORSOrigins        []string
	RateLimitPerMinute int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Users   *handler.UserHandler
	Matches *handler.MatchHandler
	Bets    *handler.BetHandler
	Fantasy *handler.FantasyHandler
	Admin   *handler.AdminHandler
}

// Security holds the middleware collaborators. A nil Limiter disables rate
// limiting.
type Security struct {
	Verifier middleware.Verifier
	Limiter  domain.RateLimiter
}

// Server is the HTTP + WebSocket API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a Server with all routes registered. wsHub may be nil
// when no signal bus is configured.
func NewServer(cfg Config, h Handlers, sec Security, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()
	user := func(f http.HandlerFunc) http.Handler { return middleware.RequireUser(f) }
	admin := func(f http.HandlerFunc) http.Handler { return middleware.RequireAdmin(f) }

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)

	mux.HandleFunc("POST /api/auth/register", h.Users.Register)
	mux.HandleFunc("POST /api/auth/login", h.Users.Login)
	mux.Handle("GET /api/auth/me", user(h.Users.Me))

	mux.HandleFunc("GET /api/matches", h.Matches.List)
	mux.HandleFunc("GET /api/matches/teams", h.Matches.Teams)
	mux.HandleFunc("GET /api/matches/open", h.Matches.ListByStatus(domain.MatchStatusOpen))
	mux.HandleFunc("GET /api/matches/closed", h.Matches.ListByStatus(domain.MatchStatusClosed))
	mux.HandleFunc("GET /api/matches/settlements", h.Matches.Settlements)
	mux.HandleFunc("GET /api/matches/{id}", h.Matches.Get)
	mux.Handle("POST /api/matches", admin(h.Matches.Create))
	mux.Handle("PUT /api/matches/{id}", admin(h.Matches.Update))
	mux.Handle("DELETE /api/matches/{id}", admin(h.Matches.Delete))
	mux.Handle("PUT /api/matches/{id}/result", admin(h.Matches.SetResult))
	mux.Handle("POST /api/matches/{id}/resolve", admin(h.Matches.Resolve))
	mux.Handle("GET /api/matches/{id}/bets", admin(h.Matches.Bets))

	mux.Handle("GET /api/bets/public", user(h.Bets.Public))
	mux.Handle("GET /api/bets/my", user(h.Bets.Mine))
	mux.Handle("GET /api/bets/my-parlays", user(h.Bets.MyParlays))
	mux.Handle("GET /api/bets/{id}", user(h.Bets.Get))
	mux.Handle("POST /api/bets", user(h.Bets.Place))
	mux.Handle("POST /api/bets/parlay", user(h.Bets.PlaceParlay))
	mux.Handle("POST /api/bets/{id}/cancel", user(h.Bets.Cancel))
	mux.Handle("POST /api/bets/parlay/{id}/cancel", user(h.Bets.CancelParlay))

	mux.Handle("GET /api/users", admin(h.Users.List))
	mux.HandleFunc("GET /api/users/leaderboard", h.Users.Leaderboard)
	mux.Handle("GET /api/users/me/transactions", user(h.Users.Transactions))
	mux.Handle("GET /api/users/{id}", user(h.Users.Get))
	mux.Handle("POST /api/users/{id}/cash-out", user(h.Users.CashOut))
	mux.Handle("PUT /api/users/{id}/coins", admin(h.Users.SetCoins))

	mux.Handle("GET /api/fantasy/classification", user(h.Fantasy.Classification))
	mux.Handle("GET /api/fantasy/standings", user(h.Fantasy.Standings))
	mux.Handle("GET /api/fantasy/matchdays/{matchday}", user(h.Fantasy.Matchday))
	mux.Handle("GET /api/fantasy/all", user(h.Fantasy.All))
	mux.Handle("GET /api/fantasy/team/{team}", user(h.Fantasy.Team))
	mux.Handle("POST /api/fantasy/scores", admin(h.Fantasy.Upsert))

	mux.Handle("POST /api/admin/archive", admin(h.Admin.RunArchive))
	mux.Handle("GET /api/admin/archives", admin(h.Admin.Archives))
	mux.Handle("GET /api/admin/audit", admin(h.Admin.Audit))

	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	var root http.Handler = mux
	root = middleware.Authenticate(sec.Verifier)(root)
	if sec.Limiter != nil && cfg.RateLimitPerMinute > 0 {
		root = middleware.RateLimit(sec.Limiter, cfg.RateLimitPerMinute, time.Minute, logger)(root)
	}
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	readTimeout, writeTimeout := cfg.ReadTimeout, cfg.WriteTimeout
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           root,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       60 * time.Second,
		},
		logger: logger,
	}
}

// Handler returns the fully wrapped root handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
