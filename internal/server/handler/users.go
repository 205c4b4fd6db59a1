package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/service"
)

// UserService is what the auth and user handlers need from the service
// layer.
type UserService interface {
	Register(ctx context.Context, username, password string) (domain.User, error)
	Login(ctx context.Context, username, password string) (service.Session, error)
	Get(ctx context.Context, callerID int64, isAdmin bool, id int64) (domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Leaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error)
	CashOut(ctx context.Context, callerID, id int64) (service.CashOutResult, error)
	SetCoins(ctx context.Context, adminID, id int64, coins decimal.Decimal, reason string) (domain.User, error)
	Transactions(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Transaction, error)
}

// UserHandler serves /api/auth and /api/users.
type UserHandler struct {
	users  UserService
	logger *slog.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(users UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{users: users, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates an account and logs it in.
// POST /api/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "register", err)
		return
	}
	if _, err := h.users.Register(r.Context(), req.Username, req.Password); err != nil {
		writeServiceError(w, r, h.logger, "register", err)
		return
	}
	session, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, "register", err)
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

// Login issues a token.
// POST /api/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "login", err)
		return
	}
	session, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(w, r, h.logger, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// Me returns the caller's account.
// GET /api/auth/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), c.UserID, c.IsAdmin, c.UserID)
	if err != nil {
		writeServiceError(w, r, h.logger, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// List returns every user.
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list users", err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// Leaderboard returns users by balance.
// GET /api/users/leaderboard
func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	entries, err := h.users.Leaderboard(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// Transactions returns the caller's ledger.
// GET /api/users/me/transactions?limit=50&offset=0
func (h *UserHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	txs, err := h.users.Transactions(r.Context(), c.UserID, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list transactions", err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

// Get returns one user. Non-admins may only read themselves.
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "get user", err)
		return
	}
	u, err := h.users.Get(r.Context(), c.UserID, c.IsAdmin, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get user", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

// CashOut converts the threshold amount of coins into fantasy budget.
// POST /api/users/{id}/cash-out
func (h *UserHandler) CashOut(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "cash out", err)
		return
	}
	res, err := h.users.CashOut(r.Context(), c.UserID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "cash out", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type setCoinsRequest struct {
	Coins  decimal.Decimal `json:"coins"`
	Reason string          `json:"reason"`
}

// SetCoins overwrites a balance.
// PUT /api/users/{id}/coins
func (h *UserHandler) SetCoins(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "set coins", err)
		return
	}
	var req setCoinsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "set coins", err)
		return
	}
	u, err := h.users.SetCoins(r.Context(), c.UserID, id, req.Coins, req.Reason)
	if err != nil {
		writeServiceError(w, r, h.logger, "set coins", err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
