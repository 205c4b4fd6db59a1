package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/service"
)

// BetService is what BetHandler needs from the service layer.
type BetService interface {
	PlaceBet(ctx context.Context, userID int64, req service.PlaceBetRequest) (domain.Bet, error)
	PlaceParlay(ctx context.Context, userID int64, req service.PlaceParlayRequest) (domain.Parlay, error)
	CancelBet(ctx context.Context, userID, betID int64) (domain.Bet, decimal.Decimal, error)
	CancelParlay(ctx context.Context, userID, parlayID int64) (domain.Parlay, decimal.Decimal, error)
	GetBet(ctx context.Context, userID int64, isAdmin bool, betID int64) (domain.Bet, error)
	MyBets(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Bet, error)
	MyParlays(ctx context.Context, userID int64, opts domain.ListOpts) ([]domain.Parlay, error)
	Public(ctx context.Context, opts domain.ListOpts) (service.PublicFeed, error)
}

// BetHandler serves /api/bets.
type BetHandler struct {
	bets   BetService
	logger *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(bets BetService, logger *slog.Logger) *BetHandler {
	return &BetHandler{bets: bets, logger: logger}
}

type legRequest struct {
	MatchID   int64             `json:"match_id"`
	BetType   domain.MarketType `json:"bet_type"`
	Selection string            `json:"selection"`
	Odds      *float64          `json:"odds,omitempty"`
}

type placeBetRequest struct {
	legRequest
	Amount decimal.Decimal `json:"amount"`
}

type placeParlayRequest struct {
	Bets   []legRequest    `json:"bets"`
	Amount decimal.Decimal `json:"amount"`
}

type refundResponse struct {
	Refund decimal.Decimal `json:"refund"`
	Bet    *domain.Bet     `json:"bet,omitempty"`
	Parlay *domain.Parlay  `json:"parlay,omitempty"`
}

// Place creates a single bet.
// POST /api/bets
func (h *BetHandler) Place(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req placeBetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "place bet", err)
		return
	}
	bet, err := h.bets.PlaceBet(r.Context(), c.UserID, service.PlaceBetRequest{
		MatchID:   req.MatchID,
		Market:    req.BetType,
		Selection: req.Selection,
		Amount:    req.Amount,
		Odds:      req.Odds,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "place bet", err)
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}

// PlaceParlay creates a parlay from two or more legs.
// POST /api/bets/parlay
func (h *BetHandler) PlaceParlay(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	var req placeParlayRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "place parlay", err)
		return
	}
	legs := make([]service.LegRequest, len(req.Bets))
	for i, l := range req.Bets {
		legs[i] = service.LegRequest{MatchID: l.MatchID, Market: l.BetType, Selection: l.Selection, Odds: l.Odds}
	}
	p, err := h.bets.PlaceParlay(r.Context(), c.UserID, service.PlaceParlayRequest{Legs: legs, Amount: req.Amount})
	if err != nil {
		writeServiceError(w, r, h.logger, "place parlay", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Cancel withdraws a pending single bet.
// POST /api/bets/{id}/cancel
func (h *BetHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "cancel bet", err)
		return
	}
	bet, refund, err := h.bets.CancelBet(r.Context(), c.UserID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "cancel bet", err)
		return
	}
	writeJSON(w, http.StatusOK, refundResponse{Refund: refund, Bet: &bet})
}

// CancelParlay withdraws a parlay whose legs are all pending.
// POST /api/bets/parlay/{id}/cancel
func (h *BetHandler) CancelParlay(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "cancel parlay", err)
		return
	}
	p, refund, err := h.bets.CancelParlay(r.Context(), c.UserID, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "cancel parlay", err)
		return
	}
	writeJSON(w, http.StatusOK, refundResponse{Refund: refund, Parlay: &p})
}

// Get returns one bet owned by the caller.
// GET /api/bets/{id}
func (h *BetHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "get bet", err)
		return
	}
	bet, err := h.bets.GetBet(r.Context(), c.UserID, c.IsAdmin, id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get bet", err)
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// Mine lists the caller's single bets.
// GET /api/bets/my
func (h *BetHandler) Mine(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	bets, err := h.bets.MyBets(r.Context(), c.UserID, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list bets", err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

// MyParlays lists the caller's parlays.
// GET /api/bets/my-parlays
func (h *BetHandler) MyParlays(w http.ResponseWriter, r *http.Request) {
	c, ok := caller(w, r)
	if !ok {
		return
	}
	parlays, err := h.bets.MyParlays(r.Context(), c.UserID, parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "list parlays", err)
		return
	}
	writeJSON(w, http.StatusOK, parlays)
}

// Public returns everyone's recent bets.
// GET /api/bets/public
func (h *BetHandler) Public(w http.ResponseWriter, r *http.Request) {
	feed, err := h.bets.Public(r.Context(), parseListOpts(r))
	if err != nil {
		writeServiceError(w, r, h.logger, "public bets", err)
		return
	}
	writeJSON(w, http.StatusOK, feed)
}
