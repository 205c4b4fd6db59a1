package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/service"
)

// MatchService is what MatchHandler needs from the service layer.
type MatchService interface {
	Teams(ctx context.Context) ([]string, error)
	Create(ctx context.Context, req service.CreateMatchRequest) (domain.Match, error)
	List(ctx context.Context) ([]service.MatchView, error)
	ListByStatus(ctx context.Context, status domain.MatchStatus) ([]service.MatchView, error)
	Get(ctx context.Context, id int64) (service.MatchView, error)
	UpdateBettingClose(ctx context.Context, id int64, at time.Time) (domain.Match, error)
	Delete(ctx context.Context, id int64) error
	Bets(ctx context.Context, id int64) ([]domain.Bet, error)
	Settle(ctx context.Context, id int64, res domain.MatchResult) (domain.SettlementReport, error)
	Resolve(ctx context.Context, id int64) (domain.SettlementReport, error)
	RecentSettlements(ctx context.Context, count int) ([]domain.SettlementReport, error)
}

// MatchHandler serves /api/matches.
type MatchHandler struct {
	matches MatchService
	logger  *slog.Logger
}

// NewMatchHandler creates a MatchHandler.
func NewMatchHandler(matches MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{matches: matches, logger: logger}
}

// Teams lists every team with fantasy scores.
// GET /api/matches/teams
func (h *MatchHandler) Teams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.matches.Teams(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list teams", err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// List returns every match with its bet options.
// GET /api/matches
func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.matches.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "list matches", err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

// ListByStatus returns a handler listing matches in one status.
// GET /api/matches/open, GET /api/matches/closed
func (h *MatchHandler) ListByStatus(status domain.MatchStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := h.matches.ListByStatus(r.Context(), status)
		if err != nil {
			writeServiceError(w, r, h.logger, "list matches", err)
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// Get returns one match.
// GET /api/matches/{id}
func (h *MatchHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "get match", err)
		return
	}
	view, err := h.matches.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "get match", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type createMatchRequest struct {
	Team1           string    `json:"team1"`
	Team2           string    `json:"team2"`
	Round           string    `json:"round"`
	BettingClosesAt time.Time `json:"betting_closes_at"`
}

// Create adds a fixture.
// POST /api/matches
func (h *MatchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "create match", err)
		return
	}
	m, err := h.matches.Create(r.Context(), service.CreateMatchRequest{
		Team1:           req.Team1,
		Team2:           req.Team2,
		Round:           req.Round,
		BettingClosesAt: req.BettingClosesAt,
	})
	if err != nil {
		writeServiceError(w, r, h.logger, "create match", err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

type updateMatchRequest struct {
	BettingClosesAt time.Time `json:"betting_closes_at"`
}

// Update moves the betting deadline.
// PUT /api/matches/{id}
func (h *MatchHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "update match", err)
		return
	}
	var req updateMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "update match", err)
		return
	}
	m, err := h.matches.UpdateBettingClose(r.Context(), id, req.BettingClosesAt)
	if err != nil {
		writeServiceError(w, r, h.logger, "update match", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// Delete removes a match without bets.
// DELETE /api/matches/{id}
func (h *MatchHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "delete match", err)
		return
	}
	if err := h.matches.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.logger, "delete match", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Bets lists the bets placed on a match.
// GET /api/matches/{id}/bets
func (h *MatchHandler) Bets(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "list match bets", err)
		return
	}
	bets, err := h.matches.Bets(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, "list match bets", err)
		return
	}
	writeJSON(w, http.StatusOK, bets)
}

type resultRequest struct {
	Score1   *int `json:"score_team1"`
	Score2   *int `json:"score_team2"`
	Captain1 *int `json:"captain_score_team1"`
	Captain2 *int `json:"captain_score_team2"`
}

// SetResult records the final score and settles the match.
// PUT /api/matches/{id}/result
func (h *MatchHandler) SetResult(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "settle match", err)
		return
	}
	var req resultRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "settle match", err)
		return
	}
	if req.Score1 == nil || req.Score2 == nil {
		writeError(w, http.StatusBadRequest, "score_team1 and score_team2 are required")
		return
	}
	report, err := h.matches.Settle(r.Context(), id, domain.MatchResult{
		Score1:   *req.Score1,
		Score2:   *req.Score2,
		Captain1: req.Captain1,
		Captain2: req.Captain2,
		At:       time.Now().UTC(),
	})
	h.writeSettlement(w, r, "settle match", report, err)
}

// Resolve re-runs bet resolution for a finished match.
// POST /api/matches/{id}/resolve
func (h *MatchHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, h.logger, "resolve match", err)
		return
	}
	report, err := h.matches.Resolve(r.Context(), id)
	h.writeSettlement(w, r, "resolve match", report, err)
}

// writeSettlement answers a settlement run. A run that recorded the result
// but left work pending gets 207 with the report, so the caller retries with
// /resolve instead of resubmitting the score.
func (h *MatchHandler) writeSettlement(w http.ResponseWriter, r *http.Request, op string, report domain.SettlementReport, err error) {
	if err != nil && !report.Incomplete {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: "+op+" incomplete",
			slog.Int64("match_id", report.MatchID),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusMultiStatus, report)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Settlements returns the most recent settlement reports.
// GET /api/matches/settlements?count=20
func (h *MatchHandler) Settlements(w http.ResponseWriter, r *http.Request) {
	count := 20
	if v := r.URL.Query().Get("count"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			count = min(n, 200)
		}
	}
	reports, err := h.matches.RecentSettlements(r.Context(), count)
	if err != nil {
		writeServiceError(w, r, h.logger, "recent settlements", err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}
