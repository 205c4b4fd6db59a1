package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/stats"
)

// FantasyService is what FantasyHandler needs from the service layer.
type FantasyService interface {
	UpsertScores(ctx context.Context, scores []domain.FantasyScore) (int, error)
	Classification(ctx context.Context) ([]domain.ClassificationRow, error)
	Matchday(ctx context.Context, matchday int) ([]domain.FantasyScore, error)
	All(ctx context.Context) ([]domain.FantasyScore, error)
	Team(ctx context.Context, team string) ([]domain.FantasyScore, error)
	Standings(ctx context.Context) ([]stats.Standing, error)
}

// FantasyHandler serves /api/fantasy.
type FantasyHandler struct {
	fantasy FantasyService
	logger  *slog.Logger
}

// NewFantasyHandler creates a FantasyHandler.
func NewFantasyHandler(fantasy FantasyService, logger *slog.Logger) *FantasyHandler {
	return &FantasyHandler{fantasy: fantasy, logger: logger}
}

type scoreInput struct {
	Team     string  `json:"team"`
	Matchday int     `json:"matchday"`
	Points   float64 `json:"points"`
}

type upsertScoresRequest struct {
	Scores []scoreInput `json:"scores"`
}

// Upsert stores a batch of matchday scores.
// POST /api/fantasy/scores
func (h *FantasyHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertScoresRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, h.logger, "upsert scores", err)
		return
	}
	scores := make([]domain.FantasyScore, len(req.Scores))
	for i, s := range req.Scores {
		scores[i] = domain.FantasyScore{Team: s.Team, Matchday: s.Matchday, Points: s.Points}
	}
	n, err := h.fantasy.UpsertScores(r.Context(), scores)
	if err != nil {
		writeServiceError(w, r, h.logger, "upsert scores", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"count": n})
}

// Classification returns total points per team.
// GET /api/fantasy/classification
func (h *FantasyHandler) Classification(w http.ResponseWriter, r *http.Request) {
	rows, err := h.fantasy.Classification(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "classification", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Standings returns the league table with derived stats.
// GET /api/fantasy/standings
func (h *FantasyHandler) Standings(w http.ResponseWriter, r *http.Request) {
	rows, err := h.fantasy.Standings(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "standings", err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// Matchday returns the scores of one matchday.
// GET /api/fantasy/matchdays/{matchday}
func (h *FantasyHandler) Matchday(w http.ResponseWriter, r *http.Request) {
	md, err := strconv.Atoi(r.PathValue("matchday"))
	if err != nil || md < 1 {
		writeError(w, http.StatusBadRequest, "matchday must be a positive integer")
		return
	}
	scores, err := h.fantasy.Matchday(r.Context(), md)
	if err != nil {
		writeServiceError(w, r, h.logger, "matchday scores", err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// All returns every stored score.
// GET /api/fantasy/all
func (h *FantasyHandler) All(w http.ResponseWriter, r *http.Request) {
	scores, err := h.fantasy.All(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "all scores", err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}

// Team returns one team's scores.
// GET /api/fantasy/team/{team}
func (h *FantasyHandler) Team(w http.ResponseWriter, r *http.Request) {
	scores, err := h.fantasy.Team(r.Context(), r.PathValue("team"))
	if err != nil {
		writeServiceError(w, r, h.logger, "team scores", err)
		return
	}
	writeJSON(w, http.StatusOK, scores)
}
