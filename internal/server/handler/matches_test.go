package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

type settleStub struct {
	MatchService
	report domain.SettlementReport
	err    error
}

func (s *settleStub) Settle(context.Context, int64, domain.MatchResult) (domain.SettlementReport, error) {
	return s.report, s.err
}

func (s *settleStub) Resolve(context.Context, int64) (domain.SettlementReport, error) {
	return s.report, s.err
}

func settle(t *testing.T, svc MatchService) *httptest.ResponseRecorder {
	t.Helper()
	h := NewMatchHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	req := httptest.NewRequest(http.MethodPost, "/api/matches/7/result", strings.NewReader(`{"score_team1":90,"score_team2":70}`))
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.SetResult(rec, req)
	return rec
}

func TestSetResultIncompleteReturnsReport(t *testing.T) {
	rec := settle(t, &settleStub{
		report: domain.SettlementReport{MatchID: 7, BetsWon: 3, Incomplete: true},
		err:    errors.New("settlement: update bet 9: connection reset"),
	})
	assert.Equal(t, http.StatusMultiStatus, rec.Code)

	var body domain.SettlementReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.True(t, body.Incomplete)
	assert.Equal(t, int64(7), body.MatchID)
	assert.Equal(t, 3, body.BetsWon)
}

func TestSetResultErrors(t *testing.T) {
	rec := settle(t, &settleStub{err: errors.New("boom")})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = settle(t, &settleStub{err: domain.ErrConflict})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = settle(t, &settleStub{report: domain.SettlementReport{MatchID: 7, BetsWon: 1}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "incomplete")
}

func TestResolveIncompleteReturnsReport(t *testing.T) {
	h := NewMatchHandler(&settleStub{
		report: domain.SettlementReport{MatchID: 7, Incomplete: true},
		err:    errors.New("settlement: list pending parlays: timeout"),
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	req := httptest.NewRequest(http.MethodPost, "/api/matches/7/resolve", nil)
	req.SetPathValue("id", "7")
	rec := httptest.NewRecorder()
	h.Resolve(rec, req)
	assert.Equal(t, http.StatusMultiStatus, rec.Code)
}
