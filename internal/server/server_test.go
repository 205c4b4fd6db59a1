package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/alanyoungcy/fantasybet/internal/auth"
	"github.com/alanyoungcy/fantasybet/internal/server/handler"
	"github.com/alanyoungcy/fantasybet/internal/service"
	"github.com/alanyoungcy/fantasybet/internal/settlement"
	"github.com/alanyoungcy/fantasybet/internal/stats"
	"github.com/alanyoungcy/fantasybet/internal/store/memory"
)

type api struct {
	t   *testing.T
	srv *httptest.Server
}

func newAPI(t *testing.T) *api {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := memory.New()
	s := db.Stores()
	tokens := auth.NewTokens("0123456789abcdef", time.Hour)
	provider := stats.NewProvider(s.Scores, nil, logger)
	engine := settlement.NewEngine(s, db, settlement.Rules{}, logger)

	users := service.NewUserService(s, db, tokens, service.UserRules{
		StartingCoins:    decimal.NewFromInt(1000),
		CashOutThreshold: decimal.NewFromInt(10000),
		FantasyBudget:    10_000_000,
		BcryptCost:       bcrypt.MinCost,
		AdminUsernames:   []string{"root"},
	}, nil, logger)
	matches := service.NewMatchService(s, provider, engine, false, service.MatchDeps{}, logger)
	bets := service.NewBetService(s, db, provider, service.BettingRules{}, logger)
	fantasy := service.NewFantasyService(s, db, provider, logger)

	srv := NewServer(Config{}, Handlers{
		Health:  handler.NewHealthHandler(nil, logger),
		Users:   handler.NewUserHandler(users, logger),
		Matches: handler.NewMatchHandler(matches, logger),
		Bets:    handler.NewBetHandler(bets, logger),
		Fantasy: handler.NewFantasyHandler(fantasy, logger),
		Admin:   handler.NewAdminHandler(nil, s.Audit, logger),
	}, Security{Verifier: tokens}, nil, logger)

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &api{t: t, srv: ts}
}

func (a *api) do(method, path, token string, body any, out any) int {
	a.t.Helper()
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(a.t, err)
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, rd)
	require.NoError(a.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *api) register(name string) string {
	a.t.Helper()
	var sess struct {
		Token string `json:"token"`
	}
	code := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name, "password": "secret1",
	}, &sess)
	require.Equal(a.t, http.StatusCreated, code)
	return sess.Token
}

func TestHealth(t *testing.T) {
	a := newAPI(t)
	var body map[string]any
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/health", "", nil, &body))
	assert.Equal(t, "ok", body["status"])
}

func TestAccessControl(t *testing.T) {
	a := newAPI(t)
	ana := a.register("ana")

	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/bets/my", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, a.do(http.MethodGet, "/api/auth/me", "garbage", nil, nil))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodGet, "/api/users", ana, nil, nil))
	assert.Equal(t, http.StatusForbidden, a.do(http.MethodPost, "/api/fantasy/scores", ana,
		map[string]any{"scores": []any{}}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, a.do(http.MethodPost, "/api/admin/archive", a.register("root"), nil, nil))
}

func TestBetLifecycle(t *testing.T) {
	a := newAPI(t)
	root := a.register("root")
	ana := a.register("ana")

	var count map[string]int
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/fantasy/scores", root, map[string]any{
		"scores": []map[string]any{
			{"team": "Lions", "matchday": 1, "points": 80},
			{"team": "Lions", "matchday": 2, "points": 90},
			{"team": "Bears", "matchday": 1, "points": 60},
			{"team": "Bears", "matchday": 2, "points": 50},
		},
	}, &count))
	assert.Equal(t, 4, count["count"])

	var match struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/matches", root, map[string]any{
		"team1": "Lions", "team2": "Bears", "round": "R1",
		"betting_closes_at": time.Now().Add(time.Hour).UTC(),
	}, &match))
	assert.Equal(t, "open", match.Status)

	var view map[string]any
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/api/matches/%d", match.ID), "", nil, &view))
	assert.Contains(t, view, "betOptions")

	var bet struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	require.Equal(t, http.StatusCreated, a.do(http.MethodPost, "/api/bets", ana, map[string]any{
		"match_id": match.ID, "bet_type": "winner", "selection": "Lions", "amount": "100",
	}, &bet))
	assert.Equal(t, "pending", bet.Status)

	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/bets", ana, map[string]any{
		"match_id": match.ID, "bet_type": "winner", "selection": "Lions", "amount": "5000",
	}, nil))

	require.Equal(t, http.StatusOK, a.do(http.MethodPut, fmt.Sprintf("/api/matches/%d/result", match.ID), root,
		map[string]any{"score_team1": 90, "score_team2": 70}, nil))
	assert.Equal(t, http.StatusConflict, a.do(http.MethodPut, fmt.Sprintf("/api/matches/%d/result", match.ID), root,
		map[string]any{"score_team1": 90, "score_team2": 70}, nil))

	require.Equal(t, http.StatusOK, a.do(http.MethodGet, fmt.Sprintf("/api/bets/%d", bet.ID), ana, nil, &bet))
	assert.Equal(t, "won", bet.Status)

	var me struct {
		Coins decimal.Decimal `json:"coins"`
	}
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/auth/me", ana, nil, &me))
	assert.True(t, me.Coins.GreaterThan(decimal.NewFromInt(1000)))

	var txs []map[string]any
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/users/me/transactions", ana, nil, &txs))
	assert.Len(t, txs, 2)

	var audit []map[string]any
	require.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/admin/audit", root, nil, &audit))
	assert.NotEmpty(t, audit)
}

func TestMalformedBody(t *testing.T) {
	a := newAPI(t)
	ana := a.register("ana")
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodPost, "/api/bets", ana, map[string]any{"nope": 1}, nil))
	assert.Equal(t, http.StatusBadRequest, a.do(http.MethodGet, "/api/bets/abc", ana, nil, nil))
}
