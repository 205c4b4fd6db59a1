package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

func TestCreateMatchValidation(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	closes := time.Now().Add(time.Hour)

	tests := []struct {
		name string
		req  CreateMatchRequest
		want error
	}{
		{"missing team", CreateMatchRequest{Team1: "Lions", BettingClosesAt: closes}, domain.ErrInvalidInput},
		{"same team", CreateMatchRequest{Team1: "Lions", Team2: "Lions", BettingClosesAt: closes}, domain.ErrInvalidInput},
		{"unknown team", CreateMatchRequest{Team1: "Lions", Team2: "Sharks", BettingClosesAt: closes}, domain.ErrInvalidInput},
		{"no deadline", CreateMatchRequest{Team1: "Lions", Team2: "Bears"}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.matches.Create(ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	e.match(t, "Lions", "Bears")
	_, err := e.matches.Create(ctx, CreateMatchRequest{Team1: "Lions", Team2: "Bears", Round: "R1", BettingClosesAt: closes})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestMatchViewsCarryBetOptions(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	m := e.match(t, "Lions", "Bears")

	v, err := e.matches.Get(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, v.BetOptions)
	assert.Equal(t, "Lions", v.BetOptions.Match.Team1.Name)
	assert.Nil(t, v.BetOptions.Margins)

	open, err := e.matches.ListByStatus(ctx, domain.MatchStatusOpen)
	require.NoError(t, err)
	assert.Len(t, open, 1)

	teams, err := e.matches.Teams(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Lions", "Bears", "Wolves", "Eagles"}, teams)
}

func TestListClosesExpiredMatches(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	m := e.match(t, "Lions", "Bears")
	require.NoError(t, e.s.Matches.UpdateBettingClose(ctx, m.ID, time.Now().Add(-time.Second)))

	closed, err := e.matches.ListByStatus(ctx, domain.MatchStatusClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, m.ID, closed[0].ID)
}

func TestDeleteMatchWithBets(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	u := e.user(t, "ana", 1000)
	m := e.match(t, "Lions", "Bears")
	empty := e.match(t, "Wolves", "Eagles")

	_, err := e.bets.PlaceBet(ctx, u.ID, winnerReq(m, "Lions", 10))
	require.NoError(t, err)

	assert.ErrorIs(t, e.matches.Delete(ctx, m.ID), domain.ErrConflict)
	require.NoError(t, e.matches.Delete(ctx, empty.ID))
	_, err = e.matches.Get(ctx, empty.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateBettingCloseOnFinishedMatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	m := e.match(t, "Lions", "Bears")

	_, err := e.matches.Settle(ctx, m.ID, domain.MatchResult{Score1: 1, Score2: 0})
	require.NoError(t, err)
	_, err = e.matches.UpdateBettingClose(ctx, m.ID, time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestSettlePublishesAndNotifies(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	u := e.user(t, "ana", 1000)
	m := e.match(t, "Lions", "Bears")
	_, err := e.bets.PlaceBet(ctx, u.ID, winnerReq(m, "Bears", 10))
	require.NoError(t, err)

	report, err := e.matches.Settle(ctx, m.ID, domain.MatchResult{Score1: 90, Score2: 70})
	require.NoError(t, err)
	assert.Equal(t, 1, report.BetsLost)

	require.Len(t, e.bus.published, 1)
	var got domain.SettlementReport
	require.NoError(t, json.Unmarshal(e.bus.published[0], &got))
	assert.Equal(t, m.ID, got.MatchID)
	assert.Equal(t, "Lions", got.Outcome.Winner)
	assert.Equal(t, []string{"match_settled"}, e.notifier.events)

	recent, err := e.matches.RecentSettlements(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, m.ID, recent[0].MatchID)

	entries, err := e.s.Audit.List(ctx, domain.ListOpts{})
	require.NoError(t, err)
	require.NotEmpty(t, entries)
	assert.Equal(t, "match_settled", entries[0].Event)
}

func TestSettleRefusedWhileLocked(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	m := e.match(t, "Lions", "Bears")

	unlock, err := e.matches.deps.Locks.Acquire(ctx, fmt.Sprintf("settle:match:%d", m.ID), time.Minute)
	require.NoError(t, err)

	_, err = e.matches.Settle(ctx, m.ID, domain.MatchResult{Score1: 1, Score2: 0})
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	unlock()

	_, err = e.matches.Settle(ctx, m.ID, domain.MatchResult{Score1: 1, Score2: 0})
	assert.NoError(t, err)
}

func TestResolveFinishedMatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})
	m := e.match(t, "Lions", "Bears")

	_, err := e.matches.Resolve(ctx, m.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.matches.Settle(ctx, m.ID, domain.MatchResult{Score1: 1, Score2: 0})
	require.NoError(t, err)
	_, err = e.matches.Resolve(ctx, m.ID)
	assert.NoError(t, err)
}
