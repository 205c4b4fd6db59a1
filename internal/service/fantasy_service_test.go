package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

func TestUpsertScoresValidatesWholeBatch(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})

	_, err := e.fantasy.UpsertScores(ctx, []domain.FantasyScore{
		{Team: "Sharks", Matchday: 3, Points: 50},
		{Team: "Sharks", Matchday: 0, Points: 50},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = e.fantasy.Team(ctx, "Sharks")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpsertScoresUpdatesStandings(t *testing.T) {
	ctx := context.Background()
	e := newEnv(t, BettingRules{})

	before, err := e.fantasy.Standings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Lions", before[0].Team)

	n, err := e.fantasy.UpsertScores(ctx, []domain.FantasyScore{
		{Team: "Bears", Matchday: 3, Points: 200},
		{Team: "Sharks", Matchday: 3, Points: 10},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	after, err := e.fantasy.Standings(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Bears", after[0].Team)
	assert.Equal(t, 320.0, after[0].Total)

	rows, err := e.fantasy.Classification(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, domain.ClassificationRow{Team: "Bears", TotalPoints: 320, MatchdaysPlayed: 3}, rows[0])

	day3, err := e.fantasy.Matchday(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, day3, 2)

	_, err = e.fantasy.Matchday(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
