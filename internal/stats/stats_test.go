package stats

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

func TestCompute(t *testing.T) {
	s := Compute([]float64{85, 100, 60})
	assert.Equal(t, Stats{Average: 81.67, Total: 245, Max: 100, Min: 60, GamesPlayed: 3}, s)
}

func TestComputeSkipsByeMatchdays(t *testing.T) {
	s := Compute([]float64{71, 43, 0, 59, -1})
	assert.Equal(t, 3, s.GamesPlayed)
	assert.Equal(t, 173.0, s.Total)
	assert.Equal(t, 43.0, s.Min)
	assert.Equal(t, 71.0, s.Max)
	assert.Equal(t, 57.67, s.Average)
}

func TestComputeNoPositiveScores(t *testing.T) {
	assert.Equal(t, Stats{}, Compute([]float64{0, 0, 0}))
	assert.Equal(t, Stats{}, Compute(nil))
}

func TestTableStandings(t *testing.T) {
	table := NewTable([]domain.TeamScores{
		{Team: "Low", Points: []float64{10, 20}},
		{Team: "TieFirst", Points: []float64{50, 50}},
		{Team: "Ghost", Points: []float64{0, 0}},
		{Team: "TieSecond", Points: []float64{40, 60}},
		{Team: "Top", Points: []float64{90, 80}},
	})

	standings := table.Standings()
	require.Len(t, standings, 5)

	var order []string
	for i, s := range standings {
		assert.Equal(t, i+1, s.Position)
		order = append(order, s.Team)
	}
	assert.Equal(t, []string{"Top", "TieFirst", "TieSecond", "Low", "Ghost"}, order)

	pos, ok := table.Position("TieSecond")
	require.True(t, ok)
	assert.Equal(t, 3, pos)

	assert.Equal(t, []string{"Low", "TieFirst", "TieSecond", "Top"}, table.Teams())
	assert.True(t, table.Known("Ghost"))
}

func TestTableUnknownTeam(t *testing.T) {
	table := NewTable(nil)

	_, ok := table.StatsFor("Nobody")
	assert.False(t, ok)
	_, ok = table.Position("Nobody")
	assert.False(t, ok)
	assert.Empty(t, table.Standings())
}

type scoreStoreStub struct {
	domain.ScoreStore
	rows  []domain.TeamScores
	calls int
}

func (s *scoreStoreStub) TeamScores(context.Context) ([]domain.TeamScores, error) {
	s.calls++
	return s.rows, nil
}

type standingsCacheStub struct {
	rows        []domain.TeamScores
	invalidated bool
}

func (c *standingsCacheStub) Get(context.Context) ([]domain.TeamScores, error) {
	if c.rows == nil {
		return nil, domain.ErrNotFound
	}
	return c.rows, nil
}

func (c *standingsCacheStub) Set(_ context.Context, rows []domain.TeamScores) error {
	c.rows = rows
	return nil
}

func (c *standingsCacheStub) Invalidate(context.Context) error {
	c.rows = nil
	c.invalidated = true
	return nil
}

func TestProviderUsesCache(t *testing.T) {
	ctx := context.Background()
	store := &scoreStoreStub{rows: []domain.TeamScores{{Team: "A", Points: []float64{10}}}}
	cache := &standingsCacheStub{}
	p := NewProvider(store, cache, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.Table(ctx)
	require.NoError(t, err)
	table, err := p.Table(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls)
	s, ok := table.StatsFor("A")
	require.True(t, ok)
	assert.Equal(t, 10.0, s.Average)

	p.Invalidate(ctx)
	assert.True(t, cache.invalidated)
	_, err = p.Table(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, store.calls)
}

func TestProviderWithoutCache(t *testing.T) {
	store := &scoreStoreStub{}
	p := NewProvider(store, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	_, err := p.Table(context.Background())
	require.NoError(t, err)
	_, err = p.Table(context.Background())
	require.NoError(t, err)
	p.Invalidate(context.Background())
	assert.Equal(t, 2, store.calls)
}
