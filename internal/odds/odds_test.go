package odds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/stats"
)

func impliedSum(o1, o2 float64) float64 {
	return 1/o1 + 1/o2
}

type fakeTable map[string]struct {
	avg float64
	pos int
}

func (f fakeTable) StatsFor(team string) (stats.Stats, bool) {
	t, ok := f[team]
	if !ok {
		return stats.Stats{}, false
	}
	return stats.Stats{Average: t.avg}, true
}

func (f fakeTable) Position(team string) (int, bool) {
	t, ok := f[team]
	if !ok {
		return 0, false
	}
	return t.pos, true
}

func TestProbabilityToOdds(t *testing.T) {
	for _, p := range []float64{0.01, 0.1, 0.25, 0.333, 0.5, 0.58, 0.8, 0.99} {
		got, err := ProbabilityToOdds(p)
		require.NoError(t, err)
		assert.Equal(t, math.Round((1/p)/1.05*100)/100, got, "p=%v", p)
	}

	got, err := ProbabilityToOdds(0.5)
	require.NoError(t, err)
	assert.Equal(t, 1.90, got)
}

func TestProbabilityToOddsRejectsOutOfRange(t *testing.T) {
	for _, p := range []float64{0, -0.1, 1, 1.5, math.NaN()} {
		_, err := ProbabilityToOdds(p)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "p=%v", p)
	}
}

func TestNormalizeDualOdds(t *testing.T) {
	o1, o2 := NormalizeDualOdds(1.85, 1.85)
	assert.Equal(t, 1.90, o1)
	assert.Equal(t, 1.90, o2)

	o1, o2 = NormalizeDualOdds(1.90, 1.80)
	assert.Equal(t, 1.96, o1)
	assert.Equal(t, 1.85, o2)

	// Already inside the tolerance band.
	o1, o2 = NormalizeDualOdds(1.64, 2.27)
	assert.Equal(t, 1.64, o1)
	assert.Equal(t, 2.27, o2)
}

func TestNormalizeDualOddsLandsOnBookAndIsIdempotent(t *testing.T) {
	prices := []float64{1.1, 1.25, 1.5, 1.85, 1.9, 2.0, 2.27, 2.5, 3.0, 3.33, 4.0, 5.0, 6.0, 8.0, 10.0}
	for _, a := range prices {
		for _, b := range prices {
			n1, n2 := NormalizeDualOdds(a, b)
			assert.InDelta(t, 1.05, impliedSum(n1, n2), 0.01, "pair %v/%v", a, b)

			r1, r2 := NormalizeDualOdds(n1, n2)
			assert.Equal(t, n1, r1)
			assert.Equal(t, n2, r2)
		}
	}
}

func TestStrength(t *testing.T) {
	assert.InDelta(t, 90.4, Strength(80, 1), 1e-9)
	assert.InDelta(t, 65.4, Strength(60, 5), 1e-9)
	assert.InDelta(t, 70.0, Strength(70, 14), 1e-9)
	assert.InDelta(t, 10.5, Strength(70, DefaultPosition), 1e-9)
}

func TestMatchMarketScenario(t *testing.T) {
	table := fakeTable{"A": {80, 1}, "B": {60, 5}}

	opts, err := GenerateBetOptions(table, "A", "B", Options{})
	require.NoError(t, err)

	assert.Equal(t, TeamOdds{Name: "A", Odds: 1.64, Average: 80, Position: 1}, opts.Match.Team1)
	assert.Equal(t, TeamOdds{Name: "B", Odds: 2.27, Average: 60, Position: 5}, opts.Match.Team2)
	assert.Nil(t, opts.Margins)
}

func TestMatchMarketClampsAfterNormalizing(t *testing.T) {
	table := fakeTable{"Giant": {100, 1}, "Minnow": {5, 14}}

	opts, err := GenerateBetOptions(table, "Giant", "Minnow", Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.10, opts.Match.Team1.Odds)
	assert.Equal(t, 10.00, opts.Match.Team2.Odds)
}

func TestGenerateBetOptionsWithoutStrength(t *testing.T) {
	table := fakeTable{"A": {80, 1}, "Ghost": {0, 15}}

	_, err := GenerateBetOptions(table, "Nobody", "Unknown", Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = GenerateBetOptions(table, "A", "Ghost", Options{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLookupUnknownTeam(t *testing.T) {
	table := stats.NewTable([]domain.TeamScores{
		{Team: "A", Points: []float64{80, 80}},
	})

	assert.Equal(t, teamInput{name: "A", average: 80, position: 1}, lookup(table, "A"))
	assert.Equal(t, teamInput{name: "B", average: 0, position: DefaultPosition}, lookup(table, "B"))
}

func TestCaptainMarket(t *testing.T) {
	tests := []struct {
		avg      float64
		odds     float64
		expected float64
	}{
		{100, 1.43, 25},
		{80, 1.33, 20},
		{60, 1.30, 15},
		{50, 1.33, 12.5},
		{40, 1.67, 10},
		{32, 2.22, 8},
		{20, 3.33, 5},
		{0, 3.33, 0},
	}
	for _, tt := range tests {
		got := captainMarket(teamInput{name: "T", average: tt.avg, position: 1})
		assert.Equal(t, tt.odds, got.Odds, "avg=%v", tt.avg)
		assert.Equal(t, tt.expected, got.CaptainExpected, "avg=%v", tt.avg)
		assert.Equal(t, CaptainThreshold, got.Threshold)
	}
}

func TestCaptainExpectedRoundsToOneDecimal(t *testing.T) {
	got := captainMarket(teamInput{name: "T", average: 67.93})
	assert.Equal(t, 17.0, got.CaptainExpected)
}

func TestOverUnderMarket(t *testing.T) {
	got := overUnderMarket(teamInput{average: 70}, teamInput{average: 75})
	assert.Equal(t, OverUnderMarket{Line: 145, ExpectedTotal: 145, OverOdds: 1.90, UnderOdds: 1.90}, got)

	got = overUnderMarket(teamInput{average: 72.4}, teamInput{average: 70})
	assert.Equal(t, 140, got.Line)
	assert.Equal(t, 142.4, got.ExpectedTotal)

	// Halves round up like the line in the published markets.
	got = overUnderMarket(teamInput{average: 72.5}, teamInput{average: 70})
	assert.Equal(t, 145, got.Line)
}

func TestMarginMarketBehindFlag(t *testing.T) {
	table := fakeTable{"A": {80, 1}, "B": {60, 5}}

	opts, err := GenerateBetOptions(table, "A", "B", Options{MarginMarket: true})
	require.NoError(t, err)
	require.NotNil(t, opts.Margins)
	assert.Equal(t, MarginOdds{Name: "A", Plus5: 2.95, Plus10: 4.1, Plus20: 8.2}, opts.Margins.Team1)

	q, err := opts.Quote(domain.Selection{Market: domain.MarketMargin, Team: "B", Threshold: 10})
	require.NoError(t, err)
	assert.Equal(t, Round2(2.27*2.5), q)

	_, err = opts.Quote(domain.Selection{Market: domain.MarketMargin, Team: "B", Threshold: 15})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	off, err := GenerateBetOptions(table, "A", "B", Options{})
	require.NoError(t, err)
	_, err = off.Quote(domain.Selection{Market: domain.MarketMargin, Team: "A", Threshold: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBetOptionsSymmetry(t *testing.T) {
	table := stats.NewTable([]domain.TeamScores{
		{Team: "Jaume Creixell U.E.", Points: []float64{85, 100, 60, 75, 64, 88, 73}},
		{Team: "CE FerranitoPito", Points: []float64{86, 51, 91, 35, 72, 61, 80}},
		{Team: "pepe rubianes", Points: []float64{71, 43, 50, 59, 0, 83, 61}},
		{Team: "Catllaneta", Points: []float64{50, 68, 42, 20, 47, 63, 31}},
		{Team: "Ao Tat Kha FC", Points: []float64{34, 47, 37, 43, 23, 39, 60}},
	})
	teams := table.Teams()

	for _, a := range teams {
		for _, b := range teams {
			if a == b {
				continue
			}
			ab, err := GenerateBetOptions(table, a, b, Options{MarginMarket: true})
			require.NoError(t, err)
			ba, err := GenerateBetOptions(table, b, a, Options{MarginMarket: true})
			require.NoError(t, err)

			assert.Equal(t, ab.Match.Team1, ba.Match.Team2, "%s vs %s", a, b)
			assert.Equal(t, ab.Match.Team2, ba.Match.Team1, "%s vs %s", a, b)
			assert.Equal(t, ab.Captain.Team1, ba.Captain.Team2)
			assert.Equal(t, ab.Margins.Team1, ba.Margins.Team2)
			assert.Equal(t, ab.OverUnder, ba.OverUnder, "%s vs %s", a, b)

			for _, o := range []float64{ab.Match.Team1.Odds, ab.Match.Team2.Odds, ab.OverUnder.OverOdds, ab.Captain.Team1.Odds} {
				assert.Greater(t, o, 0.0)
				assert.Equal(t, Round2(o), o)
			}
		}
	}
}

func TestQuote(t *testing.T) {
	table := fakeTable{"A": {80, 1}, "B": {60, 5}}
	opts, err := GenerateBetOptions(table, "A", "B", Options{})
	require.NoError(t, err)

	q, err := opts.Quote(domain.Selection{Market: domain.MarketWinner, Team: "B"})
	require.NoError(t, err)
	assert.Equal(t, 2.27, q)

	q, err = opts.Quote(domain.Selection{Market: domain.MarketCaptain, Team: "A"})
	require.NoError(t, err)
	assert.Equal(t, opts.Captain.Team1.Odds, q)

	q, err = opts.Quote(domain.Selection{Market: domain.MarketOverUnder, Side: domain.SideUnder, Line: opts.OverUnder.Line})
	require.NoError(t, err)
	assert.Equal(t, opts.OverUnder.UnderOdds, q)

	_, err = opts.Quote(domain.Selection{Market: domain.MarketOverUnder, Side: domain.SideOver, Line: opts.OverUnder.Line + 5})
	assert.ErrorIs(t, err, domain.ErrOddsChanged)

	_, err = opts.Quote(domain.Selection{Market: domain.MarketWinner, Team: "C"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
