package odds

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

const (
	matchMinOdds = 1.10
	matchMaxOdds = 10.00

	// CaptainThreshold is the score a team's captain must reach for a
	// captain bet to win.
	CaptainThreshold = 7
	captainShare     = 0.25
	captainMinOdds   = 1.30
	captainMaxOdds   = 6.00

	lineStep          = 5
	lineSkewDeviation = 3
	overUnderBase     = 1.85
	overUnderLong     = 1.90
	overUnderShort    = 1.80
)

// marginMultipliers prices the legacy winning-margin market off the match
// odds of the selected team.
var marginMultipliers = map[int]float64{
	5:  1.8,
	10: 2.5,
	20: 5.0,
}

type teamInput struct {
	name     string
	average  float64
	position int
}

func matchMarket(a, b teamInput) (MatchMarket, error) {
	sa := Strength(a.average, a.position)
	sb := Strength(b.average, b.position)
	total := sa + sb

	oa, err := ProbabilityToOdds(sa / total)
	if err != nil {
		return MatchMarket{}, fmt.Errorf("odds: %s vs %s: %w", a.name, b.name, err)
	}
	ob, err := ProbabilityToOdds(sb / total)
	if err != nil {
		return MatchMarket{}, fmt.Errorf("odds: %s vs %s: %w", a.name, b.name, err)
	}

	oa, ob = NormalizeDualOdds(oa, ob)
	return MatchMarket{
		Team1: TeamOdds{
			Name:     a.name,
			Odds:     clamp(oa, matchMinOdds, matchMaxOdds),
			Average:  a.average,
			Position: a.position,
		},
		Team2: TeamOdds{
			Name:     b.name,
			Odds:     clamp(ob, matchMinOdds, matchMaxOdds),
			Average:  b.average,
			Position: b.position,
		},
	}, nil
}

// captainProbability is a hand-tuned estimate of the chance that a team's
// captain scores at least CaptainThreshold points.
func captainProbability(expected float64) float64 {
	switch {
	case expected >= 15:
		return math.Min(0.90, math.Max(0.70, 0.85-(expected-15)*0.02))
	case expected >= 12:
		return 0.75
	case expected >= 10:
		return 0.60
	case expected >= 8:
		return 0.45
	default:
		return 0.30
	}
}

func captainMarket(t teamInput) CaptainOdds {
	expected := t.average * captainShare
	p := captainProbability(expected)
	return CaptainOdds{
		Team:            t.name,
		Threshold:       CaptainThreshold,
		Odds:            clamp(Round2(1/p), captainMinOdds, captainMaxOdds),
		CaptainExpected: round1(expected),
	}
}

func overUnderMarket(a, b teamInput) OverUnderMarket {
	expected := a.average + b.average
	line := int(math.Floor(expected/lineStep+0.5)) * lineStep

	over, under := overUnderBase, overUnderBase
	if math.Abs(float64(line)-expected) > lineSkewDeviation {
		if float64(line) > expected {
			over, under = overUnderLong, overUnderShort
		} else {
			over, under = overUnderShort, overUnderLong
		}
	}
	over, under = NormalizeDualOdds(over, under)

	return OverUnderMarket{
		Line:          line,
		ExpectedTotal: Round2(expected),
		OverOdds:      over,
		UnderOdds:     under,
	}
}

func marginOdds(t TeamOdds) MarginOdds {
	return MarginOdds{
		Name:   t.Name,
		Plus5:  Round2(t.Odds * marginMultipliers[5]),
		Plus10: Round2(t.Odds * marginMultipliers[10]),
		Plus20: Round2(t.Odds * marginMultipliers[20]),
	}
}

func (m MarginOdds) at(threshold int) (float64, error) {
	switch threshold {
	case 5:
		return m.Plus5, nil
	case 10:
		return m.Plus10, nil
	case 20:
		return m.Plus20, nil
	}
	return 0, fmt.Errorf("%w: margin +%d is not offered", domain.ErrInvalidInput, threshold)
}
