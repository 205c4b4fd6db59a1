package odds

import (
	"fmt"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/stats"
)

// TeamTable is the read side of the league table the model prices from.
type TeamTable interface {
	StatsFor(team string) (stats.Stats, bool)
	Position(team string) (int, bool)
}

// Options toggles optional markets.
type Options struct {
	// MarginMarket offers the legacy winning-margin market.
	MarginMarket bool
}

// TeamOdds is one side of the match-winner market.
type TeamOdds struct {
	Name     string  `json:"name"`
	Odds     float64 `json:"odds"`
	Average  float64 `json:"average"`
	Position int     `json:"position"`
}

// MatchMarket prices the match winner.
type MatchMarket struct {
	Team1 TeamOdds `json:"team1"`
	Team2 TeamOdds `json:"team2"`
}

// CaptainOdds prices one team's captain reaching the threshold.
type CaptainOdds struct {
	Team            string  `json:"team"`
	Threshold       int     `json:"threshold"`
	Odds            float64 `json:"odds"`
	CaptainExpected float64 `json:"captainExpected"`
}

// CaptainMarket holds both captain prices.
type CaptainMarket struct {
	Team1 CaptainOdds `json:"team1"`
	Team2 CaptainOdds `json:"team2"`
}

// OverUnderMarket prices the combined score against a line.
type OverUnderMarket struct {
	Line          int     `json:"line"`
	ExpectedTotal float64 `json:"expectedTotal"`
	OverOdds      float64 `json:"overOdds"`
	UnderOdds     float64 `json:"underOdds"`
}

// MarginOdds prices one team winning by at least 5, 10 or 20 points.
type MarginOdds struct {
	Name   string  `json:"name"`
	Plus5  float64 `json:"plus5"`
	Plus10 float64 `json:"plus10"`
	Plus20 float64 `json:"plus20"`
}

// MarginMarket holds both margin price ladders.
type MarginMarket struct {
	Team1 MarginOdds `json:"team1"`
	Team2 MarginOdds `json:"team2"`
}

// BetOptions is every market offered on a match.
type BetOptions struct {
	Match     MatchMarket     `json:"match"`
	Captain   CaptainMarket   `json:"captain"`
	OverUnder OverUnderMarket `json:"overUnder"`
	Margins   *MarginMarket   `json:"margins,omitempty"`
}

// GenerateBetOptions prices every market for team1 against team2. It is the
// only pricing entry point; callers must not assemble markets themselves.
// Unknown teams price as teams without games, which fails when neither side
// has any strength.
func GenerateBetOptions(table TeamTable, team1, team2 string, opts Options) (BetOptions, error) {
	a := lookup(table, team1)
	b := lookup(table, team2)

	match, err := matchMarket(a, b)
	if err != nil {
		return BetOptions{}, err
	}

	out := BetOptions{
		Match: match,
		Captain: CaptainMarket{
			Team1: captainMarket(a),
			Team2: captainMarket(b),
		},
		OverUnder: overUnderMarket(a, b),
	}
	if opts.MarginMarket {
		out.Margins = &MarginMarket{
			Team1: marginOdds(match.Team1),
			Team2: marginOdds(match.Team2),
		}
	}
	return out, nil
}

func lookup(table TeamTable, team string) teamInput {
	in := teamInput{name: team, position: DefaultPosition}
	if s, ok := table.StatsFor(team); ok {
		in.average = s.Average
	}
	if pos, ok := table.Position(team); ok {
		in.position = pos
	}
	return in
}

// Quote returns the odds currently offered for sel. It fails with
// domain.ErrInvalidInput when the selection is not part of these options and
// with domain.ErrOddsChanged when an over/under line no longer matches.
func (o BetOptions) Quote(sel domain.Selection) (float64, error) {
	switch sel.Market {
	case domain.MarketWinner:
		switch sel.Team {
		case o.Match.Team1.Name:
			return o.Match.Team1.Odds, nil
		case o.Match.Team2.Name:
			return o.Match.Team2.Odds, nil
		}

	case domain.MarketCaptain:
		switch sel.Team {
		case o.Captain.Team1.Team:
			return o.Captain.Team1.Odds, nil
		case o.Captain.Team2.Team:
			return o.Captain.Team2.Odds, nil
		}

	case domain.MarketOverUnder:
		if sel.Line != o.OverUnder.Line {
			return 0, fmt.Errorf("%w: line %d is no longer offered, current line is %d",
				domain.ErrOddsChanged, sel.Line, o.OverUnder.Line)
		}
		if sel.Side == domain.SideOver {
			return o.OverUnder.OverOdds, nil
		}
		return o.OverUnder.UnderOdds, nil

	case domain.MarketMargin:
		if o.Margins == nil {
			return 0, fmt.Errorf("%w: margin market is not offered", domain.ErrInvalidInput)
		}
		switch sel.Team {
		case o.Margins.Team1.Name:
			return o.Margins.Team1.at(sel.Threshold)
		case o.Margins.Team2.Name:
			return o.Margins.Team2.at(sel.Threshold)
		}

	default:
		return 0, fmt.Errorf("%w: unknown market %q", domain.ErrInvalidInput, sel.Market)
	}

	return 0, fmt.Errorf("%w: team %q does not play this match", domain.ErrInvalidInput, sel.Team)
}
