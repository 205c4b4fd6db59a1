package settlement

import (
	"fmt"

	"github.com/alanyoungcy/fantasybet/internal/domain"
	"github.com/alanyoungcy/fantasybet/internal/odds"
)

// Rules holds the settlement choices that are configuration rather than code.
type Rules struct {
	// OverInclusive wins an over selection when the total equals the line.
	OverInclusive bool
}

// Evaluate decides whether a selection won on a finished match. The match
// must carry its final score; captain selections also need captain scores.
func (r Rules) Evaluate(sel domain.Selection, m domain.Match) (bool, error) {
	if m.Score1 == nil || m.Score2 == nil {
		return false, fmt.Errorf("%w: match %d has no final score", domain.ErrInvalidInput, m.ID)
	}
	out := domain.OutcomeOf(m, *m.Score1, *m.Score2)

	switch sel.Market {
	case domain.MarketWinner:
		return out.Winner != "" && sel.Team == out.Winner, nil

	case domain.MarketCaptain:
		var captain *int
		switch sel.Team {
		case m.Team1:
			captain = m.Captain1
		case m.Team2:
			captain = m.Captain2
		default:
			return false, fmt.Errorf("%w: captain selection %q not in match %d", domain.ErrInvalidInput, sel.Team, m.ID)
		}
		if captain == nil {
			return false, fmt.Errorf("%w: match %d has no captain score for %s", domain.ErrInvalidInput, m.ID, sel.Team)
		}
		return *captain >= odds.CaptainThreshold, nil

	case domain.MarketMargin:
		return out.Winner != "" && sel.Team == out.Winner && out.Margin >= sel.Threshold, nil

	case domain.MarketOverUnder:
		switch sel.Side {
		case domain.SideOver:
			if r.OverInclusive {
				return out.Total >= sel.Line, nil
			}
			return out.Total > sel.Line, nil
		case domain.SideUnder:
			return out.Total < sel.Line, nil
		}
		return false, fmt.Errorf("%w: over/under side %q", domain.ErrInvalidInput, sel.Side)
	}

	return false, fmt.Errorf("%w: unknown market %q", domain.ErrInvalidInput, sel.Market)
}
