package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// MarketType names the kind of wager.
type MarketType string

const (
	MarketWinner    MarketType = "winner"
	MarketCaptain   MarketType = "captain"
	MarketMargin    MarketType = "margin"
	MarketOverUnder MarketType = "over_under"
)

// Valid reports whether m is a known market type.
func (m MarketType) Valid() bool {
	switch m {
	case MarketWinner, MarketCaptain, MarketMargin, MarketOverUnder:
		return true
	}
	return false
}

// Side is the direction of an over/under selection.
type Side string

const (
	SideOver  Side = "over"
	SideUnder Side = "under"
)

// Selection is the structured form of what a bet predicts. Which fields are
// meaningful depends on Market:
//
//	winner, captain: Team
//	margin:          Team, Threshold
//	over_under:      Side, Line
type Selection struct {
	Market    MarketType
	Team      string
	Threshold int
	Side      Side
	Line      int
}

// ParseSelection decodes the wire form of a selection for the given market:
// "Team", "Team:+5" or "over:145".
func ParseSelection(market MarketType, raw string) (Selection, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Selection{}, fmt.Errorf("%w: empty selection", ErrInvalidInput)
	}

	switch market {
	case MarketWinner, MarketCaptain:
		return Selection{Market: market, Team: raw}, nil

	case MarketMargin:
		i := strings.LastIndex(raw, ":+")
		if i <= 0 {
			return Selection{}, fmt.Errorf("%w: margin selection %q, want team:+N", ErrInvalidInput, raw)
		}
		n, err := strconv.Atoi(raw[i+2:])
		if err != nil || n <= 0 {
			return Selection{}, fmt.Errorf("%w: margin threshold in %q", ErrInvalidInput, raw)
		}
		return Selection{Market: market, Team: raw[:i], Threshold: n}, nil

	case MarketOverUnder:
		side, line, ok := strings.Cut(raw, ":")
		if !ok || (Side(side) != SideOver && Side(side) != SideUnder) {
			return Selection{}, fmt.Errorf("%w: over/under selection %q, want over:N or under:N", ErrInvalidInput, raw)
		}
		n, err := strconv.Atoi(line)
		if err != nil || n < 0 {
			return Selection{}, fmt.Errorf("%w: over/under line in %q", ErrInvalidInput, raw)
		}
		return Selection{Market: market, Side: Side(side), Line: n}, nil
	}

	return Selection{}, fmt.Errorf("%w: unknown market %q", ErrInvalidInput, market)
}

// String returns the wire form accepted by ParseSelection.
func (s Selection) String() string {
	switch s.Market {
	case MarketMargin:
		return fmt.Sprintf("%s:+%d", s.Team, s.Threshold)
	case MarketOverUnder:
		return fmt.Sprintf("%s:%d", s.Side, s.Line)
	default:
		return s.Team
	}
}

// MarshalText encodes the selection in its wire form.
func (s Selection) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
