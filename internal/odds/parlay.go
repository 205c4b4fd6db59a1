package odds

import (
	"fmt"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

// Parlay leg-count bounds.
const (
	MinParlayLegs = 2
	MaxParlayLegs = 4
)

// Leg is an already-priced parlay member.
type Leg struct {
	Odds float64
}

// PriceParlay multiplies the leg odds and rounds the product once.
func PriceParlay(legs []Leg) (float64, error) {
	if len(legs) < MinParlayLegs || len(legs) > MaxParlayLegs {
		return 0, fmt.Errorf("%w: a parlay needs %d to %d legs, got %d",
			domain.ErrInvalidInput, MinParlayLegs, MaxParlayLegs, len(legs))
	}
	product := 1.0
	for _, l := range legs {
		product *= l.Odds
	}
	return Round2(product), nil
}
