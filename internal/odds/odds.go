// Package odds prices the betting markets offered on a match and combines
// priced legs into parlays.
//
// All odds are decimal odds. Values are rounded to 2 decimals only when they
// are emitted; intermediate probabilities stay unrounded.
package odds

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/fantasybet/internal/domain"
)

const (
	// HouseMargin is the built-in overround applied to every fair price.
	HouseMargin = 1.05

	// bookTarget is the implied-probability total a two-outcome market is
	// normalized towards; bookTolerance is the drift accepted before
	// rescaling.
	bookTarget    = 1.05
	bookTolerance = 0.01

	// DefaultPosition is assumed for a team missing from the standings.
	DefaultPosition = 99
	// leaguePivot is the league position whose strength bonus is zero.
	leaguePivot = 14
	// positionBonus is the strength adjustment per league position.
	positionBonus = 0.01
)

// Round2 rounds v to 2 decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// ProbabilityToOdds converts a win probability into house-margined decimal
// odds. p must lie strictly inside (0, 1).
func ProbabilityToOdds(p float64) (float64, error) {
	if !(p > 0 && p < 1) {
		return 0, fmt.Errorf("%w: probability %v outside (0,1)", domain.ErrInvalidInput, p)
	}
	return Round2((1 / p) / HouseMargin), nil
}

// NormalizeDualOdds rescales the two prices of a two-outcome market so their
// implied probabilities sum to the house book. Pairs already within tolerance
// are returned unchanged.
func NormalizeDualOdds(o1, o2 float64) (float64, float64) {
	ip1, ip2 := 1/o1, 1/o2
	sum := ip1 + ip2
	if math.Abs(sum-bookTarget) <= bookTolerance {
		return o1, o2
	}
	factor := bookTarget / sum
	return Round2(1 / (ip1 * factor)), Round2(1 / (ip2 * factor))
}

// Strength weights a team's average by its league position. Teams above the
// pivot position gain up to a few percent per rank; a team at the default
// position is heavily discounted.
func Strength(average float64, position int) float64 {
	return average * (1 + float64(leaguePivot-position)*positionBonus)
}
