package processor

import (
	"errors"
	"math"
)

// ErrEmptyStrikeSet reports that ATM selection was attempted on a snapshot
// with no listed strikes. This is an input validation failure, not a default.
var ErrEmptyStrikeSet = errors.New("empty strike set")

// SelectATM returns the strike closest to the spot price. Ties are broken by
// the first candidate in input order, which keeps the selection stable for a
// given payload.
func SelectATM(spot float64, strikes []float64) (float64, error) {
	if len(strikes) == 0 {
		return 0, ErrEmptyStrikeSet
	}

	best := strikes[0]
	bestDist := math.Abs(best - spot)
	for _, strike := range strikes[1:] {
		if d := math.Abs(strike - spot); d < bestDist {
			best = strike
			bestDist = d
		}
	}

	return best, nil
}
