// Package scoring provides confidence-adjusted win-rate estimators used to
// rank matchups. Raw win rate overvalues tiny samples: a 1-for-1 matchup must
// not outrank a 950-for-1000 one.
package scoring

import "math"

const z95 = 1.96

// WilsonLowerBound returns the lower bound of the Wilson score confidence
// interval (z = 1.96) for a Bernoulli proportion of wins out of total.
// Returns 0 when total is 0.
func WilsonLowerBound(wins, total int) float64 {
	if total <= 0 {
		return 0
	}
	n := float64(total)
	phat := float64(wins) / n

	num := phat + z95*z95/(2*n) - z95*math.Sqrt((phat*(1-phat)+z95*z95/(4*n))/n)
	den := 1 + z95*z95/n
	return num / den
}

// PosteriorMean returns the Beta(1, 1) posterior mean (wins+1)/(total+2), a
// Laplace-smoothed win rate. With no data it is 0.5.
func PosteriorMean(wins, total int) float64 {
	return (float64(wins) + 1) / (float64(total) + 2)
}
