package irt

import (
	"fmt"
	"math"
)

// probEpsilon keeps probabilities away from exactly 0 and 1 so that
// log-likelihoods and information denominators stay finite.
const probEpsilon = 1e-6

// #region logistic

// logistic is the standard logistic function 1/(1+exp(-x)).
func logistic(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// slope returns the effective discrimination: fixed at 1 for the 1PL model,
// the calibrated value otherwise.
func slope(it Item) float64 {
	if it.Model == OnePL {
		return 1.0
	}
	return it.Discrimination
}

// clampProb bounds p to [probEpsilon, 1-probEpsilon].
func clampProb(p float64) float64 {
	if p < probEpsilon {
		return probEpsilon
	}
	if p > 1-probEpsilon {
		return 1 - probEpsilon
	}
	return p
}

// #endregion logistic

// #region correct-probability

// correctProbability returns P(highest category | theta) for a binary item.
func correctProbability(it Item, theta float64) float64 {
	switch it.Model {
	case OnePL:
		return clampProb(logistic(theta - it.Difficulty))
	case TwoPL:
		return clampProb(logistic(it.Discrimination * (theta - it.Difficulty)))
	case ThreePL:
		p := it.Guessing + (1-it.Guessing)*logistic(it.Discrimination*(theta-it.Difficulty))
		return clampProb(p)
	}
	return 0
}

// #endregion correct-probability

// #region cumulatives

// cumulatives returns P(response >= category k | theta) for each GRM
// threshold, with the boundary cumulatives (1 below the lowest threshold,
// 0 above the highest) prepended and appended. Length is len(thresholds)+2.
func cumulatives(it Item, theta float64) []float64 {
	cum := make([]float64, len(it.Thresholds)+2)
	cum[0] = 1
	for k, b := range it.Thresholds {
		cum[k+1] = logistic(it.Discrimination * (theta - b))
	}
	cum[len(cum)-1] = 0
	return cum
}

// #endregion cumulatives

// #region probability

// Probability returns the per-category response probabilities at theta, in
// the order of it.Categories. For binary models this is [P(low), P(high)].
// GRM cumulative monotonicity is verified, not assumed: a non-increasing
// violation is reported as an error rather than producing a negative mass.
func Probability(it Item, theta float64) ([]float64, error) {
	if it.Model.Binary() {
		p := correctProbability(it, theta)
		return []float64{1 - p, p}, nil
	}

	cum := cumulatives(it, theta)
	for k := 1; k < len(cum); k++ {
		if cum[k] > cum[k-1] {
			return nil, fmt.Errorf("item %s: cumulative probabilities not non-increasing at boundary %d", it.ID, k)
		}
	}

	probs := make([]float64, len(it.Categories))
	for k := range probs {
		probs[k] = clampProb(cum[k] - cum[k+1])
	}
	return probs, nil
}

// ResponseProbability returns the probability of one declared response code.
func ResponseProbability(it Item, theta float64, code int) (float64, error) {
	idx := it.CategoryIndex(code)
	if idx < 0 {
		return 0, fmt.Errorf("item %s: response code %d not in declared categories", it.ID, code)
	}
	probs, err := Probability(it, theta)
	if err != nil {
		return 0, err
	}
	return probs[idx], nil
}

// #endregion probability

// #region information

// Information returns the Fisher information the item contributes at theta.
// 1PL/2PL: a^2 * P * Q. 3PL: a^2 * (Q/P) * ((P-c)/(1-c))^2.
// GRM: sum over categories of (dP_k/dtheta)^2 / P_k.
func Information(it Item, theta float64) float64 {
	switch it.Model {
	case OnePL, TwoPL:
		a := slope(it)
		p := correctProbability(it, theta)
		return a * a * p * (1 - p)
	case ThreePL:
		p := correctProbability(it, theta)
		q := 1 - p
		c := it.Guessing
		adj := (p - c) / (1 - c)
		return it.Discrimination * it.Discrimination * (q / p) * adj * adj
	case GRM:
		cum := cumulatives(it, theta)
		// d/dtheta of each cumulative: a * P* * (1 - P*); zero at boundaries.
		deriv := make([]float64, len(cum))
		for k := 1; k < len(cum)-1; k++ {
			deriv[k] = it.Discrimination * cum[k] * (1 - cum[k])
		}
		var info float64
		for k := 0; k < len(cum)-1; k++ {
			pk := clampProb(cum[k] - cum[k+1])
			dk := deriv[k] - deriv[k+1]
			info += dk * dk / pk
		}
		return info
	}
	return 0
}

// #endregion information

// #region score

// ScoreContribution returns d logP(response|theta) / dtheta for one observed
// response, used by the Fisher-scoring estimator.
func ScoreContribution(it Item, theta float64, code int) (float64, error) {
	idx := it.CategoryIndex(code)
	if idx < 0 {
		return 0, fmt.Errorf("item %s: response code %d not in declared categories", it.ID, code)
	}

	if it.Model.Binary() {
		p := correctProbability(it, theta)
		u := 0.0
		if idx == 1 {
			u = 1.0
		}
		if it.Model == ThreePL {
			c := it.Guessing
			pStar := logistic(it.Discrimination * (theta - it.Difficulty))
			dP := it.Discrimination * (1 - c) * pStar * (1 - pStar)
			return dP * (u/p - (1-u)/(1-p)), nil
		}
		// Logistic models: the score has the closed form a*(u - P).
		return slope(it) * (u - p), nil
	}

	// GRM: d logP_k/dtheta = (cum'_k - cum'_{k+1}) / P_k, with the boundary
	// cumulatives (constants 1 and 0) contributing zero derivative.
	cum := cumulatives(it, theta)
	dLo := 0.0
	if idx >= 1 {
		dLo = it.Discrimination * cum[idx] * (1 - cum[idx])
	}
	dHi := 0.0
	if idx < len(it.Thresholds) {
		dHi = it.Discrimination * cum[idx+1] * (1 - cum[idx+1])
	}
	pk := clampProb(cum[idx] - cum[idx+1])
	return (dLo - dHi) / pk, nil
}

// #endregion score
