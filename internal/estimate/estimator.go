package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

var (
	errBadIteration  = errors.New("estimate: iteration parameters must be positive")
	errBadQuadrature = errors.New("estimate: quadrature grid needs >= 2 points and max > min")
	errBadPrior      = errors.New("estimate: prior SD must be positive")
)

func errUnknownMethod(m Method) error {
	return fmt.Errorf("estimate: unknown method %q", m)
}

// #region estimate

// Estimate computes theta and its standard error from all administered
// (item, response) pairs. Pure and deterministic: identical inputs always
// produce identical results. Degenerate response patterns never surface as
// errors; they return a flagged fallback estimate instead.
func Estimate(items []irt.Item, responses []int, cfg Config) (Result, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	if len(items) != len(responses) {
		return Result{}, fmt.Errorf("estimate: %d items vs %d responses", len(items), len(responses))
	}
	for i, it := range items {
		if it.CategoryIndex(responses[i]) < 0 {
			return Result{}, fmt.Errorf("estimate: item %s: response code %d not in declared categories", it.ID, responses[i])
		}
	}

	// Before anything is administered the prior is the estimate.
	if len(items) == 0 {
		return Result{
			Theta:    cfg.PriorMean,
			SE:       cfg.PriorSD,
			Method:   cfg.Method,
			Fallback: FallbackNoResponses,
		}, nil
	}

	if cfg.Method == EAP {
		theta, se := eap(items, responses, cfg)
		return Result{Theta: theta, SE: se, Method: EAP, Converged: true}, nil
	}

	// MLE path. A monotone likelihood (every response in an extreme
	// category) has no interior maximum; substitute EAP and flag it.
	if degeneratePattern(items, responses) {
		theta, se := eap(items, responses, cfg)
		return Result{Theta: theta, SE: se, Method: EAP, Converged: true, Fallback: FallbackDegenerate}, nil
	}

	theta, iters, converged, clamped := fisherScoring(items, responses, cfg)
	if !converged {
		eapTheta, eapSE := eap(items, responses, cfg)
		return Result{Theta: eapTheta, SE: eapSE, Method: EAP, Converged: true, Iterations: iters, Fallback: FallbackNoConverge}, nil
	}

	se := 1.0 / math.Sqrt(totalInformation(items, theta))
	res := Result{Theta: theta, SE: se, Method: MLE, Iterations: iters, Converged: true}
	if clamped {
		res.Fallback = FallbackBound
	}
	return res, nil
}

// #endregion estimate

// #region fisher-scoring

// fisherScoring runs Newton-Raphson on the score function, using expected
// Fisher information as the curvature term. Starts from theta = 0.
func fisherScoring(items []irt.Item, responses []int, cfg Config) (theta float64, iters int, converged, clamped bool) {
	theta = 0.0
	for iters = 1; iters <= cfg.MaxIterations; iters++ {
		var score float64
		for i, it := range items {
			s, err := irt.ScoreContribution(it, theta, responses[i])
			if err != nil {
				return theta, iters, false, clamped
			}
			score += s
		}
		info := totalInformation(items, theta)
		if info <= 0 || math.IsNaN(info) {
			return theta, iters, false, clamped
		}

		step := score / info
		theta += step
		if theta > cfg.ThetaBound {
			theta = cfg.ThetaBound
			clamped = true
		} else if theta < -cfg.ThetaBound {
			theta = -cfg.ThetaBound
			clamped = true
		}

		if math.Abs(step) < cfg.Tolerance {
			return theta, iters, true, clamped
		}
	}
	return theta, cfg.MaxIterations, false, clamped
}

// totalInformation sums Fisher information over the administered items.
func totalInformation(items []irt.Item, theta float64) float64 {
	var total float64
	for _, it := range items {
		total += irt.Information(it, theta)
	}
	return total
}

// #endregion fisher-scoring

// #region eap

// eap computes the posterior mean and SD of theta on a fixed quadrature grid.
// Log-likelihoods are shifted by their maximum before exponentiating so long
// response strings cannot underflow.
func eap(items []irt.Item, responses []int, cfg Config) (theta, se float64) {
	n := cfg.QuadPoints
	stepSize := (cfg.QuadMax - cfg.QuadMin) / float64(n-1)

	grid := make([]float64, n)
	logPost := make([]float64, n)
	maxLog := math.Inf(-1)

	for q := 0; q < n; q++ {
		x := cfg.QuadMin + float64(q)*stepSize
		grid[q] = x

		z := (x - cfg.PriorMean) / cfg.PriorSD
		lp := -0.5 * z * z // log prior up to a constant
		for i, it := range items {
			p, err := irt.ResponseProbability(it, x, responses[i])
			if err != nil {
				continue
			}
			lp += math.Log(p)
		}
		logPost[q] = lp
		if lp > maxLog {
			maxLog = lp
		}
	}

	var wSum, mean float64
	weights := make([]float64, n)
	for q := 0; q < n; q++ {
		w := math.Exp(logPost[q] - maxLog)
		weights[q] = w
		wSum += w
		mean += grid[q] * w
	}
	mean /= wSum

	var variance float64
	for q := 0; q < n; q++ {
		d := grid[q] - mean
		variance += d * d * weights[q]
	}
	variance /= wSum

	return mean, math.Sqrt(variance)
}

// #endregion eap

// #region degenerate

// degeneratePattern reports whether every response sits in the extreme
// (lowest or highest) category of its item — the patterns for which the
// likelihood is monotone in theta and MLE diverges.
func degeneratePattern(items []irt.Item, responses []int) bool {
	allLow, allHigh := true, true
	for i, it := range items {
		idx := it.CategoryIndex(responses[i])
		if idx != 0 {
			allLow = false
		}
		if idx != len(it.Categories)-1 {
			allHigh = false
		}
	}
	return allLow || allHigh
}

// #endregion degenerate
