package estimate

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

func twoPL(id string, a, b float64) irt.Item {
	return irt.Item{
		ID:             id,
		Dimension:      "dim-a",
		Model:          irt.TwoPL,
		Discrimination: a,
		Difficulty:     b,
		Categories:     []int{0, 1},
	}
}

func TestZeroResponsesReturnsPrior(t *testing.T) {
	for _, method := range []Method{MLE, EAP} {
		cfg := DefaultConfig()
		cfg.Method = method

		res, err := Estimate(nil, nil, cfg)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if res.Theta != 0 || res.SE != 1 {
			t.Fatalf("%s: expected prior (0, 1), got (%f, %f)", method, res.Theta, res.SE)
		}
		if res.Fallback != FallbackNoResponses {
			t.Fatalf("%s: expected no_responses fallback, got %q", method, res.Fallback)
		}
	}
}

func TestMLESymmetricPatternIsZero(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MLE

	items := []irt.Item{twoPL("easy", 1.0, -1.0), twoPL("hard", 1.0, 1.0)}
	res, err := Estimate(items, []int{1, 0}, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if !res.Converged {
		t.Fatal("expected convergence")
	}
	if res.Method != MLE || res.Fallback != FallbackNone {
		t.Fatalf("expected clean MLE result, got method=%s fallback=%q", res.Method, res.Fallback)
	}
	if math.Abs(res.Theta) > 1e-6 {
		t.Fatalf("symmetric pattern should estimate theta=0, got %f", res.Theta)
	}
	if res.SE <= 0 {
		t.Fatalf("expected positive SE, got %f", res.SE)
	}
}

func TestEAPSymmetricPatternIsZero(t *testing.T) {
	cfg := DefaultConfig()
	items := []irt.Item{twoPL("easy", 1.0, -1.0), twoPL("hard", 1.0, 1.0)}

	res, err := Estimate(items, []int{1, 0}, cfg)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	if math.Abs(res.Theta) > 1e-9 {
		t.Fatalf("symmetric posterior should center on 0, got %g", res.Theta)
	}
	if res.SE <= 0 || res.SE >= 1 {
		t.Fatalf("two informative items should tighten the prior SD, got %f", res.SE)
	}
}

func TestMLEDegeneratePatternFallsBackToEAP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MLE

	items := []irt.Item{twoPL("i1", 1.3, -0.5), twoPL("i2", 1.3, 0.0), twoPL("i3", 1.3, 0.5)}

	for name, responses := range map[string][]int{
		"all correct":   {1, 1, 1},
		"all incorrect": {0, 0, 0},
	} {
		res, err := Estimate(items, responses, cfg)
		if err != nil {
			t.Fatalf("%s: Estimate: %v", name, err)
		}
		if res.Fallback != FallbackDegenerate {
			t.Fatalf("%s: expected degenerate fallback, got %q", name, res.Fallback)
		}
		if res.Method != EAP {
			t.Fatalf("%s: fallback should report EAP, got %s", name, res.Method)
		}
		if !res.Degenerate() {
			t.Fatalf("%s: Degenerate() should be true", name)
		}
		if math.IsNaN(res.Theta) || math.IsInf(res.Theta, 0) {
			t.Fatalf("%s: non-finite theta %f", name, res.Theta)
		}
	}
}

func TestEstimateDeterministic(t *testing.T) {
	items := []irt.Item{twoPL("i1", 1.2, -0.3), twoPL("i2", 0.9, 0.8), twoPL("i3", 1.6, 0.1)}
	responses := []int{1, 0, 1}

	for _, method := range []Method{MLE, EAP} {
		cfg := DefaultConfig()
		cfg.Method = method
		r1, err := Estimate(items, responses, cfg)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		r2, err := Estimate(items, responses, cfg)
		if err != nil {
			t.Fatalf("Estimate: %v", err)
		}
		if r1 != r2 {
			t.Fatalf("%s: non-deterministic results: %+v vs %+v", method, r1, r2)
		}
	}
}

func TestSETightensWithMoreItems(t *testing.T) {
	cfg := DefaultConfig()

	var items []irt.Item
	var responses []int
	var prevSE = math.Inf(1)
	bs := []float64{-1.5, 1.5, -0.5, 0.5, -1.0, 1.0, 0.0, 2.0, -2.0, 0.3}
	for i, b := range bs {
		items = append(items, twoPL(fmt.Sprintf("i-%02d", i), 1.5, b))
		responses = append(responses, i%2) // alternating keeps the pattern non-degenerate
		if len(items) < 2 {
			continue
		}
		res, err := Estimate(items, responses, cfg)
		if err != nil {
			t.Fatalf("Estimate with %d items: %v", len(items), err)
		}
		if res.SE >= prevSE {
			t.Fatalf("SE did not tighten: %f -> %f at %d items", prevSE, res.SE, len(items))
		}
		prevSE = res.SE
	}
}

// TestEstimatorConsistency simulates examinees from a known theta using the
// model's own probability function and checks that the mean estimate lands
// near the generating value.
func TestEstimatorConsistency(t *testing.T) {
	const (
		trueTheta = 1.0
		examinees = 150
		tolerance = 0.15
	)
	rng := rand.New(rand.NewSource(7))

	items := make([]irt.Item, 40)
	for i := range items {
		b := -2.0 + 4.0*float64(i)/float64(len(items)-1)
		items[i] = twoPL(fmt.Sprintf("sim-%02d", i), 1.5, b)
	}

	for _, method := range []Method{MLE, EAP} {
		cfg := DefaultConfig()
		cfg.Method = method

		var sum float64
		for e := 0; e < examinees; e++ {
			responses := make([]int, len(items))
			for i, it := range items {
				p, err := irt.ResponseProbability(it, trueTheta, 1)
				if err != nil {
					t.Fatalf("ResponseProbability: %v", err)
				}
				if rng.Float64() < p {
					responses[i] = 1
				}
			}
			res, err := Estimate(items, responses, cfg)
			if err != nil {
				t.Fatalf("Estimate: %v", err)
			}
			sum += res.Theta
		}

		mean := sum / examinees
		if math.Abs(mean-trueTheta) > tolerance {
			t.Fatalf("%s: mean estimate %f not within %.2f of true theta %.2f", method, mean, tolerance, trueTheta)
		}
	}
}

func TestEstimateRejectsBadInput(t *testing.T) {
	cfg := DefaultConfig()
	items := []irt.Item{twoPL("i1", 1.0, 0)}

	if _, err := Estimate(items, []int{1, 0}, cfg); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
	if _, err := Estimate(items, []int{7}, cfg); err == nil {
		t.Fatal("expected error for undeclared response code")
	}

	bad := cfg
	bad.Method = "map"
	if _, err := Estimate(items, []int{1}, bad); err == nil {
		t.Fatal("expected error for unknown method")
	}
}
