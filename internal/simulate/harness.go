package simulate

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
	"github.com/danielpatrickdp/adaptive-cat/internal/selector"
	"github.com/danielpatrickdp/adaptive-cat/internal/session"
	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

// #region types

// Examinee is one simulated respondent with a known true trait level per
// dimension. Recovery of these values is what a simulation run measures.
type Examinee struct {
	ID        string
	TrueTheta map[string]float64
}

// Outcome is the full record of one simulated session.
type Outcome struct {
	ExamineeID string
	Results    []session.Result
}

// BatchConfig tunes a batch run.
type BatchConfig struct {
	Seed        int64
	Concurrency int // <= 0 means serial
}

// DimensionStats aggregates recovery quality for one dimension over a batch.
type DimensionStats struct {
	Sessions    int
	Bias        float64 // mean(estimate - true)
	RMSE        float64
	MeanItems   float64
	MeanSE      float64
	StopReasons map[stopping.Reason]int
}

// Summary holds per-dimension aggregates for a whole batch.
type Summary struct {
	Sessions     int
	PerDimension map[string]DimensionStats
}

// #endregion types

// #region sample

// sampleResponse draws a response code from the item's category distribution
// at the examinee's true trait level.
func sampleResponse(it irt.Item, theta float64, rng *rand.Rand) (int, error) {
	probs, err := irt.Probability(it, theta)
	if err != nil {
		return 0, err
	}
	u := rng.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if u < cum {
			return it.Categories[i], nil
		}
	}
	// Clamped probabilities can leave the cumulative a hair under 1.
	return it.Categories[len(it.Categories)-1], nil
}

// #endregion sample

// #region session

// RunSession drives one examinee through a complete session, answering each
// directive with a response sampled at the examinee's true theta. The same
// seeded rng covers item selection and response sampling, so a run replays
// exactly.
func RunSession(study config.Study, b *bank.Bank, ex Examinee, seed int64, exposure *selector.ExposureTracker) (Outcome, error) {
	rng := rand.New(rand.NewSource(seed))
	coord, err := session.NewCoordinator(ex.ID, study, b, rng, exposure, nil)
	if err != nil {
		return Outcome{}, fmt.Errorf("simulate %s: %w", ex.ID, err)
	}

	for {
		dir, err := coord.NextItem()
		if err != nil {
			return Outcome{}, fmt.Errorf("simulate %s: next item: %w", ex.ID, err)
		}
		if dir.AllComplete {
			break
		}

		theta, ok := ex.TrueTheta[dir.Dimension]
		if !ok {
			return Outcome{}, fmt.Errorf("simulate %s: no true theta for dimension %q", ex.ID, dir.Dimension)
		}
		item, ok := b.Item(dir.ItemID)
		if !ok {
			return Outcome{}, fmt.Errorf("simulate %s: unknown item %q", ex.ID, dir.ItemID)
		}
		code, err := sampleResponse(item, theta, rng)
		if err != nil {
			return Outcome{}, fmt.Errorf("simulate %s: sample response: %w", ex.ID, err)
		}
		if _, err := coord.SubmitResponse(dir.Dimension, dir.ItemID, code); err != nil {
			return Outcome{}, fmt.Errorf("simulate %s: submit: %w", ex.ID, err)
		}
	}

	return Outcome{ExamineeID: ex.ID, Results: coord.Results()}, nil
}

// #endregion session

// #region batch

// RunBatch simulates every examinee, bounded-concurrently. Each session gets
// a seed derived from the batch seed and its index. The shared exposure
// tracker is safe across goroutines; when an exposure cap is active,
// selection depends on session interleaving, so exact replays need
// Concurrency=1.
func RunBatch(ctx context.Context, study config.Study, b *bank.Bank, examinees []Examinee, cfg BatchConfig, exposure *selector.ExposureTracker) ([]Outcome, error) {
	outcomes := make([]Outcome, len(examinees))

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Concurrency > 0 {
		g.SetLimit(cfg.Concurrency)
	} else {
		g.SetLimit(1)
	}

	for i, ex := range examinees {
		i, ex := i, ex
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out, err := RunSession(study, b, ex, cfg.Seed+int64(i), exposure)
			if err != nil {
				return err
			}
			outcomes[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// #endregion batch

// #region summarize

// Summarize computes per-dimension recovery stats over a batch.
func Summarize(examinees []Examinee, outcomes []Outcome) Summary {
	trueByID := make(map[string]map[string]float64, len(examinees))
	for _, ex := range examinees {
		trueByID[ex.ID] = ex.TrueTheta
	}

	type accum struct {
		n        int
		sumErr   float64
		sumSqErr float64
		sumItems float64
		sumSE    float64
		reasons  map[stopping.Reason]int
	}
	accums := make(map[string]*accum)

	for _, out := range outcomes {
		for _, res := range out.Results {
			acc := accums[res.Dimension]
			if acc == nil {
				acc = &accum{reasons: make(map[stopping.Reason]int)}
				accums[res.Dimension] = acc
			}
			err := res.Theta - trueByID[out.ExamineeID][res.Dimension]
			acc.n++
			acc.sumErr += err
			acc.sumSqErr += err * err
			acc.sumItems += float64(res.NumItems)
			acc.sumSE += res.SE
			acc.reasons[res.Reason]++
		}
	}

	summary := Summary{Sessions: len(outcomes), PerDimension: make(map[string]DimensionStats, len(accums))}
	for dim, acc := range accums {
		n := float64(acc.n)
		summary.PerDimension[dim] = DimensionStats{
			Sessions:    acc.n,
			Bias:        acc.sumErr / n,
			RMSE:        math.Sqrt(acc.sumSqErr / n),
			MeanItems:   acc.sumItems / n,
			MeanSE:      acc.sumSE / n,
			StopReasons: acc.reasons,
		}
	}
	return summary
}

// #endregion summarize
