package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/selector"
	"github.com/danielpatrickdp/adaptive-cat/internal/simulate"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	configPath := flag.String("config", "", "path to study YAML (batch mode)")
	bankPath := flag.String("bank", "", "path to item bank JSON (batch mode)")
	sessions := flag.Int("sessions", 200, "number of simulated sessions (batch mode)")
	seed := flag.Int64("seed", 1, "batch seed")
	concurrency := flag.Int("concurrency", 4, "parallel sessions")
	jsonOut := flag.Bool("json", false, "output summary as JSON")
	flag.Parse()

	fixtureMode := *fixturePath != ""
	batchMode := *configPath != "" && *bankPath != ""
	if fixtureMode == batchMode {
		fmt.Fprintln(os.Stderr, "usage: simulate --fixture path/to/fixture.json")
		fmt.Fprintln(os.Stderr, "       simulate --config study.yaml --bank items.json [--sessions N] [--seed N] [--json]")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, *concurrency, *jsonOut)
	} else {
		exitCode = runBatchMode(*configPath, *bankPath, *sessions, *seed, *concurrency, *jsonOut)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region fixture-mode

func runFixtureMode(path string, concurrency int, jsonOut bool) int {
	fixture, err := simulate.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	study, err := fixture.ToStudy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture study: %v\n", err)
		return 2
	}
	b, err := bank.New(fixture.Items)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fixture bank: %v\n", err)
		return 2
	}

	examinees := fixture.ToExaminees()
	outcomes, err := simulate.RunBatch(context.Background(), study, b, examinees,
		simulate.BatchConfig{Seed: fixture.Seed, Concurrency: concurrency}, selector.NewExposureTracker())
	if err != nil {
		fmt.Fprintf(os.Stderr, "run fixture: %v\n", err)
		return 2
	}

	printSummary(simulate.Summarize(examinees, outcomes), jsonOut)

	mismatches := fixture.Check(outcomes)
	if len(mismatches) > 0 {
		fmt.Fprintf(os.Stderr, "\n%d expectation(s) failed:\n", len(mismatches))
		for _, m := range mismatches {
			fmt.Fprintf(os.Stderr, "  %s\n", m)
		}
		return 1
	}
	fmt.Printf("\nall %d expectations met\n", len(fixture.Expected))
	return 0
}

// #endregion fixture-mode

// #region batch-mode

func runBatchMode(configPath, bankPath string, sessions int, seed int64, concurrency int, jsonOut bool) int {
	study, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 2
	}
	b, err := bank.LoadFile(bankPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load bank: %v\n", err)
		return 2
	}

	// True trait levels drawn from the estimation prior, one rng stream for
	// the whole roster so the batch replays under the same seed.
	rng := rand.New(rand.NewSource(seed))
	examinees := make([]simulate.Examinee, sessions)
	for i := range examinees {
		trueTheta := make(map[string]float64, len(study.Dimensions))
		for _, dim := range study.Dimensions {
			trueTheta[dim.ID] = study.Estimation.PriorMean + study.Estimation.PriorSD*rng.NormFloat64()
		}
		examinees[i] = simulate.Examinee{ID: fmt.Sprintf("sim-%04d", i), TrueTheta: trueTheta}
	}

	outcomes, err := simulate.RunBatch(context.Background(), study, b, examinees,
		simulate.BatchConfig{Seed: seed, Concurrency: concurrency}, selector.NewExposureTracker())
	if err != nil {
		fmt.Fprintf(os.Stderr, "run batch: %v\n", err)
		return 2
	}

	printSummary(simulate.Summarize(examinees, outcomes), jsonOut)
	return 0
}

// #endregion batch-mode

// #region output

func printSummary(summary simulate.Summary, jsonOut bool) {
	if jsonOut {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "marshal summary: %v\n", err)
			return
		}
		fmt.Println(string(data))
		return
	}

	fmt.Printf("%d sessions\n\n", summary.Sessions)
	fmt.Printf("%-16s  %8s  %8s  %8s  %8s  %s\n", "Dimension", "Bias", "RMSE", "Items", "Mean SE", "Stop Reasons")
	fmt.Printf("%-16s  %8s  %8s  %8s  %8s  %s\n", "----------------", "--------", "--------", "--------", "--------", "------------")

	dims := make([]string, 0, len(summary.PerDimension))
	for dim := range summary.PerDimension {
		dims = append(dims, dim)
	}
	sort.Strings(dims)

	for _, dim := range dims {
		stats := summary.PerDimension[dim]
		reasons := ""
		for reason, n := range stats.StopReasons {
			if reasons != "" {
				reasons += " "
			}
			reasons += fmt.Sprintf("%s=%d", reason, n)
		}
		fmt.Printf("%-16s  %8.4f  %8.4f  %8.2f  %8.4f  %s\n",
			dim, stats.Bias, stats.RMSE, stats.MeanItems, stats.MeanSE, reasons)
	}
}

// #endregion output
