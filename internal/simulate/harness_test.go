package simulate

import (
	"context"
	"fmt"
	"math/rand"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

func likertPool(dim string, n int) []irt.Item {
	items := make([]irt.Item, n)
	for i := range items {
		shift := -1.0 + 2.0*float64(i)/float64(n-1) // spread difficulty over [-1, 1]
		items[i] = irt.Item{
			ID:             fmt.Sprintf("%s-%02d", dim, i),
			Dimension:      dim,
			Model:          irt.GRM,
			Discrimination: 1.3,
			Thresholds:     []float64{shift - 1.5, shift - 0.5, shift + 0.5, shift + 1.5},
			Categories:     []int{1, 2, 3, 4, 5},
		}
	}
	return items
}

func simStudy(stop stopping.Config, dims ...string) config.Study {
	study := config.Default()
	study.Stopping = stop
	for _, dim := range dims {
		study.Dimensions = append(study.Dimensions, config.Dimension{ID: dim, Name: dim})
	}
	return study
}

func TestSampleResponseMatchesModel(t *testing.T) {
	item := irt.Item{
		ID: "g1", Dimension: "d", Model: irt.GRM,
		Discrimination: 1.3,
		Thresholds:     []float64{-1.5, -0.5, 0.5, 1.5},
		Categories:     []int{1, 2, 3, 4, 5},
	}
	want, err := irt.Probability(item, 0.3)
	if err != nil {
		t.Fatalf("Probability: %v", err)
	}

	rng := rand.New(rand.NewSource(123))
	const draws = 20000
	counts := make(map[int]int)
	for i := 0; i < draws; i++ {
		code, err := sampleResponse(item, 0.3, rng)
		if err != nil {
			t.Fatalf("sampleResponse: %v", err)
		}
		counts[code]++
	}
	for k, code := range item.Categories {
		got := float64(counts[code]) / draws
		if diff := got - want[k]; diff > 0.02 || diff < -0.02 {
			t.Errorf("category %d: empirical %.4f vs model %.4f", code, got, want[k])
		}
	}
}

func TestRunSessionDeterministic(t *testing.T) {
	items := likertPool("extraversion", 10)
	b, err := bank.New(items)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}
	study := simStudy(stopping.Config{MinItems: 2, MaxItems: 6, MinSEM: 0.01}, "extraversion")
	ex := Examinee{ID: "det", TrueTheta: map[string]float64{"extraversion": 0.7}}

	first, err := RunSession(study, b, ex, 31, nil)
	if err != nil {
		t.Fatalf("RunSession: %v", err)
	}
	second, err := RunSession(study, b, ex, 31, nil)
	if err != nil {
		t.Fatalf("RunSession (repeat): %v", err)
	}

	if !reflect.DeepEqual(first.Results[0].Administered, second.Results[0].Administered) {
		t.Fatalf("same seed chose different items:\n%v\n%v", first.Results[0].Administered, second.Results[0].Administered)
	}
	if first.Results[0].Theta != second.Results[0].Theta {
		t.Fatalf("same seed produced different thetas: %.6f vs %.6f", first.Results[0].Theta, second.Results[0].Theta)
	}
}

func TestBatchSeparatesTraitLevels(t *testing.T) {
	items := likertPool("extraversion", 15)
	b, err := bank.New(items)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}
	study := simStudy(stopping.Config{MinItems: 2, MaxItems: 12, MinSEM: 0.01}, "extraversion")

	var examinees []Examinee
	levels := map[string]float64{"low": -1.5, "mid": 0.0, "high": 1.5}
	for name, theta := range levels {
		for i := 0; i < 30; i++ {
			examinees = append(examinees, Examinee{
				ID:        fmt.Sprintf("%s-%02d", name, i),
				TrueTheta: map[string]float64{"extraversion": theta},
			})
		}
	}

	outcomes, err := RunBatch(context.Background(), study, b, examinees, BatchConfig{Seed: 11, Concurrency: 4}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	means := make(map[string]float64)
	counts := make(map[string]int)
	for i, out := range outcomes {
		level := strings.SplitN(examinees[i].ID, "-", 2)[0]
		means[level] += out.Results[0].Theta
		counts[level]++
	}
	for level := range means {
		means[level] /= float64(counts[level])
	}

	if !(means["low"] < means["mid"] && means["mid"] < means["high"]) {
		t.Fatalf("estimated means do not order with true levels: %v", means)
	}
	if means["high"]-means["low"] < 1.0 {
		t.Fatalf("trait separation too small: %v", means)
	}
	if means["mid"] > 0.5 || means["mid"] < -0.5 {
		t.Fatalf("mid-level estimates biased: %.4f", means["mid"])
	}
}

func TestFixtureRun(t *testing.T) {
	fixture, err := LoadFixture(filepath.Join("testdata", "short_scale.json"))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	study, err := fixture.ToStudy()
	if err != nil {
		t.Fatalf("ToStudy: %v", err)
	}
	b, err := bank.New(fixture.Items)
	if err != nil {
		t.Fatalf("bank.New: %v", err)
	}

	outcomes, err := RunBatch(context.Background(), study, b, fixture.ToExaminees(), BatchConfig{Seed: fixture.Seed, Concurrency: 1}, nil)
	if err != nil {
		t.Fatalf("RunBatch: %v", err)
	}

	if mismatches := fixture.Check(outcomes); len(mismatches) != 0 {
		t.Fatalf("fixture expectations failed:\n%v", mismatches)
	}

	summary := Summarize(fixture.ToExaminees(), outcomes)
	if summary.Sessions != 3 {
		t.Fatalf("expected 3 sessions, got %d", summary.Sessions)
	}
	ext := summary.PerDimension["extraversion"]
	if ext.MeanItems != 4.0 || ext.StopReasons[stopping.ReasonMaxItems] != 3 {
		t.Fatalf("extraversion aggregate off: %+v", ext)
	}
	anx := summary.PerDimension["prog_anxiety"]
	if anx.MeanItems != 3.0 || anx.StopReasons[stopping.ReasonPoolExhausted] != 3 {
		t.Fatalf("prog_anxiety aggregate off: %+v", anx)
	}
}
