package simulate

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/estimate"
	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
	"github.com/danielpatrickdp/adaptive-cat/internal/selector"
	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a simulation fixture: a small
// study, its item bank, a roster of examinees with known trait levels, and
// the expected qualitative outcome per examinee-dimension pair.
type Fixture struct {
	Description string             `json:"description"`
	Seed        int64              `json:"seed"`
	Estimation  *estimate.Config   `json:"estimation,omitempty"`
	Selection   *selector.Config   `json:"selection,omitempty"`
	Stopping    *stopping.Config   `json:"stopping,omitempty"`
	Dimensions  []FixtureDimension `json:"dimensions"`
	Items       []irt.Item         `json:"items"`
	Examinees   []FixtureExaminee  `json:"examinees"`
	Expected    []Expectation      `json:"expected"`
}

// FixtureDimension names one dimension, optionally overriding the study-wide
// stopping thresholds.
type FixtureDimension struct {
	ID       string           `json:"id"`
	Stopping *stopping.Config `json:"stopping,omitempty"`
}

// FixtureExaminee is one simulated respondent.
type FixtureExaminee struct {
	ID        string             `json:"id"`
	TrueTheta map[string]float64 `json:"true_theta"`
}

// Expectation pins the qualitative outcome of one examinee-dimension run:
// the stop reason and bounds on the administered count. Theta itself is
// stochastic and deliberately not pinned.
type Expectation struct {
	ExamineeID string `json:"examinee_id"`
	Dimension  string `json:"dimension"`
	Reason     string `json:"reason"`
	MinItems   int    `json:"min_items"`
	MaxItems   int    `json:"max_items"`
}

// #endregion fixture-types

// #region loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToStudy converts the fixture to a validated study configuration, layered
// over the standard defaults.
func (f *Fixture) ToStudy() (config.Study, error) {
	study := config.Default()
	study.Name = f.Description
	study.Seed = f.Seed
	if f.Estimation != nil {
		study.Estimation = *f.Estimation
	}
	if f.Selection != nil {
		study.Selection = *f.Selection
	}
	if f.Stopping != nil {
		study.Stopping = *f.Stopping
	}
	for _, dim := range f.Dimensions {
		study.Dimensions = append(study.Dimensions, config.Dimension{
			ID:       dim.ID,
			Name:     dim.ID,
			Stopping: dim.Stopping,
		})
	}
	if err := study.Validate(); err != nil {
		return config.Study{}, fmt.Errorf("fixture study: %w", err)
	}
	return study, nil
}

// ToExaminees converts the fixture roster.
func (f *Fixture) ToExaminees() []Examinee {
	examinees := make([]Examinee, len(f.Examinees))
	for i, ex := range f.Examinees {
		examinees[i] = Examinee{ID: ex.ID, TrueTheta: ex.TrueTheta}
	}
	return examinees
}

// #endregion loader

// #region check

// Check compares batch outcomes against the fixture's expectations and
// returns one message per mismatch. An empty slice means the fixture passed.
func (f *Fixture) Check(outcomes []Outcome) []string {
	type dimOutcome struct {
		reason string
		items  int
	}
	byKey := make(map[string]dimOutcome)
	for _, out := range outcomes {
		for _, res := range out.Results {
			byKey[out.ExamineeID+"/"+res.Dimension] = dimOutcome{
				reason: string(res.Reason),
				items:  res.NumItems,
			}
		}
	}

	var mismatches []string
	for _, want := range f.Expected {
		key := want.ExamineeID + "/" + want.Dimension
		got, ok := byKey[key]
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("%s: no result", key))
			continue
		}
		if want.Reason != "" && got.reason != want.Reason {
			mismatches = append(mismatches, fmt.Sprintf("%s: reason %q, want %q", key, got.reason, want.Reason))
		}
		if want.MinItems > 0 && got.items < want.MinItems {
			mismatches = append(mismatches, fmt.Sprintf("%s: %d items, want >= %d", key, got.items, want.MinItems))
		}
		if want.MaxItems > 0 && got.items > want.MaxItems {
			mismatches = append(mismatches, fmt.Sprintf("%s: %d items, want <= %d", key, got.items, want.MaxItems))
		}
	}
	return mismatches
}

// #endregion check
