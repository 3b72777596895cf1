package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/adaptive-cat/internal/estimate"
	"github.com/danielpatrickdp/adaptive-cat/internal/selector"
	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

// #region types

// Dimension names one trait being measured and may override the study-wide
// stopping and selection policies for its own item sub-pool.
type Dimension struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Stopping  *stopping.Config `yaml:"stopping,omitempty"`
	Selection *selector.Config `yaml:"selection,omitempty"`
}

// Study is the read-only configuration shared by every session of a study.
// All fields are fixed once a session has started.
type Study struct {
	Name       string          `yaml:"name"`
	Seed       int64           `yaml:"seed"` // 0 = derive per session
	Estimation estimate.Config `yaml:"estimation"`
	Selection  selector.Config `yaml:"selection"`
	Stopping   stopping.Config `yaml:"stopping"`
	Dimensions []Dimension     `yaml:"dimensions"`
}

// #endregion types

// #region defaults

// Default returns a study with the standard estimator, selector, and
// stopping setups and no dimensions; callers add dimensions and validate.
func Default() Study {
	return Study{
		Estimation: estimate.DefaultConfig(),
		Selection:  selector.DefaultConfig(),
		Stopping:   stopping.DefaultConfig(),
	}
}

// #endregion defaults

// #region load

// Load reads a study configuration from a YAML file, layered over Default()
// so omitted fields keep their standard values. The result is validated.
func Load(path string) (Study, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Study{}, fmt.Errorf("read config: %w", err)
	}
	study := Default()
	if err := yaml.Unmarshal(data, &study); err != nil {
		return Study{}, fmt.Errorf("parse config: %w", err)
	}
	if err := study.Validate(); err != nil {
		return Study{}, err
	}
	return study, nil
}

// #endregion load

// #region validate

// Validate checks the study for internally consistent ranges. A study that
// fails validation must never start a session.
func (s Study) Validate() error {
	if err := s.Estimation.Validate(); err != nil {
		return err
	}
	if err := s.Selection.Validate(); err != nil {
		return err
	}
	if err := s.Stopping.Validate(); err != nil {
		return err
	}
	if len(s.Dimensions) == 0 {
		return fmt.Errorf("config: study has no dimensions")
	}

	seen := make(map[string]bool, len(s.Dimensions))
	for _, dim := range s.Dimensions {
		if dim.ID == "" {
			return fmt.Errorf("config: dimension with empty id")
		}
		if seen[dim.ID] {
			return fmt.Errorf("config: duplicate dimension id %q", dim.ID)
		}
		seen[dim.ID] = true

		if dim.Stopping != nil {
			if err := dim.Stopping.Validate(); err != nil {
				return fmt.Errorf("config: dimension %s: %w", dim.ID, err)
			}
		}
		if dim.Selection != nil {
			if err := dim.Selection.Validate(); err != nil {
				return fmt.Errorf("config: dimension %s: %w", dim.ID, err)
			}
		}
	}
	return nil
}

// #endregion validate

// #region resolution

// StoppingFor returns the stopping thresholds in effect for a dimension.
func (s Study) StoppingFor(dimensionID string) stopping.Config {
	for _, dim := range s.Dimensions {
		if dim.ID == dimensionID && dim.Stopping != nil {
			return *dim.Stopping
		}
	}
	return s.Stopping
}

// SelectionFor returns the selection policy in effect for a dimension.
func (s Study) SelectionFor(dimensionID string) selector.Config {
	for _, dim := range s.Dimensions {
		if dim.ID == dimensionID && dim.Selection != nil {
			return *dim.Selection
		}
	}
	return s.Selection
}

// DimensionIDs returns the configured dimension ids in study order.
func (s Study) DimensionIDs() []string {
	ids := make([]string, len(s.Dimensions))
	for i, dim := range s.Dimensions {
		ids[i] = dim.ID
	}
	return ids
}

// #endregion resolution
