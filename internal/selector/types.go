package selector

import "fmt"

// #region criterion

// Criterion selects the ranking rule for subsequent items. The first item of
// a dimension is always drawn uniformly at random regardless of criterion,
// so an uninformative starting estimate cannot bias the opening item.
type Criterion string

const (
	MaxInformation Criterion = "max_information"
	Random         Criterion = "random"
	FixedSequence  Criterion = "fixed_sequence"
)

// Valid reports whether the criterion is supported.
func (c Criterion) Valid() bool {
	switch c {
	case MaxInformation, Random, FixedSequence:
		return true
	}
	return false
}

// #endregion criterion

// #region config

// Config holds the selection policy for one dimension.
type Config struct {
	Criterion Criterion `yaml:"criterion" json:"criterion"`

	// ExposureCap is the max fraction of sessions an item may be shown to.
	// Zero disables exposure control.
	ExposureCap float64 `yaml:"exposure_cap" json:"exposure_cap"`

	// Targets maps subcategory -> target proportion of administered items.
	// Empty disables content balancing.
	Targets map[string]float64 `yaml:"targets" json:"targets"`
}

// DefaultConfig returns maximum-information selection with no exposure or
// content constraints.
func DefaultConfig() Config {
	return Config{Criterion: MaxInformation}
}

// Validate checks the policy for usable ranges.
func (c Config) Validate() error {
	if !c.Criterion.Valid() {
		return fmt.Errorf("selector: unknown criterion %q", c.Criterion)
	}
	if c.ExposureCap < 0 || c.ExposureCap > 1 {
		return fmt.Errorf("selector: exposure_cap %.4f outside [0,1]", c.ExposureCap)
	}
	var sum float64
	for sub, target := range c.Targets {
		if target <= 0 || target > 1 {
			return fmt.Errorf("selector: target for %q is %.4f, must be in (0,1]", sub, target)
		}
		sum += target
	}
	if sum > 1+1e-9 {
		return fmt.Errorf("selector: content-balancing targets sum to %.4f > 1", sum)
	}
	return nil
}

// #endregion config
