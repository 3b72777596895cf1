package stopping

import "fmt"

// #region reason

// Reason is a stable identifier for why a dimension stopped (or did not).
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonPrecision     Reason = "precision_reached"
	ReasonMaxItems      Reason = "max_items_reached"
	ReasonPoolExhausted Reason = "pool_exhausted"
)

// #endregion reason

// #region config

// Config holds the termination thresholds for one dimension.
type Config struct {
	MinItems int     `yaml:"min_items" json:"min_items"`
	MaxItems int     `yaml:"max_items" json:"max_items"`
	MinSEM   float64 `yaml:"min_sem" json:"min_sem"` // stop once SE <= this (and MinItems satisfied)
}

// DefaultConfig returns the thresholds used by the standard short scales.
func DefaultConfig() Config {
	return Config{
		MinItems: 2,
		MaxItems: 10,
		MinSEM:   0.35,
	}
}

// Validate checks the thresholds for internally consistent ranges.
func (c Config) Validate() error {
	if c.MinItems <= 0 {
		return fmt.Errorf("stopping: min_items %d must be > 0", c.MinItems)
	}
	if c.MaxItems < c.MinItems {
		return fmt.Errorf("stopping: max_items %d < min_items %d", c.MaxItems, c.MinItems)
	}
	if c.MinSEM <= 0 {
		return fmt.Errorf("stopping: min_sem %.4f must be > 0", c.MinSEM)
	}
	return nil
}

// #endregion config

// #region decision

// Decision is the output of a stopping evaluation.
type Decision struct {
	Stop   bool
	Reason Reason
}

// #endregion decision
