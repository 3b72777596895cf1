package irt

import "fmt"

// #region model-family

// ModelFamily identifies the response model an item was calibrated under.
type ModelFamily string

const (
	OnePL   ModelFamily = "1PL"
	TwoPL   ModelFamily = "2PL"
	ThreePL ModelFamily = "3PL"
	GRM     ModelFamily = "GRM"
)

// Valid reports whether the family is one of the supported models.
func (m ModelFamily) Valid() bool {
	switch m {
	case OnePL, TwoPL, ThreePL, GRM:
		return true
	}
	return false
}

// Binary reports whether the family is a dichotomous model.
func (m ModelFamily) Binary() bool {
	return m == OnePL || m == TwoPL || m == ThreePL
}

// #endregion model-family

// #region item

// Item is a single calibrated item. Immutable once loaded into a bank.
type Item struct {
	ID          string      `json:"id"`
	Dimension   string      `json:"dimension"`
	Subcategory string      `json:"subcategory,omitempty"` // content-balancing bucket, optional
	Model       ModelFamily `json:"model"`

	Discrimination float64   `json:"a"`
	Difficulty     float64   `json:"b,omitempty"`          // binary models
	Thresholds     []float64 `json:"thresholds,omitempty"` // GRM, strictly increasing
	Guessing       float64   `json:"c,omitempty"`          // 3PL only

	// Categories is the ordered list of declared response codes:
	// 2 codes for binary models, len(Thresholds)+1 for GRM.
	Categories []int `json:"categories"`
}

// #endregion item

// #region validate

// Validate checks the calibration parameters for internal consistency.
func (it Item) Validate() error {
	if it.ID == "" {
		return fmt.Errorf("item has empty id")
	}
	if it.Dimension == "" {
		return fmt.Errorf("item %s: empty dimension", it.ID)
	}
	if !it.Model.Valid() {
		return fmt.Errorf("item %s: unknown model family %q", it.ID, it.Model)
	}
	if it.Discrimination <= 0 {
		return fmt.Errorf("item %s: discrimination %.4f must be > 0", it.ID, it.Discrimination)
	}

	switch it.Model {
	case OnePL, TwoPL, ThreePL:
		if len(it.Categories) != 2 {
			return fmt.Errorf("item %s: binary model needs exactly 2 response categories, got %d", it.ID, len(it.Categories))
		}
		if len(it.Thresholds) != 0 {
			return fmt.Errorf("item %s: binary model must not carry GRM thresholds", it.ID)
		}
		if it.Model == ThreePL {
			if it.Guessing < 0 || it.Guessing >= 1 {
				return fmt.Errorf("item %s: guessing %.4f outside [0,1)", it.ID, it.Guessing)
			}
		} else if it.Guessing != 0 {
			return fmt.Errorf("item %s: guessing parameter only valid for 3PL", it.ID)
		}
	case GRM:
		if len(it.Thresholds) == 0 {
			return fmt.Errorf("item %s: GRM item needs at least one threshold", it.ID)
		}
		for i := 1; i < len(it.Thresholds); i++ {
			if it.Thresholds[i] <= it.Thresholds[i-1] {
				return fmt.Errorf("item %s: thresholds not strictly increasing at index %d (%.4f <= %.4f)",
					it.ID, i, it.Thresholds[i], it.Thresholds[i-1])
			}
		}
		if len(it.Categories) != len(it.Thresholds)+1 {
			return fmt.Errorf("item %s: GRM with %d thresholds needs %d response categories, got %d",
				it.ID, len(it.Thresholds), len(it.Thresholds)+1, len(it.Categories))
		}
		if it.Guessing != 0 {
			return fmt.Errorf("item %s: guessing parameter only valid for 3PL", it.ID)
		}
	}

	seen := make(map[int]bool, len(it.Categories))
	for _, c := range it.Categories {
		if seen[c] {
			return fmt.Errorf("item %s: duplicate response category %d", it.ID, c)
		}
		seen[c] = true
	}
	return nil
}

// #endregion validate

// #region category-index

// CategoryIndex maps a declared response code to its position in Categories.
// Returns -1 for codes the item does not declare.
func (it Item) CategoryIndex(code int) int {
	for i, c := range it.Categories {
		if c == code {
			return i
		}
	}
	return -1
}

// #endregion category-index
