package bank

import (
	"fmt"

	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

// #region bank

// Bank is a validated, immutable collection of calibrated items partitioned
// into disjoint per-dimension sub-pools. Item order within a pool follows
// bank order, which the fixed-sequence selector relies on.
type Bank struct {
	items []irt.Item
	byID  map[string]irt.Item
	dims  []string // first-seen order
	pools map[string][]irt.Item
}

// New validates the items and builds the bank. Rejected: empty banks,
// duplicate ids, and any item that fails its own calibration validation.
func New(items []irt.Item) (*Bank, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("bank: no items")
	}

	b := &Bank{
		byID:  make(map[string]irt.Item, len(items)),
		pools: make(map[string][]irt.Item),
	}
	for _, it := range items {
		if err := it.Validate(); err != nil {
			return nil, fmt.Errorf("bank: %w", err)
		}
		if _, dup := b.byID[it.ID]; dup {
			return nil, fmt.Errorf("bank: duplicate item id %q", it.ID)
		}
		b.byID[it.ID] = it
		if _, seen := b.pools[it.Dimension]; !seen {
			b.dims = append(b.dims, it.Dimension)
		}
		b.pools[it.Dimension] = append(b.pools[it.Dimension], it)
		b.items = append(b.items, it)
	}
	return b, nil
}

// #endregion bank

// #region accessors

// Item looks up one item by id.
func (b *Bank) Item(id string) (irt.Item, bool) {
	it, ok := b.byID[id]
	return it, ok
}

// Pool returns the sub-pool for a dimension, in bank order. Nil when the
// bank holds no items for that dimension.
func (b *Bank) Pool(dimension string) []irt.Item {
	return b.pools[dimension]
}

// Dimensions returns the dimension ids in first-seen bank order.
func (b *Bank) Dimensions() []string {
	return b.dims
}

// Items returns every item in bank order.
func (b *Bank) Items() []irt.Item {
	return b.items
}

// Len returns the total item count.
func (b *Bank) Len() int {
	return len(b.items)
}

// #endregion accessors

// #region coverage

// CheckCoverage verifies that every required dimension has at least one
// item — a study configured over a dimension with an empty pool must refuse
// to start.
func (b *Bank) CheckCoverage(dimensions []string) error {
	for _, dim := range dimensions {
		if len(b.pools[dim]) == 0 {
			return fmt.Errorf("bank: dimension %q has no items", dim)
		}
	}
	return nil
}

// #endregion coverage
