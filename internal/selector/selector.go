package selector

import (
	"math/rand"

	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

// #region selector

// Selector picks the next item for one dimension. The rng is injected so
// sessions replay deterministically under a fixed seed; the tracker may be
// nil when exposure control is disabled.
type Selector struct {
	config   Config
	rng      *rand.Rand
	exposure *ExposureTracker
}

// NewSelector creates a selector with the given policy.
func NewSelector(config Config, rng *rand.Rand, exposure *ExposureTracker) *Selector {
	return &Selector{config: config, rng: rng, exposure: exposure}
}

// #endregion selector

// #region select-next

// SelectNext returns the id of the next item to administer from the
// dimension's pool, or ok=false when every pool item has been administered.
// Pool exhaustion is always checked first — it is a hard stop distinct from
// the stopping rule.
func (s *Selector) SelectNext(pool []irt.Item, administered []string, theta float64) (string, bool) {
	given := make(map[string]bool, len(administered))
	for _, id := range administered {
		given[id] = true
	}

	remaining := make([]irt.Item, 0, len(pool))
	for _, it := range pool {
		if !given[it.ID] {
			remaining = append(remaining, it)
		}
	}
	if len(remaining) == 0 {
		return "", false
	}

	// First item of a dimension: uniform random draw. No information exists
	// to rank items yet, and information-maximizing around the prior mean
	// would funnel every examinee through the same average-difficulty items.
	if len(administered) == 0 {
		return remaining[s.rng.Intn(len(remaining))].ID, true
	}

	switch s.config.Criterion {
	case Random:
		return remaining[s.rng.Intn(len(remaining))].ID, true
	case FixedSequence:
		return remaining[0].ID, true
	}

	eligible := s.applyExposureFilter(remaining)
	eligible = s.applyContentBalance(eligible, pool, administered)
	return maxInformation(eligible, theta), true
}

// #endregion select-next

// #region exposure-filter

// applyExposureFilter drops items whose running exposure rate exceeds the
// cap. Falls back to the unfiltered set when the filter would empty it —
// exposure control must never block the loop.
func (s *Selector) applyExposureFilter(remaining []irt.Item) []irt.Item {
	if s.config.ExposureCap <= 0 || s.exposure == nil {
		return remaining
	}
	eligible := make([]irt.Item, 0, len(remaining))
	for _, it := range remaining {
		if s.exposure.Rate(it.ID) <= s.config.ExposureCap {
			eligible = append(eligible, it)
		}
	}
	if len(eligible) == 0 {
		return remaining
	}
	return eligible
}

// #endregion exposure-filter

// #region content-balance

// applyContentBalance restricts the eligible set to items from subcategories
// still under their target share of administered items. Subcategories with
// no configured target are unconstrained. Falls back to the full set when no
// under-target items remain.
func (s *Selector) applyContentBalance(remaining []irt.Item, pool []irt.Item, administered []string) []irt.Item {
	if len(s.config.Targets) == 0 {
		return remaining
	}

	subByID := make(map[string]string, len(pool))
	for _, it := range pool {
		subByID[it.ID] = it.Subcategory
	}
	counts := make(map[string]int)
	for _, id := range administered {
		counts[subByID[id]]++
	}
	total := float64(len(administered))

	eligible := make([]irt.Item, 0, len(remaining))
	for _, it := range remaining {
		target, constrained := s.config.Targets[it.Subcategory]
		if !constrained {
			eligible = append(eligible, it)
			continue
		}
		share := float64(counts[it.Subcategory]) / total
		if share < target {
			eligible = append(eligible, it)
		}
	}
	if len(eligible) == 0 {
		return remaining
	}
	return eligible
}

// #endregion content-balance

// #region max-information

// maxInformation returns the id of the highest-information item, breaking
// ties by lowest item id so selection is reproducible.
func maxInformation(items []irt.Item, theta float64) string {
	best := items[0]
	bestInfo := irt.Information(best, theta)
	for _, it := range items[1:] {
		info := irt.Information(it, theta)
		if info > bestInfo || (info == bestInfo && it.ID < best.ID) {
			best = it
			bestInfo = info
		}
	}
	return best.ID
}

// #endregion max-information
