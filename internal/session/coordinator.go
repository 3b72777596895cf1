package session

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/danielpatrickdp/adaptive-cat/internal/bank"
	"github.com/danielpatrickdp/adaptive-cat/internal/config"
	"github.com/danielpatrickdp/adaptive-cat/internal/estimate"
	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
	"github.com/danielpatrickdp/adaptive-cat/internal/logging"
	"github.com/danielpatrickdp/adaptive-cat/internal/selector"
	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

// Recoverable rejection cases. The session state is left untouched when any
// of these is returned; the caller re-collects and retries.
var (
	ErrSessionComplete = errors.New("session: all dimensions complete")
	ErrNoPendingItem   = errors.New("session: no pending item to answer")
	ErrItemMismatch    = errors.New("session: response does not match the pending item")
	ErrInvalidResponse = errors.New("session: response code not in the item's declared categories")
)

// #region coordinator

// Coordinator drives one examinee through all configured dimensions,
// strictly in study order: a dimension fully completes before the next one
// starts, so responses and exposure under dimension i can never influence
// dimension i+1. One coordinator per examinee; the only state shared with
// other coordinators is the exposure tracker.
type Coordinator struct {
	sessionID string
	study     config.Study
	bank      *bank.Bank

	selectors  map[string]*selector.Selector
	evaluators map[string]*stopping.Evaluator

	states  map[string]*State
	order   []string
	current int
	results []Result

	exposure *selector.ExposureTracker // may be nil
	logDB    *sql.DB                   // may be nil; decision log is best-effort
}

// NewCoordinator validates the study against the bank and starts a fresh
// session. An invalid configuration or an uncovered dimension refuses to
// start rather than produce silently wrong estimates.
func NewCoordinator(sessionID string, study config.Study, b *bank.Bank, rng *rand.Rand, exposure *selector.ExposureTracker, logDB *sql.DB) (*Coordinator, error) {
	c, err := newCoordinator(sessionID, study, b, rng, exposure, logDB)
	if err != nil {
		return nil, err
	}
	if exposure != nil {
		exposure.StartSession()
	}
	return c, nil
}

func newCoordinator(sessionID string, study config.Study, b *bank.Bank, rng *rand.Rand, exposure *selector.ExposureTracker, logDB *sql.DB) (*Coordinator, error) {
	if err := study.Validate(); err != nil {
		return nil, err
	}
	order := study.DimensionIDs()
	if err := b.CheckCoverage(order); err != nil {
		return nil, err
	}

	c := &Coordinator{
		sessionID:  sessionID,
		study:      study,
		bank:       b,
		selectors:  make(map[string]*selector.Selector, len(order)),
		evaluators: make(map[string]*stopping.Evaluator, len(order)),
		states:     make(map[string]*State, len(order)),
		order:      order,
		exposure:   exposure,
		logDB:      logDB,
	}
	for _, dim := range order {
		c.selectors[dim] = selector.NewSelector(study.SelectionFor(dim), rng, exposure)
		c.evaluators[dim] = stopping.NewEvaluator(study.StoppingFor(dim))
	}
	return c, nil
}

// SessionID returns the examinee session identifier.
func (c *Coordinator) SessionID() string {
	return c.sessionID
}

// Complete reports whether every dimension has finished.
func (c *Coordinator) Complete() bool {
	return c.current >= len(c.order)
}

// #endregion coordinator

// #region next-item

// NextItem returns the next-item directive. Re-issuing it while a response
// is outstanding returns the same pending item, so a UI retry cannot skip or
// double-administer an item. Pool exhaustion is detected here — before the
// stopping rule is ever consulted — and completes the dimension.
func (c *Coordinator) NextItem() (Directive, error) {
	for c.current < len(c.order) {
		dim := c.order[c.current]
		st := c.states[dim]
		if st == nil {
			// Entering a new dimension: fresh, empty state.
			st = newState(dim)
			c.states[dim] = st
		}
		if st.Status == StatusComplete {
			c.current++
			continue
		}
		if st.PendingItem != "" {
			return Directive{Dimension: dim, ItemID: st.PendingItem}, nil
		}

		itemID, ok := c.selectors[dim].SelectNext(c.bank.Pool(dim), st.Administered, c.currentTheta(st))
		if !ok {
			c.finalize(dim, st, stopping.ReasonPoolExhausted)
			c.current++
			continue
		}

		st.PendingItem = itemID
		if c.exposure != nil {
			c.exposure.Record(itemID)
		}
		c.logDecision(logging.DecisionEntry{
			Dimension:     dim,
			ItemID:        itemID,
			Action:        "administer",
			Theta:         c.currentTheta(st),
			SE:            c.currentSE(st),
			NAdministered: len(st.Administered) + 1,
		})
		return Directive{Dimension: dim, ItemID: itemID}, nil
	}
	return Directive{AllComplete: true}, nil
}

// #endregion next-item

// #region submit-response

// SubmitResponse records one response event, re-estimates theta/SE from all
// responses so far, and evaluates the stopping rule. The state mutates
// exactly once per administered-item cycle; every rejection path leaves it
// untouched.
func (c *Coordinator) SubmitResponse(dimension, itemID string, code int) (StepResult, error) {
	if c.Complete() {
		return StepResult{}, ErrSessionComplete
	}
	active := c.order[c.current]
	if dimension != active {
		return StepResult{}, fmt.Errorf("session: dimension %q is not active (current: %q): %w", dimension, active, ErrNoPendingItem)
	}
	st := c.states[active]
	if st == nil || st.PendingItem == "" {
		return StepResult{}, ErrNoPendingItem
	}
	if itemID != st.PendingItem {
		return StepResult{}, fmt.Errorf("session: got response for %q, pending item is %q: %w", itemID, st.PendingItem, ErrItemMismatch)
	}

	item, ok := c.bank.Item(itemID)
	if !ok {
		return StepResult{}, fmt.Errorf("session: unknown item %q: %w", itemID, ErrItemMismatch)
	}
	if item.CategoryIndex(code) < 0 {
		c.logDecision(logging.DecisionEntry{
			Dimension:     active,
			ItemID:        itemID,
			Action:        "reject",
			Theta:         c.currentTheta(st),
			SE:            c.currentSE(st),
			NAdministered: len(st.Administered),
			Reason:        fmt.Sprintf("response code %d not declared", code),
		})
		return StepResult{}, fmt.Errorf("session: item %s, code %d: %w", itemID, code, ErrInvalidResponse)
	}

	st.Administered = append(st.Administered, itemID)
	st.Responses = append(st.Responses, code)

	res, err := estimate.Estimate(c.administeredItems(st), st.Responses, c.study.Estimation)
	if err != nil {
		// Roll the append back so the state committed for prior items stays
		// valid and usable for a coarser result.
		st.Administered = st.Administered[:len(st.Administered)-1]
		st.Responses = st.Responses[:len(st.Responses)-1]
		return StepResult{}, fmt.Errorf("session %s: dimension %s, item %d (%s): %w",
			c.sessionID, active, len(st.Administered)+1, itemID, err)
	}

	st.PendingItem = ""
	st.ThetaHistory = append(st.ThetaHistory, res.Theta)
	st.SEHistory = append(st.SEHistory, res.SE)
	st.LastEstimate = &res

	c.logDecision(logging.DecisionEntry{
		Dimension:     active,
		ItemID:        itemID,
		Action:        "estimate",
		Theta:         res.Theta,
		SE:            res.SE,
		NAdministered: len(st.Administered),
		Reason:        string(res.Fallback),
	})

	decision := c.evaluators[active].Evaluate(len(st.Administered), res.SE)
	step := StepResult{
		Dimension: active,
		Estimate:  res,
		Decision:  decision,
		Reason:    decision.Reason,
	}
	if decision.Stop {
		c.finalize(active, st, decision.Reason)
		c.current++
		step.DimensionComplete = true
		step.AllComplete = c.Complete()
	}
	return step, nil
}

// #endregion submit-response

// #region results

// Results returns the per-dimension result tuples, in completion order.
// The returned slice is a copy; completed results are never mutated.
func (c *Coordinator) Results() []Result {
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}

// #endregion results

// #region internals

// finalize freezes a dimension's state and records its immutable result.
func (c *Coordinator) finalize(dim string, st *State, reason stopping.Reason) {
	st.Status = StatusComplete
	st.PendingItem = ""

	res := Result{
		Dimension:    dim,
		Theta:        c.currentTheta(st),
		SE:           c.currentSE(st),
		Administered: append([]string(nil), st.Administered...),
		Responses:    append([]int(nil), st.Responses...),
		NumItems:     len(st.Administered),
		Reason:       reason,
		CompletedAt:  time.Now().UTC(),
	}
	if st.LastEstimate != nil {
		res.Fallback = st.LastEstimate.Fallback
	}
	c.results = append(c.results, res)

	log.Printf("[COORD] session=%s dimension=%s complete: theta=%.4f se=%.4f items=%d reason=%s",
		c.sessionID, dim, res.Theta, res.SE, res.NumItems, reason)
	c.logDecision(logging.DecisionEntry{
		Dimension:     dim,
		Action:        "stop",
		Theta:         res.Theta,
		SE:            res.SE,
		NAdministered: res.NumItems,
		Reason:        string(reason),
	})
}

// currentTheta returns the latest estimate for a dimension, or the prior
// mean before any response exists.
func (c *Coordinator) currentTheta(st *State) float64 {
	if n := len(st.ThetaHistory); n > 0 {
		return st.ThetaHistory[n-1]
	}
	return c.study.Estimation.PriorMean
}

func (c *Coordinator) currentSE(st *State) float64 {
	if n := len(st.SEHistory); n > 0 {
		return st.SEHistory[n-1]
	}
	return c.study.Estimation.PriorSD
}

// administeredItems resolves a state's administered ids against the bank.
func (c *Coordinator) administeredItems(st *State) []irt.Item {
	items := make([]irt.Item, len(st.Administered))
	for i, id := range st.Administered {
		items[i], _ = c.bank.Item(id)
	}
	return items
}

func (c *Coordinator) logDecision(entry logging.DecisionEntry) {
	if c.logDB == nil {
		return
	}
	entry.SessionID = c.sessionID
	if err := logging.LogDecision(c.logDB, entry); err != nil {
		log.Printf("[COORD] session=%s decision log write failed: %v", c.sessionID, err)
	}
}

// #endregion internals

// #region snapshot

// Snapshot captures the whole coordinator for persistence.
func (c *Coordinator) Snapshot() Snapshot {
	states := make(map[string]*State, len(c.states))
	for dim, st := range c.states {
		cp := *st
		cp.Administered = append([]string(nil), st.Administered...)
		cp.Responses = append([]int(nil), st.Responses...)
		cp.ThetaHistory = append([]float64(nil), st.ThetaHistory...)
		cp.SEHistory = append([]float64(nil), st.SEHistory...)
		states[dim] = &cp
	}
	return Snapshot{
		SessionID:        c.sessionID,
		StudyName:        c.study.Name,
		CurrentDimension: c.current,
		States:           states,
		Results:          c.Results(),
		UpdatedAt:        time.Now().UTC(),
	}
}

// NewCoordinatorFromSnapshot resumes a persisted session. The exposure
// tracker is not re-registered: the original session already counts in its
// denominator.
func NewCoordinatorFromSnapshot(snap Snapshot, study config.Study, b *bank.Bank, rng *rand.Rand, exposure *selector.ExposureTracker, logDB *sql.DB) (*Coordinator, error) {
	c, err := newCoordinator(snap.SessionID, study, b, rng, exposure, logDB)
	if err != nil {
		return nil, err
	}
	if snap.CurrentDimension < 0 || snap.CurrentDimension > len(c.order) {
		return nil, fmt.Errorf("session: snapshot dimension index %d out of range", snap.CurrentDimension)
	}
	for dim, st := range snap.States {
		if _, ok := c.selectors[dim]; !ok {
			return nil, fmt.Errorf("session: snapshot references unknown dimension %q", dim)
		}
		c.states[dim] = st
	}
	c.current = snap.CurrentDimension
	c.results = append(c.results, snap.Results...)
	return c, nil
}

// #endregion snapshot
