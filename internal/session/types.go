package session

import (
	"time"

	"github.com/danielpatrickdp/adaptive-cat/internal/estimate"
	"github.com/danielpatrickdp/adaptive-cat/internal/stopping"
)

// #region status

// Status tracks a dimension's one-way lifecycle: Active -> Complete.
type Status string

const (
	StatusActive   Status = "active"
	StatusComplete Status = "complete"
)

// #endregion status

// #region state

// State is the mutable per-dimension record of one examinee's progress.
// Administered, Responses, ThetaHistory, and SEHistory stay the same length
// after every completed item cycle; PendingItem bridges the gap between a
// next-item directive and its response. Frozen once Status is Complete.
type State struct {
	Dimension    string   `json:"dimension"`
	Administered []string `json:"administered"`
	Responses    []int    `json:"responses"`

	ThetaHistory []float64 `json:"theta_history"`
	SEHistory    []float64 `json:"se_history"`

	PendingItem  string           `json:"pending_item,omitempty"`
	LastEstimate *estimate.Result `json:"last_estimate,omitempty"`
	Status       Status           `json:"status"`
}

func newState(dimension string) *State {
	return &State{Dimension: dimension, Status: StatusActive}
}

// #endregion state

// #region result

// Result is the immutable outcome of one completed dimension. The ordered
// set of Results is the engine's terminal artifact and the sole contract
// with downstream reporting.
type Result struct {
	Dimension    string            `json:"dimension"`
	Theta        float64           `json:"theta"`
	SE           float64           `json:"se"`
	Administered []string          `json:"administered"`
	Responses    []int             `json:"responses"`
	NumItems     int               `json:"num_items"`
	Reason       stopping.Reason   `json:"reason"`
	Fallback     estimate.Fallback `json:"fallback,omitempty"` // non-empty when the final estimate came from a fallback path
	CompletedAt  time.Time         `json:"completed_at"`
}

// #endregion result

// #region directive

// Directive tells the UI collaborator what to do next: render an item, or
// advance past a finished assessment.
type Directive struct {
	Dimension   string `json:"dimension,omitempty"`
	ItemID      string `json:"item_id,omitempty"`
	AllComplete bool   `json:"all_complete,omitempty"`
}

// #endregion directive

// #region step-result

// StepResult reports what one response did to the session.
type StepResult struct {
	Dimension         string            `json:"dimension"`
	Estimate          estimate.Result   `json:"estimate"`
	Decision          stopping.Decision `json:"-"`
	DimensionComplete bool              `json:"dimension_complete"`
	AllComplete       bool              `json:"all_complete"`
	Reason            stopping.Reason   `json:"reason,omitempty"`
}

// #endregion step-result

// #region snapshot

// Snapshot is the JSON-serializable form of a whole coordinator, persisted
// after every step so a restarted service can resume in-flight sessions.
type Snapshot struct {
	SessionID        string            `json:"session_id"`
	StudyName        string            `json:"study_name"`
	CurrentDimension int               `json:"current_dimension"`
	States           map[string]*State `json:"states"`
	Results          []Result          `json:"results"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

// #endregion snapshot
