package logging

import "time"

// #region decision-entry

// DecisionEntry is a single row in the decision_log table: one administer,
// estimate, stop, or reject event within a session.
type DecisionEntry struct {
	SessionID     string
	Dimension     string
	ItemID        string
	Action        string // "administer" | "estimate" | "stop" | "reject"
	Theta         float64
	SE            float64
	NAdministered int
	Reason        string
	DetailJSON    string
	CreatedAt     time.Time
}

// #endregion decision-entry
