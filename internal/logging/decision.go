package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region schema

const decisionLogSchema = `
CREATE TABLE IF NOT EXISTS decision_log (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id     TEXT NOT NULL,
	dimension      TEXT NOT NULL,
	item_id        TEXT,
	action         TEXT NOT NULL,
	theta          REAL NOT NULL,
	se             REAL NOT NULL,
	n_administered INTEGER NOT NULL,
	reason         TEXT,
	detail_json    TEXT,
	created_at     TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decision_log_session ON decision_log(session_id, dimension);
`

// #endregion schema

// #region init

// Init creates the decision_log table.
func Init(db *sql.DB) error {
	if _, err := db.Exec(decisionLogSchema); err != nil {
		return fmt.Errorf("migrate decision log: %w", err)
	}
	return nil
}

// #endregion init

// #region log-decision

// LogDecision writes a decision entry. Failures here must never affect the
// session itself; callers log the error and move on.
func LogDecision(db *sql.DB, entry DecisionEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO decision_log (session_id, dimension, item_id, action, theta, se, n_administered, reason, detail_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Dimension,
		nullIfEmpty(entry.ItemID),
		entry.Action,
		entry.Theta,
		entry.SE,
		entry.NAdministered,
		nullIfEmpty(entry.Reason),
		nullIfEmpty(entry.DetailJSON),
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log decision: %w", err)
	}
	return nil
}

// #endregion log-decision

// #region list

// ListDecisions returns a session's decision rows in insertion order.
func ListDecisions(db *sql.DB, sessionID string) ([]DecisionEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, dimension, item_id, action, theta, se, n_administered, reason, detail_json, created_at
		 FROM decision_log WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var entries []DecisionEntry
	for rows.Next() {
		var e DecisionEntry
		var itemID, reason, detail sql.NullString
		var createdStr string
		if err := rows.Scan(&e.SessionID, &e.Dimension, &itemID, &e.Action,
			&e.Theta, &e.SE, &e.NAdministered, &reason, &detail, &createdStr); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		if itemID.Valid {
			e.ItemID = itemID.String
		}
		if reason.Valid {
			e.Reason = reason.String
		}
		if detail.Valid {
			e.DetailJSON = detail.String
		}
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
