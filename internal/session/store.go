package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	study_name    TEXT NOT NULL,
	snapshot_json TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS exposure_totals (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	sessions INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS exposure_counts (
	item_id TEXT PRIMARY KEY,
	count   INTEGER NOT NULL
);
`

// #endregion schema

// #region store-struct

// Store persists session snapshots and exposure counters in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor

// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region db-accessor

// DB returns the underlying *sql.DB for use by other packages (e.g. the
// decision log and the item bank tables, which share the same file).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion db-accessor

// #region save-snapshot

// SaveSnapshot upserts a session snapshot. CreatedAt is preserved across
// updates; UpdatedAt always moves forward.
func (s *Store) SaveSnapshot(snap Snapshot) error {
	now := time.Now().UTC()
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = now
	}
	snap.UpdatedAt = now

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO sessions (session_id, study_name, snapshot_json, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET
		   snapshot_json = excluded.snapshot_json,
		   updated_at    = excluded.updated_at`,
		snap.SessionID, snap.StudyName, string(data),
		snap.CreatedAt.Format(time.RFC3339Nano), snap.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// #endregion save-snapshot

// #region load-snapshot

// LoadSnapshot reads one session snapshot by id.
func (s *Store) LoadSnapshot(sessionID string) (Snapshot, error) {
	var data string
	err := s.db.QueryRow(
		`SELECT snapshot_json FROM sessions WHERE session_id = ?`, sessionID,
	).Scan(&data)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return Snapshot{}, fmt.Errorf("unmarshal snapshot %s: %w", sessionID, err)
	}
	return snap, nil
}

// #endregion load-snapshot

// #region list-sessions

// SessionInfo is a listing row: id plus bookkeeping timestamps.
type SessionInfo struct {
	SessionID string
	StudyName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListSessions returns the most recently updated sessions.
func (s *Store) ListSessions(limit int) ([]SessionInfo, error) {
	rows, err := s.db.Query(
		`SELECT session_id, study_name, created_at, updated_at
		 FROM sessions ORDER BY updated_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var createdStr, updatedStr string
		if err := rows.Scan(&info.SessionID, &info.StudyName, &createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
		infos = append(infos, info)
	}
	return infos, rows.Err()
}

// #endregion list-sessions

// #region exposure

// SaveExposure replaces the persisted exposure counters with the given
// tracker snapshot, atomically.
func (s *Store) SaveExposure(sessions int, counts map[string]int) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO exposure_totals (id, sessions) VALUES (1, ?)
		 ON CONFLICT(id) DO UPDATE SET sessions = excluded.sessions`, sessions,
	)
	if err != nil {
		return fmt.Errorf("save exposure totals: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM exposure_counts`); err != nil {
		return fmt.Errorf("clear exposure counts: %w", err)
	}
	for itemID, count := range counts {
		if _, err := tx.Exec(
			`INSERT INTO exposure_counts (item_id, count) VALUES (?, ?)`, itemID, count,
		); err != nil {
			return fmt.Errorf("save exposure count %s: %w", itemID, err)
		}
	}
	return tx.Commit()
}

// LoadExposure reads the persisted exposure counters. A fresh database
// yields zero sessions and an empty map.
func (s *Store) LoadExposure() (int, map[string]int, error) {
	var sessions int
	err := s.db.QueryRow(`SELECT sessions FROM exposure_totals WHERE id = 1`).Scan(&sessions)
	if err == sql.ErrNoRows {
		return 0, map[string]int{}, nil
	}
	if err != nil {
		return 0, nil, fmt.Errorf("load exposure totals: %w", err)
	}

	rows, err := s.db.Query(`SELECT item_id, count FROM exposure_counts`)
	if err != nil {
		return 0, nil, fmt.Errorf("load exposure counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var itemID string
		var count int
		if err := rows.Scan(&itemID, &count); err != nil {
			return 0, nil, fmt.Errorf("scan exposure row: %w", err)
		}
		counts[itemID] = count
	}
	return sessions, counts, rows.Err()
}

// #endregion exposure
