package bank

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/adaptive-cat/internal/irt"
)

// #region schema

const itemsSchema = `
CREATE TABLE IF NOT EXISTS items (
	item_id      TEXT PRIMARY KEY,
	dimension    TEXT NOT NULL,
	subcategory  TEXT,
	model        TEXT NOT NULL,
	a            REAL NOT NULL,
	b            REAL NOT NULL DEFAULT 0,
	c            REAL NOT NULL DEFAULT 0,
	thresholds   TEXT,
	categories   TEXT NOT NULL,
	position     INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_items_dimension ON items(dimension);
`

// #endregion schema

// #region store

// Store persists an item bank in SQLite alongside the session tables, so a
// running service carries its calibration with its data.
type Store struct {
	db *sql.DB
}

// NewStore initializes the items table and returns a Store.
func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(itemsSchema); err != nil {
		return nil, fmt.Errorf("migrate items: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion store

// #region save

// Save replaces the stored bank with b, atomically.
func (s *Store) Save(b *Bank) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM items`); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	for pos, it := range b.Items() {
		thresholds, err := json.Marshal(it.Thresholds)
		if err != nil {
			return fmt.Errorf("marshal thresholds: %w", err)
		}
		categories, err := json.Marshal(it.Categories)
		if err != nil {
			return fmt.Errorf("marshal categories: %w", err)
		}
		_, err = tx.Exec(
			`INSERT INTO items (item_id, dimension, subcategory, model, a, b, c, thresholds, categories, position)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			it.ID, it.Dimension, it.Subcategory, string(it.Model),
			it.Discrimination, it.Difficulty, it.Guessing,
			string(thresholds), string(categories), pos,
		)
		if err != nil {
			return fmt.Errorf("insert item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

// #endregion save

// #region load

// Load reads the stored bank back, in its original order, re-running full
// validation on the way in.
func (s *Store) Load() (*Bank, error) {
	rows, err := s.db.Query(
		`SELECT item_id, dimension, subcategory, model, a, b, c, thresholds, categories
		 FROM items ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	defer rows.Close()

	var items []irt.Item
	for rows.Next() {
		var it irt.Item
		var sub sql.NullString
		var model, thresholds, categories string
		if err := rows.Scan(&it.ID, &it.Dimension, &sub, &model,
			&it.Discrimination, &it.Difficulty, &it.Guessing, &thresholds, &categories); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		it.Model = irt.ModelFamily(model)
		if sub.Valid {
			it.Subcategory = sub.String
		}
		if thresholds != "" {
			if err := json.Unmarshal([]byte(thresholds), &it.Thresholds); err != nil {
				return nil, fmt.Errorf("unmarshal thresholds for %s: %w", it.ID, err)
			}
		}
		if err := json.Unmarshal([]byte(categories), &it.Categories); err != nil {
			return nil, fmt.Errorf("unmarshal categories for %s: %w", it.ID, err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return New(items)
}

// #endregion load
