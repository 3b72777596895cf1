package logging

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func tempDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Init(db); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return db
}

func TestLogAndListDecisions(t *testing.T) {
	db := tempDB(t)

	entries := []DecisionEntry{
		{SessionID: "s1", Dimension: "extraversion", ItemID: "ext-3", Action: "administer", Theta: 0, SE: 1, NAdministered: 1},
		{SessionID: "s1", Dimension: "extraversion", ItemID: "ext-3", Action: "estimate", Theta: 0.42, SE: 0.71, NAdministered: 1},
		{SessionID: "s1", Dimension: "extraversion", Action: "stop", Theta: 0.42, SE: 0.31, NAdministered: 5, Reason: "precision_reached"},
		{SessionID: "s2", Dimension: "prog_anxiety", ItemID: "anx-1", Action: "administer", NAdministered: 1},
	}
	for _, e := range entries {
		if err := LogDecision(db, e); err != nil {
			t.Fatalf("LogDecision: %v", err)
		}
	}

	got, err := ListDecisions(db, "s1")
	if err != nil {
		t.Fatalf("ListDecisions: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 rows for s1, got %d", len(got))
	}
	if got[0].Action != "administer" || got[2].Action != "stop" {
		t.Fatalf("rows out of order: %+v", got)
	}
	if got[2].Reason != "precision_reached" {
		t.Fatalf("reason not persisted: %+v", got[2])
	}
	if got[2].ItemID != "" {
		t.Fatalf("empty item id should stay empty, got %q", got[2].ItemID)
	}
	if got[0].CreatedAt.IsZero() {
		t.Fatal("created_at should be backfilled")
	}
}
