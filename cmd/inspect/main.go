package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/adaptive-cat/internal/logging"
	"github.com/danielpatrickdp/adaptive-cat/internal/session"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to adaptive_cat.db")
	last := flag.Int("last", 20, "show N most recent sessions")
	sessionID := flag.String("session", "", "show single session detail")
	decisions := flag.Bool("decisions", false, "include the decision log in session detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/adaptive_cat.db [--last N] [--session id] [--decisions] [--json]")
		os.Exit(2)
	}

	store, err := session.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *sessionID != "" {
		if err := runDetailMode(store, *sessionID, *decisions, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	} else {
		if err := runListMode(store, *last, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID string `json:"session_id"`
	Study     string `json:"study"`
	Created   string `json:"created_at"`
	Updated   string `json:"updated_at"`
}

func runListMode(store *session.Store, last int, jsonOut bool) error {
	infos, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]listRow, len(infos))
	for i, info := range infos {
		rows[i] = listRow{
			SessionID: info.SessionID,
			Study:     info.StudyName,
			Created:   info.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Updated:   info.UpdatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-36s  %-16s  %-20s  %s\n", "Session", "Study", "Created", "Updated")
	fmt.Printf("%-36s  %-16s  %-20s  %s\n",
		"------------------------------------", "----------------", "--------------------", "--------------------")
	for _, r := range rows {
		fmt.Printf("%-36s  %-16s  %-20s  %s\n", r.SessionID, r.Study, r.Created, r.Updated)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	session.Snapshot
	Decisions []logging.DecisionEntry `json:"decisions,omitempty"`
}

func runDetailMode(store *session.Store, sessionID string, withDecisions, jsonOut bool) error {
	snap, err := store.LoadSnapshot(sessionID)
	if err != nil {
		return err
	}

	out := detailOutput{Snapshot: snap}
	if withDecisions {
		if err := logging.Init(store.DB()); err != nil {
			return err
		}
		out.Decisions, err = logging.ListDecisions(store.DB(), sessionID)
		if err != nil {
			return err
		}
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:  %s\n", snap.SessionID)
	fmt.Printf("Study:    %s\n", snap.StudyName)
	fmt.Printf("Created:  %s\n", snap.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Updated:  %s\n", snap.UpdatedAt.Format("2006-01-02T15:04:05Z"))

	fmt.Printf("\nDimensions:\n")
	for dim, st := range snap.States {
		fmt.Printf("  %-16s  status=%-8s  items=%d", dim, st.Status, len(st.Administered))
		if n := len(st.ThetaHistory); n > 0 {
			fmt.Printf("  theta=%.4f  se=%.4f", st.ThetaHistory[n-1], st.SEHistory[n-1])
		}
		if st.PendingItem != "" {
			fmt.Printf("  pending=%s", st.PendingItem)
		}
		fmt.Println()
	}

	if len(snap.Results) > 0 {
		fmt.Printf("\nResults:\n")
		for _, res := range snap.Results {
			fmt.Printf("  %-16s  theta=%8.4f  se=%.4f  items=%-2d  reason=%s\n",
				res.Dimension, res.Theta, res.SE, res.NumItems, res.Reason)
		}
	}

	if withDecisions {
		fmt.Printf("\nDecision log (%d entries):\n", len(out.Decisions))
		for _, d := range out.Decisions {
			fmt.Printf("  %-12s  %-16s  item=%-10s  n=%-2d  theta=%8.4f  se=%.4f  %s\n",
				d.Action, d.Dimension, orDash(d.ItemID), d.NAdministered, d.Theta, d.SE, d.Reason)
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// #endregion output
