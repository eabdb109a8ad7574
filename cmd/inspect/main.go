package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"

	"github.com/danielpatrickdp/cognitive-core/internal/store"
	_ "modernc.org/sqlite"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to cognitive_core.db")
	last := flag.Int("last", 20, "show N most recent versions")
	ticks := flag.Int("ticks", 0, "show N most recent tick log entries instead")
	version := flag.String("version", "", "show single version detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/cognitive_core.db [--last N] [--ticks N] [--version id] [--json]")
		os.Exit(2)
	}

	db, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	switch {
	case *version != "":
		err = runDetailMode(db, *version, *jsonOut)
	case *ticks > 0:
		err = runTickMode(db, *ticks, *jsonOut)
	default:
		err = runListMode(db, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	VersionID  string  `json:"version_id"`
	ParentID   string  `json:"parent_id,omitempty"`
	Tick       int     `json:"tick"`
	LatentNorm float64 `json:"latent_norm"`
	Episodes   int     `json:"episodes"`
	Concepts   int     `json:"concepts"`
	CreatedAt  string  `json:"created_at"`
}

func runListMode(db *store.Store, last int, jsonOut bool) error {
	records, err := db.ListVersions(last)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "no versions found")
		return nil
	}

	rows := make([]listRow, len(records))
	for i, rec := range records {
		rows[i] = listRow{
			VersionID:  rec.VersionID,
			ParentID:   rec.ParentID,
			Tick:       rec.Tick,
			LatentNorm: vectorNorm(rec.Latent),
			Episodes:   len(rec.Snapshot.Memory.Graph.Episodes),
			Concepts:   len(rec.Snapshot.Memory.Matrix.Concepts),
			CreatedAt:  rec.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}
	fmt.Printf("%-36s  %6s  %10s  %8s  %8s  %s\n",
		"VERSION", "TICK", "‖z‖", "EPISODES", "CONCEPTS", "CREATED")
	for _, r := range rows {
		fmt.Printf("%-36s  %6d  %10.4f  %8d  %8d  %s\n",
			r.VersionID, r.Tick, r.LatentNorm, r.Episodes, r.Concepts, r.CreatedAt)
	}
	return nil
}

// #endregion list-mode

// #region tick-mode

func runTickMode(db *store.Store, n int, jsonOut bool) error {
	entries, err := db.ListTicks(n)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(os.Stderr, "no tick entries found")
		return nil
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	fmt.Printf("%6s  %10s  %10s  %5s  %-24s  %s\n",
		"TICK", "SURPRISE", "CONF", "SAFE", "DECISION", "CREATED")
	for _, e := range entries {
		safe := ""
		if e.SafeMode {
			safe = "yes"
		}
		fmt.Printf("%6d  %10.4f  %10.4f  %5s  %-24s  %s\n",
			e.Tick, e.Surprise, e.Confidence, safe, e.DecisionID,
			e.CreatedAt.Format("2006-01-02T15:04:05Z"))
	}
	return nil
}

// #endregion tick-mode

// #region detail-mode

func runDetailMode(db *store.Store, versionID string, jsonOut bool) error {
	rec, err := db.LoadVersion(versionID)
	if err != nil {
		return err
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rec.Snapshot)
	}

	snap := rec.Snapshot
	fmt.Printf("version:     %s\n", rec.VersionID)
	if rec.ParentID != "" {
		fmt.Printf("parent:      %s\n", rec.ParentID)
	}
	fmt.Printf("tick:        %d\n", snap.Tick)
	fmt.Printf("created:     %s\n", rec.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("latent norm: %.4f\n", vectorNorm(snap.Cortex.Z))
	fmt.Printf("wm norm:     %.4f\n", vectorNorm(snap.WM.W))
	fmt.Printf("performance: %.4f\n", snap.Performance)
	fmt.Printf("lambda:      %.4f\n", snap.Lambda)
	fmt.Printf("mode:        %s\n", snap.Homeostat.Mode)
	fmt.Printf("episodes:    %d\n", len(snap.Memory.Graph.Episodes))
	fmt.Printf("concepts:    %d\n", len(snap.Memory.Matrix.Concepts))
	return nil
}

// #endregion detail-mode

// #region helpers

func vectorNorm(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// #endregion helpers
