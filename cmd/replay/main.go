package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/cognitive-core/internal/core"
	"github.com/danielpatrickdp/cognitive-core/internal/health"
	"github.com/danielpatrickdp/cognitive-core/internal/replay"
	"github.com/danielpatrickdp/cognitive-core/internal/store"
)

// #region main

func main() {
	file := flag.String("file", "", "fixture (.json) or raw tick stream (.jsonl) to replay")
	dbPath := flag.String("db", "", "optionally persist the final snapshot here")
	sleepEvery := flag.Int("sleep-every", 0, "force a sleep cycle every N ticks (overrides the fixture)")
	verbose := flag.Bool("v", false, "print every tick instead of a summary")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --file ticks.jsonl|fixture.json [--db path] [--sleep-every N] [-v]")
		os.Exit(2)
	}

	fixture, err := replay.Load(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load: %v\n", err)
		os.Exit(1)
	}

	every := fixture.SleepEvery
	if *sleepEvery > 0 {
		every = *sleepEvery
	}

	c := core.New(core.DefaultConfig())
	results, summary := replay.Run(c, fixture.Ticks, every)

	if *verbose {
		for _, r := range results {
			fmt.Printf("tick %d: surprise=%.4f confidence=%.4f safe_mode=%v decision=%s\n",
				r.Tick, r.Surprise, r.Confidence, r.SafeMode, r.DecisionID)
		}
	}

	if fixture.Description != "" {
		fmt.Printf("fixture: %s\n", fixture.Description)
	}
	fmt.Printf("replayed %d ticks: surprise %.4f → %.4f, safe_mode on %d ticks\n",
		summary.Ticks, summary.FirstSurprise, summary.LastSurprise, summary.SafeModeTicks)
	fmt.Printf("memory: %d episodes, %d concepts, %d sleep cycles\n",
		summary.Episodes, summary.Concepts, summary.SleepRuns)

	if err := fixture.Expect.Check(summary); err != nil {
		fmt.Fprintf(os.Stderr, "expectation failed: %v\n", err)
		os.Exit(1)
	}

	if *dbPath != "" {
		saveSnapshot(c, *dbPath)
	}
}

// saveSnapshot persists the final state after a health check.
func saveSnapshot(c *core.Core, dbPath string) {
	snap := c.Snapshot()
	if result := health.NewHarness(health.DefaultConfig()).Run(snap); !result.Passed {
		fmt.Fprintf(os.Stderr, "refusing to save: %s\n", result.Reason)
		os.Exit(1)
	}

	db, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	rec, err := db.Save(snap, "", "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "save snapshot: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("saved final snapshot %s\n", rec.VersionID)
}

// #endregion main
