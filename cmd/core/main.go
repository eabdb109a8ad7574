package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/danielpatrickdp/cognitive-core/internal/actuator"
	"github.com/danielpatrickdp/cognitive-core/internal/core"
	"github.com/danielpatrickdp/cognitive-core/internal/health"
	"github.com/danielpatrickdp/cognitive-core/internal/store"
)

// #region main
func main() {
	_ = godotenv.Load(".env")

	dbPath := envOr("CORE_DB", "cognitive_core.db")
	snapshotEvery := envOrInt("CORE_SNAPSHOT_EVERY", 25)

	db, err := store.NewStore(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer db.Close()

	cfg := core.DefaultConfig()
	cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)

	c := resumeOrNew(db, cfg)

	act := actuator.New(actuator.DefaultConfig())
	registerHandlers(act, cfg.Logger)

	fmt.Println("Cognitive Core ready.")
	fmt.Printf("  DB: %s | snapshot every %d ticks\n", dbPath, snapshotEvery)
	fmt.Println("Feed JSON tick inputs, or 'sleep', 'snapshot', 'stats', 'quit':")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	var lastVersion string

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch line {
		case "quit", "exit":
			persist(db, c, &lastVersion)
			return
		case "sleep":
			summary := c.RunSleepCycle(true)
			fmt.Printf("[SLEEP] replayed=%d patterns=%d merged=%d pruned=%d in %s\n",
				summary.EpisodesReplayed, summary.PatternsDiscovered,
				summary.ConceptsMerged, summary.ItemsPruned, summary.Duration)
			continue
		case "snapshot":
			persist(db, c, &lastVersion)
			continue
		case "stats":
			s := c.Memory().Stats()
			fmt.Printf("[MEM] episodes=%d concepts=%d retrievals=%d\n",
				s.Episodes, s.Concepts, s.Retrievals)
			cs := act.Stats()
			fmt.Printf("[ACT] successes=%d failures=%d cached=%d\n",
				cs.Successes, cs.Failures, cs.Cached)
			continue
		}

		var in core.TickInput
		if strings.HasPrefix(line, "{") {
			if err := json.Unmarshal([]byte(line), &in); err != nil {
				log.Printf("parse input: %v", err)
				continue
			}
		} else {
			// Plain text becomes a deterministic pseudo-embedding so the
			// REPL is usable without an upstream encoder.
			in.Observation = embedText(line, cfg.Filter.ObsDim)
		}

		out := c.Tick(in)
		fmt.Printf("[TICK %d] surprise=%.4f confidence=%.4f safe_mode=%v\n",
			out.Tick, out.Surprise, out.Confidence, out.SafeMode)
		if out.Decision != nil {
			fmt.Printf("  decision=%s score=%.4f risk=%.4f\n",
				out.Decision.SelectedID, out.Decision.Score, out.Decision.Valuation.MIEM.Risk)
			if !out.SafeMode {
				dispatch(act, out)
			}
		}
		if out.NoValidCandidate {
			fmt.Println("  no valid candidate: replanning required")
		}

		if err := db.LogTick(lastVersion, out); err != nil {
			log.Printf("log tick: %v", err)
		}
		if out.Tick%snapshotEvery == 0 {
			persist(db, c, &lastVersion)
		}
	}
}

// #endregion main

// #region helpers

// resumeOrNew restores the active snapshot when one exists, otherwise
// starts fresh.
func resumeOrNew(db *store.Store, cfg core.Config) *core.Core {
	rec, err := db.LoadCurrent()
	if err != nil {
		log.Println("No active snapshot found, starting fresh...")
		return core.New(cfg)
	}
	log.Printf("Resuming from snapshot %s (tick %d)", rec.VersionID, rec.Tick)
	return core.Restore(cfg, rec.Snapshot)
}

func persist(db *store.Store, c *core.Core, lastVersion *string) {
	snap := c.Snapshot()
	if result := health.NewHarness(health.DefaultConfig()).Run(snap); !result.Passed {
		log.Printf("snapshot rejected: %s", result.Reason)
		return
	}
	rec, err := db.Save(snap, *lastVersion, "")
	if err != nil {
		log.Printf("snapshot error: %v", err)
		return
	}
	*lastVersion = rec.VersionID
	fmt.Printf("[SNAP] saved version %s\n", rec.VersionID)
}

// dispatch sends the selected action through the actuator.
func dispatch(act *actuator.Actuator, out core.TickOutput) {
	intent := actuator.Intent{
		Kind:   actuator.Kind(out.Decision.Selected.Kind),
		Vector: out.Decision.Selected.Vector,
	}
	result := act.Dispatch(intent, nil)
	if result.Err != nil {
		fmt.Printf("  action failed: %v\n", result.Err)
		return
	}
	cached := ""
	if result.Cached {
		cached = " (cached)"
	}
	fmt.Printf("  executed %s%s\n", result.Kind, cached)
}

// registerHandlers wires logging handlers for every action kind the
// core's default candidates can emit.
func registerHandlers(act *actuator.Actuator, logger *log.Logger) {
	for _, kind := range []actuator.Kind{actuator.KindAdjust, actuator.KindExplore, actuator.KindExploit, actuator.KindRecall} {
		k := kind
		err := act.Register(k, actuator.HandlerFunc(func(intent actuator.Intent, context []float64) ([]float64, error) {
			logger.Printf("[ACT] %s dims=%d", k, len(intent.Vector))
			return intent.Vector, nil
		}))
		if err != nil {
			logger.Printf("[ACT] register %s: %v", k, err)
		}
	}
}

// embedText scatters hashed tokens into a unit-norm observation vector.
// The same line always maps to the same vector.
func embedText(text string, dim int) []float64 {
	obs := make([]float64, dim)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New64a()
		h.Write([]byte(token))
		sum := h.Sum64()
		for k := 0; k < 4; k++ {
			idx := int(((sum >> uint(k*16)) & 0xffff) % uint64(dim))
			sign := 1.0
			if (sum>>uint(k*16+15))&1 == 1 {
				sign = -1.0
			}
			obs[idx] += sign
		}
	}
	var norm float64
	for _, x := range obs {
		norm += x * x
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range obs {
			obs[i] /= norm
		}
	}
	return obs
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

// #endregion helpers
