package replay

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/danielpatrickdp/cognitive-core/internal/core"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture: a
// recorded input stream plus optional expectations over the summary.
type Fixture struct {
	Description string           `json:"description"`
	SleepEvery  int              `json:"sleep_every,omitempty"`
	Ticks       []core.TickInput `json:"ticks"`
	Expect      *Expectation     `json:"expect,omitempty"`
}

// Expectation captures bounds the replay summary must satisfy. Nil
// fields are not checked.
type Expectation struct {
	MaxFinalSurprise *float64 `json:"max_final_surprise,omitempty"`
	MaxSafeModeTicks *int     `json:"max_safe_mode_ticks,omitempty"`
	MinEpisodes      *int     `json:"min_episodes,omitempty"`
	MinConcepts      *int     `json:"min_concepts,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Ticks) == 0 {
		return nil, fmt.Errorf("fixture %s has no ticks", path)
	}
	return &f, nil
}

// LoadTicks reads a JSONL stream of tick inputs, one object per line.
func LoadTicks(path string) ([]core.TickInput, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ticks %s: %w", path, err)
	}
	defer file.Close()

	var ticks []core.TickInput
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var in core.TickInput
		if err := json.Unmarshal([]byte(raw), &in); err != nil {
			return nil, fmt.Errorf("parse %s line %d: %w", path, line, err)
		}
		ticks = append(ticks, in)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read ticks %s: %w", path, err)
	}
	return ticks, nil
}

// Load picks the loader from the file extension: .jsonl streams raw
// tick inputs, everything else parses as a full fixture.
func Load(path string) (*Fixture, error) {
	if strings.HasSuffix(path, ".jsonl") {
		ticks, err := LoadTicks(path)
		if err != nil {
			return nil, err
		}
		return &Fixture{Ticks: ticks}, nil
	}
	return LoadFixture(path)
}

// #endregion fixture-loader
