package actuator

import (
	"container/list"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"log"
	"math"
	"sort"
	"time"
)

// #region kinds

// Kind is the closed set of action variants the actuator can dispatch.
// Dispatch matches kinds exhaustively; an unknown kind is an execution
// error, never a silent no-op.
type Kind string

const (
	KindAdjust  Kind = "adjust"  // tune an internal or external parameter
	KindExplore Kind = "explore" // information-gathering action
	KindExploit Kind = "exploit" // reward-seeking action
	KindRecall  Kind = "recall"  // long-term memory retrieval request
	KindWait    Kind = "wait"    // deliberate no-op, always succeeds
)

// Known reports whether k is one of the closed action variants.
func (k Kind) Known() bool {
	switch k {
	case KindAdjust, KindExplore, KindExploit, KindRecall, KindWait:
		return true
	}
	return false
}

// #endregion kinds

// #region intent

// Intent is one concrete action to execute.
type Intent struct {
	Kind   Kind
	Vector []float64
	Params map[string]string
}

// Outcome reports one execution.
type Outcome struct {
	Fingerprint string
	Kind        Kind
	Output      []float64
	Cached      bool
	Duration    time.Duration
	Err         error
}

// Handler executes intents of one kind.
type Handler interface {
	Execute(intent Intent, context []float64) ([]float64, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(intent Intent, context []float64) ([]float64, error)

// Execute calls f.
func (f HandlerFunc) Execute(intent Intent, context []float64) ([]float64, error) {
	return f(intent, context)
}

// #endregion intent

// #region actuator

// Config holds the actuator cache and logging knobs.
type Config struct {
	CacheSize int
	Logger    *log.Logger
}

// DefaultConfig returns the standard actuator configuration.
func DefaultConfig() Config {
	return Config{CacheSize: 100}
}

type cacheEntry struct {
	fingerprint string
	output      []float64
}

// Actuator dispatches intents to registered handlers with at-most-one
// execution per fingerprint: identical intent+context pairs hit an LRU
// cache of successful outcomes. Failures are reported but never cached.
type Actuator struct {
	config   Config
	handlers map[Kind]Handler

	lru   *list.List // front = most recent, values are *cacheEntry
	index map[string]*list.Element

	successes int
	failures  int
	perKind   map[Kind]int
}

// New creates an actuator with an empty handler table. KindWait is
// pre-registered with a trivial handler so a deliberate no-op never
// needs external wiring.
func New(config Config) *Actuator {
	a := &Actuator{
		config:   config,
		handlers: make(map[Kind]Handler),
		lru:      list.New(),
		index:    make(map[string]*list.Element),
		perKind:  make(map[Kind]int),
	}
	a.handlers[KindWait] = HandlerFunc(func(Intent, []float64) ([]float64, error) {
		return nil, nil
	})
	return a
}

// Register installs the handler for one kind. Unknown kinds are
// rejected so the variant set stays closed.
func (a *Actuator) Register(kind Kind, handler Handler) error {
	if !kind.Known() {
		return fmt.Errorf("actuator: unknown action kind %q", kind)
	}
	a.handlers[kind] = handler
	return nil
}

// #endregion actuator

// #region dispatch

// Dispatch executes the intent, consulting the fingerprint cache first.
// A cache hit returns the stored output without re-executing. Errors
// are returned in the Outcome, not raised: a failed action must never
// halt the tick loop.
func (a *Actuator) Dispatch(intent Intent, context []float64) Outcome {
	fp := Fingerprint(intent, context)
	out := Outcome{Fingerprint: fp, Kind: intent.Kind}

	if !intent.Kind.Known() {
		out.Err = fmt.Errorf("actuator: unknown action kind %q", intent.Kind)
		a.failures++
		return out
	}

	if element, ok := a.index[fp]; ok {
		a.lru.MoveToFront(element)
		entry := element.Value.(*cacheEntry)
		out.Output = append([]float64(nil), entry.output...)
		out.Cached = true
		a.successes++
		a.perKind[intent.Kind]++
		return out
	}

	handler, ok := a.handlers[intent.Kind]
	if !ok {
		out.Err = fmt.Errorf("actuator: no handler registered for kind %q", intent.Kind)
		a.failures++
		return out
	}

	start := time.Now()
	output, err := handler.Execute(intent, context)
	out.Duration = time.Since(start)
	if err != nil {
		out.Err = fmt.Errorf("actuator: %s failed: %w", intent.Kind, err)
		a.failures++
		if a.config.Logger != nil {
			a.config.Logger.Printf("[ACT] %s failed fp=%s: %v", intent.Kind, fp[:12], err)
		}
		return out
	}

	out.Output = output
	a.successes++
	a.perKind[intent.Kind]++
	a.cache(fp, output)
	return out
}

func (a *Actuator) cache(fp string, output []float64) {
	stored := append([]float64(nil), output...)
	a.index[fp] = a.lru.PushFront(&cacheEntry{fingerprint: fp, output: stored})
	for a.lru.Len() > a.config.CacheSize {
		oldest := a.lru.Back()
		a.lru.Remove(oldest)
		delete(a.index, oldest.Value.(*cacheEntry).fingerprint)
	}
}

// #endregion dispatch

// #region fingerprint

// Fingerprint derives a stable content hash of intent + context. The
// params map is folded in sorted key order so iteration order cannot
// leak into the hash.
func Fingerprint(intent Intent, context []float64) string {
	h := sha256.New()
	h.Write([]byte(intent.Kind))

	var buf [8]byte
	for _, v := range intent.Vector {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}

	keys := make([]string, 0, len(intent.Params))
	for k := range intent.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(intent.Params[k]))
		h.Write([]byte{0})
	}

	for _, v := range context {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// #endregion fingerprint

// #region stats

// Stats reports cumulative dispatch counters.
type Stats struct {
	Successes int          `json:"successes"`
	Failures  int          `json:"failures"`
	Cached    int          `json:"cached"`
	PerKind   map[Kind]int `json:"per_kind"`
}

// Stats returns a copy of the counters. Cached reports the number of
// fingerprints currently resident, not cumulative hits.
func (a *Actuator) Stats() Stats {
	perKind := make(map[Kind]int, len(a.perKind))
	for k, v := range a.perKind {
		perKind[k] = v
	}
	return Stats{
		Successes: a.successes,
		Failures:  a.failures,
		Cached:    a.lru.Len(),
		PerKind:   perKind,
	}
}

// #endregion stats
