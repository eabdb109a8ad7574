package core

import (
	"github.com/danielpatrickdp/cognitive-core/internal/cortex"
	"github.com/danielpatrickdp/cognitive-core/internal/filter"
	"github.com/danielpatrickdp/cognitive-core/internal/homeostasis"
	"github.com/danielpatrickdp/cognitive-core/internal/memory"
	"github.com/danielpatrickdp/cognitive-core/internal/wm"
)

// #region snapshot

// Snapshot captures every stateful component as plain nested records.
// Restoring it and replaying identical inputs reproduces ε-identical
// tick outputs.
type Snapshot struct {
	Tick        int                  `json:"tick"`
	PriorAction []float64            `json:"prior_action"`
	Performance float64              `json:"performance"`
	Filter      filter.Snapshot      `json:"filter"`
	Cortex      cortex.Snapshot      `json:"cortex"`
	WM          wm.Snapshot          `json:"wm"`
	Homeostat   homeostasis.Snapshot `json:"homeostat"`
	Memory      memory.StoreSnapshot `json:"memory"`
	Lambda      float64              `json:"lambda"`
	Criteria    map[string]float64   `json:"criteria"`
}

// Snapshot serializes the full core state.
func (c *Core) Snapshot() Snapshot {
	return Snapshot{
		Tick:        c.tick,
		PriorAction: append([]float64(nil), c.priorAction...),
		Performance: c.performance,
		Filter:      c.filter.Snapshot(),
		Cortex:      c.cortex.Snapshot(),
		WM:          c.wm.Snapshot(),
		Homeostat:   c.homeostat.Snapshot(),
		Memory:      c.memory.Snapshot(),
		Lambda:      c.attention.Lambda(),
		Criteria:    c.matrix.Criteria(),
	}
}

// Restore rebuilds a core from a snapshot using the given config for
// the stateless parts (loggers, governance, decision weights).
func Restore(config Config, snap Snapshot) *Core {
	c := New(config)
	c.tick = snap.Tick
	c.priorAction = append([]float64(nil), snap.PriorAction...)
	c.performance = snap.Performance
	c.filter = filter.Restore(snap.Filter)
	c.cortex = cortex.Restore(snap.Cortex)
	c.wm = wm.Restore(snap.WM)
	c.homeostat = homeostasis.Restore(snap.Homeostat)
	c.memory = memory.RestoreStore(snap.Memory)
	c.attention.SetLambda(snap.Lambda)
	if snap.Criteria != nil {
		c.matrix.SetCriteria(snap.Criteria)
	}
	return c
}

// #endregion snapshot
