package shell

import (
	"sync/atomic"

	"chronos/internal/bootcfg"
)

// CycleBudget is the single atomically-updatable global cycle budget spec
// §3 describes: user keystrokes '+'/'-' shift it by bootcfg.CycleBudgetStep,
// clamped at bootcfg.MinCycleBudget with no upper bound. No lock guards
// it — atomic.Uint64 is the whole implementation, per spec §5's resource
// table ("Global cycle budget: atomic 64-bit, no lock").
type CycleBudget struct {
	v atomic.Uint64
}

func NewCycleBudget() *CycleBudget {
	b := &CycleBudget{}
	b.v.Store(bootcfg.InitialCycleBudget)
	return b
}

func (b *CycleBudget) Get() uint64 { return b.v.Load() }

// Raise adds one CycleBudgetStep with no upper bound.
func (b *CycleBudget) Raise() {
	b.v.Add(bootcfg.CycleBudgetStep)
}

// Lower subtracts one CycleBudgetStep, saturating at MinCycleBudget rather
// than underflowing (testable property 6: "never falls below 1;
// consecutive '-' keypresses saturate at 1").
func (b *CycleBudget) Lower() {
	for {
		cur := b.v.Load()
		next := bootcfg.MinCycleBudget
		if cur > bootcfg.MinCycleBudget+bootcfg.CycleBudgetStep {
			next = cur - bootcfg.CycleBudgetStep
		}
		if b.v.CompareAndSwap(cur, next) {
			return
		}
	}
}
