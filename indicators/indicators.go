// Package indicators provides streaming technical indicators over bars and
// the engine that combines them into per-bar snapshots.
package indicators

import "github.com/rustyeddy/macross/market"

// Indicator computes a single streaming value from bars.
// It is deterministic and safe to use in live, replay, and backtests.
type Indicator interface {
	// Name returns a stable identifier like "SMA(20)" or "RSI(14)".
	Name() string

	// Warmup returns how many bars are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next *closed* bar and updates internal state.
	Update(b market.Bar)

	// Ready reports whether Value() is meaningful (warmup completed).
	Ready() bool

	// Value returns the current indicator value. If !Ready(), it returns 0;
	// callers should always check Ready().
	Value() float64
}

// Reading is an optional indicator value: Ok is false until the
// indicator's warm-up window is full.
type Reading struct {
	Value float64
	Ok    bool
}

func read(ind Indicator) Reading {
	if !ind.Ready() {
		return Reading{}
	}
	return Reading{Value: ind.Value(), Ok: true}
}
