package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/market"
)

// SignalSource turns a bar stream into signals. Implementations own their
// indicator state; Reset returns them to pre-warm-up.
type SignalSource interface {
	Name() string
	Next(b market.Bar) (indicators.Snapshot, Signal)
	Filtered() Signal
	Reset()
}

// ByName builds a signal source from a configured strategy name.
func ByName(name string, p indicators.Periods, th Thresholds) (SignalSource, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "ma-cross-rsi", "macross":
		return NewCrossover(p, th)

	case "noop", "none":
		return NewNoop(p)

	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: ma-cross-rsi, noop)", name)
	}
}
