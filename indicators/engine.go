package indicators

import (
	"fmt"
	"iter"

	"github.com/rustyeddy/macross/market"
)

// RSI smoothing methods.
const (
	RSISimple = "simple"
	RSIWilder = "wilder"
)

// Periods configures the three indicators owned by an Engine.
type Periods struct {
	Fast      int
	Slow      int
	RSI       int
	RSIMethod string // RSISimple (default) or RSIWilder
}

func (p Periods) validate() error {
	if p.Fast <= 0 || p.Slow <= 0 || p.RSI <= 0 {
		return fmt.Errorf("indicator periods must be positive (fast=%d slow=%d rsi=%d)", p.Fast, p.Slow, p.RSI)
	}
	switch p.RSIMethod {
	case "", RSISimple, RSIWilder:
		return nil
	default:
		return fmt.Errorf("unknown rsi method %q", p.RSIMethod)
	}
}

// Snapshot is the indicator state attached to one bar.
type Snapshot struct {
	Index  int
	Time   int64
	FastMA Reading
	SlowMA Reading
	RSI    Reading
}

// Ready reports whether all three indicators are defined.
func (s Snapshot) Ready() bool {
	return s.FastMA.Ok && s.SlowMA.Ok && s.RSI.Ok
}

// Engine computes fast/slow moving averages and RSI over a bar stream.
// All state lives in the instance; Reset returns it to pre-warm-up.
type Engine struct {
	periods Periods
	fast    *SimpleMA
	slow    *SimpleMA
	rsi     Indicator
	index   int
}

func NewEngine(p Periods) (*Engine, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	var rsi Indicator = NewRSI(p.RSI)
	if p.RSIMethod == RSIWilder {
		rsi = NewWilderRSI(p.RSI)
	}
	return &Engine{
		periods: p,
		fast:    NewMA(p.Fast),
		slow:    NewMA(p.Slow),
		rsi:     rsi,
	}, nil
}

func (e *Engine) Periods() Periods { return e.periods }

// Warmup is the number of bars after which every indicator is defined.
func (e *Engine) Warmup() int {
	return max(e.fast.Warmup(), e.slow.Warmup(), e.rsi.Warmup())
}

// Reset clears all indicator state.
func (e *Engine) Reset() {
	e.fast.Reset()
	e.slow.Reset()
	e.rsi.Reset()
	e.index = 0
}

// Update feeds the next bar and returns its snapshot.
func (e *Engine) Update(b market.Bar) Snapshot {
	e.fast.Update(b)
	e.slow.Update(b)
	e.rsi.Update(b)

	s := Snapshot{
		Index:  e.index,
		Time:   b.Time,
		FastMA: read(e.fast),
		SlowMA: read(e.slow),
		RSI:    read(e.rsi),
	}
	e.index++
	return s
}

// Snapshots yields one snapshot per bar, in bar order. The engine is reset
// each time iteration starts, so the sequence can be ranged over repeatedly.
func (e *Engine) Snapshots(bars []market.Bar) iter.Seq2[int, Snapshot] {
	return func(yield func(int, Snapshot) bool) {
		e.Reset()
		for i, b := range bars {
			if !yield(i, e.Update(b)) {
				return
			}
		}
	}
}
