package strategies

import (
	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/market"
)

// Crossover runs an indicator engine over a bar stream and evaluates each
// bar against the one before it.
type Crossover struct {
	engine     *indicators.Engine
	thresholds Thresholds

	prev     indicators.Snapshot
	havePrev bool
	filtered Signal
}

func NewCrossover(p indicators.Periods, th Thresholds) (*Crossover, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	e, err := indicators.NewEngine(p)
	if err != nil {
		return nil, err
	}
	return &Crossover{engine: e, thresholds: th}, nil
}

func (c *Crossover) Name() string { return "ma-cross-rsi" }

func (c *Crossover) Engine() *indicators.Engine { return c.engine }

func (c *Crossover) Thresholds() Thresholds { return c.thresholds }

// Next feeds one bar and returns its snapshot and signal.
func (c *Crossover) Next(b market.Bar) (indicators.Snapshot, Signal) {
	cur := c.engine.Update(b)
	sig := None
	c.filtered = None
	if c.havePrev {
		sig = Detect(c.prev, cur, c.thresholds)
		c.filtered = Filtered(c.prev, cur, c.thresholds)
	}
	c.prev, c.havePrev = cur, true
	return cur, sig
}

// Filtered is the cross suppressed by the RSI filter on the last Next call.
func (c *Crossover) Filtered() Signal { return c.filtered }

func (c *Crossover) Reset() {
	c.engine.Reset()
	c.prev = indicators.Snapshot{}
	c.havePrev = false
	c.filtered = None
}
