package strategies

import (
	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/market"
)

// Noop computes indicators but never signals. It gives a flat baseline run.
type Noop struct {
	engine *indicators.Engine
}

func NewNoop(p indicators.Periods) (*Noop, error) {
	e, err := indicators.NewEngine(p)
	if err != nil {
		return nil, err
	}
	return &Noop{engine: e}, nil
}

func (n *Noop) Name() string { return "noop" }

func (n *Noop) Next(b market.Bar) (indicators.Snapshot, Signal) {
	return n.engine.Update(b), None
}

func (n *Noop) Filtered() Signal { return None }

func (n *Noop) Reset() { n.engine.Reset() }
