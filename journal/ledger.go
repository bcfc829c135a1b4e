package journal

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"

	"github.com/rustyeddy/macross/sim"
)

// Ledger is the append-only record of one run. Each sequence must be
// non-decreasing in time.
type Ledger struct {
	mu     sync.Mutex
	fills  []sim.Fill
	trades []sim.ClosedTrade
	equity []sim.EquityPoint
	err    error
}

var _ Journal = (*Ledger)(nil)

func NewLedger() *Ledger {
	return &Ledger{}
}

// Attach subscribes the ledger to a simulator's bus topics. Bus handlers
// cannot return errors, so the first one is kept and reported by Err.
func (l *Ledger) Attach(bus EventBus.Bus) error {
	subs := []struct {
		topic string
		fn    any
	}{
		{sim.TopicFill, func(f sim.Fill) { l.keep(l.RecordFill(f)) }},
		{sim.TopicTrade, func(t sim.ClosedTrade) { l.keep(l.RecordTrade(t)) }},
		{sim.TopicEquity, func(p sim.EquityPoint) { l.keep(l.RecordEquity(p)) }},
	}
	for _, s := range subs {
		if err := bus.Subscribe(s.topic, s.fn); err != nil {
			return errors.Wrapf(err, "subscribe %s", s.topic)
		}
	}
	return nil
}

func (l *Ledger) keep(err error) {
	if err == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err == nil {
		l.err = err
	}
}

// Err is the first recording error seen through the bus.
func (l *Ledger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Ledger) RecordFill(f sim.Fill) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.fills); n > 0 && f.Time < l.fills[n-1].Time {
		return errors.Errorf("fill at %d precedes previous fill at %d", f.Time, l.fills[n-1].Time)
	}
	l.fills = append(l.fills, f)
	return nil
}

func (l *Ledger) RecordTrade(t sim.ClosedTrade) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if t.ExitTime < t.EntryTime {
		return errors.Errorf("trade exits at %d before entry at %d", t.ExitTime, t.EntryTime)
	}
	if n := len(l.trades); n > 0 && t.ExitTime < l.trades[n-1].ExitTime {
		return errors.Errorf("trade closed at %d precedes previous close at %d", t.ExitTime, l.trades[n-1].ExitTime)
	}
	l.trades = append(l.trades, t)
	return nil
}

func (l *Ledger) RecordEquity(p sim.EquityPoint) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n := len(l.equity); n > 0 && p.Time < l.equity[n-1].Time {
		return errors.Errorf("equity point at %d precedes previous point at %d", p.Time, l.equity[n-1].Time)
	}
	l.equity = append(l.equity, p)
	return nil
}

func (l *Ledger) Close() error { return nil }

func (l *Ledger) Fills() []sim.Fill {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sim.Fill(nil), l.fills...)
}

func (l *Ledger) Trades() []sim.ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sim.ClosedTrade(nil), l.trades...)
}

func (l *Ledger) Equity() []sim.EquityPoint {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]sim.EquityPoint(nil), l.equity...)
}
