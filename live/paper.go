package live

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/internal/logger"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/sim"
	"github.com/rustyeddy/macross/strategies"
)

// PaperSession is an in-process engine backed by the simulator. Orders fill
// at the next bar's open with the simulator's fees.
type PaperSession struct {
	sim        *sim.Simulator
	instrument string
	log        *zap.Logger

	mu         sync.Mutex
	subscribed map[string]bool
	handlers   []BarHandler
}

var _ Session = (*PaperSession)(nil)

func NewPaperSession(_ context.Context, opts Options) (Session, error) {
	s, err := sim.New(opts.Sim, opts.Bus, opts.Logger)
	if err != nil {
		return nil, err
	}
	return &PaperSession{
		sim:        s,
		instrument: opts.Sim.Instrument,
		log:        logger.OrNop(opts.Logger),
		subscribed: make(map[string]bool),
	}, nil
}

func (p *PaperSession) Simulator() *sim.Simulator { return p.sim }

func (p *PaperSession) exposure(instrument string) sim.Exposure {
	if instrument != p.instrument {
		return sim.Flat
	}
	return p.sim.State().Exposure
}

func (p *PaperSession) IsFlat(instrument string) bool { return p.exposure(instrument) == sim.Flat }

func (p *PaperSession) IsNetLong(instrument string) bool { return p.exposure(instrument) == sim.Long }

func (p *PaperSession) IsNetShort(instrument string) bool {
	return p.exposure(instrument) == sim.Short
}

func (p *PaperSession) checkInstrument(instrument string) error {
	if instrument != p.instrument {
		return errors.Errorf("paper: session trades %s, not %s", p.instrument, instrument)
	}
	return nil
}

func (p *PaperSession) SubmitMarketOrder(ctx context.Context, instrument string, side market.OrderSide, qty float64) error {
	if err := p.checkInstrument(instrument); err != nil {
		return err
	}
	return p.sim.Submit(sim.Order{Kind: sim.MarketOrder, Side: side, Quantity: qty})
}

func (p *PaperSession) CloseAllPositions(ctx context.Context, instrument string) error {
	if err := p.checkInstrument(instrument); err != nil {
		return err
	}
	return p.sim.Submit(sim.Order{Kind: sim.CloseAllOrder})
}

func (p *PaperSession) SubscribeBars(instrument string) error {
	if err := p.checkInstrument(instrument); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribed[instrument] = true
	return nil
}

func (p *PaperSession) UnsubscribeBars(instrument string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribed, instrument)
	return nil
}

func (p *PaperSession) Attach(h BarHandler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, h)
}

func (p *PaperSession) Feed(ctx context.Context, b market.Bar) error {
	if err := p.sim.OnBar(b, strategies.None); err != nil {
		return err
	}

	p.mu.Lock()
	live := p.subscribed[p.instrument]
	handlers := append([]BarHandler(nil), p.handlers...)
	p.mu.Unlock()
	if !live {
		return nil
	}

	for _, h := range handlers {
		if err := h.OnBar(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// Close force-closes any open position at the last bar's close.
func (p *PaperSession) Close() error {
	return p.sim.Finish()
}
