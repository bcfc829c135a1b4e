package sim

import (
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/internal/logger"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/strategies"
)

// DefaultFeeRate is the commission charged per unit of notional.
const DefaultFeeRate = 0.0001

// Config holds the account and execution parameters of one simulation.
type Config struct {
	Instrument      string
	StartingBalance float64
	TradeSize       float64
	FeeRate         float64
}

func (c Config) validate() error {
	switch {
	case c.Instrument == "":
		return errors.New("sim: instrument is required")
	case c.StartingBalance <= 0:
		return errors.Errorf("sim: starting balance must be positive, got %v", c.StartingBalance)
	case c.TradeSize <= 0:
		return errors.Errorf("sim: trade size must be positive, got %v", c.TradeSize)
	case c.FeeRate < 0:
		return errors.Errorf("sim: fee rate must not be negative, got %v", c.FeeRate)
	}
	return nil
}

// Commission is the fee for trading qty at price.
func Commission(price, feeRate, qty float64) float64 {
	return price * feeRate * qty
}

// Simulator executes signals against a single-position account. A signal
// raised on one bar is filled at the next bar's open and timestamp.
//
// Fills, closed trades and equity points are published on the bus after the
// simulator's lock is released, so handlers may call back into it.
type Simulator struct {
	mu  sync.Mutex
	cfg Config
	bus EventBus.Bus
	log *zap.Logger

	state   State
	balance float64

	pending strategies.Signal
	orders  []Order

	last    market.Bar
	haveBar bool
}

func New(cfg Config, bus EventBus.Bus, log *zap.Logger) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if bus == nil {
		bus = EventBus.New()
	}
	return &Simulator{
		cfg:     cfg,
		bus:     bus,
		log:     logger.OrNop(log),
		balance: cfg.StartingBalance,
	}, nil
}

func (s *Simulator) Bus() EventBus.Bus { return s.bus }

func (s *Simulator) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st.Position != nil {
		p := *st.Position
		st.Position = &p
	}
	return st
}

func (s *Simulator) Balance() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

// OnBar executes whatever is pending at b's open, then records sig to be
// executed on the following bar.
func (s *Simulator) OnBar(b market.Bar, sig strategies.Signal) error {
	s.mu.Lock()
	events, err := s.onBarLocked(b, sig)
	s.mu.Unlock()

	s.publish(events)
	return err
}

func (s *Simulator) onBarLocked(b market.Bar, sig strategies.Signal) ([]event, error) {
	var events []event

	if !s.haveBar {
		events = append(events, event{TopicEquity, EquityPoint{Time: b.Time, Equity: s.balance}})
	} else if b.Time <= s.last.Time {
		return nil, errors.Errorf("sim: bar time %d does not follow %d", b.Time, s.last.Time)
	}

	if s.pending != strategies.None {
		for _, a := range Transition(s.state.Exposure, s.pending) {
			events = append(events, s.applyLocked(a, b.Open, b.Time, ReasonSignal)...)
		}
		s.log.Debug("signal executed",
			zap.String("signal", s.pending.String()),
			zap.Int64("ts", b.Time),
			zap.Float64("price", b.Open))
		s.pending = strategies.None
	}

	for _, o := range s.orders {
		evs, err := s.executeOrderLocked(o, b)
		if err != nil {
			s.log.Warn("order rejected", zap.Int64("ts", b.Time), zap.Error(err))
			continue
		}
		events = append(events, evs...)
	}
	s.orders = s.orders[:0]

	s.pending = sig
	s.last, s.haveBar = b, true
	return events, nil
}

// Finish closes any open position at the last bar's close. The close is
// recorded as a trade and an equity point; no fill is emitted for it.
func (s *Simulator) Finish() error {
	s.mu.Lock()
	var events []event
	if s.pending != strategies.None {
		s.log.Info("pending signal dropped at end of data",
			zap.String("signal", s.pending.String()),
			zap.Int64("ts", s.last.Time))
		s.pending = strategies.None
	}
	if len(s.orders) > 0 {
		s.log.Info("pending orders dropped at end of data", zap.Int("orders", len(s.orders)))
		s.orders = s.orders[:0]
	}
	if s.haveBar && s.state.Exposure != Flat {
		trade := s.closeLocked(s.last.Close, s.last.Time, ReasonEndOfStream)
		events = append(events,
			event{TopicTrade, trade},
			event{TopicEquity, EquityPoint{Time: s.last.Time, Equity: s.balance}})
	}
	s.mu.Unlock()

	s.publish(events)
	return nil
}

// Reset returns the simulator to its starting balance with nothing pending.
func (s *Simulator) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = State{}
	s.balance = s.cfg.StartingBalance
	s.pending = strategies.None
	s.orders = nil
	s.last, s.haveBar = market.Bar{}, false
}

func (s *Simulator) applyLocked(a Action, price float64, ts int64, reason string) []event {
	switch a {
	case Close:
		if s.state.Exposure == Flat {
			return nil
		}
		pos := *s.state.Position
		fee := Commission(price, s.cfg.FeeRate, pos.Quantity)
		fill := Fill{
			Time:       ts,
			Instrument: pos.Instrument,
			Side:       pos.Side.ExitSide(),
			Quantity:   pos.Quantity,
			Price:      price,
			Commission: fee,
		}
		trade := s.closeLocked(price, ts, reason)
		return []event{
			{TopicFill, fill},
			{TopicTrade, trade},
			{TopicEquity, EquityPoint{Time: ts, Equity: s.balance}},
		}
	case OpenLong:
		return s.openLocked(market.Long, s.cfg.TradeSize, price, ts)
	case OpenShort:
		return s.openLocked(market.Short, s.cfg.TradeSize, price, ts)
	}
	return nil
}

func (s *Simulator) openLocked(side market.Side, qty, price float64, ts int64) []event {
	fee := Commission(price, s.cfg.FeeRate, qty)
	s.balance -= fee
	s.state = State{
		Exposure: exposureOf(side),
		Position: &Position{
			Instrument: s.cfg.Instrument,
			Side:       side,
			EntryPrice: price,
			EntryTime:  ts,
			Quantity:   qty,
			EntryFee:   fee,
		},
	}
	fill := Fill{
		Time:       ts,
		Instrument: s.cfg.Instrument,
		Side:       side.EntrySide(),
		Quantity:   qty,
		Price:      price,
		Commission: fee,
	}
	return []event{
		{TopicFill, fill},
		{TopicEquity, EquityPoint{Time: ts, Equity: s.balance}},
	}
}

// closeLocked settles the open position and returns its trade record.
func (s *Simulator) closeLocked(price float64, ts int64, reason string) ClosedTrade {
	pos := s.state.Position
	exitFee := Commission(price, s.cfg.FeeRate, pos.Quantity)
	gross := float64(pos.Side) * (price - pos.EntryPrice) * pos.Quantity

	s.balance += gross - exitFee
	s.state = State{}

	return ClosedTrade{
		Instrument: pos.Instrument,
		EntryTime:  pos.EntryTime,
		ExitTime:   ts,
		Side:       pos.Side,
		Quantity:   pos.Quantity,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		PnL:        gross - pos.EntryFee - exitFee,
		Reason:     reason,
	}
}

func (s *Simulator) publish(events []event) {
	for _, ev := range events {
		s.bus.Publish(ev.topic, ev.payload)
	}
}
