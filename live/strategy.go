package live

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/internal/logger"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/strategies"
)

// StrategyConfig configures the crossover strategy on an order manager.
type StrategyConfig struct {
	Instrument string
	Periods    indicators.Periods
	Thresholds strategies.Thresholds
	TradeSize  float64
	WarmupSkip int
}

// Strategy trades MA crosses filtered by RSI through an OrderManager.
// A bullish cross buys when flat and reverses a short; a bearish cross is
// symmetric.
type Strategy struct {
	cfg   StrategyConfig
	om    OrderManager
	cross *strategies.Crossover
	log   *zap.Logger

	bars int
	last Evaluation
}

// Evaluation is what the strategy decided on its latest bar. Signal is None
// during the warm-up skip; Filtered names a cross the RSI filter suppressed.
type Evaluation struct {
	Index    int
	Snapshot indicators.Snapshot
	Signal   strategies.Signal
	Filtered strategies.Signal
}

func NewStrategy(cfg StrategyConfig, om OrderManager, log *zap.Logger) (*Strategy, error) {
	if cfg.TradeSize <= 0 {
		return nil, errors.Errorf("trade size must be positive, got %v", cfg.TradeSize)
	}
	c, err := strategies.NewCrossover(cfg.Periods, cfg.Thresholds)
	if err != nil {
		return nil, err
	}
	return &Strategy{cfg: cfg, om: om, cross: c, log: logger.OrNop(log)}, nil
}

func (s *Strategy) OnStart(ctx context.Context) error {
	s.OnReset()
	return s.om.SubscribeBars(s.cfg.Instrument)
}

func (s *Strategy) OnBar(ctx context.Context, b market.Bar) error {
	idx := s.bars
	s.bars++

	snap, sig := s.cross.Next(b)
	filtered := s.cross.Filtered()
	if idx < s.cfg.WarmupSkip {
		sig, filtered = strategies.None, strategies.None
	}
	s.last = Evaluation{Index: idx, Snapshot: snap, Signal: sig, Filtered: filtered}
	if sig == strategies.None {
		return nil
	}

	inst := s.cfg.Instrument
	switch sig {
	case strategies.BullishCross:
		switch {
		case s.om.IsFlat(inst):
			return s.submit(ctx, market.Buy, b)
		case s.om.IsNetShort(inst):
			if err := s.om.CloseAllPositions(ctx, inst); err != nil {
				return err
			}
			return s.submit(ctx, market.Buy, b)
		}
	case strategies.BearishCross:
		switch {
		case s.om.IsFlat(inst):
			return s.submit(ctx, market.Sell, b)
		case s.om.IsNetLong(inst):
			if err := s.om.CloseAllPositions(ctx, inst); err != nil {
				return err
			}
			return s.submit(ctx, market.Sell, b)
		}
	}
	return nil
}

func (s *Strategy) submit(ctx context.Context, side market.OrderSide, b market.Bar) error {
	s.log.Info("order submitted",
		zap.String("instrument", s.cfg.Instrument),
		zap.Stringer("side", side),
		zap.Float64("qty", s.cfg.TradeSize),
		zap.Int64("ts", b.Time))
	return s.om.SubmitMarketOrder(ctx, s.cfg.Instrument, side, s.cfg.TradeSize)
}

func (s *Strategy) OnStop(ctx context.Context) error {
	if err := s.om.CloseAllPositions(ctx, s.cfg.Instrument); err != nil {
		return err
	}
	return s.om.UnsubscribeBars(s.cfg.Instrument)
}

// Last returns the evaluation of the most recent bar, false before any.
func (s *Strategy) Last() (Evaluation, bool) {
	return s.last, s.bars > 0
}

func (s *Strategy) OnReset() {
	s.cross.Reset()
	s.bars = 0
	s.last = Evaluation{}
}
