package backtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/macross/config"
	"github.com/rustyeddy/macross/live"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/metrics"
	"github.com/rustyeddy/macross/sim"
	"github.com/rustyeddy/macross/strategies"
)

const t0 = int64(1_704_067_200) // 2024-01-01 00:00:00 UTC

func mkBars(closes ...float64) []market.Bar {
	bars := make([]market.Bar, len(closes))
	for i, c := range closes {
		bars[i] = market.Bar{
			Time:   t0 + int64(i)*3600,
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 10,
		}
	}
	return bars
}

func flat(n int, price float64) []market.Bar {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = price
	}
	return mkBars(closes...)
}

// crossing turns up at bar 5 and back down on the last bar.
func crossing() []market.Bar {
	return mkBars(12, 10, 9, 8, 9, 10, 11, 10, 8)
}

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.Strategy.FastPeriod = 2
	cfg.Strategy.SlowPeriod = 3
	cfg.Strategy.RSIPeriod = 4
	return cfg
}

func newRunner(t *testing.T, cfg *config.Config) *Runner {
	t.Helper()
	r, err := NewRunner(cfg, nil)
	require.NoError(t, err)
	return r
}

func TestRunFlatSeriesHasNoActivity(t *testing.T) {
	r := newRunner(t, config.Default())

	res, err := r.Run(context.Background(), flat(100, 100))
	require.NoError(t, err)

	assert.Equal(t, "sim", res.Engine)
	assert.Equal(t, 100, res.Bars)
	assert.Empty(t, res.Skipped)
	assert.Empty(t, res.Ledger.Fills())
	assert.Empty(t, res.Ledger.Trades())
	require.Len(t, res.Ledger.Equity(), 1)
	assert.Equal(t, 100000.0, res.Ledger.Equity()[0].Equity)

	assert.Equal(t, 100000.0, res.Summary.EndBalance)
	assert.Zero(t, res.Summary.TotalPnL)
	assert.Zero(t, res.Summary.MaxDrawdown)
	assert.NotEmpty(t, res.RunID)
}

func TestRunSingleLongClosedAtEnd(t *testing.T) {
	r := newRunner(t, smallConfig())
	bars := crossing()

	res, err := r.Run(context.Background(), bars)
	require.NoError(t, err)

	fills := res.Ledger.Fills()
	require.Len(t, fills, 1, "end-of-data close emits no fill")
	assert.Equal(t, market.Buy, fills[0].Side)
	assert.Equal(t, bars[6].Time, fills[0].Time)
	assert.Equal(t, 11.0, fills[0].Price)
	assert.InDelta(t, 0.0011, fills[0].Commission, 1e-12)

	trades := res.Ledger.Trades()
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, market.Long, tr.Side)
	assert.Equal(t, sim.ReasonEndOfStream, tr.Reason)
	assert.Equal(t, bars[6].Time, tr.EntryTime)
	assert.Equal(t, bars[8].Time, tr.ExitTime)
	assert.Equal(t, 8.0, tr.ExitPrice)
	assert.InDelta(t, -3.0019, tr.PnL, 1e-9)

	eq := res.Ledger.Equity()
	require.Len(t, eq, 3)
	assert.InDelta(t, 100000-0.0011, eq[1].Equity, 1e-9)
	assert.InDelta(t, 100000-3.0019, eq[2].Equity, 1e-9)

	s := res.Summary
	assert.Equal(t, 1, s.Trades)
	assert.Equal(t, 0, s.Wins)
	assert.Equal(t, 1, s.Losses)
	assert.InDelta(t, -3.0019, s.TotalPnL, 1e-9)
	assert.Less(t, s.MaxDrawdown, 0.0)
	assert.Equal(t, time.Unix(bars[0].Time, 0).UTC(), res.Start)
	assert.Equal(t, time.Unix(bars[8].Time, 0).UTC(), res.End)
}

func TestRunIsDeterministic(t *testing.T) {
	r := newRunner(t, smallConfig())
	bars := append(crossing(), mkBars(8, 9, 12, 13, 11, 9, 8)[1:]...)
	for i := range bars {
		bars[i].Time = t0 + int64(i)*3600
	}

	a, err := r.Run(context.Background(), bars)
	require.NoError(t, err)
	b, err := r.Run(context.Background(), bars)
	require.NoError(t, err)

	assert.NotEqual(t, a.RunID, b.RunID)
	assert.Equal(t, a.Ledger.Fills(), b.Ledger.Fills())
	assert.Equal(t, a.Ledger.Trades(), b.Ledger.Trades())
	assert.Equal(t, a.Ledger.Equity(), b.Ledger.Equity())
	assert.Equal(t, a.Summary, b.Summary)
}

func TestRunSkipsInvalidBars(t *testing.T) {
	bars := flat(20, 100)
	bars[5].Low = 200 // low above high
	bars[9].Time = bars[8].Time

	r := newRunner(t, config.Default())
	r.Metrics = metrics.New()

	res, err := r.Run(context.Background(), bars)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 2)
	assert.Equal(t, 5, res.Skipped[0].Index)
	assert.Equal(t, 9, res.Skipped[1].Index)
	assert.Equal(t, "timestamp does not advance", res.Skipped[1].Reason)

	assert.Equal(t, 20.0, testutil.ToFloat64(r.Metrics.BarsTotal))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Metrics.BarsSkipped))
}

func TestRunStrictFailsOnInvalidBar(t *testing.T) {
	bars := flat(20, 100)
	bars[5].Close = -1

	cfg := config.Default()
	cfg.Simulation.Strict = true
	r := newRunner(t, cfg)

	_, err := r.Run(context.Background(), bars)
	require.Error(t, err)
	var die *market.DataIntegrityError
	require.True(t, errors.As(err, &die))
	assert.Equal(t, 5, die.Index)
	assert.Equal(t, bars[5].Time, die.Time)
}

func TestNewRunnerRejectsBadConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Strategy.FastPeriod = 0

	_, err := NewRunner(cfg, nil)
	var ce *config.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "strategy.fast_period", ce.Field)
}

func TestRunRevalidatesConfig(t *testing.T) {
	r := newRunner(t, config.Default())
	r.Config.Account.Balance = 0

	_, err := r.Run(context.Background(), flat(5, 100))
	var ce *config.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestRunUnknownEngineFallsBack(t *testing.T) {
	cfg := smallConfig()
	cfg.Simulation.Engine = "nautilus"

	res, err := newRunner(t, cfg).Run(context.Background(), crossing())
	require.NoError(t, err)
	assert.Equal(t, "sim", res.Engine)
	assert.Len(t, res.Ledger.Trades(), 1)
}

func TestRunPaperEngineMatchesSim(t *testing.T) {
	bars := crossing()

	want, err := newRunner(t, smallConfig()).Run(context.Background(), bars)
	require.NoError(t, err)

	cfg := smallConfig()
	cfg.Simulation.Engine = "paper"
	got, err := newRunner(t, cfg).Run(context.Background(), bars)
	require.NoError(t, err)

	assert.Equal(t, "paper", got.Engine)
	assert.Equal(t, want.Ledger.Fills(), got.Ledger.Fills())
	assert.Equal(t, want.Ledger.Trades(), got.Ledger.Trades())
	assert.Equal(t, want.Ledger.Equity(), got.Ledger.Equity())
}

func TestRunCountsSignals(t *testing.T) {
	r := newRunner(t, smallConfig())
	r.Metrics = metrics.New()

	_, err := r.Run(context.Background(), crossing())
	require.NoError(t, err)

	m := r.Metrics
	assert.Equal(t, 9.0, testutil.ToFloat64(m.BarsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues(strategies.BullishCross.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues(strategies.BearishCross.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Fills.WithLabelValues("BUY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TradesClosed))
}

func TestRunWarmupSkipSuppressesSignals(t *testing.T) {
	cfg := smallConfig()
	cfg.Simulation.WarmupSkip = 6

	res, err := newRunner(t, cfg).Run(context.Background(), crossing())
	require.NoError(t, err)
	assert.Empty(t, res.Ledger.Fills())
	assert.Empty(t, res.Ledger.Trades())
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newRunner(t, config.Default()).Run(ctx, flat(10, 100))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunLinearRiseHasNoCross(t *testing.T) {
	closes := make([]float64, 60)
	for i := range closes {
		closes[i] = 100 + 100*float64(i)/59
	}

	res, err := newRunner(t, config.Default()).Run(context.Background(), mkBars(closes...))
	require.NoError(t, err)

	assert.Empty(t, res.Ledger.Fills())
	assert.Empty(t, res.Ledger.Trades())
	require.Len(t, res.Ledger.Equity(), 1)
	assert.Equal(t, 100000.0, res.Ledger.Equity()[0].Equity)
	assert.Equal(t, 100000.0, res.Summary.EndBalance)
}

func TestRunSignalWaitsForNextValidBar(t *testing.T) {
	bars := crossing()
	bars[6].Low = 200 // signal bar is 5; its execution bar is unusable

	res, err := newRunner(t, smallConfig()).Run(context.Background(), bars)
	require.NoError(t, err)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 6, res.Skipped[0].Index)

	fills := res.Ledger.Fills()
	require.Len(t, fills, 1)
	assert.Equal(t, bars[7].Time, fills[0].Time)
	assert.Equal(t, bars[7].Open, fills[0].Price)
}

func TestRunPaperEngineCountsSignals(t *testing.T) {
	cfg := smallConfig()
	cfg.Simulation.Engine = "paper"
	r := newRunner(t, cfg)
	r.Metrics = metrics.New()

	res, err := r.Run(context.Background(), crossing())
	require.NoError(t, err)
	assert.Equal(t, "paper", res.Engine)

	m := r.Metrics
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues(strategies.BullishCross.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Signals.WithLabelValues(strategies.BearishCross.String())))
}

func TestRunFallsBackWhenStrategyCannotStart(t *testing.T) {
	// a session on another instrument refuses the bar subscription
	live.Register("other-instrument", func(ctx context.Context, opts live.Options) (live.Session, error) {
		opts.Sim.Instrument = "EURUSD.SIM"
		return live.NewPaperSession(ctx, opts)
	})

	cfg := smallConfig()
	cfg.Simulation.Engine = "other-instrument"
	res, err := newRunner(t, cfg).Run(context.Background(), crossing())
	require.NoError(t, err)

	assert.Equal(t, "sim", res.Engine)
	require.Len(t, res.Ledger.Trades(), 1)
	assert.Equal(t, "TEST.SIM", res.Ledger.Trades()[0].Instrument)
}
