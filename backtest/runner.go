// Package backtest runs the crossover rule over historical bars and reports
// the outcome.
package backtest

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/asaskevich/EventBus"
	pkgerrors "github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/config"
	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/internal/logger"
	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/live"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/metrics"
	"github.com/rustyeddy/macross/pkg/id"
	"github.com/rustyeddy/macross/sim"
	"github.com/rustyeddy/macross/strategies"
)

// Result is everything one run produced.
type Result struct {
	RunID   string
	Engine  string // "sim" or the connector that ran it
	Ledger  *journal.Ledger
	Summary Summary

	Bars    int // bars read, including skipped ones
	Skipped []*market.DataIntegrityError
	Start   time.Time // first processed bar
	End     time.Time // last processed bar
}

// Runner performs one deterministic pass over a bar stream.
type Runner struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *metrics.Metrics // optional
}

func NewRunner(cfg *config.Config, log *zap.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Runner{Config: cfg, Logger: logger.OrNop(log)}, nil
}

// driver is the execution path bars are fed through.
type driver interface {
	onBar(ctx context.Context, idx int, b market.Bar) error
	finish(ctx context.Context) error
}

// RunFeed runs a loaded file. Rows the loader rejected count as skipped
// bars, and skipped bars are reported by their row in the file.
func (r *Runner) RunFeed(ctx context.Context, feed *Feed) (*Result, error) {
	return r.run(ctx, feed.Bars, feed.Rows, feed.Rejected)
}

// Run executes one pass over bars: validation, indicators, detection,
// simulation and recording, then the end-of-data close.
func (r *Runner) Run(ctx context.Context, bars []market.Bar) (*Result, error) {
	return r.run(ctx, bars, nil, nil)
}

func (r *Runner) run(ctx context.Context, bars []market.Bar, rows []int, rejected []*market.DataIntegrityError) (*Result, error) {
	cfg := r.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.OrNop(r.Logger)

	res := &Result{
		RunID:  id.New(),
		Engine: "sim",
		Ledger: journal.NewLedger(),
		Bars:   len(bars) + len(rejected),
	}
	log = log.With(zap.String("run", res.RunID))

	bus := EventBus.New()
	if err := res.Ledger.Attach(bus); err != nil {
		return nil, err
	}
	if r.Metrics != nil {
		if err := r.Metrics.Attach(bus); err != nil {
			return nil, err
		}
		r.Metrics.BarsTotal.Add(float64(res.Bars))
	}

	drv, err := r.newDriver(ctx, bus, log, res)
	if err != nil {
		return nil, err
	}

	// reject reports loader rejections for rows before row, in file order.
	reject := func(row int) error {
		for len(rejected) > 0 && rejected[0].Index < row {
			e := rejected[0]
			rejected = rejected[1:]
			if cfg.Simulation.Strict {
				return e
			}
			r.skip(log, res, e)
		}
		return nil
	}

	var (
		last    market.Bar
		haveBar bool
		n       int
	)
	for i, b := range bars {
		row := i
		if rows != nil {
			row = rows[i]
		}
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrapf(err, "bar %d (ts=%d)", row, b.Time)
		}
		if err := reject(row); err != nil {
			return nil, err
		}

		if err := checkBar(row, b, last, haveBar); err != nil {
			if cfg.Simulation.Strict {
				return nil, err
			}
			r.skip(log, res, err)
			continue
		}

		if err := drv.onBar(ctx, n, b); err != nil {
			return nil, pkgerrors.Wrapf(err, "bar %d (ts=%d)", row, b.Time)
		}
		if !haveBar {
			res.Start = b.Timestamp()
		}
		res.End = b.Timestamp()
		last, haveBar = b, true
		n++
	}
	if err := reject(math.MaxInt); err != nil {
		return nil, err
	}

	if err := drv.finish(ctx); err != nil {
		return nil, pkgerrors.Wrap(err, "finish")
	}
	if err := res.Ledger.Err(); err != nil {
		return nil, pkgerrors.Wrap(err, "ledger")
	}

	res.Summary = Summarize(res.Ledger, cfg.Account.Balance)
	log.Info("backtest complete",
		zap.String("engine", res.Engine),
		zap.Int("bars", res.Bars),
		zap.Int("skipped", len(res.Skipped)),
		zap.Int("fills", res.Summary.Fills),
		zap.Int("trades", res.Summary.Trades),
		zap.Float64("pnl", res.Summary.TotalPnL))
	return res, nil
}

func checkBar(i int, b, last market.Bar, haveLast bool) *market.DataIntegrityError {
	if err := b.Validate(i); err != nil {
		var die *market.DataIntegrityError
		if errors.As(err, &die) {
			return die
		}
		return market.NewDataIntegrityError(i, b.Time, err.Error())
	}
	if haveLast && b.Time <= last.Time {
		return market.NewDataIntegrityError(i, b.Time, "timestamp does not advance")
	}
	return nil
}

func (r *Runner) skip(log *zap.Logger, res *Result, e *market.DataIntegrityError) {
	res.Skipped = append(res.Skipped, e)
	if r.Metrics != nil {
		r.Metrics.BarsSkipped.Inc()
	}
	log.Warn("bar skipped",
		zap.Int("bar", e.Index),
		zap.Int64("ts", e.Time),
		zap.String("reason", e.Reason))
}

// newDriver picks the execution path. A configured connector that cannot be
// reached or started falls back to the built-in simulation.
func (r *Runner) newDriver(ctx context.Context, bus EventBus.Bus, log *zap.Logger, res *Result) (driver, error) {
	cfg := r.Config
	obs := &observer{metrics: r.Metrics, log: log}

	if cfg.UsesConnector() {
		drv, err := r.connect(ctx, bus, log, obs)
		var cu *live.CollaboratorUnavailable
		switch {
		case err == nil:
			res.Engine = cfg.Simulation.Engine
			return drv, nil
		case errors.As(err, &cu):
			log.Warn("trading engine unavailable, using built-in simulation",
				zap.String("engine", cfg.Simulation.Engine),
				zap.Strings("registered", live.Registered()),
				zap.Error(err))
		default:
			return nil, err
		}
	}

	s, err := sim.New(cfg.SimConfig(), bus, log)
	if err != nil {
		return nil, err
	}
	src, err := strategies.ByName(cfg.Strategy.Name, cfg.Periods(), cfg.Thresholds())
	if err != nil {
		return nil, err
	}
	return &simDriver{
		sim:        s,
		src:        src,
		warmupSkip: cfg.Simulation.WarmupSkip,
		obs:        obs,
	}, nil
}

// observer logs and counts what the detector decided on each bar.
type observer struct {
	metrics *metrics.Metrics
	log     *zap.Logger
}

func (o *observer) observe(idx int, b market.Bar, snap indicators.Snapshot, sig, filtered strategies.Signal) {
	if filtered != strategies.None {
		o.log.Debug("cross filtered by rsi",
			zap.Int("bar", idx),
			zap.Int64("ts", b.Time),
			zap.String("signal", filtered.String()),
			zap.Float64("rsi", snap.RSI.Value))
		if o.metrics != nil {
			o.metrics.Filtered.WithLabelValues(filtered.String()).Inc()
		}
	}
	if sig != strategies.None {
		o.log.Info("signal",
			zap.Int("bar", idx),
			zap.Int64("ts", b.Time),
			zap.String("signal", sig.String()),
			zap.Float64("fast", snap.FastMA.Value),
			zap.Float64("slow", snap.SlowMA.Value),
			zap.Float64("rsi", snap.RSI.Value))
		if o.metrics != nil {
			o.metrics.Signals.WithLabelValues(sig.String()).Inc()
		}
	}
}

// simDriver feeds detector signals straight into the simulator.
type simDriver struct {
	sim        *sim.Simulator
	src        strategies.SignalSource
	warmupSkip int
	obs        *observer
}

func (d *simDriver) onBar(_ context.Context, idx int, b market.Bar) error {
	snap, sig := d.src.Next(b)
	filtered := d.src.Filtered()
	if idx < d.warmupSkip {
		sig, filtered = strategies.None, strategies.None
	}
	d.obs.observe(idx, b, snap, sig, filtered)
	return d.sim.OnBar(b, sig)
}

func (d *simDriver) finish(context.Context) error {
	return d.sim.Finish()
}

// sessionDriver runs the live strategy against a connected session.
type sessionDriver struct {
	sess  live.Session
	strat *live.Strategy
	obs   *observer
}

// connect opens the configured connector and starts the strategy on it. A
// session that cannot start the strategy is closed and reported as
// unavailable.
func (r *Runner) connect(ctx context.Context, bus EventBus.Bus, log *zap.Logger, obs *observer) (driver, error) {
	cfg := r.Config
	name := cfg.Simulation.Engine
	sess, err := live.Connect(ctx, name, live.Options{
		Sim:    cfg.SimConfig(),
		Bus:    bus,
		Logger: log,
	})
	if err != nil {
		return nil, err
	}

	strat, err := live.NewStrategy(live.StrategyConfig{
		Instrument: cfg.Instrument,
		Periods:    cfg.Periods(),
		Thresholds: cfg.Thresholds(),
		TradeSize:  cfg.Strategy.TradeSize,
		WarmupSkip: cfg.Simulation.WarmupSkip,
	}, sess, log)
	if err == nil {
		sess.Attach(strat)
		err = strat.OnStart(ctx)
	}
	if err != nil {
		if cerr := sess.Close(); cerr != nil {
			log.Warn("closing session", zap.String("engine", name), zap.Error(cerr))
		}
		return nil, &live.CollaboratorUnavailable{Name: name, Err: err}
	}
	return &sessionDriver{sess: sess, strat: strat, obs: obs}, nil
}

func (d *sessionDriver) onBar(ctx context.Context, _ int, b market.Bar) error {
	if err := d.sess.Feed(ctx, b); err != nil {
		return err
	}
	if ev, ok := d.strat.Last(); ok && ev.Snapshot.Time == b.Time {
		d.obs.observe(ev.Index, b, ev.Snapshot, ev.Signal, ev.Filtered)
	}
	return nil
}

func (d *sessionDriver) finish(ctx context.Context) error {
	if err := d.strat.OnStop(ctx); err != nil {
		return err
	}
	return d.sess.Close()
}
