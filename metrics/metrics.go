// Package metrics counts what happens during a backtest run.
package metrics

import (
	"github.com/asaskevich/EventBus"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rustyeddy/macross/sim"
)

// Metrics holds the Prometheus collectors for one run. Each run gets its
// own registry so repeated runs in one process do not collide.
type Metrics struct {
	reg *prometheus.Registry

	BarsTotal    prometheus.Counter
	BarsSkipped  prometheus.Counter
	Signals      *prometheus.CounterVec // labels: kind
	Filtered     *prometheus.CounterVec // labels: kind
	Fills        *prometheus.CounterVec // labels: side
	TradesClosed prometheus.Counter
	Equity       prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		BarsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macross_bars_total",
			Help: "Bars read from the input",
		}),
		BarsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macross_bars_skipped_total",
			Help: "Bars skipped for failing validation",
		}),
		Signals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "macross_signals_total",
			Help: "Crossover signals raised (by kind)",
		}, []string{"kind"}),
		Filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "macross_filtered_total",
			Help: "Crosses suppressed by the RSI filter (by kind)",
		}, []string{"kind"}),
		Fills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "macross_fills_total",
			Help: "Orders filled (by side)",
		}, []string{"side"}),
		TradesClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "macross_trades_closed_total",
			Help: "Positions closed",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "macross_equity",
			Help: "Account equity after the latest balance change",
		}),
	}

	m.reg.MustRegister(
		m.BarsTotal,
		m.BarsSkipped,
		m.Signals,
		m.Filtered,
		m.Fills,
		m.TradesClosed,
		m.Equity,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Attach counts simulator events published on bus.
func (m *Metrics) Attach(bus EventBus.Bus) error {
	if err := bus.Subscribe(sim.TopicFill, func(f sim.Fill) {
		m.Fills.WithLabelValues(f.Side.String()).Inc()
	}); err != nil {
		return errors.Wrap(err, "subscribe fills")
	}
	if err := bus.Subscribe(sim.TopicTrade, func(sim.ClosedTrade) {
		m.TradesClosed.Inc()
	}); err != nil {
		return errors.Wrap(err, "subscribe trades")
	}
	if err := bus.Subscribe(sim.TopicEquity, func(p sim.EquityPoint) {
		m.Equity.Set(p.Equity)
	}); err != nil {
		return errors.Wrap(err, "subscribe equity")
	}
	return nil
}

// WriteFile writes the registry in the node-exporter textfile format.
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return errors.Wrapf(err, "write metrics %s", path)
	}
	return nil
}
