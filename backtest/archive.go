package backtest

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/rustyeddy/macross/config"
	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/sim"
)

// Archive builds the journal record for a finished run.
func (res *Result) Archive(cfg *config.Config, dataset string) journal.Run {
	s := res.Summary
	st := cfg.Strategy

	run := journal.Run{
		RunID:      res.RunID,
		Created:    time.Now().UTC(),
		Instrument: cfg.Instrument,
		Strategy:   st.Name,
		FastPeriod: st.FastPeriod,
		SlowPeriod: st.SlowPeriod,
		RSIPeriod:  st.RSIPeriod,
		RSIMethod:  cfg.Periods().RSIMethod,
		Oversold:   st.Oversold,
		Overbought: st.Overbought,
		FeeRate:    cfg.Simulation.FeeRate,
		TradeSize:  st.TradeSize,

		Start: res.Start,
		End:   res.End,
		Bars:  res.Bars,

		Trades: s.Trades,
		Wins:   s.Wins,
		Losses: s.Losses,

		StartBalance: s.StartBalance,
		EndBalance:   s.EndBalance,
		NetPL:        s.TotalPnL,
		ReturnPct:    s.ReturnPct,
		WinRate:      s.WinRatePct / 100,
		ProfitFactor: s.ProfitFactor,
		MaxDDPct:     s.MaxDrawdown * 100,
		OrgPath:      cfg.Output.OrgPath,
	}
	if b, err := cfg.YAML(); err == nil {
		run.Config = b
	}
	if dataset != "" {
		run.Dataset = filepath.Base(dataset)
	}

	if res.Engine != "sim" {
		run.Notes = append(run.Notes, "engine: "+res.Engine)
	}
	if n := len(res.Skipped); n > 0 {
		run.Notes = append(run.Notes, fmt.Sprintf("%d of %d bars skipped for data integrity", n, res.Bars))
	}
	for _, t := range res.Ledger.Trades() {
		if t.Reason == sim.ReasonEndOfStream {
			run.Notes = append(run.Notes, "final position closed at end of data")
			break
		}
	}
	return run
}
