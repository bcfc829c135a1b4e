package backtest

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/sim"
)

func TestMaxDrawdown(t *testing.T) {
	assert.Zero(t, MaxDrawdown(nil))

	eq := []sim.EquityPoint{
		{Time: 1, Equity: 100},
		{Time: 2, Equity: 120},
		{Time: 3, Equity: 90},
		{Time: 4, Equity: 130},
		{Time: 5, Equity: 117},
	}
	assert.InDelta(t, -0.25, MaxDrawdown(eq), 1e-12)

	rising := []sim.EquityPoint{{Time: 1, Equity: 1}, {Time: 2, Equity: 2}}
	assert.Zero(t, MaxDrawdown(rising))
}

func ledgerWith(t *testing.T, pnls ...float64) *journal.Ledger {
	t.Helper()
	l := journal.NewLedger()
	bal := 1000.0
	require.NoError(t, l.RecordEquity(sim.EquityPoint{Time: 0, Equity: bal}))
	for i, p := range pnls {
		ts := int64(i+1) * 10
		require.NoError(t, l.RecordFill(sim.Fill{Time: ts - 5, Side: market.Buy, Quantity: 1}))
		require.NoError(t, l.RecordTrade(sim.ClosedTrade{EntryTime: ts - 5, ExitTime: ts, Side: market.Long, PnL: p}))
		bal += p
		require.NoError(t, l.RecordEquity(sim.EquityPoint{Time: ts, Equity: bal}))
	}
	return l
}

func TestSummarize(t *testing.T) {
	s := Summarize(ledgerWith(t, 30, -10, 0, 20, -20), 1000)

	assert.Equal(t, 5, s.Fills)
	assert.Equal(t, 5, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 40, s.WinRatePct, 1e-9)
	assert.InDelta(t, 20, s.TradePnL, 1e-9)
	assert.InDelta(t, 30, s.LargestWin, 1e-9)
	assert.InDelta(t, -20, s.LargestLoss, 1e-9)
	assert.InDelta(t, 50.0/30.0, s.ProfitFactor, 1e-9)
	assert.InDelta(t, 1020, s.EndBalance, 1e-9)
	assert.InDelta(t, 20, s.TotalPnL, 1e-9)
	assert.InDelta(t, 2, s.ReturnPct, 1e-9)
	assert.InDelta(t, -20.0/1040.0, s.MaxDrawdown, 1e-12)
}

func TestSummarizeNoLosses(t *testing.T) {
	s := Summarize(ledgerWith(t, 5, 5), 1000)
	assert.Zero(t, s.Losses)
	assert.Zero(t, s.ProfitFactor)
	assert.InDelta(t, 100, s.WinRatePct, 1e-9)
}

func TestSummarizeEmptyLedger(t *testing.T) {
	s := Summarize(journal.NewLedger(), 500)
	assert.Equal(t, 500.0, s.EndBalance)
	assert.Zero(t, s.Trades)
	assert.Zero(t, s.WinRatePct)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summarize(ledgerWith(t, 1234.5, -10), 100000))

	out := buf.String()
	for _, label := range []string{"Starting Balance", "Ending Balance", "Total Trades", "Win Rate", "Profit Factor", "Max Drawdown"} {
		assert.Contains(t, out, label)
	}
	assert.Contains(t, out, "$100,000.00")
	assert.Contains(t, out, "50.0%")
}

func TestPrintSummaryWithoutTrades(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summarize(journal.NewLedger(), 100000))
	assert.NotContains(t, buf.String(), "Total Trades")
}
