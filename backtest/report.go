package backtest

import (
	"fmt"
	"io"

	"github.com/montanaflynn/stats"
	"github.com/olekukonko/tablewriter"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/sim"
)

// Summary is the end-of-run report.
type Summary struct {
	StartBalance float64
	EndBalance   float64
	TotalPnL     float64 // EndBalance - StartBalance
	ReturnPct    float64

	Fills  int
	Trades int
	Wins   int // pnl > 0
	Losses int // pnl < 0

	WinRatePct  float64
	TradePnL    float64 // sum of closed trade pnl
	LargestWin  float64
	LargestLoss float64

	// ProfitFactor is gross profit over gross loss, 0 when nothing was lost.
	ProfitFactor float64

	// MaxDrawdown is min((equity - runningMax) / runningMax), a fraction <= 0.
	MaxDrawdown float64
}

// Summarize aggregates a finished ledger.
func Summarize(l *journal.Ledger, startBalance float64) Summary {
	s := Summary{
		StartBalance: startBalance,
		EndBalance:   startBalance,
		Fills:        len(l.Fills()),
	}

	equity := l.Equity()
	if n := len(equity); n > 0 {
		s.EndBalance = equity[n-1].Equity
	}
	s.TotalPnL = s.EndBalance - s.StartBalance
	if startBalance != 0 {
		s.ReturnPct = s.TotalPnL / startBalance * 100
	}
	s.MaxDrawdown = MaxDrawdown(equity)

	trades := l.Trades()
	s.Trades = len(trades)
	if s.Trades == 0 {
		return s
	}

	pnls := make(stats.Float64Data, len(trades))
	var grossProfit, grossLoss float64
	for i, t := range trades {
		pnls[i] = t.PnL
		switch {
		case t.PnL > 0:
			s.Wins++
			grossProfit += t.PnL
		case t.PnL < 0:
			s.Losses++
			grossLoss -= t.PnL
		}
	}

	s.WinRatePct = float64(s.Wins) / float64(s.Trades) * 100
	s.TradePnL, _ = stats.Sum(pnls)
	s.LargestWin, _ = stats.Max(pnls)
	s.LargestLoss, _ = stats.Min(pnls)
	if grossLoss > 0 {
		s.ProfitFactor = grossProfit / grossLoss
	}
	return s
}

// MaxDrawdown is the deepest fall of the equity curve from its running peak,
// as a non-positive fraction of that peak.
func MaxDrawdown(equity []sim.EquityPoint) float64 {
	var dd, peak float64
	for i, p := range equity {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		if peak == 0 {
			continue
		}
		if d := (p.Equity - peak) / peak; d < dd {
			dd = d
		}
	}
	return dd
}

// PrintSummary renders the summary as a console table.
func PrintSummary(w io.Writer, s Summary) {
	p := message.NewPrinter(language.English)
	money := func(v float64) string { return "$" + p.Sprintf("%.2f", v) }

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)

	table.Append([]string{"Starting Balance", money(s.StartBalance)})
	table.Append([]string{"Ending Balance", money(s.EndBalance)})
	table.Append([]string{"Total PnL", money(s.TotalPnL)})
	table.Append([]string{"Return", fmt.Sprintf("%.2f%%", s.ReturnPct)})
	table.Append([]string{"Fills", fmt.Sprint(s.Fills)})
	if s.Trades > 0 {
		table.Append([]string{"Total Trades", fmt.Sprint(s.Trades)})
		table.Append([]string{"Winning Trades", fmt.Sprint(s.Wins)})
		table.Append([]string{"Losing Trades", fmt.Sprint(s.Losses)})
		table.Append([]string{"Win Rate", fmt.Sprintf("%.1f%%", s.WinRatePct)})
		table.Append([]string{"Total Trade PnL", money(s.TradePnL)})
		table.Append([]string{"Largest Loss", money(s.LargestLoss)})
		table.Append([]string{"Largest Win", money(s.LargestWin)})
		if s.ProfitFactor > 0 {
			table.Append([]string{"Profit Factor", fmt.Sprintf("%.2f", s.ProfitFactor)})
		}
	}
	table.Append([]string{"Max Drawdown", fmt.Sprintf("%.2f%%", s.MaxDrawdown*100)})

	table.Render()
}
