package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/macross/backtest"
	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/market"
)

func newIndicatorsCmd(rc *RootConfig) *cobra.Command {
	var (
		bars string
		tail int
	)

	cmd := &cobra.Command{
		Use:   "indicators",
		Short: "Print the indicator series for a bars file",
		Long: `Print fast MA, slow MA and RSI for the last bars of a file, next to the
Wilder-smoothed RSI that charting packages report, and the largest gap
between the two RSI series.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("bars") {
				cfg.Data.BarsFile = bars
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			feed, err := backtest.LoadBars(cfg.Data.BarsFile)
			if err != nil {
				return err
			}
			s, err := indicators.Compute(market.Closes(feed.Bars), cfg.Periods())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Time", "Close", "Fast MA", "Slow MA", "RSI", "Wilder RSI"})
			table.SetAlignment(tablewriter.ALIGN_RIGHT)
			start := max(0, len(feed.Bars)-tail)
			for i := start; i < len(feed.Bars); i++ {
				b := feed.Bars[i]
				table.Append([]string{
					journal.FormatTime(b.Time),
					strconv.FormatFloat(b.Close, 'f', -1, 64),
					num(s.FastMA[i]),
					num(s.SlowMA[i]),
					num(s.RSI[i]),
					num(s.WilderRSI[i]),
				})
			}
			table.Render()

			if d, at := s.Divergence(); at >= 0 {
				fmt.Fprintf(out, "max |simple - wilder| RSI: %.4f at %s\n", d, journal.FormatTime(feed.Bars[at].Time))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&bars, "bars", "", "OHLCV CSV input (overrides data.bars_file)")
	cmd.Flags().IntVarP(&tail, "tail", "n", 20, "Number of trailing bars to print")
	return cmd
}

func num(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}
