package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/macross/journal"
)

func newJournalCmd(rc *RootConfig) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query archived backtest runs",
		Long: `Query runs archived with "macross backtest --db".

Examples:
  macross journal runs --db runs.sqlite
  macross journal show <run-id> --db runs.sqlite`,
	}
	cmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite run database (defaults to output.db_path)")

	open := func(cmd *cobra.Command) (*journal.SQLite, error) {
		path := dbPath
		if path == "" {
			cfg, err := rc.load(cmd)
			if err != nil {
				return nil, err
			}
			path = cfg.Output.DBPath
		}
		if path == "" {
			return nil, fmt.Errorf("no database: pass --db or set output.db_path")
		}
		j, err := journal.NewSQLite(path)
		if err != nil {
			return nil, fmt.Errorf("open db: %w", err)
		}
		return j, nil
	}

	var limit int
	runsCmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			runs, err := j.ListRuns(ctxOf(cmd), limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Run", "Created", "Instrument", "Params", "Trades", "Net P/L", "Return %"})
			for _, r := range runs {
				table.Append([]string{
					r.RunID,
					r.Created.Format("2006-01-02 15:04"),
					r.Instrument,
					fmt.Sprintf("%d/%d/%d", r.FastPeriod, r.SlowPeriod, r.RSIPeriod),
					fmt.Sprint(r.Trades),
					fmt.Sprintf("%.2f", r.NetPL),
					fmt.Sprintf("%.2f", r.ReturnPct),
				})
			}
			table.Render()
			return nil
		},
	}
	runsCmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 for all)")

	var details bool
	showCmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print a run as an org-mode entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := open(cmd)
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := ctxOf(cmd)
			r, err := j.GetRun(ctx, args[0])
			if err != nil {
				return fmt.Errorf("get run: %w", err)
			}
			b, err := r.Org()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if _, err := out.Write(b); err != nil {
				return err
			}
			if !details {
				return nil
			}
			return printRunDetails(ctx, out, j, r.RunID)
		},
	}
	showCmd.Flags().BoolVar(&details, "trades", true, "append the run's trades, fill count and equity range")

	cmd.AddCommand(runsCmd, showCmd)
	return cmd
}

func ctxOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func printRunDetails(ctx context.Context, out io.Writer, j *journal.SQLite, runID string) error {
	trades, err := j.ListTrades(ctx, runID)
	if err != nil {
		return fmt.Errorf("list trades: %w", err)
	}
	fills, err := j.ListFills(ctx, runID)
	if err != nil {
		return fmt.Errorf("list fills: %w", err)
	}
	equity, err := j.ListEquity(ctx, runID)
	if err != nil {
		return fmt.Errorf("list equity: %w", err)
	}

	fmt.Fprintln(out, "\n** Trades")
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Entry", "Exit", "Side", "Qty", "Entry Px", "Exit Px", "PnL", "Reason"})
	for _, t := range trades {
		table.Append([]string{
			journal.FormatTime(t.EntryTime),
			journal.FormatTime(t.ExitTime),
			t.Side.String(),
			fmt.Sprintf("%g", t.Quantity),
			fmt.Sprintf("%.5f", t.EntryPrice),
			fmt.Sprintf("%.5f", t.ExitPrice),
			fmt.Sprintf("%.4f", t.PnL),
			t.Reason,
		})
	}
	table.Render()

	fmt.Fprintf(out, "\nfills: %d, equity points: %d", len(fills), len(equity))
	if n := len(equity); n > 0 {
		fmt.Fprintf(out, " (%.2f -> %.2f)", equity[0].Equity, equity[n-1].Equity)
	}
	fmt.Fprintln(out)
	return nil
}
