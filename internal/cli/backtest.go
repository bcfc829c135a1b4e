package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/backtest"
	"github.com/rustyeddy/macross/config"
	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/live"
	"github.com/rustyeddy/macross/metrics"
)

type backtestFlags struct {
	bars        string
	outDir      string
	engine      string
	fast        int
	slow        int
	rsi         int
	rsiMethod   string
	warmupSkip  int
	strict      bool
	db          string
	org         string
	metricsFile string
}

// apply copies the flags the user set over cfg.
func (f *backtestFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := cmd.Flags().Changed
	if set("bars") {
		cfg.Data.BarsFile = f.bars
	}
	if set("out") {
		cfg.Output.Dir = f.outDir
	}
	if set("engine") {
		cfg.Simulation.Engine = f.engine
	}
	if set("fast") {
		cfg.Strategy.FastPeriod = f.fast
	}
	if set("slow") {
		cfg.Strategy.SlowPeriod = f.slow
	}
	if set("rsi") {
		cfg.Strategy.RSIPeriod = f.rsi
	}
	if set("rsi-method") {
		cfg.Strategy.RSIMethod = f.rsiMethod
	}
	if set("warmup-skip") {
		cfg.Simulation.WarmupSkip = f.warmupSkip
	}
	if set("strict") {
		cfg.Simulation.Strict = f.strict
	}
	if set("db") {
		cfg.Output.DBPath = f.db
	}
	if set("org") {
		cfg.Output.OrgPath = f.org
	}
	if set("metrics-file") {
		cfg.Output.MetricsFile = f.metricsFile
	}
}

func newBacktestCmd(rc *RootConfig) *cobra.Command {
	f := &backtestFlags{}

	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Run the MA crossover / RSI backtest over a bars file",
		Long: `Run the MA crossover / RSI backtest over a bars file.

The bars file is CSV with the header timestamp,open,high,low,close,volume.
Results are written to backtest_fills.csv, backtest_positions.csv and
equity_curve.csv in the output directory.

Example:
  macross backtest --bars data/eurusd-h1.csv --fast 10 --slow 30 --db runs.sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rc.load(cmd)
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			log, err := rc.logger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			return runBacktest(cmd, cfg, log)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.bars, "bars", "", "OHLCV CSV input (overrides data.bars_file)")
	fl.StringVarP(&f.outDir, "out", "o", "", "Output directory (overrides output.dir)")
	fl.StringVar(&f.engine, "engine", "", "Execution engine: sim or one of "+strings.Join(live.Registered(), ", "))
	fl.IntVar(&f.fast, "fast", 0, "Fast MA period")
	fl.IntVar(&f.slow, "slow", 0, "Slow MA period")
	fl.IntVar(&f.rsi, "rsi", 0, "RSI period")
	fl.StringVar(&f.rsiMethod, "rsi-method", "", "RSI smoothing: simple|wilder")
	fl.IntVar(&f.warmupSkip, "warmup-skip", 0, "Ignore signals on the first N bars")
	fl.BoolVar(&f.strict, "strict", false, "Fail on the first invalid bar instead of skipping it")
	fl.StringVar(&f.db, "db", "", "Archive the run into this SQLite database")
	fl.StringVar(&f.org, "org", "", "Write an org-mode run report to this path")
	fl.StringVar(&f.metricsFile, "metrics-file", "", "Write run metrics in Prometheus textfile format")

	return cmd
}

func runBacktest(cmd *cobra.Command, cfg *config.Config, log *zap.Logger) error {
	ctx := ctxOf(cmd)

	feed, err := backtest.LoadBars(cfg.Data.BarsFile)
	if err != nil {
		return err
	}

	runner, err := backtest.NewRunner(cfg, log)
	if err != nil {
		return err
	}
	if cfg.Output.MetricsFile != "" {
		runner.Metrics = metrics.New()
	}

	res, err := runner.RunFeed(ctx, feed)
	if err != nil {
		return err
	}

	w := cfg.CSVWriter()
	if err := w.Write(res.Ledger); err != nil {
		return err
	}
	fills, trades, equity := w.Paths()
	log.Info("results written",
		zap.String("fills", fills),
		zap.String("positions", trades),
		zap.String("equity", equity))

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run %s (%s, %d bars)\n", res.RunID, res.Engine, res.Bars)
	backtest.PrintSummary(out, res.Summary)

	run := res.Archive(cfg, cfg.Data.BarsFile)
	if cfg.Output.OrgPath != "" {
		if err := run.WriteOrg(); err != nil {
			return err
		}
	}
	if cfg.Output.DBPath != "" {
		j, err := journal.NewSQLite(cfg.Output.DBPath)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer j.Close()
		if err := j.RecordRun(ctx, run, res.Ledger); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	if runner.Metrics != nil {
		if err := runner.Metrics.WriteFile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}
	return nil
}
