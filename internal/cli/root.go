// Package cli holds the macross command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rustyeddy/macross/config"
	"github.com/rustyeddy/macross/internal/logger"
)

const version = "0.3.0"

// RootConfig carries the persistent flags shared by every command.
type RootConfig struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string
}

// load reads the configuration and applies log flags given on the command
// line over it. Commands validate after applying their own flags.
func (rc *RootConfig) load(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Read(rc.ConfigPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = rc.LogLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = rc.LogFormat
	}
	return cfg, nil
}

func (rc *RootConfig) logger(cfg *config.Config) (*zap.Logger, error) {
	return logger.New(cfg.Log.Level, cfg.Log.Format)
}

func NewRootCmd() *cobra.Command {
	rc := &RootConfig{}

	cmd := &cobra.Command{
		Use:   "macross",
		Short: "Moving-average crossover backtester with an RSI filter",
		Long: `macross replays OHLCV bars through a fast/slow moving-average crossover
strategy filtered by RSI, simulates fills at the next bar's open and writes
fills, closed positions and the equity curve.

Configuration is read from --config (YAML or JSON), then MACROSS_*
environment variables (a .env file is honored).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&rc.ConfigPath, "config", "", "Path to config file (optional)")
	cmd.PersistentFlags().StringVar(&rc.LogLevel, "log-level", "info", "Log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&rc.LogFormat, "log-format", "console", "Log format: console|json")

	cmd.AddCommand(
		newBacktestCmd(rc),
		newConfigCmd(rc),
		newJournalCmd(rc),
		newIndicatorsCmd(rc),
	)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "macross version %s\n", version)
		},
	})

	return cmd
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
