// Package config holds the run configuration and its validation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/macross/indicators"
	"github.com/rustyeddy/macross/journal"
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/sim"
	"github.com/rustyeddy/macross/strategies"
)

// Config represents the complete backtest configuration
type Config struct {
	Instrument string           `json:"instrument" yaml:"instrument" mapstructure:"instrument"`
	Account    AccountConfig    `json:"account" yaml:"account" mapstructure:"account"`
	Strategy   StrategyConfig   `json:"strategy" yaml:"strategy" mapstructure:"strategy"`
	Simulation SimulationConfig `json:"simulation" yaml:"simulation" mapstructure:"simulation"`
	Data       DataConfig       `json:"data" yaml:"data" mapstructure:"data"`
	Output     OutputConfig     `json:"output" yaml:"output" mapstructure:"output"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// AccountConfig contains account initialization parameters
type AccountConfig struct {
	ID       string  `json:"id" yaml:"id" mapstructure:"id"`
	Currency string  `json:"currency" yaml:"currency" mapstructure:"currency"`
	Balance  float64 `json:"balance" yaml:"balance" mapstructure:"balance"`
}

// StrategyConfig contains the crossover and RSI filter parameters
type StrategyConfig struct {
	Name       string  `json:"name" yaml:"name" mapstructure:"name"`
	FastPeriod int     `json:"fast_period" yaml:"fast_period" mapstructure:"fast_period"`
	SlowPeriod int     `json:"slow_period" yaml:"slow_period" mapstructure:"slow_period"`
	RSIPeriod  int     `json:"rsi_period" yaml:"rsi_period" mapstructure:"rsi_period"`
	RSIMethod  string  `json:"rsi_method" yaml:"rsi_method" mapstructure:"rsi_method"` // simple or wilder
	Oversold   float64 `json:"oversold" yaml:"oversold" mapstructure:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought" mapstructure:"overbought"`
	TradeSize  float64 `json:"trade_size" yaml:"trade_size" mapstructure:"trade_size"`
}

// SimulationConfig contains execution parameters
type SimulationConfig struct {
	FeeRate    float64 `json:"fee_rate" yaml:"fee_rate" mapstructure:"fee_rate"`
	WarmupSkip int     `json:"warmup_skip" yaml:"warmup_skip" mapstructure:"warmup_skip"`
	Strict     bool    `json:"strict" yaml:"strict" mapstructure:"strict"` // invalid bars abort the run
	Engine     string  `json:"engine" yaml:"engine" mapstructure:"engine"` // "sim" or a connector name
}

// DataConfig locates the input bars
type DataConfig struct {
	BarsFile string `json:"bars_file" yaml:"bars_file" mapstructure:"bars_file"`
}

// OutputConfig contains output file locations. DBPath, OrgPath and
// MetricsFile are optional.
type OutputConfig struct {
	Dir           string `json:"dir" yaml:"dir" mapstructure:"dir"`
	FillsFile     string `json:"fills_file" yaml:"fills_file" mapstructure:"fills_file"`
	PositionsFile string `json:"positions_file" yaml:"positions_file" mapstructure:"positions_file"`
	EquityFile    string `json:"equity_file" yaml:"equity_file" mapstructure:"equity_file"`
	DBPath        string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
	OrgPath       string `json:"org_path" yaml:"org_path" mapstructure:"org_path"`
	MetricsFile   string `json:"metrics_file" yaml:"metrics_file" mapstructure:"metrics_file"`
}

// LogConfig selects the logger level and encoding
type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"` // json or console
}

// ConfigurationError reports an invalid setting. Runs fail fast on it.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid config: %s %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Instrument: "TEST.SIM",
		Account: AccountConfig{
			ID:       "SIM-001",
			Currency: "USD",
			Balance:  100000,
		},
		Strategy: StrategyConfig{
			Name:       "ma-cross-rsi",
			FastPeriod: 20,
			SlowPeriod: 50,
			RSIPeriod:  14,
			RSIMethod:  indicators.RSISimple,
			Oversold:   30,
			Overbought: 70,
			TradeSize:  1.0,
		},
		Simulation: SimulationConfig{
			FeeRate:    sim.DefaultFeeRate,
			WarmupSkip: 0,
			Engine:     "sim",
		},
		Data: DataConfig{
			BarsFile: "bars.csv",
		},
		Output: OutputConfig{
			Dir:           ".",
			FillsFile:     journal.FillsFile,
			PositionsFile: journal.PositionsFile,
			EquityFile:    journal.EquityFile,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate checks if the configuration is valid. The first problem found is
// returned as a *ConfigurationError.
func (c *Config) Validate() error {
	if c.Instrument == "" {
		return invalid("instrument", "is required")
	}
	if _, err := market.LookupInstrument(c.Instrument); err != nil {
		return invalid("instrument", "%v", err)
	}
	if c.Account.Balance <= 0 {
		return invalid("account.balance", "must be positive, got %v", c.Account.Balance)
	}

	s := c.Strategy
	if s.FastPeriod <= 0 {
		return invalid("strategy.fast_period", "must be positive, got %d", s.FastPeriod)
	}
	if s.SlowPeriod <= 0 {
		return invalid("strategy.slow_period", "must be positive, got %d", s.SlowPeriod)
	}
	if s.RSIPeriod <= 0 {
		return invalid("strategy.rsi_period", "must be positive, got %d", s.RSIPeriod)
	}
	switch strings.ToLower(s.RSIMethod) {
	case "", indicators.RSISimple, indicators.RSIWilder:
	default:
		return invalid("strategy.rsi_method", "must be %q or %q, got %q", indicators.RSISimple, indicators.RSIWilder, s.RSIMethod)
	}
	if s.Oversold < 0 || s.Oversold > 100 {
		return invalid("strategy.oversold", "must be within [0, 100], got %v", s.Oversold)
	}
	if s.Overbought < 0 || s.Overbought > 100 {
		return invalid("strategy.overbought", "must be within [0, 100], got %v", s.Overbought)
	}
	if s.Oversold >= s.Overbought {
		return invalid("strategy.oversold", "must be below overbought (%v >= %v)", s.Oversold, s.Overbought)
	}
	if s.TradeSize <= 0 {
		return invalid("strategy.trade_size", "must be positive, got %v", s.TradeSize)
	}
	if _, err := strategies.ByName(s.Name, c.Periods(), c.Thresholds()); err != nil {
		return invalid("strategy.name", "%v", err)
	}

	if c.Simulation.FeeRate < 0 {
		return invalid("simulation.fee_rate", "must not be negative, got %v", c.Simulation.FeeRate)
	}
	if c.Simulation.WarmupSkip < 0 {
		return invalid("simulation.warmup_skip", "must not be negative, got %d", c.Simulation.WarmupSkip)
	}
	if c.Simulation.Engine == "" {
		return invalid("simulation.engine", "is required")
	}

	if c.Output.FillsFile == "" || c.Output.PositionsFile == "" || c.Output.EquityFile == "" {
		return invalid("output", "fills_file, positions_file and equity_file are required")
	}
	return nil
}

// Periods returns the indicator periods.
func (c *Config) Periods() indicators.Periods {
	return indicators.Periods{
		Fast:      c.Strategy.FastPeriod,
		Slow:      c.Strategy.SlowPeriod,
		RSI:       c.Strategy.RSIPeriod,
		RSIMethod: strings.ToLower(c.Strategy.RSIMethod),
	}
}

// Thresholds returns the RSI filter levels.
func (c *Config) Thresholds() strategies.Thresholds {
	return strategies.Thresholds{Oversold: c.Strategy.Oversold, Overbought: c.Strategy.Overbought}
}

// SimConfig returns the simulator parameters.
func (c *Config) SimConfig() sim.Config {
	return sim.Config{
		Instrument:      c.Instrument,
		StartingBalance: c.Account.Balance,
		TradeSize:       c.Strategy.TradeSize,
		FeeRate:         c.Simulation.FeeRate,
	}
}

// UsesConnector reports whether runs go through a live-engine connector
// rather than the built-in simulation.
func (c *Config) UsesConnector() bool {
	return !strings.EqualFold(c.Simulation.Engine, "sim")
}

// CSVWriter returns the output writer for the configured files.
func (c *Config) CSVWriter() *journal.CSVWriter {
	w := journal.NewCSVWriter(c.Output.Dir)
	w.FillsFile = c.Output.FillsFile
	w.TradesFile = c.Output.PositionsFile
	w.EquityFile = c.Output.EquityFile
	return w
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	// Determine format by extension
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}
