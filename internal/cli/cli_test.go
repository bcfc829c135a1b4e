package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/macross/config"
	"github.com/rustyeddy/macross/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeBars(t *testing.T, dir string, closes ...float64) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("timestamp,open,high,low,close,volume\n")
	for i, c := range closes {
		fmt.Fprintf(&b, "%d,%g,%g,%g,%g,100\n", 1704067200+i*3600, c, c+1, c-1, c)
	}
	path := filepath.Join(dir, "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "macross version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "macross.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)
	assert.FileExists(t, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "fast=20 slow=50 rsi=14")
}

func TestConfigValidateRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy:\n  fast_period: -1\n"), 0o644))

	_, err := execute(t, "config", "validate", "-f", path)
	var ce *config.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "strategy.fast_period", ce.Field)
}

func TestBacktestEndToEnd(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 12, 10, 9, 8, 9, 10, 11, 10, 8)
	outDir := filepath.Join(dir, "out")
	db := filepath.Join(dir, "runs.sqlite")
	org := filepath.Join(dir, "run.org")
	prom := filepath.Join(dir, "macross.prom")

	out, err := execute(t, "backtest",
		"--bars", bars,
		"--out", outDir,
		"--fast", "2", "--slow", "3", "--rsi", "4",
		"--db", db,
		"--org", org,
		"--metrics-file", prom,
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Total Trades")

	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2)
	require.Equal(t, "run", fields[0])
	runID := fields[1]

	for _, name := range []string{journal.FillsFile, journal.PositionsFile, journal.EquityFile} {
		assert.FileExists(t, filepath.Join(outDir, name))
	}
	eq, err := journal.ReadEquityCSV(filepath.Join(outDir, journal.EquityFile))
	require.NoError(t, err)
	assert.Len(t, eq, 3)

	orgText, err := os.ReadFile(org)
	require.NoError(t, err)
	assert.Contains(t, string(orgText), runID)

	metricsText, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText), "macross_bars_total 9")

	out, err = execute(t, "journal", "runs", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, runID)

	out, err = execute(t, "journal", "show", runID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: MA-Cross RSI TEST.SIM")
	assert.Contains(t, out, "final position closed at end of data")
	assert.Contains(t, out, "EndOfStream")
	assert.Contains(t, out, "fills: 1, equity points: 3")

	out, err = execute(t, "journal", "show", runID, "--db", db, "--trades=false")
	require.NoError(t, err)
	assert.NotContains(t, out, "equity points")
}

func TestBacktestMissingBarsFile(t *testing.T) {
	_, err := execute(t, "backtest", "--bars", filepath.Join(t.TempDir(), "none.csv"), "--out", t.TempDir())
	assert.Error(t, err)
}

func TestBacktestRejectsBadPeriods(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 1, 2, 3)
	_, err := execute(t, "backtest", "--bars", bars, "--out", dir, "--fast", "0")
	var ce *config.ConfigurationError
	assert.True(t, errors.As(err, &ce))
}

func TestBacktestFlagsOverrideInvalidFile(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 12, 10, 9, 8, 9, 10, 11, 10, 8)
	cfgPath := filepath.Join(dir, "macross.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("strategy:\n  fast_period: 0\n"), 0o644))

	_, err := execute(t, "backtest", "--config", cfgPath, "--bars", bars, "--out", dir)
	var ce *config.ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "strategy.fast_period", ce.Field)

	out, err := execute(t, "backtest", "--config", cfgPath, "--bars", bars, "--out", dir,
		"--fast", "2", "--slow", "3", "--rsi", "4", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Total Trades")
}

func TestIndicators(t *testing.T) {
	dir := t.TempDir()
	bars := writeBars(t, dir, 10, 11, 12, 11, 13, 14, 13, 15, 16, 15)

	t.Setenv("MACROSS_STRATEGY_FAST_PERIOD", "2")
	t.Setenv("MACROSS_STRATEGY_SLOW_PERIOD", "3")
	t.Setenv("MACROSS_STRATEGY_RSI_PERIOD", "4")
	out, err := execute(t, "indicators", "--bars", bars, "-n", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "WILDER RSI")
	assert.Contains(t, out, "max |simple - wilder| RSI")
}

func TestJournalRequiresDatabase(t *testing.T) {
	_, err := execute(t, "journal", "runs")
	assert.Error(t, err)
}

func TestBacktestHelpListsConnectors(t *testing.T) {
	out, err := execute(t, "backtest", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Execution engine: sim or one of paper")
}
