package journal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunOrg(t *testing.T) {
	t.Parallel()

	run := sampleRun("01HRUN", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	b, err := run.Org()
	require.NoError(t, err)
	out := string(b)

	assert.Contains(t, out, "* BACKTEST: MA-Cross RSI TEST.SIM")
	assert.Contains(t, out, ":RUN_ID:      01HRUN")
	assert.Contains(t, out, ":STRATEGY:    ma-cross-rsi")
	assert.Contains(t, out, ":START_DATE:  2024-01-02")
	assert.Contains(t, out, ":NET_PL:      1.98")
	assert.Contains(t, out, ":WIN_RATE:    100.00")
	assert.Contains(t, out, ":PROFIT_FAC:  (profit-factor?)")
	assert.Contains(t, out, ":CREATED:     [2024-03-01 Fri 12:00]")
	assert.Contains(t, out, "| Fast MA      | 20 |")
	assert.Contains(t, out, "| RSI          | 14 (simple) |")
	assert.Contains(t, out, "** Observations")
	assert.Contains(t, out, "- second")
}

func TestRunWriteOrg(t *testing.T) {
	t.Parallel()

	run := sampleRun("01HRUN", time.Now())
	assert.Error(t, run.WriteOrg())

	run.OrgPath = filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteOrg())

	b, err := os.ReadFile(run.OrgPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), ":TRADES:      1")
}
