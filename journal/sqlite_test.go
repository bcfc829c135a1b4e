package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/macross/market"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleRun(id string, created time.Time) Run {
	return Run{
		RunID:        id,
		Created:      created,
		Dataset:      "bars.csv",
		Instrument:   "TEST.SIM",
		Strategy:     "ma-cross-rsi",
		Config:       []byte("strategy:\n  fast: 20\n"),
		FastPeriod:   20,
		SlowPeriod:   50,
		RSIPeriod:    14,
		RSIMethod:    "simple",
		Oversold:     30,
		Overbought:   70,
		FeeRate:      0.0001,
		TradeSize:    1,
		Start:        time.Unix(ts0, 0).UTC(),
		End:          time.Unix(ts0+120, 0).UTC(),
		Bars:         3,
		Trades:       1,
		Wins:         1,
		StartBalance: 100000,
		EndBalance:   100001.9796,
		NetPL:        1.9796,
		ReturnPct:    0.0019796,
		WinRate:      1,
		Notes:        []string{"first", "second"},
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','fills','trades','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, name := range []string{"runs", "fills", "trades", "equity"} {
		assert.True(t, found[name], name)
	}
}

func TestSQLiteRecordAndGetRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun("01HRUN", created)
	require.NoError(t, j.RecordRun(ctx, run, sampleLedger(t)))

	got, err := j.GetRun(ctx, "01HRUN")
	require.NoError(t, err)
	assert.Equal(t, run.RunID, got.RunID)
	assert.True(t, got.Created.Equal(created))
	assert.True(t, got.Start.Equal(run.Start))
	assert.Equal(t, run.Config, got.Config)
	assert.Equal(t, run.Notes, got.Notes)
	assert.Equal(t, 20, got.FastPeriod)
	assert.InDelta(t, run.EndBalance, got.EndBalance, 1e-9)

	fills, err := j.ListFills(ctx, "01HRUN")
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, market.Buy, fills[0].Side)
	assert.Equal(t, ts0+60, fills[0].Time)

	trades, err := j.ListTrades(ctx, "01HRUN")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, market.Long, trades[0].Side)
	assert.Equal(t, "EndOfStream", trades[0].Reason)
	assert.InDelta(t, 1.9796, trades[0].PnL, 1e-9)

	equity, err := j.ListEquity(ctx, "01HRUN")
	require.NoError(t, err)
	assert.Len(t, equity, 3)
	assert.Equal(t, ts0, equity[0].Time)
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	_, err := j.GetRun(context.Background(), "missing")
	assert.ErrorContains(t, err, `run "missing" not found`)
}

func TestSQLiteListRunsNewestFirst(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, j.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour)), NewLedger()))
	}

	runs, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "C", runs[0].RunID)
	assert.Equal(t, "A", runs[2].RunID)

	runs, err = j.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestSQLiteDuplicateRunRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	run := sampleRun("DUP", time.Now())
	require.NoError(t, j.RecordRun(ctx, run, sampleLedger(t)))
	assert.Error(t, j.RecordRun(ctx, run, sampleLedger(t)))

	fills, err := j.ListFills(ctx, "DUP")
	require.NoError(t, err)
	assert.Len(t, fills, 1)
}
