package journal

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLite archives completed runs so they can be listed and compared later.
// Nothing in a run reads from it.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create schema")
	}

	return &SQLite{db: db}, nil
}

// RecordRun stores a run and the full contents of its ledger in one
// transaction.
func (j *SQLite) RecordRun(ctx context.Context, r Run, l *Ledger) (err error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, dataset, instrument, strategy, config,
		 fast_period, slow_period, rsi_period, rsi_method, oversold, overbought, fee_rate, trade_size,
		 start_time, end_time, bars, trades, wins, losses,
		 start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor, max_dd_pct,
		 org_path, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Dataset, r.Instrument, r.Strategy, r.Config,
		r.FastPeriod, r.SlowPeriod, r.RSIPeriod, r.RSIMethod, r.Oversold, r.Overbought, r.FeeRate, r.TradeSize,
		r.Start.UTC(), r.End.UTC(), r.Bars, r.Trades, r.Wins, r.Losses,
		r.StartBalance, r.EndBalance, r.NetPL, r.ReturnPct, r.WinRate, r.ProfitFactor, r.MaxDDPct,
		r.OrgPath, strings.Join(r.Notes, "\n"),
	)
	if err != nil {
		return errors.Wrapf(err, "insert run %s", r.RunID)
	}

	for i, f := range l.Fills() {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO fills (run_id, seq, time, instrument, side, quantity, price, commission)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, f.Time, f.Instrument, int(f.Side), f.Quantity, f.Price, f.Commission,
		); err != nil {
			return errors.Wrapf(err, "insert fill %d", i)
		}
	}

	for i, t := range l.Trades() {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO trades
			(run_id, seq, instrument, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl, reason)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			r.RunID, i, t.Instrument, int(t.Side), t.Quantity, t.EntryPrice, t.ExitPrice,
			t.EntryTime, t.ExitTime, t.PnL, t.Reason,
		); err != nil {
			return errors.Wrapf(err, "insert trade %d", i)
		}
	}

	for i, p := range l.Equity() {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO equity (run_id, seq, time, equity) VALUES (?, ?, ?, ?)`,
			r.RunID, i, p.Time, p.Equity,
		); err != nil {
			return errors.Wrapf(err, "insert equity point %d", i)
		}
	}

	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "commit")
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
