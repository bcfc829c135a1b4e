package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/sim"
)

const runColumns = `run_id, created, dataset, instrument, strategy, config,
	fast_period, slow_period, rsi_period, rsi_method, oversold, overbought, fee_rate, trade_size,
	start_time, end_time, bars, trades, wins, losses,
	start_balance, end_balance, net_pl, return_pct, win_rate, profit_factor, max_dd_pct,
	org_path, notes`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r     Run
		notes string
	)
	err := s.Scan(
		&r.RunID, &r.Created, &r.Dataset, &r.Instrument, &r.Strategy, &r.Config,
		&r.FastPeriod, &r.SlowPeriod, &r.RSIPeriod, &r.RSIMethod, &r.Oversold, &r.Overbought, &r.FeeRate, &r.TradeSize,
		&r.Start, &r.End, &r.Bars, &r.Trades, &r.Wins, &r.Losses,
		&r.StartBalance, &r.EndBalance, &r.NetPL, &r.ReturnPct, &r.WinRate, &r.ProfitFactor, &r.MaxDDPct,
		&r.OrgPath, &notes,
	)
	if notes != "" {
		r.Notes = strings.Split(notes, "\n")
	}
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("run %q not found", runID)
		}
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListFills returns a run's fills in execution order.
func (j *SQLite) ListFills(ctx context.Context, runID string) ([]sim.Fill, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, instrument, side, quantity, price, commission
		FROM fills
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.Fill
	for rows.Next() {
		var (
			f    sim.Fill
			side int
		)
		if err := rows.Scan(&f.Time, &f.Instrument, &side, &f.Quantity, &f.Price, &f.Commission); err != nil {
			return nil, err
		}
		f.Side = market.OrderSide(side)
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListTrades returns a run's closed trades in close order.
func (j *SQLite) ListTrades(ctx context.Context, runID string) ([]sim.ClosedTrade, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT instrument, side, quantity, entry_price, exit_price, entry_time, exit_time, pnl, reason
		FROM trades
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.ClosedTrade
	for rows.Next() {
		var (
			t    sim.ClosedTrade
			side int
		)
		if err := rows.Scan(
			&t.Instrument,
			&side,
			&t.Quantity,
			&t.EntryPrice,
			&t.ExitPrice,
			&t.EntryTime,
			&t.ExitTime,
			&t.PnL,
			&t.Reason,
		); err != nil {
			return nil, err
		}
		t.Side = market.Side(side)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListEquity returns a run's equity curve.
func (j *SQLite) ListEquity(ctx context.Context, runID string) ([]sim.EquityPoint, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, equity
		FROM equity
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []sim.EquityPoint
	for rows.Next() {
		var p sim.EquityPoint
		if err := rows.Scan(&p.Time, &p.Equity); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
