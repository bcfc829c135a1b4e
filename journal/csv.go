package journal

import (
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/rustyeddy/macross/sim"
)

// Default output file names.
const (
	FillsFile     = "backtest_fills.csv"
	PositionsFile = "backtest_positions.csv"
	EquityFile    = "equity_curve.csv"
)

type fillRow struct {
	Timestamp  string  `csv:"timestamp"`
	Instrument string  `csv:"instrument"`
	Side       string  `csv:"side"`
	Quantity   float64 `csv:"quantity"`
	Price      float64 `csv:"price"`
	Commission float64 `csv:"commission"`
}

type positionRow struct {
	EntryTime  string  `csv:"entry_time"`
	ExitTime   string  `csv:"exit_time"`
	Side       string  `csv:"side"`
	Quantity   float64 `csv:"quantity"`
	EntryPrice float64 `csv:"entry_price"`
	ExitPrice  float64 `csv:"exit_price"`
	PnL        float64 `csv:"pnl"`
}

type equityRow struct {
	Timestamp string  `csv:"timestamp"`
	Equity    float64 `csv:"equity"`
}

// CSVWriter writes a finished ledger as three CSV files in Dir. Files are
// written to temporaries and renamed into place only once all three succeed,
// replacing earlier output.
type CSVWriter struct {
	Dir        string
	FillsFile  string
	TradesFile string
	EquityFile string
}

func NewCSVWriter(dir string) *CSVWriter {
	return &CSVWriter{
		Dir:        dir,
		FillsFile:  FillsFile,
		TradesFile: PositionsFile,
		EquityFile: EquityFile,
	}
}

// Paths returns the fills, positions and equity file paths.
func (w *CSVWriter) Paths() (fills, trades, equity string) {
	return filepath.Join(w.Dir, w.FillsFile),
		filepath.Join(w.Dir, w.TradesFile),
		filepath.Join(w.Dir, w.EquityFile)
}

func (w *CSVWriter) Write(l *Ledger) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return errors.Wrap(err, "create output dir")
	}

	fills := l.Fills()
	fillRows := make([]*fillRow, len(fills))
	for i, f := range fills {
		fillRows[i] = &fillRow{
			Timestamp:  FormatTime(f.Time),
			Instrument: f.Instrument,
			Side:       f.Side.String(),
			Quantity:   f.Quantity,
			Price:      f.Price,
			Commission: f.Commission,
		}
	}

	trades := l.Trades()
	tradeRows := make([]*positionRow, len(trades))
	for i, t := range trades {
		tradeRows[i] = &positionRow{
			EntryTime:  FormatTime(t.EntryTime),
			ExitTime:   FormatTime(t.ExitTime),
			Side:       t.Side.String(),
			Quantity:   t.Quantity,
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			PnL:        t.PnL,
		}
	}

	equity := l.Equity()
	equityRows := make([]*equityRow, len(equity))
	for i, p := range equity {
		equityRows[i] = &equityRow{Timestamp: FormatTime(p.Time), Equity: p.Equity}
	}

	fillsPath, tradesPath, equityPath := w.Paths()
	outputs := []struct {
		path string
		rows any
	}{
		{fillsPath, &fillRows},
		{tradesPath, &tradeRows},
		{equityPath, &equityRows},
	}

	temps := make([]string, 0, len(outputs))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}
	for _, o := range outputs {
		tmp, err := w.writeTemp(o.path, o.rows)
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, tmp)
	}

	for i, o := range outputs {
		if err := os.Rename(temps[i], o.path); err != nil {
			cleanup()
			return errors.Wrapf(err, "replace %s", o.path)
		}
	}
	return nil
}

func (w *CSVWriter) writeTemp(path string, rows any) (string, error) {
	f, err := os.CreateTemp(w.Dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return "", errors.Wrapf(err, "create temp for %s", path)
	}
	if err := gocsv.MarshalFile(rows, f); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "close %s", path)
	}
	return f.Name(), nil
}

// ReadEquityCSV loads an equity curve file written by CSVWriter.
func ReadEquityCSV(path string) ([]sim.EquityPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*equityRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}

	out := make([]sim.EquityPoint, len(rows))
	for i, r := range rows {
		t, err := parseTime(r.Timestamp)
		if err != nil {
			return nil, errors.Wrapf(err, "%s row %d", path, i+1)
		}
		out[i] = sim.EquityPoint{Time: t, Equity: r.Equity}
	}
	return out, nil
}
