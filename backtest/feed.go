package backtest

import (
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"

	"github.com/rustyeddy/macross/market"
)

// barRow is one input CSV row. Fields are kept as text so that a malformed
// value rejects its row instead of the whole file.
type barRow struct {
	Timestamp string `csv:"timestamp"`
	Open      string `csv:"open"`
	High      string `csv:"high"`
	Low       string `csv:"low"`
	Close     string `csv:"close"`
	Volume    string `csv:"volume"`
}

// Feed is the parsed content of a bars file. Rows that could not be parsed
// are listed in Rejected; they never reach Bars. Rows[i] is the data row
// Bars[i] was read from.
type Feed struct {
	Path     string
	Bars     []market.Bar
	Rows     []int
	Rejected []*market.DataIntegrityError
}

// LoadBars reads OHLCV rows with a header of
//
//	timestamp,open,high,low,close,volume
//
// timestamp is epoch seconds, "2006-01-02 15:04:05" or RFC3339, all UTC.
// Range and ordering checks are left to the runner.
func LoadBars(path string) (*Feed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open bars")
	}
	defer f.Close()

	var rows []*barRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "read bars %s", path)
	}

	feed := &Feed{
		Path: path,
		Bars: make([]market.Bar, 0, len(rows)),
		Rows: make([]int, 0, len(rows)),
	}
	for i, row := range rows {
		b, err := row.bar(i)
		if err != nil {
			feed.Rejected = append(feed.Rejected, err)
			continue
		}
		feed.Bars = append(feed.Bars, b)
		feed.Rows = append(feed.Rows, i)
	}
	return feed, nil
}

func (r *barRow) bar(idx int) (market.Bar, *market.DataIntegrityError) {
	ts, err := parseTimestamp(r.Timestamp)
	if err != nil {
		return market.Bar{}, market.NewDataIntegrityError(idx, 0, "bad timestamp "+strconv.Quote(r.Timestamp))
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", r.Open, new(float64)},
		{"high", r.High, new(float64)},
		{"low", r.Low, new(float64)},
		{"close", r.Close, new(float64)},
		{"volume", r.Volume, new(float64)},
	}
	for _, f := range fields {
		raw := strings.TrimSpace(f.raw)
		if raw == "" && f.name == "volume" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return market.Bar{}, market.NewDataIntegrityError(idx, ts, "bad "+f.name+" "+strconv.Quote(f.raw))
		}
		*f.dst = v
	}

	return market.Bar{
		Time:   ts,
		Open:   *fields[0].dst,
		High:   *fields[1].dst,
		Low:    *fields[2].dst,
		Close:  *fields[3].dst,
		Volume: *fields[4].dst,
	}, nil
}

func parseTimestamp(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int64(f), nil
	}
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339, time.RFC3339Nano} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.Unix(), nil
		}
	}
	return 0, errors.Errorf("unrecognized timestamp %q", s)
}
