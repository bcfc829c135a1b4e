// Package journal records what a simulation did: the in-memory ledger of
// fills, closed trades and equity points, and the files and archives it is
// written to once a run completes.
package journal

import (
	"time"

	"github.com/rustyeddy/macross/sim"
)

// TimeLayout is how timestamps are rendered in output files.
const TimeLayout = "2006-01-02 15:04:05"

// FormatTime renders epoch seconds as UTC in TimeLayout.
func FormatTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(TimeLayout)
}

// Journal receives simulator output as it happens.
type Journal interface {
	RecordFill(sim.Fill) error
	RecordTrade(sim.ClosedTrade) error
	RecordEquity(sim.EquityPoint) error
	Close() error
}

func parseTime(s string) (int64, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return 0, err
	}
	return t.Unix(), nil
}
