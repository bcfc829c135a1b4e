package market

import "fmt"

// DataIntegrityError reports a bar that cannot be used for signal
// evaluation: malformed fields, non-finite values, OHLC bounds violations or
// a timestamp that does not move forward.
type DataIntegrityError struct {
	Index  int   // bar (or row) index in the input stream
	Time   int64 // epoch seconds, 0 when the row had no parseable timestamp
	Reason string
}

func NewDataIntegrityError(idx int, ts int64, reason string) *DataIntegrityError {
	return &DataIntegrityError{Index: idx, Time: ts, Reason: reason}
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("data integrity: bar %d (ts=%d): %s", e.Index, e.Time, e.Reason)
}
