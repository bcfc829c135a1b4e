package market

import (
	"math"
	"time"
)

// Bar is one OHLCV observation. Time is epoch seconds and must be strictly
// increasing across a stream.
type Bar struct {
	Time   int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Timestamp returns the bar time as a UTC time.Time.
func (b Bar) Timestamp() time.Time {
	return time.Unix(b.Time, 0).UTC()
}

// Validate checks the per-bar integrity rules: all fields finite and
// non-negative, and open/close inside [low, high]. idx is only used to
// annotate the returned error.
func (b Bar) Validate(idx int) error {
	fields := []struct {
		name string
		v    float64
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
		{"volume", b.Volume},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return NewDataIntegrityError(idx, b.Time, f.name+" is not finite")
		}
		if f.v < 0 {
			return NewDataIntegrityError(idx, b.Time, f.name+" is negative")
		}
	}
	if b.Low > b.High {
		return NewDataIntegrityError(idx, b.Time, "low above high")
	}
	if b.Open < b.Low || b.Open > b.High {
		return NewDataIntegrityError(idx, b.Time, "open outside [low, high]")
	}
	if b.Close < b.Low || b.Close > b.High {
		return NewDataIntegrityError(idx, b.Time, "close outside [low, high]")
	}
	return nil
}

// Closes extracts the close prices of bars in order.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
