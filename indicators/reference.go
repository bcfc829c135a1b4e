package indicators

import (
	"math"

	"github.com/markcheno/go-talib"

	"github.com/rustyeddy/macross/market"
)

// Series holds whole-stream indicator values, NaN where undefined.
type Series struct {
	FastMA    []float64
	SlowMA    []float64
	RSI       []float64
	WilderRSI []float64
}

// Compute runs an Engine over closes and collects the simple-method series
// alongside the go-talib reference values. talib's RSI uses Wilder
// smoothing, the behaviour of framework-provided indicators.
func Compute(closes []float64, p Periods) (Series, error) {
	p.RSIMethod = RSISimple
	e, err := NewEngine(p)
	if err != nil {
		return Series{}, err
	}

	n := len(closes)
	s := Series{
		FastMA:    nanSlice(n),
		SlowMA:    nanSlice(n),
		RSI:       nanSlice(n),
		WilderRSI: nanSlice(n),
	}
	for i, c := range closes {
		snap := e.Update(barOf(c))
		if snap.FastMA.Ok {
			s.FastMA[i] = snap.FastMA.Value
		}
		if snap.SlowMA.Ok {
			s.SlowMA[i] = snap.SlowMA.Value
		}
		if snap.RSI.Ok {
			s.RSI[i] = snap.RSI.Value
		}
	}

	if n > p.RSI {
		ref := talib.Rsi(closes, p.RSI)
		for i := p.RSI; i < n && i < len(ref); i++ {
			s.WilderRSI[i] = ref[i]
		}
	}
	return s, nil
}

// Divergence is the largest absolute difference between the simple and
// Wilder RSI where both are defined, and the index where it occurs.
func (s Series) Divergence() (maxAbs float64, at int) {
	at = -1
	for i := range s.RSI {
		a, b := s.RSI[i], s.WilderRSI[i]
		if math.IsNaN(a) || math.IsNaN(b) {
			continue
		}
		if d := math.Abs(a - b); at < 0 || d > maxAbs {
			maxAbs, at = d, i
		}
	}
	return maxAbs, at
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func barOf(c float64) market.Bar {
	return market.Bar{Open: c, High: c, Low: c, Close: c}
}
