package indicators

import (
	"fmt"

	"github.com/rustyeddy/macross/market"
)

// rsiEpsilon keeps RS finite when the window has no losses.
const rsiEpsilon = 1e-10

// ring is a fixed-size window of float64 values with a running sum.
type ring struct {
	buf   []float64
	idx   int
	count int
	sum   float64
}

func newRing(size int) ring {
	return ring{buf: make([]float64, size)}
}

func (r *ring) push(v float64) {
	if r.count >= len(r.buf) {
		// Subtract the oldest value being overwritten
		r.sum -= r.buf[r.idx]
	} else {
		r.count++
	}
	r.buf[r.idx] = v
	r.sum += v
	r.idx = (r.idx + 1) % len(r.buf)
}

func (r *ring) full() bool { return r.count >= len(r.buf) }

func (r *ring) mean() float64 { return r.sum / float64(len(r.buf)) }

func (r *ring) reset() {
	r.idx, r.count, r.sum = 0, 0, 0
	for i := range r.buf {
		r.buf[i] = 0
	}
}

// SimpleMA is a streaming Simple Moving Average of closes.
// Update is O(1): a preallocated circular buffer plus a running sum.
type SimpleMA struct {
	period int
	win    ring
}

// NewMA creates a new Simple Moving Average indicator with the given period
func NewMA(period int) *SimpleMA {
	return &SimpleMA{
		period: period,
		win:    newRing(period),
	}
}

func (m *SimpleMA) Name() string {
	return fmt.Sprintf("SMA(%d)", m.period)
}

func (m *SimpleMA) Warmup() int {
	return m.period
}

func (m *SimpleMA) Reset() {
	m.win.reset()
}

func (m *SimpleMA) Update(b market.Bar) {
	m.win.push(b.Close)
}

func (m *SimpleMA) Ready() bool {
	return m.win.full()
}

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.win.mean()
}

// RSI is the Relative Strength Index with average gain and loss taken as the
// simple rolling mean of the last period price differences.
//
//	RS  = avgGain / (avgLoss + 1e-10)
//	RSI = 100 - 100/(1+RS)
//
// The first period+1 bars are needed before a value exists.
type RSI struct {
	period    int
	gains     ring
	losses    ring
	prevClose float64
	havePrev  bool
}

func NewRSI(period int) *RSI {
	return &RSI{
		period: period,
		gains:  newRing(period),
		losses: newRing(period),
	}
}

func (r *RSI) Name() string { return fmt.Sprintf("RSI(%d)", r.period) }

func (r *RSI) Warmup() int { return r.period + 1 }

func (r *RSI) Reset() {
	r.gains.reset()
	r.losses.reset()
	r.prevClose = 0
	r.havePrev = false
}

func (r *RSI) Update(b market.Bar) {
	if !r.havePrev {
		r.prevClose = b.Close
		r.havePrev = true
		return
	}

	gain, loss := split(b.Close - r.prevClose)
	r.prevClose = b.Close
	r.gains.push(gain)
	r.losses.push(loss)
}

func (r *RSI) Ready() bool { return r.gains.full() }

func (r *RSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	rs := r.gains.mean() / (r.losses.mean() + rsiEpsilon)
	return 100.0 - 100.0/(1.0+rs)
}

// WilderRSI calculates the Relative Strength Index using Wilder's smoothing
// method, seeded with the simple mean of the first period differences.
type WilderRSI struct {
	period    int
	count     int
	prevClose float64
	avgGain   float64
	avgLoss   float64
	current   float64
}

func NewWilderRSI(period int) *WilderRSI {
	return &WilderRSI{period: period}
}

func (r *WilderRSI) Name() string { return fmt.Sprintf("WilderRSI(%d)", r.period) }

func (r *WilderRSI) Warmup() int { return r.period + 1 }

func (r *WilderRSI) Reset() {
	*r = WilderRSI{period: r.period}
}

func (r *WilderRSI) Update(b market.Bar) {
	price := b.Close
	r.count++

	if r.count == 1 {
		r.prevClose = price
		return
	}

	gain, loss := split(price - r.prevClose)
	r.prevClose = price

	if r.count <= r.period+1 {
		r.avgGain += gain
		r.avgLoss += loss
		if r.count == r.period+1 {
			r.avgGain /= float64(r.period)
			r.avgLoss /= float64(r.period)
			r.current = wilderValue(r.avgGain, r.avgLoss)
		}
		return
	}

	p := float64(r.period)
	r.avgGain = (r.avgGain*(p-1) + gain) / p
	r.avgLoss = (r.avgLoss*(p-1) + loss) / p
	r.current = wilderValue(r.avgGain, r.avgLoss)
}

func (r *WilderRSI) Ready() bool { return r.count > r.period }

func (r *WilderRSI) Value() float64 {
	if !r.Ready() {
		return 0
	}
	return r.current
}

func wilderValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100.0 - (100.0 / (1.0 + rs))
}

func split(delta float64) (gain, loss float64) {
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}
