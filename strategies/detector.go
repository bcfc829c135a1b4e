package strategies

import "github.com/rustyeddy/macross/indicators"

// Detect compares two consecutive snapshots and reports a filtered cross.
//
//	Bullish: prev.fast <= prev.slow, cur.fast > cur.slow, cur.rsi < overbought
//	Bearish: prev.fast >= prev.slow, cur.fast < cur.slow, cur.rsi > oversold
//
// Equality counts only on the previous bar. Both snapshots must be Ready.
func Detect(prev, cur indicators.Snapshot, th Thresholds) Signal {
	switch maCross(prev, cur) {
	case BullishCross:
		if cur.RSI.Value < th.Overbought {
			return BullishCross
		}
	case BearishCross:
		if cur.RSI.Value > th.Oversold {
			return BearishCross
		}
	}
	return None
}

// Filtered reports a moving-average cross that the RSI filter suppressed,
// or None.
func Filtered(prev, cur indicators.Snapshot, th Thresholds) Signal {
	raw := maCross(prev, cur)
	if raw == None || Detect(prev, cur, th) != None {
		return None
	}
	return raw
}

func maCross(prev, cur indicators.Snapshot) Signal {
	if !prev.Ready() || !cur.Ready() {
		return None
	}
	pf, ps := prev.FastMA.Value, prev.SlowMA.Value
	cf, cs := cur.FastMA.Value, cur.SlowMA.Value

	switch {
	case pf <= ps && cf > cs:
		return BullishCross
	case pf >= ps && cf < cs:
		return BearishCross
	default:
		return None
	}
}
