package strategies

import "fmt"

// Signal is the outcome of evaluating one bar against the previous one.
type Signal int

const (
	None Signal = iota
	BullishCross
	BearishCross
)

func (s Signal) String() string {
	switch s {
	case BullishCross:
		return "BullishCross"
	case BearishCross:
		return "BearishCross"
	default:
		return "None"
	}
}

// Thresholds are the RSI filter levels. A bullish cross is taken only below
// Overbought, a bearish cross only above Oversold.
type Thresholds struct {
	Oversold   float64 `json:"oversold" yaml:"oversold" mapstructure:"oversold"`
	Overbought float64 `json:"overbought" yaml:"overbought" mapstructure:"overbought"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Oversold: 30, Overbought: 70}
}

func (t Thresholds) Validate() error {
	if t.Oversold < 0 || t.Oversold > 100 || t.Overbought < 0 || t.Overbought > 100 {
		return fmt.Errorf("rsi thresholds must be within [0, 100] (oversold=%v overbought=%v)", t.Oversold, t.Overbought)
	}
	if t.Oversold >= t.Overbought {
		return fmt.Errorf("oversold (%v) must be below overbought (%v)", t.Oversold, t.Overbought)
	}
	return nil
}
