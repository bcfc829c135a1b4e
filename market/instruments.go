// market/instruments.go
package market

import (
	"fmt"
	"strings"
)

// InstrumentMeta describes a tradeable instrument. IDs follow the
// SYMBOL.VENUE convention, e.g. "TEST.SIM".
type InstrumentMeta struct {
	ID             string
	Symbol         string
	Venue          string
	QuoteCurrency  string
	PricePrecision int
	SizePrecision  int
	MinimumSize    float64
}

var Instruments = map[string]InstrumentMeta{
	"TEST.SIM": {
		ID:             "TEST.SIM",
		Symbol:         "TEST",
		Venue:          "SIM",
		QuoteCurrency:  "USD",
		PricePrecision: 2,
		SizePrecision:  1,
		MinimumSize:    0.1,
	},
	"BTCUSDT.BINANCE": {
		ID:             "BTCUSDT.BINANCE",
		Symbol:         "BTCUSDT",
		Venue:          "BINANCE",
		QuoteCurrency:  "USDT",
		PricePrecision: 2,
		SizePrecision:  6,
		MinimumSize:    0.00001,
	},
	"EURUSD.SIM": {
		ID:             "EURUSD.SIM",
		Symbol:         "EURUSD",
		Venue:          "SIM",
		QuoteCurrency:  "USD",
		PricePrecision: 5,
		SizePrecision:  0,
		MinimumSize:    1,
	},
}

// SplitInstrumentID splits "SYMBOL.VENUE" into its parts.
func SplitInstrumentID(id string) (symbol, venue string, err error) {
	i := strings.LastIndex(id, ".")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("instrument id %q is not SYMBOL.VENUE", id)
	}
	return id[:i], id[i+1:], nil
}

// LookupInstrument returns the metadata for id.
func LookupInstrument(id string) (InstrumentMeta, error) {
	if _, _, err := SplitInstrumentID(id); err != nil {
		return InstrumentMeta{}, err
	}
	meta, ok := Instruments[id]
	if !ok {
		return InstrumentMeta{}, fmt.Errorf("unknown instrument: %s", id)
	}
	return meta, nil
}
