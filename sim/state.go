package sim

import (
	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/strategies"
)

// Exposure is the simulator's position state.
type Exposure int

const (
	Flat Exposure = iota
	Long
	Short
)

func (e Exposure) String() string {
	switch e {
	case Long:
		return "Long"
	case Short:
		return "Short"
	default:
		return "Flat"
	}
}

func exposureOf(s market.Side) Exposure {
	if s == market.Long {
		return Long
	}
	return Short
}

// Position is the single open position.
type Position struct {
	Instrument string
	Side       market.Side
	EntryPrice float64
	EntryTime  int64
	Quantity   float64
	EntryFee   float64
}

// State pairs the exposure tag with its position. Position is nil when Flat.
type State struct {
	Exposure Exposure
	Position *Position
}

// Action is one step the simulator takes in response to a signal.
type Action int

const (
	Close Action = iota
	OpenLong
	OpenShort
)

func (a Action) String() string {
	switch a {
	case OpenLong:
		return "OpenLong"
	case OpenShort:
		return "OpenShort"
	default:
		return "Close"
	}
}

// Transition is the total state table for signal handling. A cross in the
// direction already held does nothing; an opposite cross reverses.
func Transition(e Exposure, sig strategies.Signal) []Action {
	switch sig {
	case strategies.BullishCross:
		switch e {
		case Flat:
			return []Action{OpenLong}
		case Short:
			return []Action{Close, OpenLong}
		}
	case strategies.BearishCross:
		switch e {
		case Flat:
			return []Action{OpenShort}
		case Long:
			return []Action{Close, OpenShort}
		}
	}
	return nil
}
