package sim

import "github.com/rustyeddy/macross/market"

// Bus topics the simulator publishes on. Delivery is synchronous and in
// emission order.
const (
	TopicFill   = "sim:fill"
	TopicTrade  = "sim:trade"
	TopicEquity = "sim:equity"
)

// Exit reasons recorded on closed trades.
const (
	ReasonSignal      = "Signal"
	ReasonOrder       = "Order"
	ReasonEndOfStream = "EndOfStream"
)

// Fill is an executed order.
type Fill struct {
	Time       int64
	Instrument string
	Side       market.OrderSide
	Quantity   float64
	Price      float64
	Commission float64
}

// ClosedTrade is a completed round trip. PnL is net of entry and exit fees.
type ClosedTrade struct {
	Instrument string
	EntryTime  int64
	ExitTime   int64
	Side       market.Side
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	PnL        float64
	Reason     string
}

// EquityPoint is the account balance after a balance-affecting action.
type EquityPoint struct {
	Time   int64
	Equity float64
}

// event is a pending bus publication, collected under lock and delivered
// after it is released.
type event struct {
	topic   string
	payload any
}
