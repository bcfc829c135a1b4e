package market

// Side is the direction of an open position: +1 long, -1 short.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "LONG"
	case Short:
		return "SHORT"
	default:
		return "FLAT"
	}
}

// OrderSide is the direction of an executed order.
type OrderSide int8

const (
	Buy  OrderSide = +1
	Sell OrderSide = -1
)

func (o OrderSide) String() string {
	if o == Buy {
		return "BUY"
	}
	return "SELL"
}

// EntrySide is the order side that opens a position of side s.
func (s Side) EntrySide() OrderSide {
	return OrderSide(s)
}

// ExitSide is the order side that closes a position of side s.
func (s Side) ExitSide() OrderSide {
	return OrderSide(-s)
}
