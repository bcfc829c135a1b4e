package sim

import (
	"github.com/pkg/errors"

	"github.com/rustyeddy/macross/market"
)

// OrderKind selects how a submitted order is executed.
type OrderKind int

const (
	MarketOrder OrderKind = iota
	CloseAllOrder
)

// Order is a primitive request filled at the next bar's open.
type Order struct {
	Kind     OrderKind
	Side     market.OrderSide
	Quantity float64
}

var ErrPositionOpen = errors.New("position already open on that side")

// Submit queues an order for the next bar. A market order against an open
// position of the opposite side closes the whole position; quantity beyond
// the position's opens a new one.
func (s *Simulator) Submit(o Order) error {
	if o.Kind == MarketOrder && o.Quantity <= 0 {
		return errors.Errorf("sim: order quantity must be positive, got %v", o.Quantity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders = append(s.orders, o)
	return nil
}

func (s *Simulator) executeOrderLocked(o Order, b market.Bar) ([]event, error) {
	if o.Kind == CloseAllOrder {
		return s.applyLocked(Close, b.Open, b.Time, ReasonOrder), nil
	}

	side := market.Long
	if o.Side == market.Sell {
		side = market.Short
	}

	qty := o.Quantity
	var events []event
	if s.state.Exposure != Flat {
		pos := s.state.Position
		if pos.Side == side {
			return nil, errors.Wrapf(ErrPositionOpen, "%s %v", o.Side, o.Quantity)
		}
		qty -= pos.Quantity
		events = append(events, s.applyLocked(Close, b.Open, b.Time, ReasonOrder)...)
	}
	if qty > 0 {
		events = append(events, s.openLocked(side, qty, b.Open, b.Time)...)
	}
	return events, nil
}
