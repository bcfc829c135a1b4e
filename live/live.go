// Package live runs the crossover rule against an order-managing trading
// engine instead of the built-in signal path.
package live

import (
	"context"
	"fmt"

	"github.com/rustyeddy/macross/market"
)

// OrderManager is what the strategy needs from a trading engine.
type OrderManager interface {
	IsFlat(instrument string) bool
	IsNetLong(instrument string) bool
	IsNetShort(instrument string) bool
	SubmitMarketOrder(ctx context.Context, instrument string, side market.OrderSide, qty float64) error
	CloseAllPositions(ctx context.Context, instrument string) error
	SubscribeBars(instrument string) error
	UnsubscribeBars(instrument string) error
}

// BarHandler receives bars for subscribed instruments.
type BarHandler interface {
	OnBar(ctx context.Context, b market.Bar) error
}

// Session is a connected engine. Feed delivers the next bar: queued orders
// execute at its open before subscribed handlers see it. Close settles the
// session.
type Session interface {
	OrderManager
	Attach(h BarHandler)
	Feed(ctx context.Context, b market.Bar) error
	Close() error
}

// CollaboratorUnavailable reports that an external engine could not be
// reached. Runs fall back to the built-in simulation on this error.
type CollaboratorUnavailable struct {
	Name string
	Err  error
}

func (e *CollaboratorUnavailable) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("collaborator %q unavailable", e.Name)
	}
	return fmt.Sprintf("collaborator %q unavailable: %v", e.Name, e.Err)
}

func (e *CollaboratorUnavailable) Unwrap() error { return e.Err }
