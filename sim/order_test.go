package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/macross/market"
	"github.com/rustyeddy/macross/strategies"
)

func TestSubmitMarketOrder(t *testing.T) {
	s, r := newSim(t)

	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Buy, Quantity: 2}))
	assert.Empty(t, r.fills, "orders wait for the next bar")

	require.NoError(t, s.OnBar(bar(1000, 50, 51), strategies.None))
	require.Len(t, r.fills, 1)
	assert.Equal(t, 2.0, r.fills[0].Quantity)
	assert.Equal(t, 50.0, r.fills[0].Price)
	assert.Equal(t, Long, s.State().Exposure)
}

func TestSubmitCloseAllThenReverse(t *testing.T) {
	s, r := newSim(t)

	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Buy, Quantity: 1}))
	require.NoError(t, s.OnBar(bar(1000, 50, 51), strategies.None))

	require.NoError(t, s.Submit(Order{Kind: CloseAllOrder}))
	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Sell, Quantity: 1}))
	require.NoError(t, s.OnBar(bar(1060, 52, 52), strategies.None))

	require.Len(t, r.fills, 3)
	require.Len(t, r.trades, 1)
	assert.Equal(t, ReasonOrder, r.trades[0].Reason)
	assert.InDelta(t, 2-50*0.0001-52*0.0001, r.trades[0].PnL, 1e-9)
	assert.Equal(t, Short, s.State().Exposure)
}

func TestSubmitOppositeOrderNets(t *testing.T) {
	s, r := newSim(t)

	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Buy, Quantity: 1}))
	require.NoError(t, s.OnBar(bar(1000, 50, 51), strategies.None))

	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Sell, Quantity: 1}))
	require.NoError(t, s.OnBar(bar(1060, 52, 52), strategies.None))

	assert.Len(t, r.fills, 2)
	assert.Equal(t, Flat, s.State().Exposure)
}

func TestSubmitRejects(t *testing.T) {
	s, r := newSim(t)

	assert.Error(t, s.Submit(Order{Kind: MarketOrder, Side: market.Buy, Quantity: 0}))

	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Buy, Quantity: 1}))
	require.NoError(t, s.OnBar(bar(1000, 50, 51), strategies.None))

	// same side while long is rejected at execution
	require.NoError(t, s.Submit(Order{Kind: MarketOrder, Side: market.Buy, Quantity: 1}))
	require.NoError(t, s.OnBar(bar(1060, 52, 52), strategies.None))
	assert.Len(t, r.fills, 1)
}

func TestCommission(t *testing.T) {
	assert.InDelta(t, 0.01, Commission(100, 0.0001, 1), 1e-12)
	assert.InDelta(t, 0.03, Commission(150, 0.0001, 2), 1e-12)
	assert.Equal(t, 0.0, Commission(100, 0, 1))
}
