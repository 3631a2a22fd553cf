package tracker

import (
	"context"
	"testing"
	"time"

	"pt-trader/internal/bridge"
	"pt-trader/internal/bus"
	"pt-trader/internal/model"
	"pt-trader/internal/pnl"
	"pt-trader/internal/sim"
	"pt-trader/internal/store"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	tracker *Tracker
	bridge  *bridge.Bridge
	bus     *bus.Bus
	store   *store.Memory
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	eventBus := bus.NewBus()
	mem := store.NewMemory()
	br := bridge.New(mem, eventBus, pnl.DefaultContractSize)
	simulator := sim.New(sim.DefaultConfig())
	return fixture{
		tracker: New(br, simulator, eventBus, 10*time.Millisecond),
		bridge:  br,
		bus:     eventBus,
		store:   mem,
	}
}

func placeBuy(t *testing.T, br *bridge.Bridge, id string) model.Trade {
	t.Helper()
	tr, err := br.AddTrade(context.Background(), model.Trade{
		ID:         id,
		Username:   "alice",
		Symbol:     "EURUSD",
		Side:       types.TradeSideBuy,
		Volume:     d("1"),
		EntryPrice: d("1.1000"),
	})
	require.NoError(t, err)
	return tr
}

func TestRefreshTracksStoreOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeBuy(t, f.bridge, "t1")
	placeBuy(t, f.bridge, "t2")

	require.NoError(t, f.tracker.Refresh(ctx))
	snap := f.tracker.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "t2", snap[0].Trade.ID)
	assert.Equal(t, "t1", snap[1].Trade.ID)
	assert.Equal(t, StateSimulating, snap[0].State)
}

func TestTickProfitMatchesFormula(t *testing.T) {
	f := newFixture(t)
	placeBuy(t, f.bridge, "t1")
	require.NoError(t, f.tracker.Refresh(context.Background()))

	f.tracker.Tick()
	snap := f.tracker.Snapshot()
	require.Len(t, snap, 1)
	pos := snap[0]
	want := pnl.Profit(pos.Trade.EntryPrice, pos.CurrentPrice, pos.Trade.Side, pos.Trade.Volume, pnl.DefaultContractSize).Round(2)
	assert.True(t, pos.Profit.Equal(want), "profit %s, formula %s", pos.Profit, want)
}

func TestOverriddenPositionHugsTarget(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeBuy(t, f.bridge, "t1")

	target := d("50")
	_, err := f.bridge.UpdateTrade(ctx, "t1", bridge.TradeUpdate{TargetProfit: &target})
	require.NoError(t, err)
	require.NoError(t, f.tracker.Refresh(ctx))

	// Jitter half-width 0.00005 over a 100000-unit position moves the
	// displayed profit by at most ~5, plus price rounding.
	for i := 0; i < 50; i++ {
		f.tracker.Tick()
		pos := f.tracker.Snapshot()[0]
		assert.Equal(t, StateOverridden, pos.State)
		diff, _ := pos.Profit.Sub(target).Abs().Float64()
		assert.LessOrEqual(t, diff, 6.0, "profit drifted to %s", pos.Profit)
	}
}

func TestClosedPositionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeBuy(t, f.bridge, "t1")
	require.NoError(t, f.tracker.Refresh(ctx))
	f.tracker.Tick()

	target := d("50")
	_, err := f.bridge.UpdateTrade(ctx, "t1", bridge.TradeUpdate{TargetProfit: &target})
	require.NoError(t, err)
	_, err = f.bridge.CloseTrade(ctx, "t1", d("1.0000"))
	require.NoError(t, err)
	require.NoError(t, f.tracker.Refresh(ctx))

	pos := f.tracker.Snapshot()[0]
	require.Equal(t, StateClosed, pos.State)
	assert.True(t, pos.Profit.Equal(d("50")), "profit = %s", pos.Profit)
	assert.True(t, pos.CurrentPrice.Equal(d("1.1005")), "price = %s", pos.CurrentPrice)

	// Further ticks must not move a closed position.
	f.tracker.Tick()
	after := f.tracker.Snapshot()[0]
	assert.True(t, after.CurrentPrice.Equal(pos.CurrentPrice))
	assert.True(t, after.Profit.Equal(pos.Profit))
}

func TestRefreshPreservesLocalPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeBuy(t, f.bridge, "t1")
	require.NoError(t, f.tracker.Refresh(ctx))
	f.tracker.Tick()
	before := f.tracker.Snapshot()[0]

	// An unrelated persisted edit must not reset the simulated price.
	sl := d("1.0900")
	_, err := f.bridge.UpdateTrade(ctx, "t1", bridge.TradeUpdate{StopLoss: &sl})
	require.NoError(t, err)
	require.NoError(t, f.tracker.Refresh(ctx))

	after := f.tracker.Snapshot()[0]
	assert.True(t, after.CurrentPrice.Equal(before.CurrentPrice))
	require.NotNil(t, after.Trade.StopLoss)
	assert.True(t, after.Trade.StopLoss.Equal(sl))
}

func TestRefreshDropsVanishedTrades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	placeBuy(t, f.bridge, "t1")
	require.NoError(t, f.tracker.Refresh(ctx))
	require.Len(t, f.tracker.Snapshot(), 1)

	// Rewrite the collection without t1.
	require.NoError(t, f.store.Set(ctx, store.KeyTrades, []byte("[]")))
	require.NoError(t, f.tracker.Refresh(ctx))
	assert.Empty(t, f.tracker.Snapshot())
}

func TestTickPublishesPositions(t *testing.T) {
	f := newFixture(t)
	placeBuy(t, f.bridge, "t1")
	require.NoError(t, f.tracker.Refresh(context.Background()))

	ch := f.bus.Subscribe()
	defer f.bus.Unsubscribe(ch)
	f.tracker.Tick()

	select {
	case evt := <-ch:
		assert.Equal(t, bus.EventPositions, evt.Type)
		positions, ok := evt.Data.([]Position)
		require.True(t, ok)
		require.Len(t, positions, 1)
	default:
		t.Fatal("no positions event published")
	}
}

func TestStartConsumesUpdates(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.tracker.Start(ctx)
	placeBuy(t, f.bridge, "t1")

	require.Eventually(t, func() bool {
		return len(f.tracker.Snapshot()) == 1
	}, time.Second, 5*time.Millisecond)
}
