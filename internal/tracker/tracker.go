// Package tracker is the per-process sync consumer: it mirrors the bridge's
// trade snapshot, advances the price simulator on a fixed tick and derives
// the view model (current price + unrealized P&L) served to clients.
package tracker

import (
	"context"
	"log"
	"sync"
	"time"

	"pt-trader/internal/bridge"
	"pt-trader/internal/bus"
	"pt-trader/internal/model"
	"pt-trader/internal/pnl"
	"pt-trader/internal/sim"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

type State string

const (
	// StateSimulating: open trade on the free random walk.
	StateSimulating State = "SIMULATING"
	// StateOverridden: open trade pinned to an admin target profit.
	StateOverridden State = "OVERRIDDEN"
	// StateClosed is terminal; no further ticks for the trade.
	StateClosed State = "CLOSED"
)

type Position struct {
	Trade        model.Trade     `json:"trade"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Profit       decimal.Decimal `json:"profit"`
	State        State           `json:"state"`
}

type Tracker struct {
	bridge *bridge.Bridge
	sim    *sim.Simulator
	bus    *bus.Bus
	tick   time.Duration

	mu        sync.RWMutex
	order     []string
	positions map[string]Position
}

func New(br *bridge.Bridge, simulator *sim.Simulator, b *bus.Bus, tick time.Duration) *Tracker {
	return &Tracker{
		bridge:    br,
		sim:       simulator,
		bus:       b,
		tick:      tick,
		positions: make(map[string]Position),
	}
}

// Start runs the consumer loop until the context is cancelled: refresh on
// every trades_updated event, tick the simulator on the fixed interval.
func (t *Tracker) Start(ctx context.Context) {
	if err := t.Refresh(ctx); err != nil {
		log.Printf("tracker: initial refresh: %v", err)
	}
	sub := t.bus.Subscribe()
	ticker := time.NewTicker(t.tick)
	go func() {
		defer ticker.Stop()
		defer t.bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case evt := <-sub:
				if evt.Type == bus.EventTradesUpdated {
					if err := t.Refresh(ctx); err != nil {
						log.Printf("tracker: refresh: %v", err)
					}
				}
			case <-ticker.C:
				t.Tick()
			}
		}
	}()
}

// Refresh re-reads the persisted snapshot and merges it with local simulated
// state: persisted fields (status, overrides, close data) win; the locally
// simulated current price survives so a concurrent admin edit does not reset
// the animation.
func (t *Tracker) Refresh(ctx context.Context) error {
	trades, err := t.bridge.GetTrades(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	seen := make(map[string]struct{}, len(trades))
	order := make([]string, 0, len(trades))
	for _, tr := range trades {
		seen[tr.ID] = struct{}{}
		order = append(order, tr.ID)
		prev, ok := t.positions[tr.ID]
		pos := Position{Trade: tr, State: stateFor(tr)}
		if ok && prev.State != StateClosed {
			pos.CurrentPrice = prev.CurrentPrice
			pos.Profit = prev.Profit
		}
		if pos.State == StateClosed {
			t.sim.Forget(tr.ID)
			if tr.ClosePrice != nil {
				pos.CurrentPrice = *tr.ClosePrice
			}
			if tr.Profit != nil {
				pos.Profit = *tr.Profit
			}
		}
		t.positions[tr.ID] = pos
	}
	for id := range t.positions {
		if _, ok := seen[id]; !ok {
			delete(t.positions, id)
			t.sim.Forget(id)
		}
	}
	t.order = order
	return nil
}

// Tick advances every open position one simulator step and republishes the
// derived snapshot.
func (t *Tracker) Tick() {
	t.mu.Lock()
	for _, id := range t.order {
		pos, ok := t.positions[id]
		if !ok || pos.State == StateClosed {
			continue
		}
		price, err := t.sim.CurrentPrice(pos.Trade)
		if err != nil {
			log.Printf("tracker: simulate trade %s: %v", id, err)
			continue
		}
		pos.CurrentPrice = price
		pos.Profit = pnl.Profit(pos.Trade.EntryPrice, price, pos.Trade.Side, pos.Trade.Volume, t.bridge.ContractSize()).Round(2)
		t.positions[id] = pos
	}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()
	t.bus.Publish(bus.Event{Type: bus.EventPositions, Data: snapshot})
}

// Snapshot returns all tracked positions in store order (most recent first).
func (t *Tracker) Snapshot() []Position {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []Position {
	out := make([]Position, 0, len(t.order))
	for _, id := range t.order {
		if pos, ok := t.positions[id]; ok {
			out = append(out, pos)
		}
	}
	return out
}

func stateFor(tr model.Trade) State {
	if tr.Status == types.TradeStatusClosed {
		return StateClosed
	}
	if tr.TargetProfit != nil {
		return StateOverridden
	}
	return StateSimulating
}
