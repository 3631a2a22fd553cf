// Package bridge is the sole gateway to the persistent store. Every mutating
// call rewrites the affected collection and publishes a change event so any
// consumer (tracker, WebSocket clients, admin views) re-reads the store.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"pt-trader/internal/bus"
	"pt-trader/internal/model"
	"pt-trader/internal/pnl"
	"pt-trader/internal/store"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

var (
	ErrDuplicateUser      = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTradeNotFound      = errors.New("trade not found")
	ErrTradeAlreadyClosed = errors.New("trade already closed")
	ErrInvalidOutcome     = errors.New("invalid outcome")
)

var defaultBalance = decimal.NewFromInt(10000)

// fallbackProfit is booked when a forced WIN/LOSS lands on exactly zero P&L.
var fallbackProfit = decimal.NewFromInt(100)

type Bridge struct {
	store        store.Store
	bus          *bus.Bus
	contractSize decimal.Decimal

	// mu serializes read-modify-write cycles within this process. A second
	// process sharing the store still races with last-write-wins at
	// collection granularity.
	mu sync.Mutex
}

func New(st store.Store, b *bus.Bus, contractSize decimal.Decimal) *Bridge {
	if contractSize.IsZero() {
		contractSize = pnl.DefaultContractSize
	}
	return &Bridge{store: st, bus: b, contractSize: contractSize}
}

func (b *Bridge) ContractSize() decimal.Decimal {
	return b.contractSize
}

// GetTrades returns the full trade snapshot, most recent first. A missing key
// reads as the empty collection.
func (b *Bridge) GetTrades(ctx context.Context) ([]model.Trade, error) {
	raw, err := b.store.Get(ctx, store.KeyTrades)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return []model.Trade{}, nil
		}
		return nil, err
	}
	var trades []model.Trade
	if err := json.Unmarshal(raw, &trades); err != nil {
		return nil, fmt.Errorf("corrupt trade collection: %w", err)
	}
	return trades, nil
}

func (b *Bridge) GetUsers(ctx context.Context) ([]model.User, error) {
	raw, err := b.store.Get(ctx, store.KeyUsers)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return []model.User{}, nil
		}
		return nil, err
	}
	var users []model.User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("corrupt user collection: %w", err)
	}
	return users, nil
}

// AddTrade validates, stamps and prepends a new open trade.
func (b *Bridge) AddTrade(ctx context.Context, tr model.Trade) (model.Trade, error) {
	if !tr.Side.Valid() {
		return model.Trade{}, errors.New("invalid side")
	}
	if tr.Symbol == "" {
		return model.Trade{}, errors.New("symbol required")
	}
	if tr.Volume.Sign() <= 0 {
		return model.Trade{}, pnl.ErrInvalidVolume
	}
	if tr.EntryPrice.Sign() <= 0 {
		return model.Trade{}, errors.New("invalid entry price")
	}
	if tr.ID == "" {
		tr.ID = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	tr.Status = types.TradeStatusOpen
	if tr.ForcedOutcome == "" {
		tr.ForcedOutcome = types.OutcomeNone
	}
	tr.OpenTime = time.Now().UTC()
	tr.ClosePrice = nil
	tr.Profit = nil
	tr.CloseTime = nil

	b.mu.Lock()
	defer b.mu.Unlock()
	trades, err := b.GetTrades(ctx)
	if err != nil {
		return model.Trade{}, err
	}
	trades = append([]model.Trade{tr}, trades...)
	if err := b.saveTrades(ctx, trades); err != nil {
		return model.Trade{}, err
	}
	return tr, nil
}

// TradeUpdate carries the partial fields an admin may merge into an open
// trade. ClearTarget removes an earlier target profit.
type TradeUpdate struct {
	ForcedOutcome *types.Outcome
	TargetProfit  *decimal.Decimal
	ClearTarget   bool
	StopLoss      *decimal.Decimal
	TakeProfit    *decimal.Decimal
}

func (b *Bridge) UpdateTrade(ctx context.Context, id string, upd TradeUpdate) (model.Trade, error) {
	if upd.ForcedOutcome != nil && !upd.ForcedOutcome.Valid() {
		return model.Trade{}, ErrInvalidOutcome
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	trades, err := b.GetTrades(ctx)
	if err != nil {
		return model.Trade{}, err
	}
	idx := findTrade(trades, id)
	if idx < 0 {
		return model.Trade{}, ErrTradeNotFound
	}
	tr := trades[idx]
	if upd.ForcedOutcome != nil {
		tr.ForcedOutcome = *upd.ForcedOutcome
	}
	if upd.TargetProfit != nil {
		tr.TargetProfit = upd.TargetProfit
	}
	if upd.ClearTarget {
		tr.TargetProfit = nil
	}
	if upd.StopLoss != nil {
		tr.StopLoss = upd.StopLoss
	}
	if upd.TakeProfit != nil {
		tr.TakeProfit = upd.TakeProfit
	}
	trades[idx] = tr
	if err := b.saveTrades(ctx, trades); err != nil {
		return model.Trade{}, err
	}
	return tr, nil
}

// CloseTrade books the close and settles the owner's balance in one store
// write. The booked profit comes from, in order of precedence: the target
// profit (exactly, jitter never leaks into the close record), the forced
// outcome applied to the computed P&L, or the plain P&L formula.
func (b *Bridge) CloseTrade(ctx context.Context, id string, closePrice decimal.Decimal) (model.Trade, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked(ctx, id, func(tr model.Trade) (decimal.Decimal, decimal.Decimal, types.Outcome, error) {
		if tr.TargetProfit != nil {
			profit := *tr.TargetProfit
			price, err := pnl.ClosePriceFor(tr.EntryPrice, profit, tr.Side, tr.Volume, b.contractSize)
			if err != nil {
				return decimal.Decimal{}, decimal.Decimal{}, "", err
			}
			return profit, price, tr.ForcedOutcome, nil
		}
		profit := pnl.Profit(tr.EntryPrice, closePrice, tr.Side, tr.Volume, b.contractSize)
		switch tr.ForcedOutcome {
		case types.OutcomeWin:
			if profit.IsZero() {
				profit = fallbackProfit
			} else {
				profit = profit.Abs()
			}
		case types.OutcomeLoss:
			if profit.IsZero() {
				profit = fallbackProfit.Neg()
			} else {
				profit = profit.Abs().Neg()
			}
		}
		return profit.Round(2), closePrice, tr.ForcedOutcome, nil
	})
}

// Settle force-closes a trade with an admin-chosen outcome and amount:
// WIN books +amount, LOSS books -amount. The close price is back-solved so
// the record stays consistent with the P&L formula.
func (b *Bridge) Settle(ctx context.Context, id string, amount decimal.Decimal, outcome types.Outcome) (model.Trade, error) {
	if outcome != types.OutcomeWin && outcome != types.OutcomeLoss {
		return model.Trade{}, ErrInvalidOutcome
	}
	if amount.Sign() < 0 {
		return model.Trade{}, errors.New("invalid amount")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closeLocked(ctx, id, func(tr model.Trade) (decimal.Decimal, decimal.Decimal, types.Outcome, error) {
		profit := amount
		if outcome == types.OutcomeLoss {
			profit = amount.Neg()
		}
		price, err := pnl.ClosePriceFor(tr.EntryPrice, profit, tr.Side, tr.Volume, b.contractSize)
		if err != nil {
			return decimal.Decimal{}, decimal.Decimal{}, "", err
		}
		return profit, price, outcome, nil
	})
}

func (b *Bridge) closeLocked(ctx context.Context, id string, book func(model.Trade) (profit, closePrice decimal.Decimal, outcome types.Outcome, err error)) (model.Trade, error) {
	trades, err := b.GetTrades(ctx)
	if err != nil {
		return model.Trade{}, err
	}
	idx := findTrade(trades, id)
	if idx < 0 {
		return model.Trade{}, ErrTradeNotFound
	}
	tr := trades[idx]
	if tr.Status == types.TradeStatusClosed {
		return model.Trade{}, ErrTradeAlreadyClosed
	}
	profit, closePrice, outcome, err := book(tr)
	if err != nil {
		return model.Trade{}, err
	}
	now := time.Now().UTC()
	tr.Status = types.TradeStatusClosed
	tr.Profit = &profit
	tr.ClosePrice = &closePrice
	tr.CloseTime = &now
	tr.ForcedOutcome = outcome
	trades[idx] = tr

	rawTrades, err := json.Marshal(trades)
	if err != nil {
		return model.Trade{}, err
	}
	values := map[string][]byte{store.KeyTrades: rawTrades}

	usersChanged := false
	users, err := b.GetUsers(ctx)
	if err != nil {
		return model.Trade{}, err
	}
	for i := range users {
		if users[i].Username == tr.Username {
			users[i].Balance = users[i].Balance.Add(profit)
			users[i].Equity = users[i].Equity.Add(profit)
			usersChanged = true
			break
		}
	}
	if usersChanged {
		rawUsers, err := json.Marshal(users)
		if err != nil {
			return model.Trade{}, err
		}
		values[store.KeyUsers] = rawUsers
	}
	if err := b.store.SetMany(ctx, values); err != nil {
		return model.Trade{}, err
	}
	b.bus.Publish(bus.Event{Type: bus.EventTradesUpdated})
	if usersChanged {
		b.bus.Publish(bus.Event{Type: bus.EventUsersUpdated})
	}
	return tr, nil
}

func (b *Bridge) saveTrades(ctx context.Context, trades []model.Trade) error {
	raw, err := json.Marshal(trades)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, store.KeyTrades, raw); err != nil {
		return err
	}
	b.bus.Publish(bus.Event{Type: bus.EventTradesUpdated})
	return nil
}

func (b *Bridge) saveUsers(ctx context.Context, users []model.User) error {
	raw, err := json.Marshal(users)
	if err != nil {
		return err
	}
	if err := b.store.Set(ctx, store.KeyUsers, raw); err != nil {
		return err
	}
	b.bus.Publish(bus.Event{Type: bus.EventUsersUpdated})
	return nil
}

func findTrade(trades []model.Trade, id string) int {
	for i := range trades {
		if trades[i].ID == id {
			return i
		}
	}
	return -1
}

func newAccountLogin() string {
	return strconv.Itoa(100000000 + rand.Intn(900000000))
}
