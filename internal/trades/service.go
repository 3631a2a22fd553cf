package trades

import (
	"context"
	"errors"

	"pt-trader/internal/bridge"
	"pt-trader/internal/model"
	"pt-trader/internal/pnl"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

type Service struct {
	bridge *bridge.Bridge
}

func NewService(br *bridge.Bridge) *Service {
	return &Service{bridge: br}
}

type PlaceTradeRequest struct {
	Symbol     string           `json:"symbol"`
	Side       types.TradeSide  `json:"side"`
	Volume     decimal.Decimal  `json:"volume"`
	EntryPrice decimal.Decimal  `json:"entry_price"`
	StopLoss   *decimal.Decimal `json:"sl"`
	TakeProfit *decimal.Decimal `json:"tp"`
}

func (s *Service) Place(ctx context.Context, username string, req PlaceTradeRequest) (model.Trade, error) {
	if username == "" {
		return model.Trade{}, errors.New("missing user")
	}
	if !req.Side.Valid() {
		return model.Trade{}, errors.New("invalid side")
	}
	if req.Symbol == "" {
		return model.Trade{}, errors.New("symbol required")
	}
	if req.Volume.Sign() <= 0 {
		return model.Trade{}, pnl.ErrInvalidVolume
	}
	if req.EntryPrice.Sign() <= 0 {
		return model.Trade{}, errors.New("invalid entry price")
	}
	return s.bridge.AddTrade(ctx, model.Trade{
		Username:   username,
		Symbol:     req.Symbol,
		Side:       req.Side,
		Volume:     req.Volume,
		EntryPrice: req.EntryPrice,
		StopLoss:   req.StopLoss,
		TakeProfit: req.TakeProfit,
	})
}

// Mine returns the user's trades, most recent first.
func (s *Service) Mine(ctx context.Context, username string) ([]model.Trade, error) {
	trades, err := s.bridge.GetTrades(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Trade, 0, len(trades))
	for _, tr := range trades {
		if tr.Username == username {
			out = append(out, tr)
		}
	}
	return out, nil
}

// Close settles the user's own trade at the given price. A trade belonging to
// someone else reads as not found, same as the ownership filter on list.
func (s *Service) Close(ctx context.Context, username, id string, closePrice decimal.Decimal) (model.Trade, error) {
	trades, err := s.bridge.GetTrades(ctx)
	if err != nil {
		return model.Trade{}, err
	}
	owned := false
	for _, tr := range trades {
		if tr.ID == id && tr.Username == username {
			owned = true
			break
		}
	}
	if !owned {
		return model.Trade{}, bridge.ErrTradeNotFound
	}
	return s.bridge.CloseTrade(ctx, id, closePrice)
}
