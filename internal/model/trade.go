package model

import (
	"time"

	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

type Trade struct {
	ID            string            `json:"id"`
	Username      string            `json:"username"`
	Symbol        string            `json:"symbol"`
	Side          types.TradeSide   `json:"side"`
	Volume        decimal.Decimal   `json:"volume"`
	EntryPrice    decimal.Decimal   `json:"entry_price"`
	StopLoss      *decimal.Decimal  `json:"sl,omitempty"`
	TakeProfit    *decimal.Decimal  `json:"tp,omitempty"`
	Status        types.TradeStatus `json:"status"`
	ForcedOutcome types.Outcome     `json:"forced_outcome"`
	TargetProfit  *decimal.Decimal  `json:"target_profit,omitempty"`
	ClosePrice    *decimal.Decimal  `json:"close_price,omitempty"`
	Profit        *decimal.Decimal  `json:"profit,omitempty"`
	OpenTime      time.Time         `json:"open_time"`
	CloseTime     *time.Time        `json:"close_time,omitempty"`
}

func (t Trade) IsOpen() bool {
	return t.Status == types.TradeStatusOpen
}
