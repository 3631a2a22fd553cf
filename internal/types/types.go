package types

type TradeSide string

type TradeStatus string

type Outcome string

type AccountType string

type Role string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

const (
	TradeStatusOpen   TradeStatus = "OPEN"
	TradeStatusClosed TradeStatus = "CLOSED"
)

const (
	OutcomeNone Outcome = "NONE"
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
)

const (
	AccountTypeDemo AccountType = "demo"
	AccountTypeReal AccountType = "real"
)

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (s TradeSide) Valid() bool {
	return s == TradeSideBuy || s == TradeSideSell
}

func (o Outcome) Valid() bool {
	return o == OutcomeNone || o == OutcomeWin || o == OutcomeLoss
}

func (t AccountType) Valid() bool {
	return t == AccountTypeDemo || t == AccountTypeReal
}
