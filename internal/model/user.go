package model

import (
	"time"

	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

// User is the persisted record. PasswordHash stays in the stored JSON but is
// never returned over HTTP; handlers respond with View().
type User struct {
	ID           string            `json:"id"`
	Username     string            `json:"username"`
	PasswordHash string            `json:"password_hash"`
	Role         types.Role        `json:"role"`
	FullName     string            `json:"full_name"`
	Broker       string            `json:"broker"`
	AccountType  types.AccountType `json:"account_type"`
	AccountLogin string            `json:"account_login"`
	Balance      decimal.Decimal   `json:"balance"`
	Equity       decimal.Decimal   `json:"equity"`
	Margin       decimal.Decimal   `json:"margin"`
	CreatedAt    time.Time         `json:"created_at"`
}

type UserView struct {
	ID           string            `json:"id"`
	Username     string            `json:"username"`
	Role         types.Role        `json:"role"`
	FullName     string            `json:"full_name"`
	Broker       string            `json:"broker"`
	AccountType  types.AccountType `json:"account_type"`
	AccountLogin string            `json:"account_login"`
	Balance      decimal.Decimal   `json:"balance"`
	Equity       decimal.Decimal   `json:"equity"`
	Margin       decimal.Decimal   `json:"margin"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (u User) View() UserView {
	return UserView{
		ID:           u.ID,
		Username:     u.Username,
		Role:         u.Role,
		FullName:     u.FullName,
		Broker:       u.Broker,
		AccountType:  u.AccountType,
		AccountLogin: u.AccountLogin,
		Balance:      u.Balance,
		Equity:       u.Equity,
		Margin:       u.Margin,
		CreatedAt:    u.CreatedAt,
	}
}
