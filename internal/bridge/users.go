package bridge

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"pt-trader/internal/model"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserParams struct {
	Username    string
	Password    string
	FullName    string
	Broker      string
	AccountType types.AccountType
	Balance     *decimal.Decimal
	Admin       bool
}

// CreateUser registers a demo account. Username uniqueness is enforced after
// trimming; the password is stored as a bcrypt hash.
func (b *Bridge) CreateUser(ctx context.Context, params CreateUserParams) (model.User, error) {
	username := strings.TrimSpace(params.Username)
	password := strings.TrimSpace(params.Password)
	if username == "" || password == "" {
		return model.User{}, errors.New("username and password required")
	}
	if params.AccountType != "" && !params.AccountType.Valid() {
		return model.User{}, errors.New("invalid account type")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	users, err := b.GetUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return model.User{}, ErrDuplicateUser
		}
	}
	user := model.User{
		ID:           strconv.FormatInt(time.Now().UnixNano(), 10),
		Username:     username,
		PasswordHash: string(hash),
		Role:         types.RoleUser,
		FullName:     strings.TrimSpace(params.FullName),
		Broker:       params.Broker,
		AccountType:  params.AccountType,
		AccountLogin: newAccountLogin(),
		Balance:      defaultBalance,
		Equity:       defaultBalance,
		Margin:       decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if params.Admin {
		user.Role = types.RoleAdmin
	}
	if user.FullName == "" {
		user.FullName = username
	}
	if user.Broker == "" {
		user.Broker = "MetaQuotes-Demo"
	}
	if user.AccountType == "" {
		user.AccountType = types.AccountTypeDemo
	}
	if params.Balance != nil {
		user.Balance = *params.Balance
		user.Equity = *params.Balance
	}
	users = append(users, user)
	if err := b.saveUsers(ctx, users); err != nil {
		return model.User{}, err
	}
	return user, nil
}

// Login verifies trimmed credentials against the stored hash.
func (b *Bridge) Login(ctx context.Context, username, password string) (model.User, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	users, err := b.GetUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.Username != username {
			continue
		}
		if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
			return model.User{}, ErrInvalidCredentials
		}
		return u, nil
	}
	return model.User{}, ErrInvalidCredentials
}

func (b *Bridge) GetUser(ctx context.Context, username string) (model.User, error) {
	username = strings.TrimSpace(username)
	users, err := b.GetUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return model.User{}, ErrUserNotFound
}

func (b *Bridge) SetBalance(ctx context.Context, username string, balance decimal.Decimal) (model.User, error) {
	return b.mutateUser(ctx, username, func(u *model.User) {
		u.Balance = balance
		u.Equity = balance
	})
}

// UpdateUserBalance applies a delta and returns the new balance.
func (b *Bridge) UpdateUserBalance(ctx context.Context, username string, delta decimal.Decimal) (decimal.Decimal, error) {
	user, err := b.mutateUser(ctx, username, func(u *model.User) {
		u.Balance = u.Balance.Add(delta)
		u.Equity = u.Equity.Add(delta)
	})
	if err != nil {
		return decimal.Decimal{}, err
	}
	return user.Balance, nil
}

// UserUpdate carries the partial fields an admin may merge into a user.
type UserUpdate struct {
	Balance     *decimal.Decimal
	Equity      *decimal.Decimal
	Margin      *decimal.Decimal
	AccountType *types.AccountType
	FullName    *string
	Broker      *string
}

func (b *Bridge) UpdateUser(ctx context.Context, username string, upd UserUpdate) (model.User, error) {
	if upd.AccountType != nil && !upd.AccountType.Valid() {
		return model.User{}, errors.New("invalid account type")
	}
	return b.mutateUser(ctx, username, func(u *model.User) {
		if upd.Balance != nil {
			u.Balance = *upd.Balance
		}
		if upd.Equity != nil {
			u.Equity = *upd.Equity
		}
		if upd.Margin != nil {
			u.Margin = *upd.Margin
		}
		if upd.AccountType != nil {
			u.AccountType = *upd.AccountType
		}
		if upd.FullName != nil {
			u.FullName = *upd.FullName
		}
		if upd.Broker != nil {
			u.Broker = *upd.Broker
		}
	})
}

// DeleteUser removes the account; it reports whether a match was found.
func (b *Bridge) DeleteUser(ctx context.Context, username string) (bool, error) {
	username = strings.TrimSpace(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	users, err := b.GetUsers(ctx)
	if err != nil {
		return false, err
	}
	kept := users[:0]
	for _, u := range users {
		if u.Username != username {
			kept = append(kept, u)
		}
	}
	if len(kept) == len(users) {
		return false, nil
	}
	if err := b.saveUsers(ctx, kept); err != nil {
		return false, err
	}
	return true, nil
}

func (b *Bridge) mutateUser(ctx context.Context, username string, apply func(*model.User)) (model.User, error) {
	username = strings.TrimSpace(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	users, err := b.GetUsers(ctx)
	if err != nil {
		return model.User{}, err
	}
	for i := range users {
		if users[i].Username != username {
			continue
		}
		apply(&users[i])
		if err := b.saveUsers(ctx, users); err != nil {
			return model.User{}, err
		}
		return users[i], nil
	}
	return model.User{}, ErrUserNotFound
}
