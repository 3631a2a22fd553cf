package auth

import (
	"context"
	"testing"
	"time"

	"pt-trader/internal/bridge"
	"pt-trader/internal/bus"
	"pt-trader/internal/pnl"
	"pt-trader/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	br := bridge.New(store.NewMemory(), bus.NewBus(), pnl.DefaultContractSize)
	return NewService(br, "pt-trader", []byte("test-secret"), ttl)
}

func TestLoginIssuesParsableToken(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	_, err := svc.Register(ctx, bridge.CreateUserParams{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	subject, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", subject)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	_, err := svc.Register(ctx, bridge.CreateUserParams{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, bridge.ErrInvalidCredentials)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	svc := newTestService(t, -time.Minute)
	ctx := context.Background()
	_, err := svc.Register(ctx, bridge.CreateUserParams{Username: "alice", Password: "secret"})
	require.NoError(t, err)

	token, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	_, err = svc.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	_, err := svc.Register(ctx, bridge.CreateUserParams{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	other := newTestService(t, time.Hour)
	other.secret = []byte("other-secret")
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongIssuer(t *testing.T) {
	svc := newTestService(t, time.Hour)
	ctx := context.Background()
	_, err := svc.Register(ctx, bridge.CreateUserParams{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	token, err := svc.Login(ctx, "alice", "secret")
	require.NoError(t, err)

	other := newTestService(t, time.Hour)
	other.issuer = "someone-else"
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenGarbage(t *testing.T) {
	svc := newTestService(t, time.Hour)
	_, err := svc.ParseToken("not.a.token")
	assert.Error(t, err)
}
