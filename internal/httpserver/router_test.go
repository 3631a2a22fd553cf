package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"pt-trader/internal/admin"
	"pt-trader/internal/auth"
	"pt-trader/internal/bridge"
	"pt-trader/internal/bus"
	"pt-trader/internal/model"
	"pt-trader/internal/pnl"
	"pt-trader/internal/sim"
	"pt-trader/internal/store"
	"pt-trader/internal/tracker"
	"pt-trader/internal/trades"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	server *httptest.Server
	bridge *bridge.Bridge
}

func newEnv(t *testing.T) *env {
	t.Helper()
	eventBus := bus.NewBus()
	br := bridge.New(store.NewMemory(), eventBus, pnl.DefaultContractSize)
	simulator := sim.New(sim.DefaultConfig())
	posTracker := tracker.New(br, simulator, eventBus, 50*time.Millisecond)

	authSvc := auth.NewService(br, "pt-trader", []byte("test-secret"), time.Hour)
	router := NewRouter(RouterDeps{
		AuthHandler:  auth.NewHandler(authSvc),
		TradeHandler: trades.NewHandler(trades.NewService(br)),
		AdminHandler: admin.NewHandler(br),
		AuthService:  authSvc,
		Bridge:       br,
		Tracker:      posTracker,
		WSHandler:    NewWSHandler(eventBus, authSvc, "http://localhost"),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &env{server: srv, bridge: br}
}

func (e *env) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *env) register(t *testing.T, username, password string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/v1/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()
}

func (e *env) token(t *testing.T, username, password string) string {
	t.Helper()
	form := url.Values{"username": {username}, "password": {password}}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/v1/auth/token", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[map[string]string](t, resp)
	require.Equal(t, "bearer", body["token_type"])
	require.NotEmpty(t, body["access_token"])
	return body["access_token"]
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/health", "", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSymbolsArePublic(t *testing.T) {
	e := newEnv(t)
	resp := e.do(t, http.MethodGet, "/v1/market/symbols", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	symbols := decode[[]sim.SymbolInfo](t, resp)
	assert.NotEmpty(t, symbols)
}

func TestTradesRequireAuth(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/v1/trades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodGet, "/v1/trades", "bogus-token", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminRequiresAdminRole(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "secret")
	token := e.token(t, "alice", "secret")

	resp := e.do(t, http.MethodGet, "/v1/admin/trades", token, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestWrongPasswordIsUnauthorized(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "secret")

	form := url.Values{"username": {"alice"}, "password": {"wrong"}}
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/v1/auth/token", strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := e.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMeReturnsProfileWithoutHash(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "secret")
	token := e.token(t, "alice", "secret")

	resp := e.do(t, http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password_hash")

	var view model.UserView
	require.NoError(t, json.Unmarshal(raw, &view))
	assert.Equal(t, "alice", view.Username)
	assert.True(t, view.Balance.Equal(decimal.NewFromInt(10000)))
}

func TestForcedTargetLifecycle(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "secret")
	aliceToken := e.token(t, "alice", "secret")
	e.seedAdmin(t)
	adminToken := e.token(t, "admin", "supersecret")

	// Alice opens a 1.0 lot buy at 1.1000.
	resp := e.do(t, http.MethodPost, "/v1/trades", aliceToken, map[string]any{
		"symbol":      "EURUSD",
		"side":        "buy",
		"volume":      "1",
		"entry_price": "1.1000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[model.Trade](t, resp)
	require.Equal(t, types.TradeStatusOpen, placed.Status)

	// Admin pins the trade to +50.
	resp = e.do(t, http.MethodPut, "/v1/admin/trades/"+placed.ID+"/target", adminToken, map[string]any{
		"target_profit": "50",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pinned := decode[model.Trade](t, resp)
	require.NotNil(t, pinned.TargetProfit)

	// Alice closes; the submitted price loses to the pinned target.
	resp = e.do(t, http.MethodPut, "/v1/trades/"+placed.ID+"/close?close_price=1.0000", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	closed := decode[model.Trade](t, resp)
	assert.Equal(t, types.TradeStatusClosed, closed.Status)
	require.NotNil(t, closed.Profit)
	assert.True(t, closed.Profit.Equal(decimal.NewFromInt(50)), "profit = %s", closed.Profit)

	// Her balance moved by exactly the booked profit.
	resp = e.do(t, http.MethodGet, "/v1/auth/me", aliceToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	view := decode[model.UserView](t, resp)
	assert.True(t, view.Balance.Equal(decimal.NewFromInt(10050)), "balance = %s", view.Balance)

	// A second close attempt is rejected.
	resp = e.do(t, http.MethodPut, "/v1/trades/"+placed.ID+"/close?close_price=1.2000", aliceToken, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseForeignTradeIsNotFound(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "secret")
	e.register(t, "bob", "secret")
	aliceToken := e.token(t, "alice", "secret")
	bobToken := e.token(t, "bob", "secret")

	resp := e.do(t, http.MethodPost, "/v1/trades", aliceToken, map[string]any{
		"symbol":      "EURUSD",
		"side":        "buy",
		"volume":      "1",
		"entry_price": "1.1000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[model.Trade](t, resp)

	resp = e.do(t, http.MethodPut, "/v1/trades/"+placed.ID+"/close?close_price=1.1010", bobToken, nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminSettleReportsNewBalance(t *testing.T) {
	e := newEnv(t)
	e.register(t, "alice", "secret")
	aliceToken := e.token(t, "alice", "secret")
	e.seedAdmin(t)
	adminToken := e.token(t, "admin", "supersecret")

	resp := e.do(t, http.MethodPost, "/v1/trades", aliceToken, map[string]any{
		"symbol":      "EURUSD",
		"side":        "sell",
		"volume":      "0.5",
		"entry_price": "1.1000",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	placed := decode[model.Trade](t, resp)

	resp = e.do(t, http.MethodPost, "/v1/admin/trades/"+placed.ID+"/settle", adminToken, map[string]any{
		"amount":  "250",
		"outcome": "LOSS",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	type settleResult struct {
		Trade      model.Trade      `json:"trade"`
		NewBalance *decimal.Decimal `json:"new_balance"`
	}
	settled := decode[settleResult](t, resp)
	assert.Equal(t, types.TradeStatusClosed, settled.Trade.Status)
	require.NotNil(t, settled.Trade.Profit)
	assert.True(t, settled.Trade.Profit.Equal(decimal.NewFromInt(-250)))
	require.NotNil(t, settled.NewBalance)
	assert.True(t, settled.NewBalance.Equal(decimal.NewFromInt(9750)), "balance = %s", settled.NewBalance)
}

func TestAdminUserManagement(t *testing.T) {
	e := newEnv(t)
	e.seedAdmin(t)
	adminToken := e.token(t, "admin", "supersecret")

	resp := e.do(t, http.MethodPost, "/v1/admin/users", adminToken, map[string]any{
		"username": "carol",
		"password": "secret",
		"balance":  "500",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[model.UserView](t, resp)
	assert.True(t, created.Balance.Equal(decimal.NewFromInt(500)))

	resp = e.do(t, http.MethodPost, "/v1/admin/users/carol/balance", adminToken, map[string]any{
		"balance": "1200",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.UserView](t, resp)
	assert.True(t, updated.Balance.Equal(decimal.NewFromInt(1200)))

	resp = e.do(t, http.MethodDelete, "/v1/admin/users/carol", adminToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = e.do(t, http.MethodDelete, "/v1/admin/users/carol", adminToken, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}

func TestAdminAppSettings(t *testing.T) {
	e := newEnv(t)
	e.seedAdmin(t)
	adminToken := e.token(t, "admin", "supersecret")

	resp := e.do(t, http.MethodGet, "/v1/admin/app-settings", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	settings := decode[model.AppSettings](t, resp)
	assert.Equal(t, "PT Trader", settings.AppName)

	resp = e.do(t, http.MethodPost, "/v1/admin/app-settings", adminToken, map[string]any{
		"app_name": "Acme Markets",
		"logo_url": "https://cdn.example.com/logo.svg",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[model.AppSettings](t, resp)
	assert.Equal(t, "Acme Markets", updated.AppName)
	assert.Equal(t, settings.PrimaryColor, updated.PrimaryColor)

	e.register(t, "alice", "secret")
	aliceToken := e.token(t, "alice", "secret")
	resp = e.do(t, http.MethodPost, "/v1/admin/app-settings", aliceToken, map[string]any{
		"app_name": "hijacked",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func (e *env) seedAdmin(t *testing.T) {
	t.Helper()
	_, err := e.bridge.CreateUser(context.Background(), bridge.CreateUserParams{
		Username: "admin",
		Password: "supersecret",
		Admin:    true,
	})
	require.NoError(t, err)
}
