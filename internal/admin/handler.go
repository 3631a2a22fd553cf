// Package admin exposes the console surface: every trade in the system,
// user management and the forced-outcome controls.
package admin

import (
	"errors"
	"net/http"

	"pt-trader/internal/bridge"
	"pt-trader/internal/httputil"
	"pt-trader/internal/model"
	"pt-trader/internal/pnl"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	bridge *bridge.Bridge
}

func NewHandler(br *bridge.Bridge) *Handler {
	return &Handler{bridge: br}
}

func (h *Handler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades, err := h.bridge.GetTrades(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

// ForceOutcome pins a trade to WIN or LOSS; NONE lifts the override.
func (h *Handler) ForceOutcome(w http.ResponseWriter, r *http.Request, id string) {
	outcome := types.Outcome(r.URL.Query().Get("outcome"))
	if !outcome.Valid() {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid outcome"})
		return
	}
	trade, err := h.bridge.UpdateTrade(r.Context(), id, bridge.TradeUpdate{ForcedOutcome: &outcome})
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

type setTargetRequest struct {
	TargetProfit *decimal.Decimal `json:"target_profit"`
}

// SetTarget pins a trade's displayed profit to target_profit; a null value
// releases it back to the free walk.
func (h *Handler) SetTarget(w http.ResponseWriter, r *http.Request, id string) {
	var req setTargetRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	upd := bridge.TradeUpdate{TargetProfit: req.TargetProfit, ClearTarget: req.TargetProfit == nil}
	trade, err := h.bridge.UpdateTrade(r.Context(), id, upd)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

type settleRequest struct {
	Amount  decimal.Decimal `json:"amount"`
	Outcome types.Outcome   `json:"outcome"`
}

type settleResponse struct {
	Trade      model.Trade      `json:"trade"`
	NewBalance *decimal.Decimal `json:"new_balance,omitempty"`
}

func (h *Handler) Settle(w http.ResponseWriter, r *http.Request, id string) {
	var req settleRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	trade, err := h.bridge.Settle(r.Context(), id, req.Amount, req.Outcome)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	resp := settleResponse{Trade: trade}
	if user, userErr := h.bridge.GetUser(r.Context(), trade.Username); userErr == nil {
		resp.NewBalance = &user.Balance
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.bridge.GetUsers(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	views := make([]model.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	httputil.WriteJSON(w, http.StatusOK, views)
}

type createUserRequest struct {
	Username    string            `json:"username"`
	Password    string            `json:"password"`
	FullName    string            `json:"full_name"`
	Broker      string            `json:"broker"`
	AccountType types.AccountType `json:"account_type"`
	Balance     *decimal.Decimal  `json:"balance"`
	Admin       bool              `json:"admin"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.bridge.CreateUser(r.Context(), bridge.CreateUserParams{
		Username:    req.Username,
		Password:    req.Password,
		FullName:    req.FullName,
		Broker:      req.Broker,
		AccountType: req.AccountType,
		Balance:     req.Balance,
		Admin:       req.Admin,
	})
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user.View())
}

type updateUserRequest struct {
	Balance     *decimal.Decimal   `json:"balance"`
	Equity      *decimal.Decimal   `json:"equity"`
	Margin      *decimal.Decimal   `json:"margin"`
	AccountType *types.AccountType `json:"account_type"`
	FullName    *string            `json:"full_name"`
	Broker      *string            `json:"broker"`
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request, username string) {
	var req updateUserRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.bridge.UpdateUser(r.Context(), username, bridge.UserUpdate{
		Balance:     req.Balance,
		Equity:      req.Equity,
		Margin:      req.Margin,
		AccountType: req.AccountType,
		FullName:    req.FullName,
		Broker:      req.Broker,
	})
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user.View())
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request, username string) {
	deleted, err := h.bridge.DeleteUser(r.Context(), username)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	if !deleted {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "user not found"})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type setBalanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request, username string) {
	var req setBalanceRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.bridge.SetBalance(r.Context(), username, req.Balance)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user.View())
}

func (h *Handler) GetAppSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.bridge.GetAppSettings(r.Context())
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

type appSettingsRequest struct {
	AppName        *string `json:"app_name"`
	LogoURL        *string `json:"logo_url"`
	PrimaryColor   *string `json:"primary_color"`
	SecondaryColor *string `json:"secondary_color"`
}

// UpdateAppSettings merges the submitted branding fields; omitted fields are
// left as they are.
func (h *Handler) UpdateAppSettings(w http.ResponseWriter, r *http.Request) {
	var req appSettingsRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	settings, err := h.bridge.UpdateAppSettings(r.Context(), bridge.AppSettingsUpdate{
		AppName:        req.AppName,
		LogoURL:        req.LogoURL,
		PrimaryColor:   req.PrimaryColor,
		SecondaryColor: req.SecondaryColor,
	})
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, settings)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrTradeNotFound), errors.Is(err, bridge.ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrTradeAlreadyClosed),
		errors.Is(err, bridge.ErrDuplicateUser),
		errors.Is(err, bridge.ErrInvalidOutcome),
		errors.Is(err, pnl.ErrInvalidVolume):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
