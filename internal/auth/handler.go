package auth

import (
	"errors"
	"net/http"

	"pt-trader/internal/bridge"
	"pt-trader/internal/httputil"
	"pt-trader/internal/types"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type registerRequest struct {
	Username    string            `json:"username"`
	Password    string            `json:"password"`
	FullName    string            `json:"full_name"`
	Broker      string            `json:"broker"`
	AccountType types.AccountType `json:"account_type"`
	Balance     *decimal.Decimal  `json:"balance"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	user, err := h.svc.Register(r.Context(), bridge.CreateUserParams{
		Username:    req.Username,
		Password:    req.Password,
		FullName:    req.FullName,
		Broker:      req.Broker,
		AccountType: req.AccountType,
		Balance:     req.Balance,
	})
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user.View())
}

// Token exchanges form-encoded credentials for a bearer token.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid form body"})
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")
	token, err := h.svc.Login(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, bridge.ErrInvalidCredentials) {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "incorrect username or password"})
			return
		}
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"access_token": token, "token_type": "bearer"})
}

func (h *Handler) Me(w http.ResponseWriter, r *http.Request, username string) {
	user, err := h.svc.GetUser(r.Context(), username)
	if err != nil {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user.View())
}
