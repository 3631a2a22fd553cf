package trades

import (
	"errors"
	"net/http"

	"pt-trader/internal/bridge"
	"pt-trader/internal/httputil"
	"pt-trader/internal/pnl"

	"github.com/shopspring/decimal"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Place(w http.ResponseWriter, r *http.Request, username string) {
	var req PlaceTradeRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	trade, err := h.svc.Place(r.Context(), username, req)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, trade)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request, username string) {
	trades, err := h.svc.Mine(r.Context(), username)
	if err != nil {
		httputil.WriteJSON(w, http.StatusInternalServerError, httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trades)
}

func (h *Handler) Close(w http.ResponseWriter, r *http.Request, username, id string) {
	raw := r.URL.Query().Get("close_price")
	if raw == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "close_price required"})
		return
	}
	closePrice, err := decimal.NewFromString(raw)
	if err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{Error: "invalid close_price"})
		return
	}
	trade, err := h.svc.Close(r.Context(), username, id, closePrice)
	if err != nil {
		httputil.WriteJSON(w, statusFor(err), httputil.ErrorResponse{Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trade)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, bridge.ErrTradeNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrTradeAlreadyClosed),
		errors.Is(err, pnl.ErrInvalidVolume),
		errors.Is(err, bridge.ErrInvalidOutcome):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
