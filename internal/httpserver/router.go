package httpserver

import (
	"net/http"

	"pt-trader/internal/admin"
	"pt-trader/internal/auth"
	"pt-trader/internal/bridge"
	"pt-trader/internal/httputil"
	"pt-trader/internal/sim"
	"pt-trader/internal/tracker"
	"pt-trader/internal/trades"

	"github.com/go-chi/chi/v5"
)

type RouterDeps struct {
	AuthHandler  *auth.Handler
	TradeHandler *trades.Handler
	AdminHandler *admin.Handler
	AuthService  *auth.Service
	Bridge       *bridge.Bridge
	Tracker      *tracker.Tracker
	WSHandler    http.Handler
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// CORS middleware for development
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" {
				origin = "*"
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Use(SecurityHeaders)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", d.AuthHandler.Register)
			r.Post("/token", d.AuthHandler.Token)
			r.Group(func(r chi.Router) {
				r.Use(WithAuth(d.AuthService))
				r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
					username, ok := Username(r)
					if !ok {
						httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
						return
					}
					d.AuthHandler.Me(w, r, username)
				})
			})
		})
		r.Get("/ws", d.WSHandler.ServeHTTP)
		r.Get("/market/symbols", func(w http.ResponseWriter, r *http.Request) {
			httputil.WriteJSON(w, http.StatusOK, sim.Symbols())
		})
		r.Group(func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Post("/trades", func(w http.ResponseWriter, r *http.Request) {
				username, ok := Username(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradeHandler.Place(w, r, username)
			})
			r.Get("/trades", func(w http.ResponseWriter, r *http.Request) {
				username, ok := Username(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradeHandler.List(w, r, username)
			})
			r.Put("/trades/{id}/close", func(w http.ResponseWriter, r *http.Request) {
				username, ok := Username(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				d.TradeHandler.Close(w, r, username, chi.URLParam(r, "id"))
			})
			r.Get("/positions", func(w http.ResponseWriter, r *http.Request) {
				username, ok := Username(r)
				if !ok {
					httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
					return
				}
				out := make([]tracker.Position, 0)
				for _, pos := range d.Tracker.Snapshot() {
					if pos.Trade.Username == username {
						out = append(out, pos)
					}
				}
				httputil.WriteJSON(w, http.StatusOK, out)
			})
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(WithAuth(d.AuthService))
			r.Use(RequireAdmin(d.Bridge))
			r.Get("/trades", d.AdminHandler.ListTrades)
			r.Put("/trades/{id}/outcome", func(w http.ResponseWriter, r *http.Request) {
				d.AdminHandler.ForceOutcome(w, r, chi.URLParam(r, "id"))
			})
			r.Put("/trades/{id}/target", func(w http.ResponseWriter, r *http.Request) {
				d.AdminHandler.SetTarget(w, r, chi.URLParam(r, "id"))
			})
			r.Post("/trades/{id}/settle", func(w http.ResponseWriter, r *http.Request) {
				d.AdminHandler.Settle(w, r, chi.URLParam(r, "id"))
			})
			r.Get("/users", d.AdminHandler.ListUsers)
			r.Post("/users", d.AdminHandler.CreateUser)
			r.Put("/users/{username}", func(w http.ResponseWriter, r *http.Request) {
				d.AdminHandler.UpdateUser(w, r, chi.URLParam(r, "username"))
			})
			r.Delete("/users/{username}", func(w http.ResponseWriter, r *http.Request) {
				d.AdminHandler.DeleteUser(w, r, chi.URLParam(r, "username"))
			})
			r.Post("/users/{username}/balance", func(w http.ResponseWriter, r *http.Request) {
				d.AdminHandler.SetBalance(w, r, chi.URLParam(r, "username"))
			})
			r.Get("/app-settings", d.AdminHandler.GetAppSettings)
			r.Post("/app-settings", d.AdminHandler.UpdateAppSettings)
		})
	})
	return r
}
