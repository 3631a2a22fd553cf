package httpserver

import (
	"context"
	"net/http"
	"strings"

	"pt-trader/internal/auth"
	"pt-trader/internal/bridge"
	"pt-trader/internal/httputil"
	"pt-trader/internal/types"
)

type ctxKey string

const usernameKey ctxKey = "username"

func WithAuth(svc *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			parts := strings.SplitN(authz, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "missing bearer token"})
				return
			}
			username, err := svc.ParseToken(parts[1])
			if err != nil {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "invalid token"})
				return
			}
			ctx := context.WithValue(r.Context(), usernameKey, username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Username(r *http.Request) (string, bool) {
	v := r.Context().Value(usernameKey)
	if v == nil {
		return "", false
	}
	name, ok := v.(string)
	return name, ok
}

// RequireAdmin gates a route group on the authenticated user's role. It runs
// after WithAuth so the username is already in the context.
func RequireAdmin(br *bridge.Bridge) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok := Username(r)
			if !ok {
				httputil.WriteJSON(w, http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
				return
			}
			user, err := br.GetUser(r.Context(), username)
			if err != nil || user.Role != types.RoleAdmin {
				httputil.WriteJSON(w, http.StatusForbidden, httputil.ErrorResponse{Error: "admin access required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
