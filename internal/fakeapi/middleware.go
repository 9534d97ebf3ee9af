package fakeapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type contextKey string

const contextKeyAccount contextKey = "account"

func accountFrom(ctx context.Context) *account {
	acc, _ := ctx.Value(contextKeyAccount).(*account)
	return acc
}

// requireAuth validates the bearer access token and stores its account in the
// request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			writeError(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		userID, err := s.tokens.validateAccessToken(parts[1])
		if err != nil {
			writeError(w, http.StatusUnauthorized, "token expired")
			return
		}
		acc, err := s.accounts.byID(userID)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unknown user")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyAccount, acc)))
	})
}

func requireAnyRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			acc := accountFrom(r.Context())
			if acc == nil || !acc.user.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Str("request_id", r.Header.Get("X-Request-ID")).
			Dur("duration", time.Since(start)).
			Msg("fakeapi request")
	})
}
