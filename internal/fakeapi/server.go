// Package fakeapi is an in-process implementation of the remote auth API,
// used by tests and the dev-api command.
package fakeapi

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog/log"
)

// Server serves the auth API from memory.
type Server struct {
	router   chi.Router
	accounts *accountStore
	tokens   *tokenIssuer

	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	refreshLag time.Duration

	refreshCalls atomic.Int64
	loginCalls   atomic.Int64
}

// Option configures a Server.
type Option func(*Server)

// WithAccessTokenTTL sets the lifetime of issued access tokens.
func WithAccessTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func WithRefreshTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.refreshTTL = d
	}
}

// WithRefreshRotation makes every refresh return a new refresh token and
// invalidate the old one.
func WithRefreshRotation(rotate bool) Option {
	return func(s *Server) {
		s.rotate = rotate
	}
}

// WithRefreshLatency delays refresh responses, widening the window in which
// concurrent requests observe the same expired token.
func WithRefreshLatency(d time.Duration) Option {
	return func(s *Server) {
		s.refreshLag = d
	}
}

func New(opts ...Option) *Server {
	s := &Server{
		accounts:   newAccountStore(),
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens = newTokenIssuer(s.accessTTL, s.refreshTTL, s.rotate)
	s.initRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) initRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Post(authapi.RouteLogin, s.handleLogin)
	r.Post(authapi.RouteRefresh, s.handleRefresh)
	r.Post(authapi.RouteRegister, s.handleRegister)
	r.Post(authapi.RouteForgotPassword, s.handleForgotPassword)
	r.Post(authapi.RouteResetPassword, s.handleResetPassword)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get(authapi.RouteMe, s.handleMe)
		r.With(requireAnyRole(users.RoleAdmin, users.RoleManager)).Get(authapi.RouteUsers, s.handleListUsers)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	s.router = r
}

// AddUser creates a verified account directly, bypassing registration.
func (s *Server) AddUser(email, password string, name *string, roles ...string) (users.User, error) {
	acc, err := s.accounts.create(email, password, name, roles, true)
	if err != nil {
		return users.User{}, err
	}
	return acc.user, nil
}

// ExpireAccessTokens invalidates every access token issued so far. Refresh
// tokens stay valid.
func (s *Server) ExpireAccessTokens() {
	s.tokens.expireAccessTokens()
	log.Debug().Msg("fakeapi: access tokens expired")
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.tokens.revokeRefreshTokens()
}

// RefreshCalls reports how many refresh requests the server has received.
func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

func (s *Server) LoginCalls() int {
	return int(s.loginCalls.Load())
}

// ResetTokenFor issues a password reset token the way the forgot-password
// email would deliver it.
func (s *Server) ResetTokenFor(email string) (string, error) {
	acc, err := s.accounts.byEmail(email)
	if err != nil {
		return "", err
	}
	return s.tokens.createResetToken(acc.user.ID)
}
