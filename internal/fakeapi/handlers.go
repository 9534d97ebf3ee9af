package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/authapi"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.loginCalls.Add(1)

	var req authapi.LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	acc, err := s.accounts.authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	s.issueTokens(w, acc)
}

func (s *Server) issueTokens(w http.ResponseWriter, acc *account) {
	access, err := s.tokens.createAccessToken(acc)
	if err != nil {
		log.Err(err).Msg("fakeapi: failed to create access token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	refresh, err := s.tokens.createRefreshToken(acc.user.ID)
	if err != nil {
		log.Err(err).Msg("fakeapi: failed to create refresh token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authapi.TokenResponse{AccessToken: access, RefreshToken: refresh})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, accountFrom(r.Context()).user)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)
	if s.refreshLag > 0 {
		select {
		case <-time.After(s.refreshLag):
		case <-r.Context().Done():
			return
		}
	}

	var req authapi.RefreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	userID, rotated, err := s.tokens.redeemRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid refresh token")
		return
	}
	acc, err := s.accounts.byID(userID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unknown user")
		return
	}
	access, err := s.tokens.createAccessToken(acc)
	if err != nil {
		log.Err(err).Msg("fakeapi: failed to create access token")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, authapi.RefreshResponse{AccessToken: access, RefreshToken: rotated})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req authapi.RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "invalid email")
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := s.accounts.create(req.Email, req.Password, req.Name, []string{users.RoleUser}, false); err != nil {
		if autherrors.Is(err, autherrors.ErrValidation) {
			writeError(w, http.StatusConflict, "email already registered")
			return
		}
		log.Err(err).Msg("fakeapi: failed to register account")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, authapi.MessageResponse{Message: "verification email sent"})
}

// handleForgotPassword answers the same way whether or not the email exists.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authapi.ForgotPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if resetToken, err := s.ResetTokenFor(req.Email); err == nil {
		log.Debug().Str("email", req.Email).Str("reset_token", resetToken).Msg("fakeapi: password reset requested")
	}
	writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "if the account exists a reset email was sent"})
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authapi.ResetPasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := users.ValidatePasswordStrength(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	userID, ok := s.tokens.redeemResetToken(req.Token)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}
	if err := s.accounts.setPassword(userID, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, "invalid or expired reset token")
		return
	}
	writeJSON(w, http.StatusOK, authapi.MessageResponse{Message: "password updated"})
}

// handleListUsers answers with the paginated payload shape.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	members := s.accounts.list()
	writeJSON(w, http.StatusOK, users.Page{
		Items: members,
		Total: len(members),
		Page:  1,
		Limit: len(members),
	})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("fakeapi: failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, authapi.MessageResponse{Message: message})
}
