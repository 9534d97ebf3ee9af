package fakeapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-auth-client/authapi"
	"github.com/jrsteele09/go-auth-client/internal/fakeapi"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/stretchr/testify/require"
)

func do(t *testing.T, h http.Handler, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, h http.Handler, email, password string) authapi.TokenResponse {
	t.Helper()
	rec := do(t, h, http.MethodPost, authapi.RouteLogin, "", authapi.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, rec.Code)
	var tokens authapi.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&tokens))
	return tokens
}

func TestServer_SessionLifecycle(t *testing.T) {
	api := fakeapi.New()
	_, err := api.AddUser("ada@example.com", "Passw0rd", nil, users.RoleAdmin)
	require.NoError(t, err)

	t.Run("bad credentials", func(t *testing.T) {
		rec := do(t, api, http.MethodPost, authapi.RouteLogin, "", authapi.LoginRequest{Email: "ada@example.com", Password: "nope"})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Body.String(), "invalid email or password")
	})

	tokens := login(t, api, "ada@example.com", "Passw0rd")
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)

	t.Run("me with valid token", func(t *testing.T) {
		rec := do(t, api, http.MethodGet, authapi.RouteMe, tokens.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var user users.User
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&user))
		require.Equal(t, "ada@example.com", user.Email)
		require.Equal(t, []string{users.RoleAdmin}, user.Roles)
	})

	t.Run("expired token is rejected and refresh issues a new one", func(t *testing.T) {
		api.ExpireAccessTokens()
		rec := do(t, api, http.MethodGet, authapi.RouteMe, tokens.AccessToken, nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		rec = do(t, api, http.MethodPost, authapi.RouteRefresh, "", authapi.RefreshRequest{RefreshToken: tokens.RefreshToken})
		require.Equal(t, http.StatusOK, rec.Code)
		var refreshed authapi.RefreshResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&refreshed))
		require.Empty(t, refreshed.RefreshToken)

		rec = do(t, api, http.MethodGet, authapi.RouteMe, refreshed.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, api.RefreshCalls())
	})

	t.Run("revoked refresh token", func(t *testing.T) {
		api.RevokeRefreshTokens()
		rec := do(t, api, http.MethodPost, authapi.RouteRefresh, "", authapi.RefreshRequest{RefreshToken: tokens.RefreshToken})
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestServer_RefreshRotation(t *testing.T) {
	api := fakeapi.New(fakeapi.WithRefreshRotation(true))
	_, err := api.AddUser("ada@example.com", "Passw0rd", nil)
	require.NoError(t, err)
	tokens := login(t, api, "ada@example.com", "Passw0rd")

	rec := do(t, api, http.MethodPost, authapi.RouteRefresh, "", authapi.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	var refreshed authapi.RefreshResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&refreshed))
	require.NotEmpty(t, refreshed.RefreshToken)
	require.NotEqual(t, tokens.RefreshToken, refreshed.RefreshToken)

	rec = do(t, api, http.MethodPost, authapi.RouteRefresh, "", authapi.RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestServer_Accounts(t *testing.T) {
	api := fakeapi.New()

	t.Run("register validates and rejects duplicates", func(t *testing.T) {
		rec := do(t, api, http.MethodPost, authapi.RouteRegister, "", authapi.RegisterRequest{Email: "not-an-email", Password: "Passw0rd"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, api, http.MethodPost, authapi.RouteRegister, "", authapi.RegisterRequest{Email: "bob@example.com", Password: "weak"})
		require.Equal(t, http.StatusBadRequest, rec.Code)

		rec = do(t, api, http.MethodPost, authapi.RouteRegister, "", authapi.RegisterRequest{Email: "bob@example.com", Password: "Passw0rd"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = do(t, api, http.MethodPost, authapi.RouteRegister, "", authapi.RegisterRequest{Email: "bob@example.com", Password: "Passw0rd"})
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("reset password", func(t *testing.T) {
		resetToken, err := api.ResetTokenFor("bob@example.com")
		require.NoError(t, err)

		rec := do(t, api, http.MethodPost, authapi.RouteResetPassword, "", authapi.ResetPasswordRequest{Token: resetToken, Password: "N3wPassword"})
		require.Equal(t, http.StatusOK, rec.Code)
		login(t, api, "bob@example.com", "N3wPassword")

		rec = do(t, api, http.MethodPost, authapi.RouteResetPassword, "", authapi.ResetPasswordRequest{Token: resetToken, Password: "N3wPassword"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("users list requires an admin or manager", func(t *testing.T) {
		bob := login(t, api, "bob@example.com", "N3wPassword")
		rec := do(t, api, http.MethodGet, authapi.RouteUsers, bob.AccessToken, nil)
		require.Equal(t, http.StatusForbidden, rec.Code)

		_, err := api.AddUser("mia@example.com", "Passw0rd", nil, users.RoleManager)
		require.NoError(t, err)
		mia := login(t, api, "mia@example.com", "Passw0rd")
		rec = do(t, api, http.MethodGet, authapi.RouteUsers, mia.AccessToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		members, err := users.DecodeMembers(rec.Body.Bytes())
		require.NoError(t, err)
		require.Len(t, members, 2)
		require.Equal(t, users.StatusPendingVerification, members[0].Status)
		require.False(t, members[0].EmailVerified)
	})
}
