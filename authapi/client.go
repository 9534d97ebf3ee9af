package authapi

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-client/httpclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog/log"
)

// Client performs the remote auth operations. Everything goes through the
// wrapped HTTP client; credential submissions are sent WithoutRefresh so a
// 401 there reads as bad credentials.
type Client struct {
	http *httpclient.Client
}

func New(http *httpclient.Client) *Client {
	return &Client{http: http}
}

// Login exchanges credentials for a token pair. It does not store the pair.
func (c *Client) Login(ctx context.Context, email, password string) (token.Pair, error) {
	var resp TokenResponse
	err := c.http.PostJSON(httpclient.WithoutRefresh(ctx), RouteLogin, LoginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return token.Pair{}, fmt.Errorf("[authapi Login] %w", err)
	}
	if resp.AccessToken == "" {
		return token.Pair{}, autherrors.Wrapf(autherrors.ErrValidation, "[authapi Login] empty access token in response")
	}
	log.Debug().Str("email", email).Msg("login succeeded")
	return token.Pair{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}, nil
}

// Me fetches the identity behind the stored access token.
func (c *Client) Me(ctx context.Context) (*users.User, error) {
	var user users.User
	if err := c.http.GetJSON(ctx, RouteMe, &user); err != nil {
		return nil, fmt.Errorf("[authapi Me] %w", err)
	}
	if user.ID == "" && user.Email == "" {
		return nil, autherrors.Wrapf(autherrors.ErrValidation, "[authapi Me] empty user in response")
	}
	user.Normalize()
	return &user, nil
}

// Refresh exchanges refreshToken for a new access token. It bypasses the
// interceptor and does not touch the Token Store.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (string, error) {
	pair, err := c.http.ExchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", fmt.Errorf("[authapi Refresh] %w", err)
	}
	return pair.AccessToken, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) error {
	if err := c.http.PostJSON(httpclient.WithoutRefresh(ctx), RouteRegister, req, nil); err != nil {
		return fmt.Errorf("[authapi Register] %w", err)
	}
	return nil
}

func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	if err := c.http.PostJSON(httpclient.WithoutRefresh(ctx), RouteForgotPassword, ForgotPasswordRequest{Email: email}, nil); err != nil {
		return fmt.Errorf("[authapi ForgotPassword] %w", err)
	}
	return nil
}

func (c *Client) ResetPassword(ctx context.Context, resetToken, password string) error {
	req := ResetPasswordRequest{Token: resetToken, Password: password}
	if err := c.http.PostJSON(httpclient.WithoutRefresh(ctx), RouteResetPassword, req, nil); err != nil {
		return fmt.Errorf("[authapi ResetPassword] %w", err)
	}
	return nil
}
