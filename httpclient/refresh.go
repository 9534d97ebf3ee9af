package httpclient

import (
	"context"
	"net/http"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/codes"
)

const refreshFlightKey = "refresh"

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// recover runs after a 401 for a request sent with access token sent. It
// returns the pair to replay with, or false when the session is over.
func (c *Client) recover(ctx context.Context, sent string) (token.Pair, bool) {
	if current, ok := c.replaced(ctx, sent); ok {
		return current, true
	}

	switch c.policy {
	case RefreshFailFast:
		if !c.refreshing.TryLock() {
			c.metrics.observeRefresh(RefreshRejected)
			log.Debug().Msg("refresh already in flight, failing request")
			return token.Pair{}, false
		}
		defer c.refreshing.Unlock()
		pair, err := c.refresh(ctx, sent)
		return pair, err == nil

	default:
		leader := false
		v, err, _ := c.flight.Do(refreshFlightKey, func() (any, error) {
			leader = true
			return c.refresh(ctx, sent)
		})
		if !leader {
			c.metrics.observeRefresh(RefreshJoined)
		}
		if err != nil {
			return token.Pair{}, false
		}
		return v.(token.Pair), true
	}
}

// replaced reports the stored pair when its access token is no longer the one
// that was rejected, meaning another request already refreshed.
func (c *Client) replaced(ctx context.Context, sent string) (token.Pair, bool) {
	current := c.tokens.Read(ctx)
	if current == nil || current.AccessToken == sent {
		return token.Pair{}, false
	}
	c.metrics.observeRefresh(RefreshSkipped)
	return *current, true
}

// refresh exchanges the stored refresh token, stores the result and notifies
// the hooks. Any failure clears the Token Store.
func (c *Client) refresh(ctx context.Context, sent string) (token.Pair, error) {
	if current, ok := c.replaced(ctx, sent); ok {
		return current, nil
	}

	// shared by every joined caller: one caller's cancellation must not fail the rest
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()
	ctx, span := c.tracer.Start(ctx, "httpclient.refresh")
	defer span.End()

	start := time.Now()
	pair, err := c.rotate(ctx)
	c.metrics.observeRefreshDuration(start)

	if err != nil {
		c.metrics.observeRefresh(RefreshFailure)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn().Err(err).Msg("token refresh failed, clearing session")
		if clearErr := c.tokens.Clear(ctx); clearErr != nil {
			log.Err(clearErr).Msg("failed to clear token store after refresh failure")
		}
		if c.onExpired != nil {
			c.onExpired()
		}
		return token.Pair{}, err
	}

	c.metrics.observeRefresh(RefreshSuccess)
	log.Debug().Msg("access token refreshed")
	if c.onRefresh != nil {
		c.onRefresh(pair)
	}
	return pair, nil
}

func (c *Client) rotate(ctx context.Context) (token.Pair, error) {
	current := c.tokens.Read(ctx)
	if current == nil || current.RefreshToken == "" {
		return token.Pair{}, autherrors.ErrNoRefreshToken
	}
	issued, err := c.ExchangeRefreshToken(ctx, current.RefreshToken)
	if err != nil {
		return token.Pair{}, err
	}
	return c.tokens.Merge(ctx, issued.AccessToken, issued.RefreshToken)
}

// ExchangeRefreshToken posts refreshToken to the refresh endpoint outside the
// interceptor, so a rejected refresh can never recurse into another refresh.
// The returned pair carries a refresh token only when the server rotated it.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (token.Pair, error) {
	if refreshToken == "" {
		return token.Pair{}, autherrors.ErrNoRefreshToken
	}
	req, err := c.NewRequest(ctx, http.MethodPost, c.refreshPath, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return token.Pair{}, err
	}
	c.stamp(req)

	resp, err := c.send(c.raw, req)
	if err != nil {
		return token.Pair{}, err
	}
	var body refreshResponse
	if err := decodeJSON(resp, &body); err != nil {
		return token.Pair{}, err
	}
	if body.AccessToken == "" {
		return token.Pair{}, autherrors.Wrapf(autherrors.ErrInvalidRefreshToken, "[ExchangeRefreshToken] empty access token in response")
	}
	return token.Pair{AccessToken: body.AccessToken, RefreshToken: body.RefreshToken}, nil
}
