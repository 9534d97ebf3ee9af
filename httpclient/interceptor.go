package httpclient

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
)

// interceptor is the request/response stage pair wrapped around the base
// transport.
type interceptor struct {
	client *Client
}

func (it *interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	c := it.client

	out, err := replayable(req)
	if err != nil {
		return nil, err
	}
	c.stamp(out)
	sent := c.authorize(out)

	resp, err := c.base.RoundTrip(out)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	if refreshDisabled(req.Context()) {
		return resp, nil
	}

	pair, ok := c.recover(req.Context(), sent)
	if !ok {
		// the caller observes the original 401, not the refresh failure
		return resp, nil
	}

	retry, err := rewind(out)
	if err != nil {
		log.Warn().Err(err).Str("url", out.URL.Redacted()).Msg("cannot replay request after refresh")
		return resp, nil
	}
	pair.OAuth2().SetAuthHeader(retry)

	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	log.Debug().Str("method", retry.Method).Str("url", retry.URL.Redacted()).Msg("replaying request with refreshed token")
	return c.base.RoundTrip(retry)
}

// authorize sets the bearer header from the Token Store and returns the access
// token it used, "" when the request goes out anonymous.
func (c *Client) authorize(req *http.Request) string {
	pair := c.tokens.Read(req.Context())
	if pair == nil {
		return ""
	}
	pair.OAuth2().SetAuthHeader(req)
	return pair.AccessToken
}

// replayable clones req so the transport never mutates the caller's request,
// buffering the body when it cannot be re-obtained for a replay.
func replayable(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return out, nil
	}

	data, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("[httpclient] buffer request body: %w", err)
	}
	out.Body = io.NopCloser(bytes.NewReader(data))
	out.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	out.ContentLength = int64(len(data))
	return out, nil
}

// rewind produces a fresh copy of an already sent request.
func rewind(sent *http.Request) (*http.Request, error) {
	retry := sent.Clone(sent.Context())
	if sent.GetBody != nil {
		body, err := sent.GetBody()
		if err != nil {
			return nil, err
		}
		retry.Body = body
	}
	return retry, nil
}
