package httpclient

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// maxErrorBody caps how much of an error response is kept.
const maxErrorBody = 64 << 10

// HTTPError is returned for responses with status >= 400. 401 and 403
// responses satisfy errors.Is(err, ErrAuth).
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the server's "message" or "error" field, or the status text.
	Message string
	Body    []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, e.Message)
}

func (e *HTTPError) Is(target error) bool {
	return target == autherrors.ErrAuth && e.IsAuth()
}

// IsAuth reports whether the server rejected the credentials or the session.
func (e *HTTPError) IsAuth() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// NetworkError wraps a transport failure: no HTTP response was received.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, autherrors.ErrNetwork, e.Err)
}

func (e *NetworkError) Unwrap() []error {
	return []error{autherrors.ErrNetwork, e.Err}
}

// serverMessage extracts a human readable message from an error body.
func serverMessage(body []byte, status int) string {
	var payload struct {
		Message any `json:"message"`
		Error   any `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		for _, candidate := range []any{payload.Message, payload.Error} {
			if s, ok := candidate.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return http.StatusText(status)
}
