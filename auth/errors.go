package auth

import (
	"strings"

	"github.com/jrsteele09/go-auth-client/httpclient"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// UnknownErrorMessage is shown when an error carries no usable text.
const UnknownErrorMessage = "unknown error"

// ErrorMessage returns the text to show the user for err: form validation
// messages, the server's own message, or a transport description.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	var validation ValidationErrors
	if autherrors.As(err, &validation) {
		return validation.Error()
	}

	var httpErr *httpclient.HTTPError
	if autherrors.As(err, &httpErr) && strings.TrimSpace(httpErr.Message) != "" {
		return httpErr.Message
	}

	var netErr *httpclient.NetworkError
	if autherrors.As(err, &netErr) {
		return "Unable to reach the server, check your connection"
	}

	if autherrors.Is(err, autherrors.ErrSignInInProgress) {
		return "Sign in already in progress"
	}

	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return UnknownErrorMessage
}
