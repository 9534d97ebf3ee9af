package guard

import (
	"net/url"

	"github.com/jrsteele09/go-auth-client/sessions"
)

// Default destinations.
const (
	DefaultSignInPath       = "/auth/sign-in"
	DefaultUnauthorizedPath = "/unauthorized"

	// NextParam carries the attempted location through sign-in.
	NextParam = "next"
)

// Outcome is what a protected route should do for the current session.
type Outcome int

const (
	// Pending renders nothing while the session is still loading.
	Pending Outcome = iota
	Allow
	RedirectSignIn
	RedirectUnauthorized
)

func (o Outcome) String() string {
	switch o {
	case Pending:
		return "pending"
	case Allow:
		return "allow"
	case RedirectSignIn:
		return "redirect-sign-in"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	default:
		return "unknown"
	}
}

// Decision is an Outcome plus, for redirects, where to go.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Guard holds the redirect destinations. The zero value uses the defaults.
type Guard struct {
	SignInPath       string
	UnauthorizedPath string
}

// Decide applies the default Guard.
func Decide(state sessions.State, location string, required ...string) Decision {
	return Guard{}.Decide(state, location, required...)
}

// Decide gates location for state. With required roles, the user must hold at
// least one of them, compared case-insensitively.
func (g Guard) Decide(state sessions.State, location string, required ...string) Decision {
	switch {
	case state.IsLoading:
		return Decision{Outcome: Pending}
	case state.User == nil:
		return Decision{Outcome: RedirectSignIn, Location: g.signInLocation(location)}
	case !state.User.HasAnyRole(required...):
		return Decision{Outcome: RedirectUnauthorized, Location: g.unauthorizedPath()}
	default:
		return Decision{Outcome: Allow}
	}
}

func (g Guard) signInLocation(from string) string {
	signIn := g.SignInPath
	if signIn == "" {
		signIn = DefaultSignInPath
	}
	if !isRelativePath(from) {
		return signIn
	}
	return signIn + "?" + url.Values{NextParam: {from}}.Encode()
}

func (g Guard) unauthorizedPath() string {
	if g.UnauthorizedPath == "" {
		return DefaultUnauthorizedPath
	}
	return g.UnauthorizedPath
}
