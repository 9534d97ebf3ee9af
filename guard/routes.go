package guard

import (
	"path"
	"strings"

	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users"
)

// Route is one page of the application shell.
type Route struct {
	Path      string
	Name      string
	Protected bool     // requires a signed-in user
	Roles     []string // when set, the user needs at least one of them
	InNav     bool
}

// NotFound is returned by Lookup for unknown paths.
var NotFound = Route{Path: "*", Name: "NotFound"}

// Routes is the application route table.
var Routes = []Route{
	{Path: "/", Name: "Home", InNav: true},
	{Path: "/users", Name: "Users", Protected: true, Roles: []string{users.RoleAdmin, users.RoleManager}, InNav: true},
	{Path: "/forum", Name: "Forum", Protected: true, InNav: true},
	{Path: "/auth/sign-in", Name: "SignIn"},
	{Path: "/auth/sign-up", Name: "SignUp"},
	{Path: "/auth/forgot", Name: "ForgotPassword"},
	{Path: "/auth/reset", Name: "ResetPassword"},
	{Path: "/unauthorized", Name: "Unauthorized"},
}

// Lookup finds the route for p, ignoring any query string and trailing slash.
func Lookup(p string) Route {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		p = "/"
	}
	p = path.Clean(p)
	for _, r := range Routes {
		if r.Path == p {
			return r
		}
	}
	return NotFound
}

// Check decides whether state may open location.
func (g Guard) Check(state sessions.State, location string) Decision {
	route := Lookup(location)
	if !route.Protected {
		return Decision{Outcome: Allow}
	}
	return g.Decide(state, location, route.Roles...)
}

// Navigation returns the nav items to show. Role-gated items are hidden from
// users without the role; sign-in protected items stay visible and redirect.
func Navigation(state sessions.State) []Route {
	items := make([]Route, 0, len(Routes))
	for _, r := range Routes {
		if !r.InNav {
			continue
		}
		if len(r.Roles) > 0 && !state.User.HasAnyRole(r.Roles...) {
			continue
		}
		items = append(items, r)
	}
	return items
}
