package guard_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/stretchr/testify/require"
)

func signedIn(roles ...string) sessions.State {
	return sessions.State{
		User:        &users.User{ID: "u1", Email: "ada@example.com", Roles: roles},
		AccessToken: "access",
	}
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		state    sessions.State
		required []string
		want     guard.Decision
	}{
		{
			name:  "loading renders nothing",
			state: sessions.State{IsLoading: true},
			want:  guard.Decision{Outcome: guard.Pending},
		},
		{
			name:  "anonymous goes to sign in with return target",
			state: sessions.State{},
			want:  guard.Decision{Outcome: guard.RedirectSignIn, Location: "/auth/sign-in?next=%2Fusers%3Fpage%3D2"},
		},
		{
			name:     "missing role is unauthorized",
			state:    signedIn("manager"),
			required: []string{"admin"},
			want:     guard.Decision{Outcome: guard.RedirectUnauthorized, Location: "/unauthorized"},
		},
		{
			name:     "any of the required roles allows",
			state:    signedIn("manager"),
			required: []string{"admin", "manager"},
			want:     guard.Decision{Outcome: guard.Allow},
		},
		{
			name:     "roles compare case-insensitively",
			state:    signedIn("ADMIN"),
			required: []string{"admin"},
			want:     guard.Decision{Outcome: guard.Allow},
		},
		{
			name:  "no role requirement allows any user",
			state: signedIn(),
			want:  guard.Decision{Outcome: guard.Allow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, guard.Decide(tt.state, "/users?page=2", tt.required...))
		})
	}

	t.Run("custom destinations", func(t *testing.T) {
		g := guard.Guard{SignInPath: "/login", UnauthorizedPath: "/"}
		require.Equal(t, "/login?next=%2Fforum", g.Decide(sessions.State{}, "/forum").Location)
		require.Equal(t, "/", g.Decide(signedIn(), "/users", "admin").Location)
	})

	t.Run("absolute location is not carried", func(t *testing.T) {
		d := guard.Decide(sessions.State{}, "https://evil.example.com/")
		require.Equal(t, "/auth/sign-in", d.Location)
	})
}

func TestReturnTarget(t *testing.T) {
	tests := []struct {
		from, next, want string
	}{
		{"/users", "/forum", "/users"},
		{"", "/forum", "/forum"},
		{"", "", "/"},
		{"https://evil.example.com", "", "/"},
		{"//evil.example.com", "/forum", "/forum"},
		{"/\\evil.example.com", "", "/"},
		{"users", "", "/"},
		{"/users?page=2", "", "/users?page=2"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q,%q", tt.from, tt.next), func(t *testing.T) {
			require.Equal(t, tt.want, guard.ReturnTarget(tt.from, tt.next))
		})
	}
}

type staticSource sessions.State

func (s staticSource) State() sessions.State { return sessions.State(s) }

func TestGuard_Middleware(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	serve := func(state sessions.State, required ...string) *httptest.ResponseRecorder {
		h := guard.Guard{}.Middleware(staticSource(state), required...)(ok)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users", nil))
		return rec
	}

	t.Run("allow", func(t *testing.T) {
		require.Equal(t, http.StatusOK, serve(signedIn("admin"), "admin").Code)
	})

	t.Run("loading", func(t *testing.T) {
		rec := serve(sessions.State{IsLoading: true})
		require.Equal(t, http.StatusServiceUnavailable, rec.Code)
		require.Equal(t, "1", rec.Header().Get("Retry-After"))
	})

	t.Run("anonymous", func(t *testing.T) {
		rec := serve(sessions.State{})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/auth/sign-in?next=%2Fusers", rec.Header().Get("Location"))
	})

	t.Run("forbidden", func(t *testing.T) {
		rec := serve(signedIn("user"), "admin")
		require.Equal(t, http.StatusSeeOther, rec.Code)
		require.Equal(t, "/unauthorized", rec.Header().Get("Location"))
	})
}

func TestRoutes(t *testing.T) {
	t.Run("lookup", func(t *testing.T) {
		require.Equal(t, "Users", guard.Lookup("/users/?page=1").Name)
		require.Equal(t, "Home", guard.Lookup("").Name)
		require.Equal(t, guard.NotFound, guard.Lookup("/nope"))
	})

	t.Run("check uses the route table", func(t *testing.T) {
		g := guard.Guard{}
		require.Equal(t, guard.Allow, g.Check(sessions.State{}, "/").Outcome)
		require.Equal(t, guard.RedirectSignIn, g.Check(sessions.State{}, "/forum").Outcome)
		require.Equal(t, guard.RedirectUnauthorized, g.Check(signedIn("user"), "/users").Outcome)
		require.Equal(t, guard.Allow, g.Check(signedIn("manager"), "/users").Outcome)
	})

	t.Run("navigation hides role-gated items", func(t *testing.T) {
		names := func(routes []guard.Route) []string {
			out := []string{}
			for _, r := range routes {
				out = append(out, r.Name)
			}
			return out
		}
		require.Equal(t, []string{"Home", "Forum"}, names(guard.Navigation(sessions.State{})))
		require.Equal(t, []string{"Home", "Forum"}, names(guard.Navigation(signedIn("user"))))
		require.Equal(t, []string{"Home", "Users", "Forum"}, names(guard.Navigation(signedIn("Admin"))))
	})
}

func ExampleDecide() {
	manager := sessions.State{User: &users.User{ID: "u1", Roles: []string{"manager"}}}

	fmt.Println(guard.Decide(manager, "/users", "admin").Outcome)
	fmt.Println(guard.Decide(manager, "/users", "admin", "manager").Outcome)
	fmt.Println(guard.Decide(sessions.State{}, "/users").Location)
	// Output:
	// redirect-unauthorized
	// allow
	// /auth/sign-in?next=%2Fusers
}
