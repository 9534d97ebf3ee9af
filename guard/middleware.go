package guard

import (
	"net/http"

	"github.com/jrsteele09/go-auth-client/sessions"
)

// StateSource provides the session a request is evaluated against.
type StateSource interface {
	State() sessions.State
}

var _ StateSource = (*sessions.Manager)(nil)

// Middleware gates handlers behind the session held by source. A loading
// session answers 503 with Retry-After; redirects use 303.
func (g Guard) Middleware(source StateSource, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision := g.Decide(source.State(), r.URL.RequestURI(), required...)
			switch decision.Outcome {
			case Allow:
				next.ServeHTTP(w, r)
			case Pending:
				w.Header().Set("Retry-After", "1")
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
			default:
				http.Redirect(w, r, decision.Location, http.StatusSeeOther)
			}
		})
	}
}
