package httpclient

import "context"

type contextKey int

const skipRefreshKey contextKey = iota

// WithoutRefresh marks requests whose 401 means bad credentials rather than an
// expired session (login, register, password reset). They are never refreshed.
func WithoutRefresh(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipRefreshKey, true)
}

func refreshDisabled(ctx context.Context) bool {
	skip, _ := ctx.Value(skipRefreshKey).(bool)
	return skip
}
