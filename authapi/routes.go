package authapi

// Route path constants of the remote auth API.
const (
	// Session
	RouteLogin   = "/auth/login"
	RouteMe      = "/auth/me"
	RouteRefresh = "/auth/refresh"

	// Account
	RouteRegister = "/auth/register"

	// Password management
	RouteForgotPassword = "/auth/forgot-password"
	RouteResetPassword  = "/auth/reset-password"

	// Data
	RouteUsers = "/api/users"
)
