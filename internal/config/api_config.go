package config

import "time"

const (
	RefreshPolicyJoin     = "join"
	RefreshPolicyFailFast = "fail-fast"
)

type APIConfig interface {
	GetAPIURL() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetRefreshPolicy() string
}

type API struct{}

var _ APIConfig = API{}

// GetAPIURL is the base URL of the remote auth API (e.g. "https://api.example.com")
func (API) GetAPIURL() string {
	return GetEnv("API_URL", "http://localhost:3100")
}

func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
}

func (API) GetRefreshTimeout() time.Duration {
	return GetEnvDuration("REFRESH_TIMEOUT", 10*time.Second)
}

// GetRefreshPolicy decides what a 401 does while a refresh is already running.
func (API) GetRefreshPolicy() string {
	switch policy := GetEnv("REFRESH_POLICY", RefreshPolicyJoin); policy {
	case RefreshPolicyFailFast:
		return policy
	default:
		return RefreshPolicyJoin
	}
}
