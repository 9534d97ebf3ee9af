package authapi

// LoginRequest is the body of a login call.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned by the login endpoint.
type TokenResponse struct {
	// AccessToken is sent as a bearer token on every authenticated request.
	AccessToken string `json:"accessToken"`

	// RefreshToken is exchanged at the refresh endpoint when the access token
	// is rejected. May be absent.
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RefreshRequest is the body of a refresh call.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// RefreshResponse carries the new access token. Some servers rotate the
// refresh token too.
type RefreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// RegisterRequest is the body of a sign-up call.
type RegisterRequest struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	Name     *string `json:"name,omitempty"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// MessageResponse is the optional acknowledgement body of account calls.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}
