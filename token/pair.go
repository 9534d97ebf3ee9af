package token

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Pair is the credential set persisted by the Store.
type Pair struct {
	// AccessToken is sent as "Authorization: Bearer <access_token>" on every request.
	// Never empty for a stored pair.
	AccessToken string `json:"accessToken"`

	// RefreshToken is exchanged at the refresh endpoint for a new access token.
	// Optional: without it a 401 ends the session.
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (p Pair) Valid() bool {
	return p.AccessToken != ""
}

// Expiry reads the exp claim of a JWT access token without verifying the
// signature. It reports false for opaque tokens or tokens without exp. The
// result is informational only; the server stays the authority on validity.
func (p Pair) Expiry() (time.Time, bool) {
	if p.AccessToken == "" {
		return time.Time{}, false
	}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(p.AccessToken, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// OAuth2 converts the pair into an x/oauth2 bearer token.
func (p Pair) OAuth2() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  p.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: p.RefreshToken,
	}
	if exp, ok := p.Expiry(); ok {
		tok.Expiry = exp
	}
	return tok
}
