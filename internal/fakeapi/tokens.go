package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const (
	refreshTokenLength = 32
	issuer             = "go-auth-client-fakeapi"
)

type accessClaims struct {
	Email      string   `json:"email"`
	Roles      []string `json:"roles"`
	Generation int      `json:"gen"`
	jwtlib.RegisteredClaims
}

// storedRefreshToken is the server-side record of an opaque refresh token.
type storedRefreshToken struct {
	userID string
	iat    time.Time
}

// tokenIssuer mints HS256 access tokens and opaque refresh tokens. Bumping the
// generation invalidates every access token issued before it.
type tokenIssuer struct {
	key        []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool

	lock       sync.Mutex
	generation int
	refresh    map[string]storedRefreshToken
	resets     map[string]string // reset token to user id
}

func newTokenIssuer(accessTTL, refreshTTL time.Duration, rotate bool) *tokenIssuer {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		panic(fmt.Sprintf("fakeapi: generate signing key: %v", err))
	}
	return &tokenIssuer{
		key:        key,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		rotate:     rotate,
		refresh:    make(map[string]storedRefreshToken),
		resets:     make(map[string]string),
	}
}

func (ti *tokenIssuer) createAccessToken(acc *account) (string, error) {
	ti.lock.Lock()
	generation := ti.generation
	ti.lock.Unlock()

	now := NowTimeFunc()
	claims := accessClaims{
		Email:      acc.user.Email,
		Roles:      acc.user.Roles,
		Generation: generation,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   acc.user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ti.accessTTL)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ti.key)
	if err != nil {
		return "", fmt.Errorf("[tokenIssuer createAccessToken] sign: %w", err)
	}
	return signed, nil
}

// validateAccessToken returns the subject of a valid, current access token.
func (ti *tokenIssuer) validateAccessToken(raw string) (string, error) {
	claims := &accessClaims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(t *jwtlib.Token) (any, error) {
		return ti.key, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return "", autherrors.Wrapf(autherrors.ErrAuth, "invalid access token: %v", err)
	}

	ti.lock.Lock()
	current := ti.generation
	ti.lock.Unlock()
	if claims.Generation != current {
		return "", autherrors.Wrapf(autherrors.ErrAuth, "access token revoked")
	}
	return claims.Subject, nil
}

func (ti *tokenIssuer) createRefreshToken(userID string) (string, error) {
	tokenStr, err := randomToken()
	if err != nil {
		return "", err
	}
	ti.lock.Lock()
	defer ti.lock.Unlock()
	ti.refresh[tokenStr] = storedRefreshToken{userID: userID, iat: NowTimeFunc()}
	return tokenStr, nil
}

// redeemRefreshToken returns the owner of refreshToken and, when rotation is
// enabled, the replacement that supersedes it.
func (ti *tokenIssuer) redeemRefreshToken(refreshToken string) (userID, rotated string, err error) {
	ti.lock.Lock()
	stored, ok := ti.refresh[refreshToken]
	if ok && NowTimeFunc().Sub(stored.iat) > ti.refreshTTL {
		delete(ti.refresh, refreshToken)
		ok = false
	}
	if ok && ti.rotate {
		delete(ti.refresh, refreshToken)
	}
	ti.lock.Unlock()

	if !ok {
		return "", "", autherrors.ErrInvalidRefreshToken
	}
	if !ti.rotate {
		return stored.userID, "", nil
	}
	rotated, err = ti.createRefreshToken(stored.userID)
	return stored.userID, rotated, err
}

func (ti *tokenIssuer) revokeRefreshTokens() {
	ti.lock.Lock()
	defer ti.lock.Unlock()
	ti.refresh = make(map[string]storedRefreshToken)
}

func (ti *tokenIssuer) expireAccessTokens() {
	ti.lock.Lock()
	defer ti.lock.Unlock()
	ti.generation++
}

func (ti *tokenIssuer) createResetToken(userID string) (string, error) {
	tokenStr, err := randomToken()
	if err != nil {
		return "", err
	}
	ti.lock.Lock()
	defer ti.lock.Unlock()
	ti.resets[tokenStr] = userID
	return tokenStr, nil
}

func (ti *tokenIssuer) redeemResetToken(tokenStr string) (string, bool) {
	ti.lock.Lock()
	defer ti.lock.Unlock()
	userID, ok := ti.resets[tokenStr]
	delete(ti.resets, tokenStr)
	return userID, ok
}

func randomToken() (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(tokenBytes), nil
}
