package token

import (
	"context"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"golang.org/x/oauth2"
)

type storeSource struct {
	ctx   context.Context
	store *Store
}

// TokenSource exposes the stored access token to x/oauth2 consumers such as
// oauth2.NewClient. It never refreshes; refresh belongs to the HTTP client.
func (s *Store) TokenSource(ctx context.Context) oauth2.TokenSource {
	return storeSource{ctx: ctx, store: s}
}

func (ts storeSource) Token() (*oauth2.Token, error) {
	pair := ts.store.Read(ts.ctx)
	if pair == nil {
		return nil, autherrors.ErrNoSession
	}
	return pair.OAuth2(), nil
}
