package token

import (
	"context"
	"encoding/json"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the storage key the pair is kept under.
const DefaultKey = "auth"

// Store persists the current token pair as the sole value under one key.
// It has no side effects beyond that key and never touches the network.
type Store struct {
	repo Repo
	key  string
}

func NewStore(repo Repo, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{
		repo: repo,
		key:  key,
	}
}

func (s *Store) Key() string {
	return s.key
}

// Save serialises the pair and replaces any prior value with a single write.
func (s *Store) Save(ctx context.Context, pair Pair) error {
	if !pair.Valid() {
		return autherrors.Wrapf(autherrors.ErrValidation, "[Store Save] empty access token")
	}
	data, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("[Store Save] marshal: %w", err)
	}
	if err := s.repo.Set(ctx, s.key, string(data)); err != nil {
		return fmt.Errorf("[Store Save] write %q: %w", s.key, err)
	}
	return nil
}

// Clear removes the stored entry entirely.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.repo.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("[Store Clear] delete %q: %w", s.key, err)
	}
	return nil
}

// Read returns the stored pair, or nil when there is no session. A missing
// entry, unreadable storage, malformed JSON and an empty access token all
// mean "no session"; none of them is reported to the caller.
func (s *Store) Read(ctx context.Context) *Pair {
	raw, err := s.repo.Get(ctx, s.key)
	if err != nil {
		if !autherrors.Is(err, autherrors.ErrNotFound) {
			log.Debug().Err(err).Str("key", s.key).Msg("token store read failed")
		}
		return nil
	}

	var pair Pair
	if err := json.Unmarshal([]byte(raw), &pair); err != nil {
		log.Debug().Err(err).Str("key", s.key).Msg("discarding malformed token entry")
		return nil
	}
	if !pair.Valid() {
		return nil
	}
	return &pair
}

// Merge stores a new access token. The stored refresh token is kept unless a
// new one is supplied.
func (s *Store) Merge(ctx context.Context, accessToken, refreshToken string) (Pair, error) {
	next := Pair{AccessToken: accessToken, RefreshToken: refreshToken}
	if refreshToken == "" {
		if current := s.Read(ctx); current != nil {
			next.RefreshToken = current.RefreshToken
		}
	}
	if err := s.Save(ctx, next); err != nil {
		return Pair{}, err
	}
	return next, nil
}
