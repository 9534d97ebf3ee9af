package tokenfakerepo

import (
	"context"
	"sync"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
)

var _ token.Repo = (*FakeTokenRepo)(nil)

// FakeTokenRepo keeps entries in memory; nothing survives the process.
type FakeTokenRepo struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewFakeTokenRepo() *FakeTokenRepo {
	return &FakeTokenRepo{
		values: make(map[string]string),
	}
}

func (tr *FakeTokenRepo) Get(_ context.Context, key string) (string, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	value, ok := tr.values[key]
	if !ok {
		return "", autherrors.ErrNotFound
	}
	return value, nil
}

func (tr *FakeTokenRepo) Set(_ context.Context, key, value string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.values[key] = value
	return nil
}

func (tr *FakeTokenRepo) Delete(_ context.Context, key string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	delete(tr.values, key)
	return nil
}
