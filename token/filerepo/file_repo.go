package filerepo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
)

var _ token.Repo = (*FileRepo)(nil)

const fileExt = ".json"

// FileRepo stores each key as its own file under a folder. Writes go to a
// temp file that is renamed over the target, so readers never see a torn value.
type FileRepo struct {
	folder string
	lock   sync.Mutex
}

func New(folder string) (*FileRepo, error) {
	if folder == "" {
		return nil, fmt.Errorf("[filerepo New] folder is required")
	}
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, fmt.Errorf("[filerepo New] create %s: %w", folder, err)
	}
	return &FileRepo{folder: folder}, nil
}

func (fr *FileRepo) Get(_ context.Context, key string) (string, error) {
	path, err := fr.path(key)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", autherrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[filerepo Get] %w", err)
	}
	return string(data), nil
}

func (fr *FileRepo) Set(_ context.Context, key, value string) error {
	path, err := fr.path(key)
	if err != nil {
		return err
	}

	fr.lock.Lock()
	defer fr.lock.Unlock()

	tmp, err := os.CreateTemp(fr.folder, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("[filerepo Set] temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo Set] write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("[filerepo Set] chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("[filerepo Set] close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("[filerepo Set] rename: %w", err)
	}
	return nil
}

func (fr *FileRepo) Delete(_ context.Context, key string) error {
	path, err := fr.path(key)
	if err != nil {
		return err
	}

	fr.lock.Lock()
	defer fr.lock.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("[filerepo Delete] %w", err)
	}
	return nil
}

// path maps a key onto a file inside the folder. Keys that would escape the
// folder are rejected.
func (fr *FileRepo) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return "", autherrors.Wrapf(autherrors.ErrValidation, "[filerepo] invalid key %q", key)
	}
	return filepath.Join(fr.folder, key+fileExt), nil
}
