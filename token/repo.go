package token

import "context"

// Repo is durable keyed storage for serialised token pairs. It plays the part
// browser local storage plays for a web client: one string value per key,
// surviving process restarts.
type Repo interface {
	// Get returns errors.ErrNotFound when the key is absent
	Get(ctx context.Context, key string) (string, error)

	// Set replaces any previous value in a single write
	Set(ctx context.Context, key, value string) error

	// Delete is a no-op for a missing key
	Delete(ctx context.Context, key string) error
}
