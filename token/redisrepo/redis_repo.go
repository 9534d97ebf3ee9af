package redisrepo

import (
	"context"
	"errors"
	"fmt"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/redis/go-redis/v9"
)

var _ token.Repo = (*RedisRepo)(nil)

// DefaultPrefix namespaces token keys inside a shared Redis database.
const DefaultPrefix = "authclient:"

// RedisRepo shares one token pair between every process pointed at the same
// Redis. Entries have no TTL: the pair lives until sign out or a failed refresh.
type RedisRepo struct {
	client *redis.Client
	prefix string
}

// RedisRepoOption configures a RedisRepo instance.
type RedisRepoOption func(*RedisRepo)

func WithPrefix(prefix string) RedisRepoOption {
	return func(r *RedisRepo) {
		r.prefix = prefix
	}
}

func New(client *redis.Client, opts ...RedisRepoOption) *RedisRepo {
	r := &RedisRepo{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Connect dials Redis and verifies the connection with a PING.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("[redisrepo Connect] ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisRepo) key(key string) string {
	return r.prefix + key
}

func (r *RedisRepo) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", autherrors.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[redisrepo Get] %w", err)
	}
	return val, nil
}

func (r *RedisRepo) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("[redisrepo Set] %w", err)
	}
	return nil
}

func (r *RedisRepo) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("[redisrepo Delete] %w", err)
	}
	return nil
}
