package config

const (
	TokenStoreFile   = "file"
	TokenStoreMemory = "memory"
	TokenStoreRedis  = "redis"
)

type StorageConfig interface {
	GetTokenStore() string
	GetStorageKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetTokenStore() string {
	return GetEnv("TOKEN_STORE", TokenStoreFile)
}

// GetStorageKey is the single key the token pair lives under.
func (Storage) GetStorageKey() string {
	return GetEnv("STORAGE_KEY", "auth")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}
