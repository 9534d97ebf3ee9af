package config

type Config interface {
	EnvConfig
	APIConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetDevAPIPort() string
}

type mainConfig struct {
	EnvVars
	API
	Storage
}

func New() Config {
	return mainConfig{}
}
