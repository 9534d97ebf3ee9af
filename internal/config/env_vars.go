package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	appNameVar    = "APP_NAME"
	envVar        = "ENV"
	logLevelVar   = "LOG_LEVEL"
	folderEnvVar  = "FOLDER"
	devAPIPortVar = "DEV_API_PORT"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Client")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

// GetLogLevel returns a zerolog level name (trace, debug, info, warn, error).
func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetDataFolder is where the file token repo keeps its entries.
func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, defaultDataFolder())
}

func (EnvVars) GetDevAPIPort() string {
	port := GetEnv(devAPIPortVar, "3100")
	if port != "" && port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func defaultDataFolder() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return dir + string(os.PathSeparator) + "go-auth-client"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetEnvInt falls back to defaultValue when the variable is unset or not a number.
func GetEnvInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(envVar))
	if err != nil {
		return defaultValue
	}
	return value
}

// GetEnvDuration accepts time.ParseDuration syntax ("10s", "1m").
func GetEnvDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(envVar))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
