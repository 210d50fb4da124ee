package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	portEnvVar        = "PORT"
	appNameVar        = "APP_NAME"
	baseURLVar        = "API_BASE_URL"
	httpTimeoutEnvVar = "HTTP_TIMEOUT"
	logLevelEnvVar    = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

// GetPort is the listen address used by the mock backend.
func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if port[0] != ':' {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Saverr")
}

// GetAPIBaseURL returns the backend base URL every endpoint path is appended to
// (e.g., "https://api.example.com/dev").
func (EnvVars) GetAPIBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetHTTPTimeout() time.Duration {
	return GetDurationEnv(httpTimeoutEnvVar, 30*time.Second)
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelEnvVar, "info")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return env
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses values like "90s" or "5m"; unparsable values fall back to the default.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}

func GetIntEnv(envVar string, defaultValue int) int {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}
