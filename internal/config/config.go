package config

import "time"

type Config interface {
	EnvConfig
	SessionConfig
	LinkConfig
	StorageConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	Session
	Link
	Storage
}

func New() Config {
	return mainConfig{}
}
