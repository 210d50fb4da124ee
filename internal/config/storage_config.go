package config

type StorageConfig interface {
	GetCredentialBackend() string
	GetCredentialDir() string
	GetCredentialService() string
	GetCredentialAccount() string
	GetRedisAddr() string
}

const (
	CredentialBackendFile   = "file"
	CredentialBackendMemory = "memory"
	CredentialBackendRedis  = "redis"
)

type Storage struct{}

var _ StorageConfig = Storage{}

// GetCredentialBackend is one of "file", "memory" or "redis".
func (Storage) GetCredentialBackend() string {
	return GetEnv("CREDENTIAL_BACKEND", CredentialBackendFile)
}

func (Storage) GetCredentialDir() string {
	return GetEnv("CREDENTIAL_DIR", "./data")
}

func (Storage) GetCredentialService() string {
	return "com.saverr.app"
}

func (Storage) GetCredentialAccount() string {
	return "auth_tokens"
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}
