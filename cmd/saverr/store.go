package main

import (
	"fmt"

	"github.com/jrsteele09/go-saverr/credstore"
	"github.com/jrsteele09/go-saverr/internal/config"
	"github.com/redis/go-redis/v9"
)

// openStore returns the configured credential store and a func releasing its resources.
func openStore(c config.StorageConfig) (credstore.Store, func() error, error) {
	key := credstore.Key{Service: c.GetCredentialService(), Account: c.GetCredentialAccount()}
	noop := func() error { return nil }

	switch c.GetCredentialBackend() {
	case config.CredentialBackendFile:
		store, err := credstore.NewFileStore(c.GetCredentialDir(), key)
		if err != nil {
			return nil, nil, err
		}
		return store, noop, nil
	case config.CredentialBackendMemory:
		return credstore.NewMemoryStore(), noop, nil
	case config.CredentialBackendRedis:
		client := redis.NewClient(&redis.Options{Addr: c.GetRedisAddr()})
		store, err := credstore.NewRedisStore(client, key)
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return store, client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown credential backend %q", c.GetCredentialBackend())
}
