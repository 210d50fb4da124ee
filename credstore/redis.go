package credstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

// RedisStore keeps the credential as a JSON value under "<service>:<account>".
// No TTL is set; an expired credential remains readable for the refresh path.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

func NewRedisStore(client redis.UniversalClient, key Key) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("[NewRedisStore] client is required")
	}
	if key.Service == "" || key.Account == "" {
		return nil, errors.New("[NewRedisStore] service and account are required")
	}
	return &RedisStore{client: client, key: fmt.Sprintf("%s:%s", key.Service, key.Account)}, nil
}

func (s *RedisStore) Load(ctx context.Context) (*StoredCredential, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "[RedisStore.Load] load credential")
	}
	var c StoredCredential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "[RedisStore.Load] decode credential")
	}
	return &c, nil
}

func (s *RedisStore) Save(ctx context.Context, credential *StoredCredential) error {
	payload, err := json.Marshal(credential)
	if err != nil {
		return errors.Wrap(err, "[RedisStore.Save] marshal credential")
	}
	if err := s.client.Set(ctx, s.key, payload, 0).Err(); err != nil {
		return errors.Wrap(err, "[RedisStore.Save] persist credential")
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && err != redis.Nil {
		return errors.Wrap(err, "[RedisStore.Delete] delete credential")
	}
	return nil
}
