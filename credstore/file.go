package credstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var _ Store = (*FileStore)(nil)

// FileStore keeps the credential as JSON in <dir>/<service>/<account>.json with owner-only permissions.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(dir string, key Key) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("[NewFileStore] dir is required")
	}
	if key.Service == "" || key.Account == "" {
		return nil, errors.New("[NewFileStore] service and account are required")
	}
	return &FileStore{path: filepath.Join(dir, key.Service, key.Account+".json")}, nil
}

func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(_ context.Context) (*StoredCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "[FileStore.Load] os.ReadFile")
	}
	var c StoredCredential
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "[FileStore.Load] json.Unmarshal")
	}
	return &c, nil
}

// Save writes to a temp file in the same directory and renames it over the slot.
func (s *FileStore) Save(_ context.Context, credential *StoredCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(credential)
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] json.Marshal")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[FileStore.Save] os.MkdirAll")
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return errors.Wrap(err, "[FileStore.Save] os.CreateTemp")
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.Save] Chmod")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[FileStore.Save] Write")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[FileStore.Save] Close")
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return errors.Wrap(err, "[FileStore.Save] os.Rename")
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[FileStore.Delete] os.Remove")
	}
	return nil
}
