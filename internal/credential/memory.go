package credential

import (
	"context"
	"sync"

	"github.com/tech4242/aquaman-broker/internal/apperror"
)

// MemoryStore is an in-process, non-persistent Store, intended for tests
// and embedded/ephemeral deployments only.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(_ context.Context, service, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.values[service]
	if !ok {
		return "", &apperror.CredentialNotFound{Service: service, Key: key}
	}
	v, ok := keys[key]
	if !ok {
		return "", &apperror.CredentialNotFound{Service: service, Key: key}
	}
	return v, nil
}

func (s *MemoryStore) Set(_ context.Context, service, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[service] == nil {
		s.values[service] = make(map[string]string)
	}
	s.values[service][key] = value
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if keys, ok := s.values[service]; ok {
		delete(keys, key)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, service string) ([]CredentialRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if service != "" {
		var out []CredentialRef
		for k := range s.values[service] {
			out = append(out, CredentialRef{Service: service, Key: k})
		}
		return out, nil
	}

	var out []CredentialRef
	for svc, keys := range s.values {
		for k := range keys {
			out = append(out, CredentialRef{Service: svc, Key: k})
		}
	}
	return out, nil
}

func (s *MemoryStore) Exists(_ context.Context, service, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.values[service]
	if !ok {
		return false, nil
	}
	_, ok = keys[key]
	return ok, nil
}

func (s *MemoryStore) Probe(context.Context) error { return nil }
