package credential

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/tech4242/aquaman-broker/internal/apperror"
	"github.com/tech4242/aquaman-broker/internal/cryptoutil"
	"github.com/tech4242/aquaman-broker/internal/log"
)

// EncryptedFileStore persists all credentials in a single AES-256-GCM
// encrypted file, keyed by a password-derived key (PBKDF2-HMAC-SHA256,
// 600,000 iterations, fresh salt per write). The whole map is re-encrypted
// on every mutation and written atomically via temp-file-then-rename, the
// same pattern the teacher's FileStore uses for its per-credential files.
//
// A single mutex serializes in-process concurrent access; concurrent
// mutation from another process is last-write-wins and out of scope.
type EncryptedFileStore struct {
	path     string
	password string

	mu     sync.Mutex
	cache  map[string]map[string]string
	loaded bool
}

// NewEncryptedFileStore returns a store backed by the encrypted file at
// path, using password to derive the encryption key. The file is created
// lazily on first write; reads against a missing file behave as if the
// store were empty.
func NewEncryptedFileStore(path, password string) (*EncryptedFileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating credential store dir: %w", err)
	}
	return &EncryptedFileStore{path: path, password: password}, nil
}

// ensureLoaded lazily decrypts the on-disk file into the in-memory cache.
// Must be called with s.mu held.
func (s *EncryptedFileStore) ensureLoaded() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.cache = make(map[string]map[string]string)
		s.loaded = true
		return nil
	}
	if err != nil {
		return &apperror.IoError{Op: "read credential store", Cause: err}
	}

	plaintext, err := cryptoutil.DecryptWithPassword(string(data), s.password)
	if err != nil {
		return err
	}

	var cache map[string]map[string]string
	if err := json.Unmarshal(plaintext, &cache); err != nil {
		return &apperror.InvalidFormat{Reason: "decrypted payload is not valid JSON"}
	}

	s.cache = cache
	s.loaded = true
	return nil
}

// persistLocked re-encrypts the full in-memory cache and atomically
// replaces the on-disk file. Must be called with s.mu held.
func (s *EncryptedFileStore) persistLocked() error {
	plaintext, err := json.Marshal(s.cache)
	if err != nil {
		return fmt.Errorf("marshaling credential store: %w", err)
	}

	tuple, err := cryptoutil.EncryptWithPassword(plaintext, s.password)
	if err != nil {
		return fmt.Errorf("encrypting credential store: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".aquaman-credstore-*.tmp")
	if err != nil {
		return &apperror.IoError{Op: "create temp credential file", Cause: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(tuple); err != nil {
		tmp.Close()
		return &apperror.IoError{Op: "write temp credential file", Cause: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return &apperror.IoError{Op: "fsync temp credential file", Cause: err}
	}
	if err := tmp.Close(); err != nil {
		return &apperror.IoError{Op: "close temp credential file", Cause: err}
	}
	if err := os.Chmod(tmpPath, 0600); err != nil {
		return &apperror.IoError{Op: "chmod temp credential file", Cause: err}
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		return &apperror.IoError{Op: "rename credential file into place", Cause: err}
	}
	return nil
}

func (s *EncryptedFileStore) Get(_ context.Context, service, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return "", err
	}
	keys, ok := s.cache[service]
	if !ok {
		return "", &apperror.CredentialNotFound{Service: service, Key: key}
	}
	v, ok := keys[key]
	if !ok {
		return "", &apperror.CredentialNotFound{Service: service, Key: key}
	}
	return v, nil
}

func (s *EncryptedFileStore) Set(_ context.Context, service, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if s.cache[service] == nil {
		s.cache[service] = make(map[string]string)
	}
	s.cache[service][key] = value
	return s.persistLocked()
}

func (s *EncryptedFileStore) Delete(_ context.Context, service, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	if keys, ok := s.cache[service]; ok {
		if _, existed := keys[key]; !existed {
			return nil
		}
		delete(keys, key)
		return s.persistLocked()
	}
	return nil
}

func (s *EncryptedFileStore) List(_ context.Context, service string) ([]CredentialRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}

	if service != "" {
		var out []CredentialRef
		for k := range s.cache[service] {
			out = append(out, CredentialRef{Service: service, Key: k})
		}
		return out, nil
	}

	var out []CredentialRef
	for svc, keys := range s.cache {
		for k := range keys {
			out = append(out, CredentialRef{Service: svc, Key: k})
		}
	}
	return out, nil
}

func (s *EncryptedFileStore) Exists(_ context.Context, service, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return false, err
	}
	keys, ok := s.cache[service]
	if !ok {
		return false, nil
	}
	_, ok = keys[key]
	return ok, nil
}

// Probe verifies the store directory is writable and, if the file already
// exists, that it decrypts under the configured password.
func (s *EncryptedFileStore) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		log.Warn("encrypted credential store probe failed", "path", s.path, "error", err)
		return &apperror.BackendUnavailable{Backend: "encrypted-file", Reason: err.Error()}
	}
	return nil
}
