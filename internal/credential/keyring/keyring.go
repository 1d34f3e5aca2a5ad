// Package keyring implements the process-keyed CredentialStore variant,
// backed by the host OS's secure keychain (macOS Keychain, Windows
// Credential Manager, or libsecret/kwallet on Linux via go-keyring).
//
// Platform requirements mirror the go-keyring library: headless Linux
// hosts without a secret-service provider have no working backend. Rather
// than silently falling back to file storage (the credential.EncryptedFileStore
// already covers that case), Store.Probe reports BackendUnavailable so the
// caller can choose a different backend explicitly.
package keyring

import (
	"context"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/tech4242/aquaman-broker/internal/apperror"
	"github.com/tech4242/aquaman-broker/internal/credential"
)

// serviceNamespace is the go-keyring "service" value entries are stored
// under. Account names are namespaced as "aquaman/<service>/<key>" so a
// single keychain service entry can't collide across broker services.
const serviceNamespace = "aquaman"

// Store implements credential.Store over the OS keychain.
type Store struct{}

// NewStore returns a keychain-backed Store.
func NewStore() *Store {
	return &Store{}
}

func account(service, key string) string {
	return fmt.Sprintf("%s/%s", service, key)
}

func (s *Store) Get(_ context.Context, service, key string) (string, error) {
	v, err := keyring.Get(serviceNamespace, account(service, key))
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", &apperror.CredentialNotFound{Service: service, Key: key}
		}
		return "", &apperror.BackendUnavailable{Backend: "process-keyed", Reason: err.Error()}
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, service, key, value string) error {
	if err := keyring.Set(serviceNamespace, account(service, key), value); err != nil {
		return &apperror.BackendUnavailable{Backend: "process-keyed", Reason: err.Error()}
	}
	return nil
}

func (s *Store) Delete(_ context.Context, service, key string) error {
	if err := keyring.Delete(serviceNamespace, account(service, key)); err != nil && err != keyring.ErrNotFound {
		return &apperror.BackendUnavailable{Backend: "process-keyed", Reason: err.Error()}
	}
	return nil
}

// List is unsupported: go-keyring exposes no enumeration API on most
// platforms. Callers that need listing should track known keys themselves
// or use EncryptedFileStore instead.
func (s *Store) List(context.Context, string) ([]credential.CredentialRef, error) {
	return nil, &apperror.BackendUnavailable{Backend: "process-keyed", Reason: "key enumeration is not supported by the OS keychain backend"}
}

func (s *Store) Exists(ctx context.Context, service, key string) (bool, error) {
	_, err := keyring.Get(serviceNamespace, account(service, key))
	if err == nil {
		return true, nil
	}
	if err == keyring.ErrNotFound {
		return false, nil
	}
	return false, &apperror.BackendUnavailable{Backend: "process-keyed", Reason: err.Error()}
}

// Probe performs a throwaway set/get/delete cycle to confirm the OS
// keychain is reachable on this host.
func (s *Store) Probe(ctx context.Context) error {
	const probeService, probeKey = "__probe__", "__probe__"
	if err := s.Set(ctx, probeService, probeKey, "probe"); err != nil {
		return &apperror.BackendUnavailable{Backend: "process-keyed", Reason: err.Error()}
	}
	_ = s.Delete(ctx, probeService, probeKey)
	return nil
}
