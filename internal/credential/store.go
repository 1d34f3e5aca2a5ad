// Package credential defines the pluggable secret storage contract the
// broker reads from when injecting auth into proxied requests, plus the
// in-memory and encrypted-file implementations that ship with this module.
package credential

import "context"

// CredentialRef identifies one stored credential by its service and key,
// carrying no secret material — the shape List returns so a caller can
// enumerate what's stored without ever seeing a value.
type CredentialRef struct {
	Service string
	Key     string
}

// Store is implemented by every credential backend. Only Get ever returns
// secret material — List and Exists must not leak values, matching the
// broker's requirement that credentials never appear anywhere but the
// injected request itself.
type Store interface {
	// Get returns the secret value for (service, key).
	// Returns *apperror.CredentialNotFound when absent.
	Get(ctx context.Context, service, key string) (string, error)

	// Set stores or overwrites the secret value for (service, key).
	Set(ctx context.Context, service, key, value string) error

	// Delete removes the secret value for (service, key). Deleting an
	// absent pair is not an error.
	Delete(ctx context.Context, service, key string) error

	// List returns the (service, key) refs stored under service, without
	// values. An empty service lists across every service.
	List(ctx context.Context, service string) ([]CredentialRef, error)

	// Exists reports whether a value is stored for (service, key) without
	// decrypting or returning it.
	Exists(ctx context.Context, service, key string) (bool, error)

	// Probe reports whether the backend is currently usable (reachable
	// keychain, reachable vault, writable directory, ...). Backends that
	// are always available (MemoryStore) return nil unconditionally.
	Probe(ctx context.Context) error
}
