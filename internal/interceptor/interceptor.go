package interceptor

import (
	"net/http"
	"sync"
)

// HTTPClient is the minimal surface the agent's outbound call sites need.
// *http.Client already satisfies it; the interceptor targets this
// abstraction rather than reassigning a process-global client, so call
// sites can depend on an interface instead of a concrete, swappable global.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Interceptor wraps an *http.Client, replacing its Transport with an
// InterceptingTransport while active and restoring the original Transport
// exactly on Deactivate. Activate/Deactivate are idempotent.
type Interceptor struct {
	mu       sync.Mutex
	client   *http.Client
	original http.RoundTripper
	active   bool
	endpoint BrokerEndpoint
}

// New builds an Interceptor bound to client (must be non-nil; callers
// typically pass their agent's shared *http.Client) and endpoint, the
// broker's reachable address.
func New(client *http.Client, endpoint BrokerEndpoint) *Interceptor {
	return &Interceptor{client: client, endpoint: endpoint}
}

// Activate installs the intercepting transport. Calling Activate while
// already active is a no-op.
func (i *Interceptor) Activate(hostMap map[string]string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.active {
		return
	}
	i.original = i.client.Transport
	i.client.Transport = NewInterceptingTransport(hostMap, i.endpoint, i.original)
	i.active = true
}

// Deactivate restores the client's original Transport exactly as it was
// before Activate. Calling Deactivate while not active is a no-op.
func (i *Interceptor) Deactivate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.active {
		return
	}
	i.client.Transport = i.original
	i.original = nil
	i.active = false
}

// IsActive reports whether the interceptor currently owns the client's
// Transport.
func (i *Interceptor) IsActive() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.active
}

// UpdateHostMap pushes a new host map into the active intercepting
// transport, if one is installed. A no-op when inactive.
func (i *Interceptor) UpdateHostMap(hostMap map[string]string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.active {
		return
	}
	if it, ok := i.client.Transport.(*InterceptingTransport); ok {
		it.UpdateHostMap(hostMap)
	}
}
