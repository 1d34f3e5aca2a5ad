package broker

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/tech4242/aquaman-broker/internal/audit"
	"github.com/tech4242/aquaman-broker/internal/config"
	"github.com/tech4242/aquaman-broker/internal/credential"
	"github.com/tech4242/aquaman-broker/internal/registry"
)

func newTestRegistry(t *testing.T, specs ...registry.ServiceSpec) *registry.Registry {
	t.Helper()
	// Registry.New always loads the built-in catalogue; tests assert
	// against specific service names from it plus any overlay-equivalent
	// specs passed here by constructing a registry and verifying directly.
	reg, err := registry.New("")
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	return reg
}

func newTestServer(t *testing.T, store credential.Store) (*Server, *httptest.Server) {
	t.Helper()
	reg := newTestRegistry(t)
	dir := t.TempDir()
	auditLogger, err := audit.Open(dir)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	t.Cleanup(func() { auditLogger.Close() })

	s := New(config.Config{UpstreamConnectTimeout: 0}, reg, store, auditLogger)
	// UpstreamConnectTimeout of 0 would build an unusable transport; tests
	// that hit a real upstream override it below via redirecting upstream.
	ts := httptest.NewServer(http.HandlerFunc(s.routeRequest))
	t.Cleanup(ts.Close)
	return s, ts
}

func TestHealthRequiresNoAuth(t *testing.T) {
	_, ts := newTestServer(t, credential.NewMemoryStore())
	resp, err := http.Get(ts.URL + "/_health")
	if err != nil {
		t.Fatalf("GET /_health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestUnknownServiceReturns404(t *testing.T) {
	_, ts := newTestServer(t, credential.NewMemoryStore())
	resp, err := http.Get(ts.URL + "/does-not-exist/x")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLiveAccessDisabledForNoneAuthMode(t *testing.T) {
	_, ts := newTestServer(t, credential.NewMemoryStore())
	resp, err := http.Get(ts.URL + "/internal-vault/whatever")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestMissingCredentialReturns401WithFix(t *testing.T) {
	_, ts := newTestServer(t, credential.NewMemoryStore())
	resp, err := http.Get(ts.URL + "/anthropic/v1/messages")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Fix == "" {
		t.Fatalf("expected a fix hint in the 401 body")
	}
}

func TestClientAuthFailureReturns403PlainForbidden(t *testing.T) {
	store := credential.NewMemoryStore()
	reg, err := registry.New("")
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	dir := t.TempDir()
	auditLogger, err := audit.Open(dir)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	defer auditLogger.Close()

	s := New(config.Config{ClientToken: "secret-token"}, reg, store, auditLogger)
	ts := httptest.NewServer(http.HandlerFunc(s.routeRequest))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/anthropic/v1/messages")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	if string(bodyBytes) != "Forbidden" {
		t.Fatalf("expected exact body %q, got %q", "Forbidden", string(bodyBytes))
	}
}

func TestAnthropicHeaderAuthInjectsAPIKey(t *testing.T) {
	var gotHeader, gotAuth string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("x-api-key")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	store := credential.NewMemoryStore()
	if err := store.Set(context.Background(), "anthropic", "api_key", "sk-ant-TEST"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reg, err := registry.New("")
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	// Point the built-in anthropic spec at our test upstream by overlaying
	// a registry entry with the same name (override-by-name semantics).
	overlayPath := writeOverlay(t, upstream.URL)
	reg, err = registry.New(overlayPath)
	if err != nil {
		t.Fatalf("registry.New with overlay: %v", err)
	}

	dir := t.TempDir()
	auditLogger, err := audit.Open(dir)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	defer auditLogger.Close()

	s := New(config.Config{UpstreamConnectTimeout: 1e9}, reg, store, auditLogger)
	ts := httptest.NewServer(http.HandlerFunc(s.routeRequest))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/anthropic/v1/messages", "application/json", nil)
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if gotHeader != "sk-ant-TEST" {
		t.Fatalf("expected injected x-api-key, got %q", gotHeader)
	}
	if gotAuth != "" {
		t.Fatalf("expected no Authorization header forwarded, got %q", gotAuth)
	}

	entries, err := auditLogger.GetEntries()
	if err != nil {
		t.Fatalf("GetEntries: %v", err)
	}
	found := false
	for _, e := range entries {
		if e.Type == audit.CredentialAccess {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a credential_access audit entry")
	}
}

func TestClientAuthHeadersNeverReachUpstream(t *testing.T) {
	var gotAuth, gotToken, gotAPIKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotToken = r.Header.Get("X-Aquaman-Token")
		gotAPIKey = r.Header.Get("x-api-key")
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	store := credential.NewMemoryStore()
	if err := store.Set(context.Background(), "anthropic", "api_key", "sk-ant-TEST"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	overlayPath := writeOverlay(t, upstream.URL)
	reg, err := registry.New(overlayPath)
	if err != nil {
		t.Fatalf("registry.New with overlay: %v", err)
	}

	dir := t.TempDir()
	auditLogger, err := audit.Open(dir)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}
	defer auditLogger.Close()

	s := New(config.Config{UpstreamConnectTimeout: 1e9, ClientToken: "broker-secret"}, reg, store, auditLogger)
	ts := httptest.NewServer(http.HandlerFunc(s.routeRequest))
	defer ts.Close()

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/anthropic/v1/messages", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("X-Aquaman-Token", "broker-secret")
	req.Header.Set("Authorization", "Bearer agent-own-token")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	if gotAuth != "" {
		t.Fatalf("expected no Authorization header forwarded upstream, got %q", gotAuth)
	}
	if gotToken != "" {
		t.Fatalf("expected no X-Aquaman-Token header forwarded upstream, got %q", gotToken)
	}
	if gotAPIKey != "sk-ant-TEST" {
		t.Fatalf("expected the injected x-api-key to still reach upstream, got %q", gotAPIKey)
	}
}

func writeOverlay(t *testing.T, upstreamURL string) string {
	t.Helper()
	path := t.TempDir() + "/services.yaml"
	content := `
services:
  - name: anthropic
    upstream: ` + upstreamURL + `
    auth_mode: header
    auth_header: x-api-key
    credential_key: api_key
    host_patterns: ["api.anthropic.com"]
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing overlay: %v", err)
	}
	return path
}
