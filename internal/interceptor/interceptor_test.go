package interceptor

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestParseHostPatternWildcard(t *testing.T) {
	p := parseHostPattern("*.github.com")
	if !p.isWildcard || p.host != "github.com" || p.port != 0 {
		t.Fatalf("unexpected parse result: %+v", p)
	}
}

func TestMatchesPatternExactAndWildcard(t *testing.T) {
	exact := parseHostPattern("api.anthropic.com")
	if !matchesPattern(exact, "api.anthropic.com", 443) {
		t.Fatalf("expected exact match on default port")
	}
	if matchesPattern(exact, "api.anthropic.com", 8080) {
		t.Fatalf("expected exact pattern without port to reject non-default ports")
	}

	wildcard := parseHostPattern("*.github.com")
	if !matchesPattern(wildcard, "api.github.com", 443) {
		t.Fatalf("expected wildcard match")
	}
	if matchesPattern(wildcard, "github.com", 443) {
		t.Fatalf("wildcard must not match the bare domain itself")
	}
}

func TestResolverResolvesRegisteredHost(t *testing.T) {
	r := newResolver(map[string]string{"api.anthropic.com": "anthropic"})
	service, ok := r.resolve("api.anthropic.com", 443)
	if !ok || service != "anthropic" {
		t.Fatalf("expected anthropic match, got %q ok=%v", service, ok)
	}
	_, ok = r.resolve("example.com", 443)
	if ok {
		t.Fatalf("expected no match for unregistered host")
	}
}

func TestRewriteMatchedHostRewritesToBrokerAndStripsAuth(t *testing.T) {
	transport := NewInterceptingTransport(
		map[string]string{"api.anthropic.com": "anthropic"},
		BrokerEndpoint{HTTPBaseURL: "http://127.0.0.1:9000", ClientToken: "tok"},
		http.DefaultTransport,
	)

	req, _ := http.NewRequest("POST", "https://api.anthropic.com/v1/messages?x=1", nil)
	req.Header.Set("Authorization", "Bearer leaked")
	req.Header.Set("x-api-key", "leaked-too")

	rewritten, matched := transport.rewrite(req)
	if !matched {
		t.Fatalf("expected host to match")
	}
	if rewritten.URL.String() != "http://127.0.0.1:9000/anthropic/v1/messages?x=1" {
		t.Fatalf("unexpected rewritten URL: %s", rewritten.URL.String())
	}
	if rewritten.Header.Get("Authorization") != "" || rewritten.Header.Get("x-api-key") != "" {
		t.Fatalf("expected auth headers stripped, got %v", rewritten.Header)
	}
	if rewritten.Header.Get("X-Aquaman-Token") != "tok" {
		t.Fatalf("expected client token attached")
	}
}

func TestRewriteSentinelHostPassesPathThrough(t *testing.T) {
	transport := NewInterceptingTransport(
		map[string]string{},
		BrokerEndpoint{HTTPBaseURL: "http://127.0.0.1:9000"},
		http.DefaultTransport,
	)

	req, _ := http.NewRequest("GET", "http://aquaman.local/anthropic/v1/messages", nil)
	rewritten, matched := transport.rewrite(req)
	if !matched {
		t.Fatalf("expected sentinel host to match")
	}
	if rewritten.URL.Path != "/anthropic/v1/messages" {
		t.Fatalf("expected path passthrough, got %s", rewritten.URL.Path)
	}
}

func TestRewriteNonMatchingHostPassesThrough(t *testing.T) {
	transport := NewInterceptingTransport(
		map[string]string{"api.anthropic.com": "anthropic"},
		BrokerEndpoint{HTTPBaseURL: "http://127.0.0.1:9000"},
		http.DefaultTransport,
	)
	req, _ := http.NewRequest("GET", "https://example.com/anything", nil)
	_, matched := transport.rewrite(req)
	if matched {
		t.Fatalf("expected non-matching host to pass through unmodified")
	}
}

func TestInterceptorActivateDeactivateRestoresOriginalTransport(t *testing.T) {
	original := http.DefaultTransport
	client := &http.Client{Transport: original}

	ic := New(client, BrokerEndpoint{HTTPBaseURL: "http://127.0.0.1:9000"})
	ic.Activate(map[string]string{"api.anthropic.com": "anthropic"})
	if !ic.IsActive() {
		t.Fatalf("expected interceptor to report active")
	}
	if client.Transport == original {
		t.Fatalf("expected transport to be replaced")
	}

	ic.Deactivate()
	if ic.IsActive() {
		t.Fatalf("expected interceptor to report inactive")
	}
	if client.Transport != original {
		t.Fatalf("expected transport restored exactly")
	}

	// Deactivate again is a no-op.
	ic.Deactivate()
	if client.Transport != original {
		t.Fatalf("expected repeated Deactivate to remain a no-op")
	}
}

func TestRewrittenRequestRoundTripsThroughFakeBroker(t *testing.T) {
	var gotPath string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	base, err := url.Parse(upstream.URL)
	if err != nil {
		t.Fatalf("parsing upstream URL: %v", err)
	}

	client := &http.Client{Transport: NewInterceptingTransport(
		map[string]string{"api.anthropic.com": "anthropic"},
		BrokerEndpoint{HTTPBaseURL: base.String()},
		http.DefaultTransport,
	)}

	resp, err := client.Get("https://api.anthropic.com/v1/messages")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()
	if gotPath != "/anthropic/v1/messages" {
		t.Fatalf("expected rewritten path to reach fake broker, got %s", gotPath)
	}
}
