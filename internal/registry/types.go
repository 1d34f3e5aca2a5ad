// Package registry holds the ServiceSpec catalogue the broker routes
// requests against: the mapping from a path-prefix service name to an
// upstream URL, an auth-injection recipe, and the host patterns the fetch
// interceptor uses to recognize traffic meant for that service.
package registry

// AuthMode selects how the broker injects a credential into a proxied
// request.
type AuthMode string

const (
	// HeaderAuth sets a single header to AuthPrefix + the credential value.
	HeaderAuth AuthMode = "header"
	// UrlPathAuth rewrites the request path to
	// "/" + URLPrefix + secret + "/" + remainingPath.
	UrlPathAuth AuthMode = "url_path"
	// BasicAuth sets the Authorization header to
	// "Basic " + base64(sid + ":" + token) from two credential keys.
	BasicAuth AuthMode = "basic"
	// HeaderMulti behaves like HeaderAuth but also attaches a fixed set of
	// extra header pairs sourced from additional stored credential keys.
	HeaderMulti AuthMode = "header_multi"
	// None marks a service registered for at-rest bookkeeping only; any
	// live request to it is rejected with 400.
	None AuthMode = "none"
)

// ExtraHeader is one (header name, credential key) pair HeaderMulti
// services attach in addition to their primary auth header.
type ExtraHeader struct {
	Header        string
	CredentialKey string
}

// ServiceSpec is the recipe for one broker-routable service.
type ServiceSpec struct {
	// Name must match [A-Za-z0-9_-]+ and contains no "/", ".", "..", or
	// URL-encoded/control characters. It is the first path segment of
	// every request routed to this service.
	Name string

	// Upstream is the absolute http(s) URL requests are forwarded to.
	Upstream string

	AuthMode AuthMode

	// AuthHeader/AuthPrefix/CredentialKey apply to HeaderAuth and
	// HeaderMulti.
	AuthHeader    string
	AuthPrefix    string
	CredentialKey string

	// ExtraHeaders applies to HeaderMulti only.
	ExtraHeaders []ExtraHeader

	// URLPrefix/CredentialKey (reused) apply to UrlPathAuth: the secret is
	// spliced into the path as "/" + URLPrefix + secret + "/" + rest.
	URLPrefix string

	// BasicSIDKey/BasicTokenKey apply to BasicAuth: the Authorization
	// header becomes "Basic " + base64(sid + ":" + token).
	BasicSIDKey   string
	BasicTokenKey string

	// HostPatterns are the hostnames (exact or "*.domain.tld" wildcard)
	// the fetch interceptor recognizes as belonging to this service.
	HostPatterns []string
}

// CredentialKeys returns every credential-store key this spec's auth mode
// reads from, in a stable order.
func (s ServiceSpec) CredentialKeys() []string {
	switch s.AuthMode {
	case HeaderAuth, UrlPathAuth:
		return []string{s.CredentialKey}
	case HeaderMulti:
		keys := []string{s.CredentialKey}
		for _, h := range s.ExtraHeaders {
			keys = append(keys, h.CredentialKey)
		}
		return keys
	case BasicAuth:
		return []string{s.BasicSIDKey, s.BasicTokenKey}
	default:
		return nil
	}
}
