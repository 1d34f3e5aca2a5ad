// Package interceptor implements the client-side fetch interceptor: it
// wraps an agent process's outbound HTTP client so that requests targeting
// a known third-party host are rewritten to go through the broker instead,
// stripped of whatever Authorization/x-api-key headers the agent would
// otherwise have attached itself.
package interceptor

import (
	"strconv"
	"strings"
)

// sentinelHost is reserved to mean "send via the configured broker
// regardless of what DNS would resolve it to" — it lets SDK base-URL
// environment variables (e.g. ANTHROPIC_BASE_URL=http://aquaman.local/anthropic)
// route through the broker without a real DNS entry.
const sentinelHost = "aquaman.local"

// hostPattern is a parsed entry from the registry's host map.
type hostPattern struct {
	pattern    string
	host       string
	port       int // 0 = unspecified, matches only 80/443
	isWildcard bool
}

func parseHostPattern(s string) hostPattern {
	p := hostPattern{pattern: s}

	if strings.HasPrefix(s, "*.") {
		p.isWildcard = true
		s = s[2:]
	}

	host, portStr, hasPort := strings.Cut(s, ":")
	p.host = strings.ToLower(host)
	if hasPort {
		if port, err := strconv.Atoi(portStr); err == nil && port > 0 && port <= 65535 {
			p.port = port
		}
	}
	return p
}

func matchesPattern(pattern hostPattern, host string, port int) bool {
	if pattern.port != 0 {
		if pattern.port != port {
			return false
		}
	} else if port != 80 && port != 443 {
		return false
	}

	if pattern.isWildcard {
		return strings.HasSuffix(strings.ToLower(host), "."+pattern.host)
	}
	return strings.EqualFold(pattern.host, host)
}

// resolver matches a host:port against a registry-provided host map
// (pattern -> service name) and reports the owning service, if any.
type resolver struct {
	patterns []hostPattern
	service  map[string]string // pattern -> service name, keyed by original pattern string
}

// newResolver builds a resolver from the broker's published host map.
func newResolver(hostMap map[string]string) *resolver {
	r := &resolver{service: make(map[string]string, len(hostMap))}
	for pattern, service := range hostMap {
		r.patterns = append(r.patterns, parseHostPattern(pattern))
		r.service[pattern] = service
	}
	return r
}

// resolve returns the service name owning host:port, and ok=true if one
// matched. The sentinel hostname always matches as a special case and is
// reported via the sentinel return value rather than a service name, since
// it carries no implied service — the caller supplies /<service>/... itself.
func (r *resolver) resolve(host string, port int) (service string, ok bool) {
	for _, p := range r.patterns {
		if matchesPattern(p, host, port) {
			return r.service[p.pattern], true
		}
	}
	return "", false
}

func isSentinelHost(host string) bool {
	return strings.EqualFold(host, sentinelHost)
}
