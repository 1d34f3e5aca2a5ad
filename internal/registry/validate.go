package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks a single ServiceSpec's internal consistency. It does not
// check for conflicts against other specs in a registry — use
// Registry.validate for that.
func Validate(spec ServiceSpec) error {
	if !validName.MatchString(spec.Name) {
		return fmt.Errorf("service name %q must match %s", spec.Name, validName.String())
	}
	if strings.Contains(spec.Name, "..") {
		return fmt.Errorf("service name %q must not contain \"..\"", spec.Name)
	}

	if spec.AuthMode != None {
		u, err := url.Parse(spec.Upstream)
		if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("service %q: upstream %q must be an absolute http(s) URL", spec.Name, spec.Upstream)
		}
	}

	switch spec.AuthMode {
	case HeaderAuth:
		if spec.AuthHeader == "" || spec.CredentialKey == "" {
			return fmt.Errorf("service %q: header auth requires AuthHeader and CredentialKey", spec.Name)
		}
	case HeaderMulti:
		if spec.AuthHeader == "" || spec.CredentialKey == "" {
			return fmt.Errorf("service %q: header_multi auth requires AuthHeader and CredentialKey", spec.Name)
		}
		for _, h := range spec.ExtraHeaders {
			if h.Header == "" || h.CredentialKey == "" {
				return fmt.Errorf("service %q: extra header pairs require a header name and credential key", spec.Name)
			}
		}
	case UrlPathAuth:
		if spec.CredentialKey == "" {
			return fmt.Errorf("service %q: url_path auth requires CredentialKey", spec.Name)
		}
	case BasicAuth:
		if spec.BasicSIDKey == "" || spec.BasicTokenKey == "" {
			return fmt.Errorf("service %q: basic auth requires BasicSIDKey and BasicTokenKey", spec.Name)
		}
	case None:
		// no credential fields required
	default:
		return fmt.Errorf("service %q: unknown auth mode %q", spec.Name, spec.AuthMode)
	}

	for _, p := range spec.HostPatterns {
		if p == "" {
			return fmt.Errorf("service %q: empty host pattern", spec.Name)
		}
	}

	return nil
}
