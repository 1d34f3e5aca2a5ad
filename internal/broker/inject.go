package broker

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/tech4242/aquaman-broker/internal/credential"
	"github.com/tech4242/aquaman-broker/internal/registry"
)

// injectAuth rewrites req in place (headers, and for UrlPathAuth the path)
// according to spec's AuthMode, reading whatever credential keys the mode
// needs from store. tailPath is the request path with the leading
// "/<service>" segment already stripped.
func injectAuth(ctx context.Context, req *http.Request, spec registry.ServiceSpec, store credential.Store, tailPath string) error {
	switch spec.AuthMode {
	case registry.HeaderAuth:
		return injectHeaderAuth(ctx, req, spec, store)
	case registry.HeaderMulti:
		return injectHeaderMulti(ctx, req, spec, store)
	case registry.UrlPathAuth:
		return injectURLPathAuth(ctx, req, spec, store, tailPath)
	case registry.BasicAuth:
		return injectBasicAuth(ctx, req, spec, store)
	default:
		// registry.None never reaches here — the handler rejects it with
		// LiveAccessDisabled before injection is attempted.
		return nil
	}
}

func injectHeaderAuth(ctx context.Context, req *http.Request, spec registry.ServiceSpec, store credential.Store) error {
	secret, err := store.Get(ctx, spec.Name, spec.CredentialKey)
	if err != nil {
		return err
	}
	req.Header.Set(spec.AuthHeader, spec.AuthPrefix+secret)
	return nil
}

func injectHeaderMulti(ctx context.Context, req *http.Request, spec registry.ServiceSpec, store credential.Store) error {
	secret, err := store.Get(ctx, spec.Name, spec.CredentialKey)
	if err != nil {
		return err
	}
	req.Header.Set(spec.AuthHeader, spec.AuthPrefix+secret)

	for _, extra := range spec.ExtraHeaders {
		value, err := store.Get(ctx, spec.Name, extra.CredentialKey)
		if err != nil {
			return err
		}
		req.Header.Set(extra.Header, value)
	}
	return nil
}

func injectURLPathAuth(ctx context.Context, req *http.Request, spec registry.ServiceSpec, store credential.Store, tailPath string) error {
	secret, err := store.Get(ctx, spec.Name, spec.CredentialKey)
	if err != nil {
		return err
	}
	tailPath = strings.TrimPrefix(tailPath, "/")
	req.URL.Path = "/" + spec.URLPrefix + secret + "/" + tailPath
	req.URL.RawPath = ""
	return nil
}

func injectBasicAuth(ctx context.Context, req *http.Request, spec registry.ServiceSpec, store credential.Store) error {
	sid, err := store.Get(ctx, spec.Name, spec.BasicSIDKey)
	if err != nil {
		return err
	}
	token, err := store.Get(ctx, spec.Name, spec.BasicTokenKey)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(sid + ":" + token))
	req.Header.Set("Authorization", "Basic "+encoded)
	return nil
}
