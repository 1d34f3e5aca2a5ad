package broker

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/tech4242/aquaman-broker/internal/apperror"
)

const (
	clientTokenCustomHeader = "X-Aquaman-Token"
	clientTokenAuthHeader   = "Authorization"
	clientTokenAuthPrefix   = "Bearer "
)

// checkClientAuth validates the caller's client-auth token, accepted either
// as X-Aquaman-Token or as Authorization: Bearer <token>, against the
// broker's configured client token. Uses constant-time comparison so a
// timing side-channel can't be used to guess the token. A broker configured
// with no client token (ClientToken == "") accepts every caller — that mode
// only makes sense bound to a loopback-only listener.
func (s *Server) checkClientAuth(r *http.Request) error {
	if s.clientToken == "" {
		return nil
	}

	token, ok := extractClientToken(r)
	if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(s.clientToken)) != 1 {
		return &apperror.ClientAuthFailure{}
	}
	return nil
}

func extractClientToken(r *http.Request) (string, bool) {
	if custom := r.Header.Get(clientTokenCustomHeader); custom != "" {
		return custom, true
	}
	auth := r.Header.Get(clientTokenAuthHeader)
	if !strings.HasPrefix(auth, clientTokenAuthPrefix) {
		return "", false
	}
	return auth[len(clientTokenAuthPrefix):], true
}
