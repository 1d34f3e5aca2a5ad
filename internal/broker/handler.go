package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/tech4242/aquaman-broker/internal/apperror"
	"github.com/tech4242/aquaman-broker/internal/audit"
	"github.com/tech4242/aquaman-broker/internal/log"
	"github.com/tech4242/aquaman-broker/internal/registry"
)

// sessionIDHeader/agentIDHeader let an agent-facing caller attach the
// opaque session/agent identifiers that flow into every audit entry this
// request produces. Both are optional; an absent header yields "".
const (
	sessionIDHeader = "X-Aquaman-Session-Id"
	agentIDHeader   = "X-Aquaman-Agent-Id"
)

func (s *Server) routeRequest(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/_health" {
		s.handleHealth(w, r)
		return
	}
	if r.URL.Path == "/_hostmap" {
		s.handleHostMap(w, r)
		return
	}

	if err := s.checkClientAuth(r); err != nil {
		s.recordPolicyViolation(r.Context(), r, "client authentication failed")
		writeError(w, err)
		return
	}

	service, tail, err := s.splitServicePath(r.URL.Path)
	if err != nil {
		writeError(w, err)
		return
	}

	spec, ok := s.registry.Get(service)
	if !ok {
		writeError(w, &apperror.UnknownService{Service: service})
		return
	}
	if spec.AuthMode == registry.None {
		writeError(w, &apperror.LiveAccessDisabled{Service: service})
		return
	}

	s.proxyToUpstream(w, r, spec, tail)
}

// splitServicePath splits "/<service>/<tail...>" into the service name and
// the remaining tail path (always starting with "/", possibly just "/"),
// and rejects names failing the charset check or absent from the
// configured allow-list (when one is configured).
func (s *Server) splitServicePath(path string) (service, tail string, err error) {
	trimmed := strings.TrimPrefix(path, "/")
	idx := strings.IndexByte(trimmed, '/')
	if idx < 0 {
		service, tail = trimmed, "/"
	} else {
		service, tail = trimmed[:idx], trimmed[idx:]
	}
	if service == "" || !serviceNamePattern.MatchString(service) || strings.Contains(service, "..") {
		return "", "", &apperror.InvalidServiceName{Raw: service}
	}
	if len(s.allowedServices) > 0 && !s.allowedServices[service] {
		return "", "", &apperror.UnknownService{Service: service}
	}
	return service, tail, nil
}

func (s *Server) proxyToUpstream(w http.ResponseWriter, r *http.Request, spec registry.ServiceSpec, tailPath string) {
	ctx := r.Context()
	sessionID := r.Header.Get(sessionIDHeader)
	agentID := r.Header.Get(agentIDHeader)

	outbound, err := buildUpstreamRequest(ctx, r, spec, tailPath)
	if err != nil {
		s.recordCredentialAccess(ctx, sessionID, agentID, spec.Name, false, err.Error())
		writeError(w, err)
		return
	}

	if err := injectAuth(ctx, outbound, spec, s.store, tailPath); err != nil {
		s.recordCredentialAccess(ctx, sessionID, agentID, spec.Name, false, err.Error())
		writeError(w, err)
		return
	}

	if err := forwardRequest(w, outbound, spec, s.transport); err != nil {
		if errCanceled(ctx) {
			s.recordCredentialAccess(ctx, sessionID, agentID, spec.Name, false, "client_cancelled")
			return
		}
		s.recordCredentialAccess(ctx, sessionID, agentID, spec.Name, false, err.Error())
		writeError(w, err)
		return
	}

	s.recordCredentialAccess(ctx, sessionID, agentID, spec.Name, true, "")
}

func errCanceled(ctx context.Context) bool {
	return ctx.Err() == context.Canceled
}

func (s *Server) recordCredentialAccess(ctx context.Context, sessionID, agentID, service string, success bool, errMsg string) {
	if s.auditLogger == nil {
		return
	}
	_, err := s.auditLogger.Append(audit.CredentialAccess, sessionID, agentID, audit.CredentialAccessData{
		Service:   service,
		Operation: audit.OpRead,
		Success:   success,
		Error:     errMsg,
	})
	if err != nil {
		log.Error("failed to append credential_access audit entry", "service", service, "error", err)
	}
}

func (s *Server) recordPolicyViolation(ctx context.Context, r *http.Request, reason string) {
	if s.auditLogger == nil {
		return
	}
	sessionID := r.Header.Get(sessionIDHeader)
	agentID := r.Header.Get(agentIDHeader)
	_, err := s.auditLogger.Append(audit.PolicyViolation, sessionID, agentID, map[string]any{
		"path":   r.URL.Path,
		"reason": reason,
	})
	if err != nil {
		log.Error("failed to append policy_violation audit entry", "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	specs := s.registry.All()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"uptime":   s.uptime().String(),
		"services": names,
	})
}

func (s *Server) handleHostMap(w http.ResponseWriter, r *http.Request) {
	if err := s.checkClientAuth(r); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.registry.HostMap())
}
