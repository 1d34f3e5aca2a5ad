// Package broker implements the credential proxy server: the hot path that
// authenticates an agent-facing caller, resolves a ServiceSpec, injects the
// matching upstream credential, streams the response, and records an audit
// entry — the component spec.md weights at 30% of the system.
package broker

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"regexp"
	"time"

	"github.com/tech4242/aquaman-broker/internal/audit"
	"github.com/tech4242/aquaman-broker/internal/config"
	"github.com/tech4242/aquaman-broker/internal/credential"
	"github.com/tech4242/aquaman-broker/internal/registry"
)

// Version is the broker's own version string, reported in /_health and the
// startup handshake.
const Version = "0.1.0"

var serviceNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Server is the credential proxy's HTTP server. It is not itself an
// http.Handler — ServeHTTP delegates to routeRequest so the hot-path logic
// in handler.go stays unit-testable without a real listener.
type Server struct {
	registry    *registry.Registry
	store       credential.Store
	auditLogger *audit.Logger
	transport   http.RoundTripper

	clientToken     string
	allowedServices map[string]bool

	httpServer *http.Server
	startedAt  time.Time
}

// New builds a Server from a resolved Config, registry, store, and audit
// logger. The caller owns the lifetime of store and auditLogger (Close them
// after the server shuts down).
func New(cfg config.Config, reg *registry.Registry, store credential.Store, auditLogger *audit.Logger) *Server {
	allowed := make(map[string]bool, len(cfg.AllowedServices))
	for _, name := range cfg.AllowedServices {
		allowed[name] = true
	}

	s := &Server{
		registry:        reg,
		store:           store,
		auditLogger:     auditLogger,
		transport:       newUpstreamTransport(cfg.UpstreamConnectTimeout),
		clientToken:     cfg.ClientToken,
		allowedServices: allowed,
		startedAt:       time.Now(),
	}
	s.httpServer = &http.Server{Handler: http.HandlerFunc(s.routeRequest)}
	return s
}

func (s *Server) uptime() time.Duration {
	return time.Since(s.startedAt)
}

// ConnectionInfo is the startup handshake record this package's main
// emits on stdout as a single JSON line once the listener is ready.
type ConnectionInfo struct {
	Ready      bool              `json:"ready"`
	SocketPath string            `json:"socketPath,omitempty"`
	Host       string            `json:"host,omitempty"`
	Port       int               `json:"port,omitempty"`
	Services   []string          `json:"services"`
	Backend    string            `json:"backend"`
	HostMap    map[string]string `json:"hostMap"`
	Version    string            `json:"version"`
}

// Listen constructs the configured listener: a Unix domain socket when
// cfg.ListenSocketPath is set (preferred, mode 0600), otherwise a loopback
// TCP listener optionally wrapped in TLS.
func Listen(cfg config.Config) (net.Listener, error) {
	if cfg.ListenSocketPath != "" {
		_ = os.Remove(cfg.ListenSocketPath)
		ln, err := net.Listen("unix", cfg.ListenSocketPath)
		if err != nil {
			return nil, fmt.Errorf("listening on unix socket %s: %w", cfg.ListenSocketPath, err)
		}
		if err := os.Chmod(cfg.ListenSocketPath, 0600); err != nil {
			ln.Close()
			return nil, fmt.Errorf("chmod unix socket %s: %w", cfg.ListenSocketPath, err)
		}
		return ln, nil
	}

	addr := fmt.Sprintf("%s:%d", cfg.ListenHost, cfg.ListenPort)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", addr, err)
	}
	if !cfg.TLSEnabled {
		return ln, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
	if err != nil {
		ln.Close()
		return nil, fmt.Errorf("loading TLS keypair: %w", err)
	}
	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}, MinVersion: tls.VersionTLS12}
	return tls.NewListener(ln, tlsConfig), nil
}

// ConnectionInfoFor builds the handshake record for a listener bound per
// cfg, so main can print it to stdout exactly once, before Serve blocks.
func (s *Server) ConnectionInfoFor(cfg config.Config, backend string) ConnectionInfo {
	specs := s.registry.All()
	names := make([]string, 0, len(specs))
	for _, spec := range specs {
		names = append(names, spec.Name)
	}

	info := ConnectionInfo{
		Ready:    true,
		Services: names,
		Backend:  backend,
		HostMap:  s.registry.HostMap(),
		Version:  Version,
	}
	if cfg.ListenSocketPath != "" {
		info.SocketPath = cfg.ListenSocketPath
	} else {
		info.Host = cfg.ListenHost
		info.Port = cfg.ListenPort
	}
	return info
}

// Serve blocks accepting connections on ln until the server is shut down.
// It never returns http.ErrServerClosed as an error — that is the expected
// outcome of a graceful Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	err := s.httpServer.Serve(ln)
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests (bounded by ctx) before closing the
// listener, so a SIGTERM does not cut off a streaming response mid-flight.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// PrintReady writes the ConnectionInfo handshake to w as a single JSON line
// followed by a newline, matching the contract ProxyManager waits on.
func PrintReady(w interface{ Write([]byte) (int, error) }, info ConnectionInfo) error {
	line, err := json.Marshal(info)
	if err != nil {
		return err
	}
	_, err = w.Write(append(line, '\n'))
	return err
}
