// Package config resolves the broker's runtime configuration from
// environment variables. Parsing a config *file* format (YAML, JSON, or
// otherwise) is explicitly out of scope — the only file this package's
// FromEnv function ever points at is the optional service-registry overlay
// path, which internal/registry parses on its own.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the fully-resolved configuration the broker's core consumes.
type Config struct {
	Backend            string
	EncryptedFilePath  string
	EncryptionPassword string
	AWSRegion          string
	AWSSecretPrefix    string

	ClientToken string

	ListenSocketPath string
	ListenHost       string
	ListenPort       int
	TLSEnabled       bool
	TLSCertPath      string
	TLSKeyPath       string

	AuditEnabled bool
	AuditDir     string

	ServicesFilePath string
	AllowedServices  []string

	UpstreamConnectTimeout time.Duration
}

const defaultUpstreamConnectTimeout = 10 * time.Second

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

// FromEnv resolves a Config from the AQUAMAN_* environment variables. It is
// a pure function over os.Getenv with defaults applied — no prompts, no
// file-format parsing of its own.
func FromEnv() (Config, error) {
	port, err := getenvInt("AQUAMAN_PORT", 0)
	if err != nil {
		return Config{}, fmt.Errorf("resolving config: %w", err)
	}

	timeoutStr := getenv("AQUAMAN_UPSTREAM_TIMEOUT", "")
	timeout := defaultUpstreamConnectTimeout
	if timeoutStr != "" {
		parsed, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("AQUAMAN_UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	var allowed []string
	if v := os.Getenv("AQUAMAN_ALLOWED_SERVICES"); v != "" {
		for _, s := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				allowed = append(allowed, trimmed)
			}
		}
	}

	cfg := Config{
		Backend:            getenv("AQUAMAN_BACKEND", "memory"),
		EncryptedFilePath:  getenv("AQUAMAN_ENCRYPTED_FILE_PATH", ""),
		EncryptionPassword: os.Getenv("AQUAMAN_ENCRYPTION_PASSWORD"),
		AWSRegion:          getenv("AQUAMAN_AWS_REGION", ""),
		AWSSecretPrefix:    getenv("AQUAMAN_AWS_SECRET_PREFIX", "aquaman"),

		ClientToken: os.Getenv("AQUAMAN_CLIENT_TOKEN"),

		ListenSocketPath: getenv("AQUAMAN_SOCKET_PATH", ""),
		ListenHost:       getenv("AQUAMAN_HOST", "127.0.0.1"),
		ListenPort:       port,
		TLSEnabled:       getenvBool("AQUAMAN_TLS", false),
		TLSCertPath:      getenv("AQUAMAN_TLS_CERT", ""),
		TLSKeyPath:       getenv("AQUAMAN_TLS_KEY", ""),

		AuditEnabled: getenvBool("AQUAMAN_AUDIT_ENABLED", true),
		AuditDir:     getenv("AQUAMAN_AUDIT_DIR", ""),

		ServicesFilePath: getenv("AQUAMAN_SERVICES_FILE", ""),
		AllowedServices:  allowed,

		UpstreamConnectTimeout: timeout,
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Backend {
	case "memory", "encrypted-file", "process-keyed", "aws-secrets-manager":
	default:
		return fmt.Errorf("AQUAMAN_BACKEND: unknown backend %q", c.Backend)
	}
	if c.Backend == "encrypted-file" && (c.EncryptedFilePath == "" || c.EncryptionPassword == "") {
		return fmt.Errorf("AQUAMAN_BACKEND=encrypted-file requires AQUAMAN_ENCRYPTED_FILE_PATH and AQUAMAN_ENCRYPTION_PASSWORD")
	}
	if c.Backend == "aws-secrets-manager" && c.AWSRegion == "" {
		return fmt.Errorf("AQUAMAN_BACKEND=aws-secrets-manager requires AQUAMAN_AWS_REGION")
	}
	if c.ListenSocketPath == "" && c.ListenPort == 0 {
		return fmt.Errorf("either AQUAMAN_SOCKET_PATH or AQUAMAN_PORT must be set")
	}
	if c.TLSEnabled && (c.TLSCertPath == "" || c.TLSKeyPath == "") {
		return fmt.Errorf("AQUAMAN_TLS=true requires AQUAMAN_TLS_CERT and AQUAMAN_TLS_KEY")
	}
	if c.AuditEnabled && c.AuditDir == "" {
		return fmt.Errorf("AQUAMAN_AUDIT_ENABLED=true requires AQUAMAN_AUDIT_DIR")
	}
	return nil
}
