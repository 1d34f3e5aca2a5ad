// Command aquaman-broker runs the credential proxy server. It reads its
// configuration from AQUAMAN_* environment variables, builds the
// configured credential backend, and serves until it receives SIGINT or
// SIGTERM, at which point it drains in-flight requests before exiting.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tech4242/aquaman-broker/internal/audit"
	"github.com/tech4242/aquaman-broker/internal/broker"
	"github.com/tech4242/aquaman-broker/internal/config"
	"github.com/tech4242/aquaman-broker/internal/credential"
	"github.com/tech4242/aquaman-broker/internal/credential/awsvault"
	"github.com/tech4242/aquaman-broker/internal/credential/keyring"
	"github.com/tech4242/aquaman-broker/internal/log"
	"github.com/tech4242/aquaman-broker/internal/registry"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "aquaman-broker:", err)
		os.Exit(1)
	}
}

func run() error {
	if err := log.Init(log.Options{JSONFormat: true, Verbose: true}); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Close()

	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("resolving configuration: %w", err)
	}

	store, err := buildStore(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("building credential store: %w", err)
	}

	reg, err := registry.New(cfg.ServicesFilePath)
	if err != nil {
		return fmt.Errorf("building service registry: %w", err)
	}

	var auditLogger *audit.Logger
	if cfg.AuditEnabled {
		auditLogger, err = audit.Open(cfg.AuditDir)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		defer auditLogger.Close()
	}

	srv := broker.New(cfg, reg, store, auditLogger)

	ln, err := broker.Listen(cfg)
	if err != nil {
		return fmt.Errorf("binding listener: %w", err)
	}

	info := srv.ConnectionInfoFor(cfg, cfg.Backend)
	if err := broker.PrintReady(os.Stdout, info); err != nil {
		return fmt.Errorf("writing startup handshake: %w", err)
	}
	log.Info("broker listening", "backend", cfg.Backend, "services", len(info.Services))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	group, groupCtx := errgroup.WithContext(context.Background())
	group.Go(func() error {
		return srv.Serve(ln)
	})
	group.Go(func() error {
		select {
		case sig := <-sigCh:
			log.Info("shutting down", "signal", sig.String())
		case <-groupCtx.Done():
			return nil
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})

	if err := group.Wait(); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func buildStore(ctx context.Context, cfg config.Config) (credential.Store, error) {
	switch cfg.Backend {
	case "memory":
		return credential.NewMemoryStore(), nil
	case "encrypted-file":
		return credential.NewEncryptedFileStore(cfg.EncryptedFilePath, cfg.EncryptionPassword)
	case "process-keyed":
		return keyring.NewStore(), nil
	case "aws-secrets-manager":
		return awsvault.NewStore(ctx, cfg.AWSRegion, cfg.AWSSecretPrefix)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
