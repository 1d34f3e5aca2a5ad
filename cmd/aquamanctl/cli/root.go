// Package cli implements the aquamanctl command-line interface using Cobra.
// It wraps internal/lifecycle.Manager so an operator can start, stop, and
// health-check the broker process by hand, without needing to embed it in
// an agent runtime.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	verbose    bool
	jsonOut    bool
	brokerPath string
)

var rootCmd = &cobra.Command{
	Use:   "aquamanctl",
	Short: "Operate the aquaman credential broker",
	Long: `aquamanctl supervises the aquaman-broker process: starting it,
stopping it, checking its health, and verifying its audit log.

It talks to the broker the same way an embedding agent runtime does —
spawning it as a child process and reading its stdout handshake — so it
doubles as a reference client for that contract.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&brokerPath, "broker-path", defaultBrokerPath(), "path to the aquaman-broker binary")
}

// defaultBrokerPath resolves the broker binary alongside aquamanctl itself,
// falling back to a bare name for $PATH lookup.
func defaultBrokerPath() string {
	self, err := os.Executable()
	if err != nil {
		return "aquaman-broker"
	}
	candidate := filepath.Join(filepath.Dir(self), "aquaman-broker")
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return "aquaman-broker"
}

// stateDir returns ~/.aquaman, creating it if necessary. It holds the PID
// file aquamanctl uses to track a broker it spawned.
func stateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	dir := filepath.Join(home, ".aquaman")
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return dir, nil
}

func pidFilePath() (string, error) {
	dir, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "broker.pid"), nil
}
