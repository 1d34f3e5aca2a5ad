package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/tech4242/aquaman-broker/internal/lifecycle"
)

var detach bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Spawn the broker and wait for it to become ready",
	Long: `start spawns aquaman-broker as a child process, waits for its stdout
handshake, and (unless --detach is given) blocks until interrupted, at
which point it stops the broker gracefully.`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().BoolVar(&detach, "detach", false, "exit immediately once the broker reports ready, leaving it running")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	mgr := lifecycle.New(brokerPath, nil, nil, lifecycle.Callbacks{
		OnExit: func(err error) {
			if err != nil && verbose {
				fmt.Fprintf(os.Stderr, "broker exited: %v\n", err)
			}
		},
	})

	ctx := context.Background()
	info, err := mgr.Start(ctx)
	if err != nil {
		return fmt.Errorf("starting broker: %w", err)
	}

	if err := writePIDState(mgr, info); err != nil {
		return fmt.Errorf("recording broker state: %w", err)
	}

	if jsonOut {
		if err := json.NewEncoder(os.Stdout).Encode(info); err != nil {
			return err
		}
	} else {
		fmt.Printf("broker ready: backend=%s services=%d\n", info.Backend, len(info.Services))
		if info.SocketPath != "" {
			fmt.Printf("  socket: %s\n", info.SocketPath)
		} else {
			fmt.Printf("  address: %s:%d\n", info.Host, info.Port)
		}
	}

	if detach {
		return nil
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := mgr.Stop(); err != nil {
		return fmt.Errorf("stopping broker: %w", err)
	}
	return removePIDState()
}

// pidState is the on-disk record aquamanctl stop/status read to reconnect
// to a broker a prior `start` invocation spawned.
type pidState struct {
	PID  int                      `json:"pid"`
	Info lifecycle.ConnectionInfo `json:"info"`
}

func writePIDState(mgr *lifecycle.Manager, info lifecycle.ConnectionInfo) error {
	path, err := pidFilePath()
	if err != nil {
		return err
	}
	state := pidState{PID: mgr.PID(), Info: info}
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func readPIDState() (pidState, error) {
	path, err := pidFilePath()
	if err != nil {
		return pidState{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return pidState{}, err
	}
	var state pidState
	if err := json.Unmarshal(data, &state); err != nil {
		return pidState{}, fmt.Errorf("parsing pid state: %w", err)
	}
	return state, nil
}

func removePIDState() error {
	path, err := pidFilePath()
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func formatPID(pid int) string {
	return strconv.Itoa(pid)
}
