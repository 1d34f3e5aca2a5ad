package cli

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a broker started with `aquamanctl start --detach`",
	Long: `stop signals the broker recorded in ~/.aquaman/broker.pid to shut
down gracefully, waiting a few seconds before forcing it.`,
	RunE: runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	state, err := readPIDState()
	if err != nil {
		return fmt.Errorf("no running broker found: %w", err)
	}

	proc, err := os.FindProcess(state.PID)
	if err != nil {
		return fmt.Errorf("finding process %d: %w", state.PID, err)
	}

	if err := proc.Signal(syscall.SIGTERM); err != nil {
		if err == os.ErrProcessDone {
			return removePIDState()
		}
		return fmt.Errorf("signaling process %d: %w", state.PID, err)
	}

	const gracePeriod = 5 * time.Second
	deadline := time.Now().Add(gracePeriod)
	for time.Now().Before(deadline) {
		if proc.Signal(syscall.Signal(0)) != nil {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if proc.Signal(syscall.Signal(0)) == nil {
		if err := proc.Kill(); err != nil {
			return fmt.Errorf("force-killing process %d: %w", state.PID, err)
		}
	}

	fmt.Printf("stopped broker (pid %s)\n", formatPID(state.PID))
	return removePIDState()
}
