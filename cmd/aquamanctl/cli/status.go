package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/tech4242/aquaman-broker/internal/lifecycle"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report whether a spawned broker is alive and healthy",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

type statusOutput struct {
	Running bool   `json:"running"`
	Healthy bool   `json:"healthy"`
	PID     int    `json:"pid,omitempty"`
	Backend string `json:"backend,omitempty"`
	Error   string `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	state, err := readPIDState()
	if err != nil {
		out := statusOutput{Running: false}
		return printStatus(out)
	}

	out := statusOutput{PID: state.PID, Backend: state.Info.Backend}

	proc, err := os.FindProcess(state.PID)
	if err == nil && proc.Signal(syscall.Signal(0)) == nil {
		out.Running = true
	}

	if out.Running {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lifecycle.HealthCheckInfo(ctx, state.Info); err != nil {
			out.Error = err.Error()
		} else {
			out.Healthy = true
		}
	}

	return printStatus(out)
}

func printStatus(out statusOutput) error {
	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(out)
	}
	if !out.Running {
		fmt.Println("broker: not running")
		return nil
	}
	health := "unhealthy"
	if out.Healthy {
		health = "healthy"
	}
	fmt.Printf("broker: running (pid %d, backend %s, %s)\n", out.PID, out.Backend, health)
	if out.Error != "" {
		fmt.Printf("  error: %s\n", out.Error)
	}
	return nil
}
