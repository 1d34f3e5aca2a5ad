package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tech4242/aquaman-broker/internal/audit"
)

var auditDirFlag string

var verifyCmd = &cobra.Command{
	Use:   "verify-log",
	Short: "Verify the hash chain of an audit log directory",
	Long: `verify-log replays every segment under the given audit directory,
recomputes each entry's hash against its predecessor, and reports any
segment where the chain has been tampered with or a gap was introduced.`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&auditDirFlag, "dir", "", "audit log directory (required)")
	_ = verifyCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	logger, err := audit.Open(auditDirFlag)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer logger.Close()

	result, err := logger.VerifyIntegrity()
	if err != nil {
		return fmt.Errorf("verifying audit log: %w", err)
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	if result.Valid {
		fmt.Printf("audit log valid: %d entries\n", result.EntryCount)
		return nil
	}

	fmt.Printf("audit log INVALID: %d entries, %d mismatch(es)\n", result.EntryCount, len(result.Mismatches))
	for _, mismatch := range result.Mismatches {
		fmt.Printf("  entry %d: %s (stored=%s expected=%s)\n",
			mismatch.Index, mismatch.Reason, mismatch.StoredHash, mismatch.ExpectedHash)
	}
	return fmt.Errorf("integrity check failed with %d mismatch(es)", len(result.Mismatches))
}
