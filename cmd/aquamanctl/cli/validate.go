package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tech4242/aquaman-broker/internal/registry"
)

var validateServicesFile string

var validateServicesCmd = &cobra.Command{
	Use:   "validate-services",
	Short: "Check a services overlay file for structural errors",
	Long: `validate-services parses the given services overlay file and
reports every structural problem in the file itself — currently,
service names declared more than once. It does not check each service's
individual fields; that happens when the overlay is actually loaded.`,
	RunE: runValidateServices,
}

func init() {
	validateServicesCmd.Flags().StringVar(&validateServicesFile, "file", "", "services overlay file to validate (required)")
	_ = validateServicesCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(validateServicesCmd)
}

func runValidateServices(cmd *cobra.Command, args []string) error {
	ok, errs := registry.ValidateConfigFile(validateServicesFile)

	if jsonOut {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, e.Error())
		}
		return json.NewEncoder(os.Stdout).Encode(map[string]any{
			"valid":  ok,
			"errors": messages,
		})
	}

	if ok {
		fmt.Println("services file valid")
		return nil
	}

	fmt.Println("services file INVALID")
	for _, e := range errs {
		fmt.Printf("  %s\n", e)
	}
	return fmt.Errorf("%d error(s) found", len(errs))
}
