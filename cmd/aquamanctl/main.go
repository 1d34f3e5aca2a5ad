package main

import (
	"os"

	"github.com/tech4242/aquaman-broker/cmd/aquamanctl/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
