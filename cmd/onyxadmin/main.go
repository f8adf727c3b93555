// Package main provides the entry point for the onyxadmin CLI.
package main

import (
	"fmt"
	"os"

	"github.com/raphaelgruber/onyx-admin/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		// Flow failures were already printed by their popup.
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
