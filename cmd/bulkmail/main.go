/*
Package main provides the CLI entry point for bulkmail.
*/
package main

import (
	"os"

	"github.com/shineum/bulkmail-lite/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
