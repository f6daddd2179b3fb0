// Package main provides the entry point for the forkadmin CLI.
package main

import (
	"os"

	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
)

func main() {
	if err := Execute(); err != nil {
		printError(err)
		os.Exit(failure.ExitCode(err))
	}
}
