package main

import (
	"github.com/idofrizler/phone-buddy/cmd"
)

// main is the entry point for the phone-buddy CLI.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
