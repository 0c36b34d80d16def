package main

import (
	"fmt"
	"os"
	"strings"

	"whisper-transcriber/internal/cli"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if isUsageError(err) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		}
		os.Exit(1)
	}
}

// isUsageError matches cobra's own argument and flag complaints, which
// deserve a help pointer on top of the bare message.
func isUsageError(err error) bool {
	message := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"unknown command",
		"unknown flag",
		"unknown shorthand flag",
		"accepts ",
		"requires at least",
	} {
		if strings.Contains(message, pattern) {
			return true
		}
	}
	return false
}
