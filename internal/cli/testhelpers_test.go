package cli

import (
	"bytes"
	"testing"
)

// runCommand executes the full command tree with captured output.
func runCommand(t *testing.T, args []string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
