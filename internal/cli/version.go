package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"whisper-transcriber/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "transcribe v%s\n", version.Resolve())
			return err
		},
	}
}
