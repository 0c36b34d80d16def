package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"whisper-transcriber/internal/transcribe"
)

// newModelsCmd lists the model catalog with download markers.
func newModelsCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List whisper models and their download state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			modelDir := app.resolveModelDir()
			out := cmd.OutOrStdout()

			for _, model := range transcribe.Catalog() {
				marker := " "
				if _, err := os.Stat(filepath.Join(modelDir, model.FileName)); err == nil {
					marker = "*"
				}
				fmt.Fprintf(out, "%s %-15s %-8s %s\n", marker, model.ID, model.SizeLabel, model.Description)
			}

			fmt.Fprintf(out, "\n* = downloaded to %s\n", modelDir)
			return nil
		},
	}

	bindModelFlags(cmd, app)
	return cmd
}
