package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"whisper-transcriber/internal/config"
	"whisper-transcriber/internal/diagnostics"
	"whisper-transcriber/internal/domain"
)

// newDoctorCmd runs the startup checks against the saved settings,
// letting --model and --model-dir override what the desktop app has
// persisted.
func newDoctorCmd(app *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools, model files, and directories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.NewJSONStore(config.SettingsPath()).Load()
			if err != nil {
				return fmt.Errorf("load settings: %w", err)
			}
			if strings.TrimSpace(app.model) != "" {
				settings.Model = app.model
			}
			if strings.TrimSpace(app.modelDir) != "" {
				settings.ModelDir = app.modelDir
			}
			if strings.TrimSpace(settings.ModelDir) == "" {
				settings.ModelDir = config.DefaultModelDir()
			}

			report := diagnostics.NewChecker().Run(settings)

			out := cmd.OutOrStdout()
			failures := 0
			for _, item := range report.Items {
				label := "ok  "
				if item.Status == domain.DiagnosticStatusFail {
					label = "FAIL"
					failures++
				}
				fmt.Fprintf(out, "[%s] %s: %s\n", label, item.Name, item.Message)
				if item.Status == domain.DiagnosticStatusFail && item.Hint != "" {
					fmt.Fprintf(out, "       %s\n", item.Hint)
				}
			}

			if report.HasFailures {
				return fmt.Errorf("%d check(s) failed", failures)
			}

			fmt.Fprintln(out, "\nAll checks passed.")
			return nil
		},
	}

	bindModelFlags(cmd, app)
	return cmd
}
