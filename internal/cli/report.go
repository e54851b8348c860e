package cli

import (
	"fmt"
	"os"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		telegramID int64
		out        string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the xlsx onboarding report of a trainee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if telegramID == 0 {
				return fmt.Errorf("%w: --telegram-id is required", entity.ErrMissingField)
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				file, err := b.Report(cmd.Context(), telegramID)
				if err != nil {
					return err
				}

				path := out
				if path == "" {
					path = file.FileName
				}
				if err := os.WriteFile(path, file.Data, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}

				fmt.Fprintf(a.stdout, "report written to %s (%d bytes)\n", path, len(file.Data))
				if file.Caption != "" {
					fmt.Fprintln(a.stdout, file.Caption)
				}
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "Telegram user id of the trainee")
	cmd.Flags().StringVar(&out, "out", "", "output file (defaults to the generated report name)")
	return cmd
}
