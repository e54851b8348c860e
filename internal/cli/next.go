package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/futig/onboarding-bot/internal/entity"
	"github.com/spf13/cobra"
)

func newNextCmd(a *app) *cobra.Command {
	var (
		telegramID int64
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show the next step and the submissions of a trainee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if telegramID == 0 {
				return fmt.Errorf("%w: --telegram-id is required", entity.ErrMissingField)
			}
			return a.withBackend(cmd.Context(), func(b backend) error {
				progress, err := b.Progress(cmd.Context(), telegramID)
				if err != nil {
					return err
				}
				if asJSON {
					return printJSON(a.stdout, progress)
				}
				printProgress(a.stdout, progress)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&telegramID, "telegram-id", 0, "Telegram user id of the trainee")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the progress as JSON")
	return cmd
}

func printProgress(w io.Writer, p *entity.Progress) {
	fmt.Fprintf(w, "trainee:   %s (%d)\n", p.User.FullName, p.User.TelegramID)
	fmt.Fprintf(w, "attempted: %d/%d\n", p.AttemptedSteps, p.TotalSteps)
	if p.AverageLiveScore != nil {
		fmt.Fprintf(w, "average:   %.1f\n", *p.AverageLiveScore)
	}
	if p.TooFast > 0 || p.TooSlow > 0 {
		fmt.Fprintf(w, "timing:    %d too fast, %d too slow\n", p.TooFast, p.TooSlow)
	}

	if p.Completed() {
		fmt.Fprintln(w, "next:      onboarding completed")
	} else if p.NextStep != nil {
		fmt.Fprintf(w, "next:      #%d %s [%s, ~%d min]\n",
			p.NextStep.Order, p.NextStep.Title, p.NextStep.Type, p.NextStep.EstimatedDuration)
	}

	if len(p.Submissions) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join([]string{"ID", "STEP", "STATUS", "SCORE", "CREATED"}, "\t"))
	for _, s := range p.Submissions {
		score := "-"
		if s.EvaluationScore != nil {
			score = fmt.Sprintf("%.1f", *s.EvaluationScore)
		}
		fmt.Fprintln(tw, strings.Join([]string{
			s.ID,
			fmt.Sprint(s.StepID),
			string(s.Status),
			score,
			s.CreatedAt.Format("2006-01-02 15:04"),
		}, "\t"))
	}
	_ = tw.Flush()
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(b))
	return nil
}
