package cli

import (
	"fmt"

	"github.com/alexanderramin/cronograma/internal/cli/formatter"
	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/spf13/cobra"
)

func newReviewCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Submit, approve, reject or reopen schedules",
	}

	cmd.AddCommand(
		newReviewSubmitCmd(app),
		newReviewDecideCmd(app, true),
		newReviewDecideCmd(app, false),
		newReviewReopenCmd(app),
	)
	return cmd
}

func newReviewSubmitCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "submit SCHEDULE",
		Short: "Send a draft schedule to both reviewers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveScheduleID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			agg, err := app.Schedules.SubmitForReview(cmd.Context(), id)
			if err != nil {
				return err
			}
			printState(cmd, agg)
			if n := len(agg.Conflicts); n > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "note: submitted with %d conflicting task(s)\n", n)
			}
			return nil
		},
	}
}

func newReviewDecideCmd(app *App, approve bool) *cobra.Command {
	var comment string

	use, short := "approve SCHEDULE", "Sign off as the current reviewer role"
	if !approve {
		use, short = "reject SCHEDULE", "Send the schedule back to draft with a comment"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveScheduleID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			if !approve && comment == "" && app.interactive() {
				if err := commentForm("Rejection comment", true, &comment).Run(); err != nil {
					return err
				}
			}
			agg, err := app.Schedules.Decide(cmd.Context(), id, contract.DecisionInput{
				Approved: approve,
				Comment:  comment,
			})
			if err != nil {
				return err
			}
			printState(cmd, agg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Review comment (required to reject)")
	return cmd
}

func newReviewReopenCmd(app *App) *cobra.Command {
	var comment string

	cmd := &cobra.Command{
		Use:   "reopen SCHEDULE",
		Short: "Return an approved schedule to draft (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveScheduleID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			agg, err := app.Schedules.Reopen(cmd.Context(), id, comment)
			if err != nil {
				return err
			}
			printState(cmd, agg)
			return nil
		},
	}

	cmd.Flags().StringVarP(&comment, "comment", "m", "", "Reason for reopening")
	return cmd
}

func printState(cmd *cobra.Command, agg *contract.ScheduleAggregate) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n",
		agg.Schedule.Name, formatter.StateBadge(agg.Schedule.State))
}
