package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cronograma/internal/cli/formatter"
	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/spf13/cobra"
)

func newDepCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dep",
		Aliases: []string{"dependency"},
		Short:   "Manage task dependencies",
	}

	cmd.AddCommand(
		newDepAddCmd(app),
		newDepRemoveCmd(app),
		newDepListCmd(app),
	)
	return cmd
}

func newDepAddCmd(app *App) *cobra.Command {
	var typ string
	var lag int

	cmd := &cobra.Command{
		Use:   "add SCHEDULE PREDECESSOR SUCCESSOR",
		Short: "Make SUCCESSOR depend on PREDECESSOR",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			origin, err := resolveTaskID(agg, args[1])
			if err != nil {
				return err
			}
			destination, err := resolveTaskID(agg, args[2])
			if err != nil {
				return err
			}

			dep, err := app.Schedules.AddDependency(ctx, agg.Schedule.ID, contract.DependencyInput{
				OriginID:      origin,
				DestinationID: destination,
				Type:          domain.DependencyType(strings.ToUpper(typ)),
				LagDays:       lag,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s dependency %s -> %s [%s]\n",
				dep.Type, args[1], args[2], formatter.ShortID(dep.ID))
			return reportConflict(cmd, app, agg.Schedule.ID, destination)
		},
	}

	cmd.Flags().StringVar(&typ, "type", "FS", "Dependency type: FS, SS, FF or SF")
	cmd.Flags().IntVar(&lag, "lag", 0, "Lag in days (negative for lead)")
	return cmd
}

func newDepRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm SCHEDULE DEPENDENCY",
		Short: "Remove a dependency",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			depID, err := resolveDependencyID(agg, args[1])
			if err != nil {
				return err
			}
			if err := app.Schedules.RemoveDependency(ctx, agg.Schedule.ID, depID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed dependency %s\n", formatter.ShortID(depID))
			return nil
		},
	}
}

func newDepListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list SCHEDULE",
		Aliases: []string{"ls"},
		Short:   "List the dependencies of a schedule",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := loadSchedule(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDependencies(agg))
			return nil
		},
	}
}
