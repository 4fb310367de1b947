package cli

import (
	"encoding/json"
	"fmt"

	"github.com/alexanderramin/cronograma/internal/actor"
	"github.com/alexanderramin/cronograma/internal/cli/formatter"
	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/template"
	"github.com/spf13/cobra"
)

func newScheduleCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "schedule",
		Aliases: []string{"sch"},
		Short:   "Manage schedules",
	}

	cmd.AddCommand(
		newScheduleNewCmd(app),
		newScheduleListCmd(app),
		newScheduleShowCmd(app),
		newScheduleRenameCmd(app),
		newSchedulePhasesCmd(app),
		newScheduleConflictsCmd(app),
		newScheduleHistoryCmd(app),
		newScheduleCapsCmd(app),
		newScheduleRemoveCmd(app),
		newScheduleImportCmd(app),
	)
	return cmd
}

func newScheduleNewCmd(app *App) *cobra.Command {
	var (
		name, project string
		templatePath  string
		start         string
		vars          map[string]string
		dryRun        bool
	)

	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create a draft schedule, empty or from a template",
		RunE: func(cmd *cobra.Command, args []string) error {
			if templatePath != "" {
				return newFromTemplate(cmd, app, templatePath, template.Input{
					Name:      name,
					ProjectID: project,
					Vars:      vars,
				}, start, dryRun)
			}
			if name == "" {
				return fmt.Errorf("--name is required without --template")
			}
			agg, err := app.Schedules.CreateSchedule(cmd.Context(), contract.CreateScheduleInput{
				ProjectID: project,
				Name:      name,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created schedule %s [%s]\n",
				agg.Schedule.Name, formatter.ShortID(agg.Schedule.ID))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&name, "name", "", "Schedule name (defaults to the template name)")
	f.StringVar(&project, "project", "", "Owning project ID")
	f.StringVar(&templatePath, "template", "", "Expand a schedule template JSON file")
	f.StringVar(&start, "start", "", "Template anchor date (YYYY-MM-DD)")
	f.StringToStringVar(&vars, "var", nil, "Template variable as key=value (repeatable)")
	f.BoolVar(&dryRun, "dry-run", false, "Print the expanded import document instead of saving")
	cmd.MarkFlagsRequiredTogether("template", "start")
	return cmd
}

func newFromTemplate(cmd *cobra.Command, app *App, path string, in template.Input, start string, dryRun bool) error {
	schema, err := template.LoadSchema(path)
	if err != nil {
		return fmt.Errorf("loading template: %w", err)
	}
	if in.Start, err = parseDateFlag("start", start); err != nil {
		return err
	}
	doc, err := template.Expand(schema, in)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dryRun {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding import document: %w", err)
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	result, err := app.Import.ImportScheduleFromSchema(cmd.Context(), doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created schedule %s [%s] from %s: %d tasks, %d dependencies\n",
		result.Schedule.Schedule.Name, formatter.ShortID(result.Schedule.Schedule.ID),
		schema.Name, result.TaskCount, result.DependencyCount)
	return nil
}

func newScheduleListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List schedules",
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := app.Schedules.ListSchedules(cmd.Context())
			if err != nil {
				return err
			}
			if len(schedules) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No schedules found.")
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatScheduleList(schedules))
			return nil
		},
	}
}

func newScheduleShowCmd(app *App) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show SCHEDULE",
		Short: "Show a schedule with its task tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := loadSchedule(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				data, err := json.MarshalIndent(agg, "", "  ")
				if err != nil {
					return fmt.Errorf("encoding schedule: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSchedule(agg))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the full aggregate as JSON")
	return cmd
}

func newScheduleRenameCmd(app *App) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "rename SCHEDULE",
		Short: "Rename a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveScheduleID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			agg, err := app.Schedules.RenameSchedule(cmd.Context(), id, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed schedule to %s\n", agg.Schedule.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New schedule name")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSchedulePhasesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "phases SCHEDULE",
		Short: "Show progress rolled up per phase",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveScheduleID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			phases, err := app.Schedules.Phases(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPhases(phases))
			return nil
		},
	}
}

func newScheduleConflictsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts SCHEDULE",
		Short: "List tasks whose dates violate a dependency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := loadSchedule(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatConflicts(agg))
			return nil
		},
	}
}

func newScheduleHistoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "history SCHEDULE",
		Short: "Show the review history of a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := resolveScheduleID(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			events, err := app.Schedules.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatHistory(events))
			return nil
		},
	}
}

func newScheduleCapsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "caps SCHEDULE",
		Short: "Show what the current role may change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := loadSchedule(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			caps, err := app.Schedules.AllowedMutations(cmd.Context(), agg.Schedule.ID)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(),
				formatter.FormatCapabilities(agg.Schedule.State, actor.RoleFrom(cmd.Context()), caps))
			return nil
		},
	}
}

func newScheduleRemoveCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "rm SCHEDULE",
		Short: "Delete a draft schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := loadSchedule(cmd.Context(), app, args[0])
			if err != nil {
				return err
			}
			if !yes && app.interactive() {
				confirmed := false
				title := fmt.Sprintf("Delete %s and its %d tasks?", agg.Schedule.Name, agg.Schedule.TaskCount)
				if err := confirmForm(title, &confirmed).Run(); err != nil {
					return err
				}
				if !confirmed {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := app.Schedules.DeleteSchedule(cmd.Context(), agg.Schedule.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted schedule %s\n", agg.Schedule.Name)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func newScheduleImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a schedule from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.Import.ImportSchedule(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported schedule %s [%s]: %d tasks, %d dependencies\n",
				result.Schedule.Schedule.Name, formatter.ShortID(result.Schedule.Schedule.ID),
				result.TaskCount, result.DependencyCount)
			if n := len(result.Schedule.Conflicts); n > 0 {
				fmt.Fprintln(out, formatter.StyleYellow.Render(fmt.Sprintf("%d task(s) violate a dependency", n)))
			}
			return nil
		},
	}
}
