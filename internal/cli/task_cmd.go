package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/spf13/cobra"
)

func newTaskCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage schedule tasks",
	}

	cmd.AddCommand(
		newTaskAddCmd(app),
		newTaskEditCmd(app),
		newTaskDatesCmd(app),
		newTaskProgressCmd(app),
		newTaskStatusCmd(app),
		newTaskRemoveCmd(app),
	)
	return cmd
}

func newTaskAddCmd(app *App) *cobra.Command {
	var (
		in                 contract.TaskInput
		kind, status       string
		start, end, parent string
	)

	cmd := &cobra.Command{
		Use:   "add SCHEDULE",
		Short: "Add a task, milestone or group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}

			if in.Start, err = parseDateFlag("start", start); err != nil {
				return err
			}
			in.End = in.Start
			if end != "" {
				if in.End, err = parseDateFlag("end", end); err != nil {
					return err
				}
			}
			if parent != "" {
				if in.ParentID, err = resolveTaskID(agg, parent); err != nil {
					return err
				}
			}
			in.Kind = domain.TaskKind(kind)
			in.Status = domain.TaskStatus(status)

			task, err := app.Schedules.CreateTask(ctx, agg.Schedule.ID, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s (%s → %s)\n",
				task.Kind, taskLabel(task), domain.FormatDate(task.Start), domain.FormatDate(task.End))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "Task name")
	f.StringVar(&in.Code, "code", "", "Short task code, unique per schedule (e.g. D-1)")
	f.StringVar(&in.Description, "description", "", "Task description")
	f.StringVar(&kind, "kind", "task", "task, milestone or group")
	f.StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "End date (YYYY-MM-DD, defaults to start)")
	f.IntVar(&in.Progress, "progress", 0, "Percent complete (0-100)")
	f.StringVar(&in.Phase, "phase", "", "Phase tag")
	f.StringVar(&in.AssigneeID, "assignee", "", "Assignee ID")
	f.StringVar(&in.Color, "color", "", "Display color")
	f.IntVar(&in.DisplayOrder, "order", 0, "Display order among siblings")
	f.StringVar(&parent, "parent", "", "Parent task (code or ID)")
	f.StringVar(&status, "status", "", "Initial status (default not_started)")
	f.BoolVar(&in.Critical, "critical", false, "Flag as critical")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newTaskEditCmd(app *App) *cobra.Command {
	var (
		code, name, description, kind, phase string
		assignee, color, parent, status      string
		start, end                           string
		progress, order                      int
		critical, noParent                   bool
	)

	cmd := &cobra.Command{
		Use:   "edit SCHEDULE TASK",
		Short: "Change task fields; only the flags given are applied",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			taskID, err := resolveTaskID(agg, args[1])
			if err != nil {
				return err
			}

			var patch domain.TaskPatch
			f := cmd.Flags()
			if f.Changed("code") {
				patch.Code = &code
			}
			if f.Changed("name") {
				patch.Name = &name
			}
			if f.Changed("description") {
				patch.Description = &description
			}
			if f.Changed("kind") {
				k := domain.TaskKind(kind)
				patch.Kind = &k
			}
			if f.Changed("phase") {
				patch.Phase = &phase
			}
			if f.Changed("assignee") {
				patch.AssigneeID = &assignee
			}
			if f.Changed("color") {
				patch.Color = &color
			}
			if f.Changed("order") {
				patch.DisplayOrder = &order
			}
			if f.Changed("critical") {
				patch.Critical = &critical
			}
			if f.Changed("progress") {
				patch.Progress = &progress
			}
			if f.Changed("status") {
				s := domain.TaskStatus(status)
				patch.Status = &s
			}
			if f.Changed("start") {
				t, err := parseDateFlag("start", start)
				if err != nil {
					return err
				}
				patch.Start = &t
			}
			if f.Changed("end") {
				t, err := parseDateFlag("end", end)
				if err != nil {
					return err
				}
				patch.End = &t
			}
			switch {
			case noParent:
				patch.ClearParent = true
			case f.Changed("parent"):
				parentID, err := resolveTaskID(agg, parent)
				if err != nil {
					return err
				}
				patch.ParentID = &parentID
			}

			task, err := app.Schedules.UpdateTask(ctx, agg.Schedule.ID, taskID, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", taskLabel(task))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&code, "code", "", "Short task code")
	f.StringVar(&name, "name", "", "Task name")
	f.StringVar(&description, "description", "", "Task description")
	f.StringVar(&kind, "kind", "", "task, milestone or group")
	f.StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	f.StringVar(&end, "end", "", "End date (YYYY-MM-DD)")
	f.IntVar(&progress, "progress", 0, "Percent complete (0-100)")
	f.StringVar(&phase, "phase", "", "Phase tag")
	f.StringVar(&assignee, "assignee", "", "Assignee ID")
	f.StringVar(&color, "color", "", "Display color")
	f.IntVar(&order, "order", 0, "Display order among siblings")
	f.StringVar(&parent, "parent", "", "New parent task (code or ID)")
	f.BoolVar(&noParent, "no-parent", false, "Move the task to the top level")
	f.StringVar(&status, "status", "", "Task status")
	f.BoolVar(&critical, "critical", false, "Flag as critical")
	cmd.MarkFlagsMutuallyExclusive("parent", "no-parent")
	return cmd
}

func newTaskDatesCmd(app *App) *cobra.Command {
	var start, end string

	cmd := &cobra.Command{
		Use:   "dates SCHEDULE TASK",
		Short: "Move a task to new start and end dates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			taskID, err := resolveTaskID(agg, args[1])
			if err != nil {
				return err
			}
			s, err := parseDateFlag("start", start)
			if err != nil {
				return err
			}
			e := s
			if end != "" {
				if e, err = parseDateFlag("end", end); err != nil {
					return err
				}
			}

			task, err := app.Schedules.UpdateTaskDates(ctx, agg.Schedule.ID, taskID, s, e)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s → %s\n",
				taskLabel(task), domain.FormatDate(task.Start), domain.FormatDate(task.End))
			return reportConflict(cmd, app, agg.Schedule.ID, task.ID)
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "End date (YYYY-MM-DD, defaults to start)")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newTaskProgressCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "progress SCHEDULE TASK PERCENT",
		Short: "Record percent complete for a task",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pct, err := strconv.Atoi(strings.TrimSuffix(args[2], "%"))
			if err != nil {
				return fmt.Errorf("invalid percent %q", args[2])
			}
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			taskID, err := resolveTaskID(agg, args[1])
			if err != nil {
				return err
			}
			task, err := app.Schedules.UpdateTaskProgress(ctx, agg.Schedule.ID, taskID, pct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is %d%% complete\n", taskLabel(task), task.Progress)
			return nil
		},
	}
}

func newTaskStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status SCHEDULE TASK STATUS",
		Short: "Set a task status (not_started, in_progress, done, on_hold, cancelled)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			taskID, err := resolveTaskID(agg, args[1])
			if err != nil {
				return err
			}
			task, err := app.Schedules.UpdateTaskStatus(ctx, agg.Schedule.ID, taskID, domain.TaskStatus(args[2]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", taskLabel(task), task.Status)
			return nil
		},
	}
}

func newTaskRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm SCHEDULE TASK",
		Short: "Delete a task and its dependencies",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			agg, err := loadSchedule(ctx, app, args[0])
			if err != nil {
				return err
			}
			taskID, err := resolveTaskID(agg, args[1])
			if err != nil {
				return err
			}
			if err := app.Schedules.DeleteTask(ctx, agg.Schedule.ID, taskID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[1])
			return nil
		},
	}
}

// reportConflict warns when the task now violates one of its dependencies.
func reportConflict(cmd *cobra.Command, app *App, scheduleID, taskID string) error {
	agg, err := app.Schedules.GetSchedule(cmd.Context(), scheduleID)
	if err != nil {
		return err
	}
	for _, c := range agg.Conflicts {
		if c.TaskID == taskID {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s violates %d dependency constraint(s)\n",
				c.TaskName, len(c.Violations))
		}
	}
	return nil
}

func taskLabel(t domain.Task) string {
	if t.Code != "" {
		return t.Code + " " + t.Name
	}
	return t.Name
}
