package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/domain"
)

// FormatScheduleList renders the schedule overview table.
func FormatScheduleList(schedules []contract.ScheduleHeader) string {
	headers := []string{"ID", "NAME", "PROJECT", "STATE", "TASKS", "VERSION"}
	rows := make([][]string, 0, len(schedules))
	for _, s := range schedules {
		rows = append(rows, []string{
			TruncID(s.ID),
			Bold(s.Name),
			OrDash(s.ProjectID),
			StateBadge(s.State),
			strconv.Itoa(s.TaskCount),
			strconv.Itoa(s.Version),
		})
	}
	return RenderTable(headers, rows)
}

// FormatSchedule renders one schedule: header block, task tree and a short
// conflict summary.
func FormatSchedule(agg *contract.ScheduleAggregate) string {
	var b strings.Builder
	b.WriteString(formatScheduleHeader(agg.Schedule))
	b.WriteString("\n\n")

	if len(agg.Tasks) == 0 {
		b.WriteString(Dim("No tasks yet."))
		b.WriteString("\n")
		return b.String()
	}

	b.WriteString(Header("Tasks"))
	b.WriteString("\n")
	b.WriteString(RenderTree(taskTree(agg.Tasks)))

	if n := len(agg.Conflicts); n > 0 {
		b.WriteString("\n")
		b.WriteString(StyleRedBold.Render(fmt.Sprintf("%d task(s) violate a dependency", n)))
		b.WriteString(Dim("  (see: schedule conflicts)"))
		b.WriteString("\n")
	}
	for _, issue := range agg.Issues {
		b.WriteString(StyleYellow.Render("! " + issue.Message))
		b.WriteString("\n")
	}
	return b.String()
}

func formatScheduleHeader(h contract.ScheduleHeader) string {
	var b strings.Builder
	b.WriteString(Bold(h.Name))
	b.WriteString("  ")
	b.WriteString(StateBadge(h.State))
	b.WriteString("\n")

	b.WriteString(Dim(fmt.Sprintf("id %s  project %s  version %d", h.ID, OrDash(h.ProjectID), h.Version)))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Reviewer 1 (PMO): %s   Reviewer 2 (sponsor): %s",
		approvalMark(h.ApprovedByReviewer1), approvalMark(h.ApprovedByReviewer2)))
	if h.RejectionComment != "" {
		b.WriteString("\n")
		b.WriteString(StyleRed.Render("Rejected: " + h.RejectionComment))
	}
	return b.String()
}

func approvalMark(approved bool) string {
	if approved {
		return StyleGreen.Render("✔ approved")
	}
	return StyleDim.Render("○ pending")
}

// taskTree converts tree-ordered task views into tree lines. A task is the
// last of its siblings when no later task sits at its depth before the
// tree climbs back above it.
func taskTree(tasks []contract.TaskView) []TreeItem {
	items := make([]TreeItem, 0, len(tasks))
	for i, t := range tasks {
		isLast := true
		for _, next := range tasks[i+1:] {
			if next.Depth < t.Depth {
				break
			}
			if next.Depth == t.Depth {
				isLast = false
				break
			}
		}
		items = append(items, TreeItem{
			Title:    t.Name,
			Code:     t.Code,
			Level:    t.Depth,
			IsLast:   isLast,
			Status:   t.Status,
			Conflict: t.HasConflict,
			Detail:   taskDetail(t),
		})
	}
	return items
}

func taskDetail(t contract.TaskView) string {
	span := t.DisplayStart
	if t.Kind != string(domain.KindMilestone) {
		span += " → " + t.DisplayEnd
	} else {
		span = "◆ " + span
	}
	return fmt.Sprintf("%s  %3d%%", span, t.DisplayProgress)
}

// FormatConflicts lists every violated dependency with its shortfall.
func FormatConflicts(agg *contract.ScheduleAggregate) string {
	if len(agg.Conflicts) == 0 {
		return StyleGreen.Render("✔ No dependency conflicts.") + "\n"
	}

	names := taskNames(agg.Tasks)
	headers := []string{"TASK", "PREDECESSOR", "TYPE", "LAG", "REQUIRED", "ACTUAL", "SHORT BY"}
	var rows [][]string
	for _, c := range agg.Conflicts {
		for _, v := range c.Violations {
			rows = append(rows, []string{
				StyleRed.Render(c.TaskName),
				names[v.PredecessorID],
				v.Type,
				strconv.Itoa(v.LagDays),
				v.Required,
				v.Actual,
				StyleRedBold.Render(fmt.Sprintf("%dd", v.ShortfallDays)),
			})
		}
	}
	return RenderTable(headers, rows)
}

// FormatDependencies lists the edges of a schedule in insertion order.
func FormatDependencies(agg *contract.ScheduleAggregate) string {
	if len(agg.Dependencies) == 0 {
		return Dim("No dependencies.") + "\n"
	}

	names := taskNames(agg.Tasks)
	headers := []string{"ID", "PREDECESSOR", "SUCCESSOR", "TYPE", "LAG"}
	rows := make([][]string, 0, len(agg.Dependencies))
	for _, d := range agg.Dependencies {
		rows = append(rows, []string{
			TruncID(d.ID),
			names[d.OriginID],
			names[d.DestinationID],
			d.Type,
			strconv.Itoa(d.LagDays),
		})
	}
	return RenderTable(headers, rows)
}

// FormatPhases renders per-phase rollups with progress bars.
func FormatPhases(phases []contract.PhaseView) string {
	if len(phases) == 0 {
		return Dim("No tasks yet.") + "\n"
	}

	headers := []string{"PHASE", "TASKS", "START", "END", "PROGRESS", "CONFLICTS"}
	rows := make([][]string, 0, len(phases))
	for _, p := range phases {
		name := p.Phase
		if name == "" {
			name = Dim("(untagged)")
		}
		conflicts := Dim("0")
		if p.ConflictCount > 0 {
			conflicts = StyleRed.Render(strconv.Itoa(p.ConflictCount))
		}
		rows = append(rows, []string{
			name,
			strconv.Itoa(len(p.TaskIDs)),
			OrDash(p.Start),
			OrDash(p.End),
			RenderProgress(p.Progress, 10),
			conflicts,
		})
	}
	return RenderTable(headers, rows)
}

// FormatHistory renders the workflow event log, oldest first.
func FormatHistory(events []contract.ScheduleEventView) string {
	if len(events) == 0 {
		return Dim("No workflow history yet.") + "\n"
	}

	headers := []string{"#", "WHEN", "ACTION", "ROLE", "TRANSITION", "COMMENT"}
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			strconv.Itoa(e.Seq),
			HumanTimestamp(e.At),
			actionLabel(e.Action),
			e.Role,
			fmt.Sprintf("%s → %s", e.FromState, e.ToState),
			OrDash(e.Comment),
		})
	}
	return RenderTable(headers, rows)
}

func actionLabel(action string) string {
	switch action {
	case string(domain.ActionApprove):
		return StyleGreen.Render(action)
	case string(domain.ActionReject):
		return StyleRed.Render(action)
	default:
		return StyleBlue.Render(action)
	}
}

// FormatCapabilities describes what the current role may change.
func FormatCapabilities(state string, role domain.Role, caps []domain.Capability) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s as %s: ", StateBadge(state), Bold(string(role))))
	if len(caps) == 0 {
		b.WriteString(StyleRed.Render("read-only"))
		b.WriteString("\n")
		return b.String()
	}
	parts := make([]string, len(caps))
	for i, c := range caps {
		parts[i] = string(c)
	}
	b.WriteString(StyleGreen.Render(strings.Join(parts, ", ")))
	b.WriteString("\n")
	return b.String()
}

func taskNames(tasks []contract.TaskView) map[string]string {
	names := make(map[string]string, len(tasks))
	for _, t := range tasks {
		names[t.ID] = t.Name
		if t.Code != "" {
			names[t.ID] = t.Code + " " + t.Name
		}
	}
	return names
}
