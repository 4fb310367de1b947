package schedule

import (
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/validator"
)

// TaskView is a task as displayed: groups carry the span and weighted
// progress of their descendants instead of their stored values.
type TaskView struct {
	Task        domain.Task
	Depth       int
	Start       time.Time
	End         time.Time
	Progress    int
	HasConflict bool
	Violations  []validator.Violation
}

// TaskViews returns every task in tree order with derived display fields.
func (s *Schedule) TaskViews() []TaskView {
	var views []TaskView
	s.tasks.Walk(func(t domain.Task, depth int) {
		v := TaskView{
			Task:        t,
			Depth:       depth,
			Start:       t.Start,
			End:         t.End,
			Progress:    t.Progress,
			HasConflict: s.report.HasConflict(t.ID),
			Violations:  append([]validator.Violation(nil), s.report.ViolationsFor(t.ID)...),
		}
		if t.Kind == domain.KindGroup {
			s.rollUp(&v)
		}
		views = append(views, v)
	})
	return views
}

// rollUp derives a group's span and progress from its leaf (non-group)
// descendants, progress weighted by duration in days. A group with no
// leaves keeps its own dates and shows zero progress.
func (s *Schedule) rollUp(v *TaskView) {
	var leaves []domain.Task
	for _, t := range s.tasks.DescendantsOf(v.Task.ID) {
		if t.Kind != domain.KindGroup {
			leaves = append(leaves, t)
		}
	}
	if len(leaves) == 0 {
		return
	}
	v.Start, v.End = span(leaves)
	v.Progress = weightedProgress(leaves)
}

// PhaseView groups the tasks sharing one phase tag.
type PhaseView struct {
	Phase         string
	TaskIDs       []string
	Start         time.Time
	End           time.Time
	Progress      int
	ConflictCount int
}

// Phases groups non-group tasks by phase tag in order of first appearance
// in the tree. Untagged tasks form the phase "".
func (s *Schedule) Phases() []PhaseView {
	byPhase := make(map[string][]domain.Task)
	var order []string
	for _, t := range s.tasks.All() {
		if t.Kind == domain.KindGroup {
			continue
		}
		if _, seen := byPhase[t.Phase]; !seen {
			order = append(order, t.Phase)
		}
		byPhase[t.Phase] = append(byPhase[t.Phase], t)
	}

	phases := make([]PhaseView, 0, len(order))
	for _, name := range order {
		tasks := byPhase[name]
		p := PhaseView{Phase: name, Progress: weightedProgress(tasks)}
		p.Start, p.End = span(tasks)
		for _, t := range tasks {
			p.TaskIDs = append(p.TaskIDs, t.ID)
			if s.report.HasConflict(t.ID) {
				p.ConflictCount++
			}
		}
		phases = append(phases, p)
	}
	return phases
}

// Conflict pairs a conflicted task with the constraints it violates.
type Conflict struct {
	Task       domain.Task
	Violations []validator.Violation
}

// Conflicts returns the conflicted tasks in tree order.
func (s *Schedule) Conflicts() []Conflict {
	var out []Conflict
	for _, t := range s.tasks.All() {
		if v := s.report.ViolationsFor(t.ID); len(v) > 0 {
			out = append(out, Conflict{Task: t, Violations: append([]validator.Violation(nil), v...)})
		}
	}
	return out
}

func span(tasks []domain.Task) (time.Time, time.Time) {
	start, end := tasks[0].Start, tasks[0].End
	for _, t := range tasks[1:] {
		if domain.DayNumber(t.Start) < domain.DayNumber(start) {
			start = t.Start
		}
		if domain.DayNumber(t.End) > domain.DayNumber(end) {
			end = t.End
		}
	}
	return start, end
}

// weightedProgress is the duration-weighted mean progress of the non-group
// tasks in tasks, rounded half up.
func weightedProgress(tasks []domain.Task) int {
	var weighted, total int
	for _, t := range tasks {
		if t.Kind == domain.KindGroup {
			continue
		}
		d := t.DurationDays()
		weighted += t.Progress * d
		total += d
	}
	if total == 0 {
		return 0
	}
	return (2*weighted + total) / (2 * total)
}
