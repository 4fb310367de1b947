// Package schedule is the aggregate root tying one schedule's header, task
// store and dependency graph together. Every mutation leaves the conflict
// report current. The aggregate does no locking and no permission checks;
// the service mutates private clones and publishes them whole.
package schedule

import (
	"time"

	"github.com/alexanderramin/cronograma/internal/depgraph"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/taskstore"
	"github.com/alexanderramin/cronograma/internal/validator"
	"github.com/alexanderramin/cronograma/internal/workflow"
)

type Schedule struct {
	header domain.Schedule
	tasks  *taskstore.Store
	graph  *depgraph.Graph
	report validator.Report
}

// New returns an empty schedule. A blank state becomes draft.
func New(header domain.Schedule) *Schedule {
	if header.State == "" {
		header.State = domain.StateDraft
	}
	s := &Schedule{header: header.Clone(), tasks: taskstore.New(), graph: depgraph.New()}
	s.revalidate()
	return s
}

// Restore rebuilds a schedule from persisted rows, re-checking hierarchy
// and acyclicity.
func Restore(header domain.Schedule, tasks []domain.Task, deps []domain.Dependency) (*Schedule, error) {
	store, err := taskstore.Restore(tasks)
	if err != nil {
		return nil, err
	}
	graph, err := depgraph.Restore(deps, store.Has)
	if err != nil {
		return nil, err
	}
	if header.State == "" {
		header.State = domain.StateDraft
	}
	s := &Schedule{header: header.Clone(), tasks: store, graph: graph}
	s.revalidate()
	return s, nil
}

// Clone returns an independent deep copy for copy-on-write mutation.
func (s *Schedule) Clone() *Schedule {
	return &Schedule{
		header: s.header.Clone(),
		tasks:  s.tasks.Clone(),
		graph:  s.graph.Clone(),
		report: s.report.Clone(),
	}
}

func (s *Schedule) ID() string { return s.header.ID }

func (s *Schedule) State() domain.WorkflowState { return s.header.State }

func (s *Schedule) Header() domain.Schedule { return s.header.Clone() }

func (s *Schedule) Version() int { return s.header.Version }

func (s *Schedule) TaskCount() int { return s.tasks.Len() }

func (s *Schedule) Task(id string) (domain.Task, error) { return s.tasks.Get(id) }

func (s *Schedule) HasTask(id string) bool { return s.tasks.Has(id) }

// Tasks returns all tasks in tree order.
func (s *Schedule) Tasks() []domain.Task { return s.tasks.All() }

func (s *Schedule) ChildrenOf(id string) []domain.Task { return s.tasks.ChildrenOf(id) }

func (s *Schedule) AncestorsOf(id string) ([]domain.Task, error) { return s.tasks.AncestorsOf(id) }

// FindTaskByCode looks a task up by its human code.
func (s *Schedule) FindTaskByCode(code string) (domain.Task, bool) { return s.tasks.FindByCode(code) }

// Dependencies returns all edges in insertion order.
func (s *Schedule) Dependencies() []domain.Dependency { return s.graph.All() }

func (s *Schedule) Dependency(id string) (domain.Dependency, error) { return s.graph.Get(id) }

func (s *Schedule) EdgesInto(taskID string) []domain.Dependency { return s.graph.EdgesInto(taskID) }

func (s *Schedule) EdgesOutOf(taskID string) []domain.Dependency { return s.graph.EdgesOutOf(taskID) }

// Report returns a copy of the current conflict report.
func (s *Schedule) Report() validator.Report { return s.report.Clone() }

func (s *Schedule) HasConflict(taskID string) bool { return s.report.HasConflict(taskID) }

// Rename changes the schedule's display name.
func (s *Schedule) Rename(name string, now time.Time) error {
	if name == "" {
		return domain.Invalidf("schedule name is required")
	}
	s.header.Name = name
	s.touch(now)
	return nil
}

// AddTask stores a new task and stamps its creation time.
func (s *Schedule) AddTask(t domain.Task, now time.Time) (domain.Task, error) {
	t.ScheduleID = s.header.ID
	t.CreatedAt = now
	t.UpdatedAt = now
	if t.Kind == domain.KindGroup && t.Progress != 0 {
		return domain.Task{}, groupProgressError(t.Name)
	}
	added, err := s.tasks.Add(t)
	if err != nil {
		return domain.Task{}, err
	}
	s.touch(now)
	return added, nil
}

// UpdateTask applies a partial update to one task. Turning a task with
// recorded progress into a group is rejected; progress must be cleared in
// the same patch.
func (s *Schedule) UpdateTask(id string, patch domain.TaskPatch, now time.Time) (domain.Task, error) {
	if patch.Progress != nil || patch.Kind != nil {
		cur, err := s.tasks.Get(id)
		if err != nil {
			return domain.Task{}, err
		}
		kind := domain.FromPtrOr(cur.Kind, patch.Kind)
		progress := domain.FromPtrOr(cur.Progress, patch.Progress)
		if kind == domain.KindGroup && progress != 0 {
			return domain.Task{}, groupProgressError(cur.Name)
		}
	}
	updated, err := s.tasks.Update(id, patch, now)
	if err != nil {
		return domain.Task{}, err
	}
	s.touch(now)
	return updated, nil
}

// RemoveTask deletes a task, re-parents its children and drops every edge
// that referenced it.
func (s *Schedule) RemoveTask(id string, now time.Time) (domain.Task, []domain.Dependency, error) {
	removed, err := s.tasks.Remove(id, now)
	if err != nil {
		return domain.Task{}, nil, err
	}
	edges := s.graph.RemoveAllFor(id)
	s.touch(now)
	return removed, edges, nil
}

// AddDependency inserts a precedence edge between two tasks of this schedule.
func (s *Schedule) AddDependency(d domain.Dependency, now time.Time) (domain.Dependency, error) {
	d.ScheduleID = s.header.ID
	d.CreatedAt = now
	added, err := s.graph.AddEdge(d, s.tasks.Has)
	if err != nil {
		return domain.Dependency{}, err
	}
	s.touch(now)
	return added, nil
}

func (s *Schedule) RemoveDependency(id string, now time.Time) (domain.Dependency, error) {
	removed, err := s.graph.RemoveEdge(id)
	if err != nil {
		return domain.Dependency{}, err
	}
	s.touch(now)
	return removed, nil
}

// Submit moves the schedule into review.
func (s *Schedule) Submit(role domain.Role, now time.Time) (workflow.Transition, error) {
	return s.transition(now, func(h *domain.Schedule) (workflow.Transition, error) {
		return workflow.SubmitForReview(h, role, s.tasks.Len(), now)
	})
}

// Decide records a reviewer's approval or rejection.
func (s *Schedule) Decide(role domain.Role, approved bool, comment string, now time.Time) (workflow.Transition, error) {
	return s.transition(now, func(h *domain.Schedule) (workflow.Transition, error) {
		return workflow.Decide(h, role, approved, comment, now)
	})
}

// Reopen returns an approved schedule to draft.
func (s *Schedule) Reopen(role domain.Role, comment string, now time.Time) (workflow.Transition, error) {
	return s.transition(now, func(h *domain.Schedule) (workflow.Transition, error) {
		return workflow.Reopen(h, role, comment, now)
	})
}

// transition runs a workflow step against a copy of the header so a refused
// action leaves the aggregate untouched.
func (s *Schedule) transition(now time.Time, step func(*domain.Schedule) (workflow.Transition, error)) (workflow.Transition, error) {
	h := s.header.Clone()
	tr, err := step(&h)
	if err != nil {
		return workflow.Transition{}, err
	}
	s.header = h
	s.touch(now)
	return tr, nil
}

func (s *Schedule) touch(now time.Time) {
	s.header.Version++
	s.header.UpdatedAt = now
	s.revalidate()
}

func (s *Schedule) revalidate() {
	s.report = validator.Validate(s.tasks.All(), s.graph.All())
}

func groupProgressError(name string) error {
	return domain.Invalidf("group %q has no progress of its own; it is derived from its tasks", name)
}
