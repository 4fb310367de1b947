package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/cronograma/internal/actor"
	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/repository"
	"github.com/alexanderramin/cronograma/internal/schedule"
	"github.com/alexanderramin/cronograma/internal/workflow"
	"github.com/google/uuid"
)

// slot holds the published snapshot of one schedule. mu serializes writers;
// readers only load snap and never block on it.
type slot struct {
	mu   sync.Mutex
	snap atomic.Pointer[schedule.Schedule]
}

type scheduleService struct {
	schedules repository.ScheduleRepo
	tasks     repository.TaskRepo
	deps      repository.DependencyRepo
	events    repository.EventRepo
	uow       db.UnitOfWork
	policy    workflow.Policy
	observer  UseCaseObserver
	now       func() time.Time

	mu    sync.Mutex
	slots map[string]*slot
}

func NewScheduleService(
	schedules repository.ScheduleRepo,
	tasks repository.TaskRepo,
	deps repository.DependencyRepo,
	events repository.EventRepo,
	uow db.UnitOfWork,
	policy workflow.Policy,
	observers ...UseCaseObserver,
) ScheduleService {
	return &scheduleService{
		schedules: schedules,
		tasks:     tasks,
		deps:      deps,
		events:    events,
		uow:       uow,
		policy:    policy,
		observer:  useCaseObserverOrNoop(observers),
		now:       func() time.Time { return time.Now().UTC() },
		slots:     make(map[string]*slot),
	}
}

func (s *scheduleService) CreateSchedule(ctx context.Context, in contract.CreateScheduleInput) (agg *contract.ScheduleAggregate, err error) {
	done := s.observe(ctx, "create-schedule", map[string]any{"name": in.Name})
	defer func() { done(err) }()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.Invalidf("schedule name is required")
	}
	now := s.now()
	sch := schedule.New(domain.Schedule{
		ID:        uuid.New().String(),
		ProjectID: strings.TrimSpace(in.ProjectID),
		Name:      name,
		State:     domain.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return persistDiff(ctx, tx, nil, sch, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("creating schedule: %w", err)
	}
	s.slotFor(sch.ID()).snap.Store(sch)

	view := contract.FromSchedule(sch)
	return &view, nil
}

func (s *scheduleService) ListSchedules(ctx context.Context) ([]contract.ScheduleHeader, error) {
	headers, err := s.schedules.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]contract.ScheduleHeader, 0, len(headers))
	for _, h := range headers {
		snap, err := s.snapshot(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, contract.FromSchedule(snap).Schedule)
	}
	return out, nil
}

func (s *scheduleService) RenameSchedule(ctx context.Context, scheduleID, name string) (agg *contract.ScheduleAggregate, err error) {
	done := s.observe(ctx, "rename-schedule", map[string]any{"schedule_id": scheduleID})
	defer func() { done(err) }()

	next, err := s.mutate(ctx, scheduleID, []domain.Capability{domain.CapStructure},
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			return nil, sch.Rename(strings.TrimSpace(name), now)
		})
	if err != nil {
		return nil, err
	}
	view := contract.FromSchedule(next)
	return &view, nil
}

// DeleteSchedule removes a schedule that is still editable in full. Once a
// schedule has entered review its history is kept.
func (s *scheduleService) DeleteSchedule(ctx context.Context, scheduleID string) (err error) {
	done := s.observe(ctx, "delete-schedule", map[string]any{"schedule_id": scheduleID})
	defer func() { done(err) }()

	sl := s.slotFor(scheduleID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	cur, err := s.current(ctx, sl, scheduleID)
	if err != nil {
		return err
	}
	if err := s.policy.Require(cur.State(), actor.RoleFrom(ctx), domain.CapStructure); err != nil {
		return err
	}

	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLiteScheduleRepo(tx).Delete(ctx, scheduleID)
	})
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}

	sl.snap.Store(nil)
	s.mu.Lock()
	delete(s.slots, scheduleID)
	s.mu.Unlock()
	return nil
}

func (s *scheduleService) CreateTask(ctx context.Context, scheduleID string, in contract.TaskInput) (task domain.Task, err error) {
	done := s.observe(ctx, "create-task", map[string]any{"schedule_id": scheduleID, "name": in.Name})
	defer func() { done(err) }()

	_, err = s.mutate(ctx, scheduleID, []domain.Capability{domain.CapStructure},
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			t := in.ToTask()
			t.ID = uuid.New().String()
			added, err := sch.AddTask(t, now)
			task = added
			return nil, err
		})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// UpdateTask applies a partial update. The capabilities required follow
// from the fields the patch touches.
func (s *scheduleService) UpdateTask(ctx context.Context, scheduleID, taskID string, patch domain.TaskPatch) (domain.Task, error) {
	return s.patchTask(ctx, "update-task", scheduleID, taskID, patch)
}

func (s *scheduleService) UpdateTaskDates(ctx context.Context, scheduleID, taskID string, start, end time.Time) (domain.Task, error) {
	if start.IsZero() || end.IsZero() {
		return domain.Task{}, domain.Invalidf("both start and end dates are required")
	}
	return s.patchTask(ctx, "update-task-dates", scheduleID, taskID, domain.TaskPatch{Start: &start, End: &end})
}

func (s *scheduleService) UpdateTaskProgress(ctx context.Context, scheduleID, taskID string, percent int) (domain.Task, error) {
	if percent < 0 || percent > 100 {
		return domain.Task{}, domain.Invalidf("progress %d must be between 0 and 100", percent)
	}
	return s.patchTask(ctx, "update-task-progress", scheduleID, taskID, domain.TaskPatch{Progress: &percent})
}

func (s *scheduleService) UpdateTaskStatus(ctx context.Context, scheduleID, taskID string, status domain.TaskStatus) (domain.Task, error) {
	if !domain.ValidTaskStatuses[status] {
		return domain.Task{}, domain.Invalidf("task status %q is invalid", status)
	}
	return s.patchTask(ctx, "update-task-status", scheduleID, taskID, domain.TaskPatch{Status: &status})
}

func (s *scheduleService) patchTask(ctx context.Context, useCase, scheduleID, taskID string, patch domain.TaskPatch) (task domain.Task, err error) {
	done := s.observe(ctx, useCase, map[string]any{"schedule_id": scheduleID, "task_id": taskID})
	defer func() { done(err) }()

	caps := patch.RequiredCapabilities()
	if len(caps) == 0 {
		return domain.Task{}, domain.Invalidf("nothing to update")
	}
	_, err = s.mutate(ctx, scheduleID, caps,
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			updated, err := sch.UpdateTask(taskID, patch, now)
			task = updated
			return nil, err
		})
	if err != nil {
		return domain.Task{}, err
	}
	return task, nil
}

// DeleteTask removes a task along with every edge that referenced it. Its
// children move up one level.
func (s *scheduleService) DeleteTask(ctx context.Context, scheduleID, taskID string) (err error) {
	done := s.observe(ctx, "delete-task", map[string]any{"schedule_id": scheduleID, "task_id": taskID})
	defer func() { done(err) }()

	_, err = s.mutate(ctx, scheduleID, []domain.Capability{domain.CapStructure},
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			_, _, err := sch.RemoveTask(taskID, now)
			return nil, err
		})
	return err
}

func (s *scheduleService) AddDependency(ctx context.Context, scheduleID string, in contract.DependencyInput) (dep domain.Dependency, err error) {
	done := s.observe(ctx, "add-dependency", map[string]any{
		"schedule_id": scheduleID,
		"origin":      in.OriginID,
		"destination": in.DestinationID,
	})
	defer func() { done(err) }()

	_, err = s.mutate(ctx, scheduleID, []domain.Capability{domain.CapDependencies},
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			d := in.ToDependency()
			d.ID = uuid.New().String()
			added, err := sch.AddDependency(d, now)
			dep = added
			return nil, err
		})
	if err != nil {
		return domain.Dependency{}, err
	}
	return dep, nil
}

func (s *scheduleService) RemoveDependency(ctx context.Context, scheduleID, edgeID string) (err error) {
	done := s.observe(ctx, "remove-dependency", map[string]any{"schedule_id": scheduleID, "edge_id": edgeID})
	defer func() { done(err) }()

	_, err = s.mutate(ctx, scheduleID, []domain.Capability{domain.CapDependencies},
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			_, err := sch.RemoveDependency(edgeID, now)
			return nil, err
		})
	return err
}

func (s *scheduleService) SubmitForReview(ctx context.Context, scheduleID string) (*contract.ScheduleAggregate, error) {
	return s.transition(ctx, "submit-for-review", scheduleID, nil,
		func(sch *schedule.Schedule, role domain.Role, now time.Time) (workflow.Transition, error) {
			return sch.Submit(role, now)
		})
}

// Decide records the caller's verdict as one of the two reviewers.
func (s *scheduleService) Decide(ctx context.Context, scheduleID string, in contract.DecisionInput) (*contract.ScheduleAggregate, error) {
	return s.transition(ctx, "decide", scheduleID, map[string]any{"approved": in.Approved},
		func(sch *schedule.Schedule, role domain.Role, now time.Time) (workflow.Transition, error) {
			return sch.Decide(role, in.Approved, in.Comment, now)
		})
}

func (s *scheduleService) Reopen(ctx context.Context, scheduleID, comment string) (*contract.ScheduleAggregate, error) {
	return s.transition(ctx, "reopen", scheduleID, nil,
		func(sch *schedule.Schedule, role domain.Role, now time.Time) (workflow.Transition, error) {
			return sch.Reopen(role, comment, now)
		})
}

func (s *scheduleService) transition(
	ctx context.Context,
	useCase, scheduleID string,
	fields map[string]any,
	step func(*schedule.Schedule, domain.Role, time.Time) (workflow.Transition, error),
) (agg *contract.ScheduleAggregate, err error) {
	if fields == nil {
		fields = map[string]any{}
	}
	fields["schedule_id"] = scheduleID
	done := s.observe(ctx, useCase, fields)
	defer func() { done(err) }()

	role := actor.RoleFrom(ctx)
	next, err := s.mutate(ctx, scheduleID, nil,
		func(sch *schedule.Schedule, now time.Time) (*workflow.Transition, error) {
			tr, err := step(sch, role, now)
			if err != nil {
				return nil, err
			}
			return &tr, nil
		})
	if err != nil {
		return nil, err
	}
	fields["state"] = string(next.State())
	view := contract.FromSchedule(next)
	return &view, nil
}

// GetSchedule returns the current aggregate. It never waits on a writer:
// the published snapshot is immutable, so the view is built from either the
// state before or after any concurrent mutation.
func (s *scheduleService) GetSchedule(ctx context.Context, scheduleID string) (*contract.ScheduleAggregate, error) {
	snap, err := s.snapshot(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	view := contract.FromSchedule(snap)
	return &view, nil
}

func (s *scheduleService) Phases(ctx context.Context, scheduleID string) ([]contract.PhaseView, error) {
	snap, err := s.snapshot(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return contract.PhasesFrom(snap), nil
}

func (s *scheduleService) History(ctx context.Context, scheduleID string) ([]contract.ScheduleEventView, error) {
	if _, err := s.snapshot(ctx, scheduleID); err != nil {
		return nil, err
	}
	events, err := s.events.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return contract.EventsFrom(events), nil
}

// AllowedMutations lists what the caller may change on the schedule now.
func (s *scheduleService) AllowedMutations(ctx context.Context, scheduleID string) ([]domain.Capability, error) {
	snap, err := s.snapshot(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return s.policy.AllowedMutations(snap.State(), actor.RoleFrom(ctx)).List(), nil
}

// mutate runs fn against a private clone of the schedule under the
// schedule's write lock, persists the result in one unit of work and only
// then publishes it. Any failure leaves the published snapshot untouched.
func (s *scheduleService) mutate(
	ctx context.Context,
	scheduleID string,
	caps []domain.Capability,
	fn func(*schedule.Schedule, time.Time) (*workflow.Transition, error),
) (*schedule.Schedule, error) {
	sl := s.slotFor(scheduleID)
	sl.mu.Lock()
	defer sl.mu.Unlock()

	cur, err := s.current(ctx, sl, scheduleID)
	if err != nil {
		return nil, err
	}
	if len(caps) > 0 {
		if err := s.policy.Require(cur.State(), actor.RoleFrom(ctx), caps...); err != nil {
			return nil, err
		}
	}

	next := cur.Clone()
	now := s.now()
	tr, err := fn(next, now)
	if err != nil {
		return nil, err
	}

	var events []domain.ScheduleEvent
	if tr != nil {
		events = append(events, eventFor(scheduleID, *tr, now))
	}
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return persistDiff(ctx, tx, cur, next, events)
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			// Someone else wrote this schedule; reload on next access.
			sl.snap.Store(nil)
		}
		return nil, fmt.Errorf("saving schedule %s: %w", scheduleID, err)
	}

	sl.snap.Store(next)
	return next, nil
}

// snapshot returns the published schedule, loading it on first access.
func (s *scheduleService) snapshot(ctx context.Context, scheduleID string) (*schedule.Schedule, error) {
	sl := s.slotFor(scheduleID)
	if snap := sl.snap.Load(); snap != nil {
		return snap, nil
	}
	sl.mu.Lock()
	defer sl.mu.Unlock()
	return s.current(ctx, sl, scheduleID)
}

// current returns the published snapshot, loading it from the store if
// needed. The caller holds sl.mu.
func (s *scheduleService) current(ctx context.Context, sl *slot, scheduleID string) (*schedule.Schedule, error) {
	if snap := sl.snap.Load(); snap != nil {
		return snap, nil
	}
	snap, err := s.load(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	sl.snap.Store(snap)
	return snap, nil
}

func (s *scheduleService) load(ctx context.Context, scheduleID string) (*schedule.Schedule, error) {
	header, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	taskRows, err := s.tasks.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	tasks := make([]domain.Task, 0, len(taskRows))
	for _, t := range taskRows {
		tasks = append(tasks, *t)
	}
	deps, err := s.deps.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	sch, err := schedule.Restore(*header, tasks, deps)
	if err != nil {
		return nil, fmt.Errorf("restoring schedule %s: %w", scheduleID, err)
	}
	return sch, nil
}

func (s *scheduleService) slotFor(scheduleID string) *slot {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[scheduleID]
	if !ok {
		sl = &slot{}
		s.slots[scheduleID] = sl
	}
	return sl
}

func eventFor(scheduleID string, tr workflow.Transition, at time.Time) domain.ScheduleEvent {
	return domain.ScheduleEvent{
		ID:         uuid.New().String(),
		ScheduleID: scheduleID,
		Action:     tr.Action,
		Role:       tr.Role,
		Comment:    tr.Comment,
		FromState:  tr.From,
		ToState:    tr.To,
		At:         at,
	}
}
