package testutil

import (
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/google/uuid"
)

// Day0 is the fixed reference date fixtures count from: Monday 2025-03-31 at noon.
var Day0 = domain.AtNoon(time.Date(2025, time.March, 31, 12, 0, 0, 0, time.Local))

// Day returns Day0 shifted by n calendar days.
func Day(n int) time.Time {
	return domain.AddDays(Day0, n)
}

// Schedule options
type ScheduleOption func(*domain.Schedule)

func WithState(s domain.WorkflowState) ScheduleOption {
	return func(h *domain.Schedule) {
		h.State = s
	}
}

func WithProjectID(id string) ScheduleOption {
	return func(h *domain.Schedule) {
		h.ProjectID = id
	}
}

func NewTestSchedule(name string, opts ...ScheduleOption) *domain.Schedule {
	now := time.Now().UTC()
	s := &domain.Schedule{
		ID:        uuid.New().String(),
		ProjectID: "proj-test",
		Name:      name,
		State:     domain.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Task options
type TaskOption func(*domain.Task)

func WithDays(start, end int) TaskOption {
	return func(t *domain.Task) {
		t.Start = Day(start)
		t.End = Day(end)
	}
}

func WithKind(k domain.TaskKind) TaskOption {
	return func(t *domain.Task) {
		t.Kind = k
	}
}

func WithParent(id string) TaskOption {
	return func(t *domain.Task) {
		t.ParentID = &id
	}
}

func WithCode(code string) TaskOption {
	return func(t *domain.Task) {
		t.Code = code
	}
}

func WithPhase(phase string) TaskOption {
	return func(t *domain.Task) {
		t.Phase = phase
	}
}

func WithProgress(p int) TaskOption {
	return func(t *domain.Task) {
		t.Progress = p
	}
}

func WithSeq(seq int) TaskOption {
	return func(t *domain.Task) {
		t.Seq = seq
	}
}

// NewTestTask builds a one-day task on Day0 belonging to scheduleID.
func NewTestTask(scheduleID, name string, opts ...TaskOption) *domain.Task {
	now := time.Now().UTC()
	t := &domain.Task{
		ID:         uuid.New().String(),
		ScheduleID: scheduleID,
		Name:       name,
		Start:      Day0,
		End:        Day0,
		Kind:       domain.KindTask,
		Status:     domain.TaskNotStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Dependency options
type DependencyOption func(*domain.Dependency)

func WithType(typ domain.DependencyType) DependencyOption {
	return func(d *domain.Dependency) {
		d.Type = typ
	}
}

func WithLag(days int) DependencyOption {
	return func(d *domain.Dependency) {
		d.LagDays = days
	}
}

// NewTestDependency builds a finish-to-start edge from origin to destination.
func NewTestDependency(scheduleID, originID, destinationID string, opts ...DependencyOption) *domain.Dependency {
	d := &domain.Dependency{
		ID:            uuid.New().String(),
		ScheduleID:    scheduleID,
		OriginID:      originID,
		DestinationID: destinationID,
		Type:          domain.DepFinishToStart,
		CreatedAt:     time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}
