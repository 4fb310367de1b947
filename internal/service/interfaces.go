package service

import (
	"context"
	"time"

	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/importer"
)

// ScheduleService is the single entry point for reading and changing
// schedules. The caller's role travels in ctx (see package actor).
type ScheduleService interface {
	CreateSchedule(ctx context.Context, in contract.CreateScheduleInput) (*contract.ScheduleAggregate, error)
	ListSchedules(ctx context.Context) ([]contract.ScheduleHeader, error)
	RenameSchedule(ctx context.Context, scheduleID, name string) (*contract.ScheduleAggregate, error)
	DeleteSchedule(ctx context.Context, scheduleID string) error

	CreateTask(ctx context.Context, scheduleID string, in contract.TaskInput) (domain.Task, error)
	UpdateTask(ctx context.Context, scheduleID, taskID string, patch domain.TaskPatch) (domain.Task, error)
	DeleteTask(ctx context.Context, scheduleID, taskID string) error
	UpdateTaskDates(ctx context.Context, scheduleID, taskID string, start, end time.Time) (domain.Task, error)
	UpdateTaskProgress(ctx context.Context, scheduleID, taskID string, percent int) (domain.Task, error)
	UpdateTaskStatus(ctx context.Context, scheduleID, taskID string, status domain.TaskStatus) (domain.Task, error)

	AddDependency(ctx context.Context, scheduleID string, in contract.DependencyInput) (domain.Dependency, error)
	RemoveDependency(ctx context.Context, scheduleID, edgeID string) error

	SubmitForReview(ctx context.Context, scheduleID string) (*contract.ScheduleAggregate, error)
	Decide(ctx context.Context, scheduleID string, in contract.DecisionInput) (*contract.ScheduleAggregate, error)
	Reopen(ctx context.Context, scheduleID, comment string) (*contract.ScheduleAggregate, error)

	GetSchedule(ctx context.Context, scheduleID string) (*contract.ScheduleAggregate, error)
	Phases(ctx context.Context, scheduleID string) ([]contract.PhaseView, error)
	History(ctx context.Context, scheduleID string) ([]contract.ScheduleEventView, error)
	AllowedMutations(ctx context.Context, scheduleID string) ([]domain.Capability, error)
}

// ImportResult holds the outcome of a schedule import.
type ImportResult struct {
	Schedule        *contract.ScheduleAggregate
	TaskCount       int
	DependencyCount int
}

type ImportService interface {
	ImportSchedule(ctx context.Context, filePath string) (*ImportResult, error)
	ImportScheduleFromSchema(ctx context.Context, schema *importer.ImportSchema) (*ImportResult, error)
}
