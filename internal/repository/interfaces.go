package repository

import (
	"context"
	"errors"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// ErrNotFound is returned by single-row lookups that match nothing. It is
// the domain sentinel, so callers above the service see one error kind.
var ErrNotFound = domain.ErrNotFound

// ErrStaleVersion is returned when a schedule row changed underneath an
// update, i.e. another process saved first.
var ErrStaleVersion = errors.New("schedule was modified concurrently")

type ScheduleRepo interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id string) (*domain.Schedule, error)
	List(ctx context.Context) ([]*domain.Schedule, error)
	// Update saves s only if the stored version still equals prevVersion.
	Update(ctx context.Context, s *domain.Schedule, prevVersion int) error
	Delete(ctx context.Context, id string) error
}

type TaskRepo interface {
	Create(ctx context.Context, t *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	ListBySchedule(ctx context.Context, scheduleID string) ([]*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id string) error
}

type DependencyRepo interface {
	Create(ctx context.Context, d *domain.Dependency) error
	Delete(ctx context.Context, id string) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]domain.Dependency, error)
}

type EventRepo interface {
	// Append stores e and assigns it the next per-schedule sequence number.
	Append(ctx context.Context, e *domain.ScheduleEvent) error
	ListBySchedule(ctx context.Context, scheduleID string) ([]domain.ScheduleEvent, error)
}
