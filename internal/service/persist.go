package service

import (
	"context"
	"fmt"
	"reflect"

	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/repository"
	"github.com/alexanderramin/cronograma/internal/schedule"
)

// persistDiff writes the difference between prev and next through
// tx-scoped repositories. A nil prev means next is brand new. The header
// update carries prev's version, so a concurrent writer in another process
// surfaces as repository.ErrStaleVersion instead of a lost update.
func persistDiff(ctx context.Context, tx db.DBTX, prev, next *schedule.Schedule, events []domain.ScheduleEvent) error {
	schedules := repository.NewSQLiteScheduleRepo(tx)
	tasks := repository.NewSQLiteTaskRepo(tx)
	deps := repository.NewSQLiteDependencyRepo(tx)
	eventRepo := repository.NewSQLiteEventRepo(tx)

	header := next.Header()
	if prev == nil {
		if err := schedules.Create(ctx, &header); err != nil {
			return err
		}
	} else if err := schedules.Update(ctx, &header, prev.Version()); err != nil {
		return err
	}

	prevTasks := make(map[string]domain.Task)
	prevDeps := make(map[string]bool)
	if prev != nil {
		for _, t := range prev.Tasks() {
			prevTasks[t.ID] = t
		}
		for _, d := range prev.Dependencies() {
			prevDeps[d.ID] = true
		}
	}

	nextDeps := make(map[string]bool)
	for _, d := range next.Dependencies() {
		nextDeps[d.ID] = true
	}
	for id := range prevDeps {
		if !nextDeps[id] {
			if err := deps.Delete(ctx, id); err != nil {
				return err
			}
		}
	}

	nextTasks := make(map[string]bool)
	for _, t := range next.Tasks() {
		nextTasks[t.ID] = true
	}
	for id := range prevTasks {
		if !nextTasks[id] {
			if err := tasks.Delete(ctx, id); err != nil {
				return err
			}
		}
	}

	for _, t := range next.Tasks() {
		old, existed := prevTasks[t.ID]
		switch {
		case !existed:
			if err := tasks.Create(ctx, &t); err != nil {
				return fmt.Errorf("task %q: %w", t.Name, err)
			}
		case !reflect.DeepEqual(old, t):
			if err := tasks.Update(ctx, &t); err != nil {
				return fmt.Errorf("task %q: %w", t.Name, err)
			}
		}
	}

	for _, d := range next.Dependencies() {
		if !prevDeps[d.ID] {
			if err := deps.Create(ctx, &d); err != nil {
				return err
			}
		}
	}

	for i := range events {
		if err := eventRepo.Append(ctx, &events[i]); err != nil {
			return err
		}
	}
	return nil
}
