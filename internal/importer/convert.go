package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/schedule"
	"github.com/google/uuid"
)

// Convert builds a schedule aggregate from a validated ImportSchema. Every
// task and edge goes through the aggregate's own checks, so a schema that
// slipped past validation still cannot produce an invalid schedule.
func Convert(schema *ImportSchema, now time.Time) (*schedule.Schedule, error) {
	sch := schedule.New(domain.Schedule{
		ID:        uuid.New().String(),
		ProjectID: schema.Schedule.ProjectID,
		Name:      strings.TrimSpace(schema.Schedule.Name),
		State:     domain.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	})

	// Each row gets a distinct timestamp so reloads keep file order.
	tick := 0
	at := func() time.Time {
		tick++
		return now.Add(time.Duration(tick) * time.Microsecond)
	}

	refMap := make(map[string]string, len(schema.Tasks)) // ref -> UUID
	for i, ti := range schema.Tasks {
		task, err := convertTask(ti, refMap)
		if err != nil {
			return nil, fmt.Errorf("tasks[%d]: %w", i, err)
		}
		if _, err := sch.AddTask(task, at()); err != nil {
			return nil, fmt.Errorf("tasks[%d] %q: %w", i, ti.Ref, err)
		}
		refMap[ti.Ref] = task.ID
	}

	for i, di := range schema.Dependencies {
		dep := domain.Dependency{
			ID:            uuid.New().String(),
			OriginID:      refMap[di.PredecessorRef],
			DestinationID: refMap[di.SuccessorRef],
			Type:          dependencyType(di.Type),
			LagDays:       di.LagDays,
		}
		if _, err := sch.AddDependency(dep, at()); err != nil {
			return nil, fmt.Errorf("dependencies[%d]: %w", i, err)
		}
	}

	return sch, nil
}

func convertTask(ti TaskImport, refMap map[string]string) (domain.Task, error) {
	start, err := domain.ParseDate(ti.Start)
	if err != nil {
		return domain.Task{}, fmt.Errorf("parsing start: %w", err)
	}
	end := start
	if ti.End != "" {
		if end, err = domain.ParseDate(ti.End); err != nil {
			return domain.Task{}, fmt.Errorf("parsing end: %w", err)
		}
	}

	task := domain.Task{
		ID:           uuid.New().String(),
		Code:         ti.Code,
		Name:         ti.Name,
		Description:  ti.Description,
		Start:        start,
		End:          end,
		Progress:     ti.Progress,
		Kind:         domain.TaskKind(ti.Kind),
		Phase:        ti.Phase,
		AssigneeID:   ti.AssigneeID,
		Color:        ti.Color,
		DisplayOrder: ti.Order,
		Status:       domain.TaskStatus(ti.Status),
		Critical:     ti.Critical,
	}
	if ti.ParentRef != nil && *ti.ParentRef != "" {
		if pid, ok := refMap[*ti.ParentRef]; ok {
			task.ParentID = &pid
		}
	}
	return task, nil
}
