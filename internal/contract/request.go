package contract

import (
	"strings"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
)

type CreateScheduleInput struct {
	ProjectID string
	Name      string
}

// TaskInput describes a new task. Zero values take the task defaults:
// kind task, status not_started, no parent.
type TaskInput struct {
	Code         string
	Name         string
	Description  string
	Start        time.Time
	End          time.Time
	Progress     int
	Kind         domain.TaskKind
	Phase        string
	AssigneeID   string
	Color        string
	DisplayOrder int
	ParentID     string
	Status       domain.TaskStatus
	Critical     bool
}

// ToTask converts the input to an unsaved task. Identity and timestamps
// are assigned by the service.
func (in TaskInput) ToTask() domain.Task {
	t := domain.Task{
		Code:         in.Code,
		Name:         in.Name,
		Description:  in.Description,
		Start:        in.Start,
		End:          in.End,
		Progress:     in.Progress,
		Kind:         in.Kind,
		Phase:        in.Phase,
		AssigneeID:   in.AssigneeID,
		Color:        in.Color,
		DisplayOrder: in.DisplayOrder,
		Status:       in.Status,
		Critical:     in.Critical,
	}
	if parent := strings.TrimSpace(in.ParentID); parent != "" {
		t.ParentID = &parent
	}
	return t
}

// DependencyInput describes a new precedence edge. An empty Type means FS.
type DependencyInput struct {
	OriginID      string
	DestinationID string
	Type          domain.DependencyType
	LagDays       int
}

func (in DependencyInput) ToDependency() domain.Dependency {
	typ := in.Type
	if typ == "" {
		typ = domain.DepFinishToStart
	}
	return domain.Dependency{
		OriginID:      in.OriginID,
		DestinationID: in.DestinationID,
		Type:          typ,
		LagDays:       in.LagDays,
	}
}

// DecisionInput is a reviewer's verdict. Comment is mandatory on rejection.
type DecisionInput struct {
	Approved bool
	Comment  string
}
