package contract

import (
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/schedule"
	"github.com/alexanderramin/cronograma/internal/validator"
)

// ScheduleAggregate is the full read model of one schedule: header, tasks
// in tree order, edges in insertion order, conflicts and shape issues.
// Every field is a value or a slice so encoding it is deterministic.
type ScheduleAggregate struct {
	Schedule     ScheduleHeader   `json:"schedule"`
	Tasks        []TaskView       `json:"tasks"`
	Dependencies []DependencyView `json:"dependencies"`
	Conflicts    []ConflictView   `json:"conflicts"`
	Issues       []IssueView      `json:"issues"`
}

type ScheduleHeader struct {
	ID                  string `json:"id"`
	ProjectID           string `json:"project_id"`
	Name                string `json:"name"`
	State               string `json:"state"`
	ApprovedByReviewer1 bool   `json:"approved_by_reviewer1"`
	ApprovedByReviewer2 bool   `json:"approved_by_reviewer2"`
	Reviewer1Comment    string `json:"reviewer1_comment,omitempty"`
	Reviewer2Comment    string `json:"reviewer2_comment,omitempty"`
	RejectionComment    string `json:"rejection_comment,omitempty"`
	SubmittedAt         string `json:"submitted_at,omitempty"`
	DecidedAt           string `json:"decided_at,omitempty"`
	Version             int    `json:"version"`
	TaskCount           int    `json:"task_count"`
	CreatedAt           string `json:"created_at"`
	UpdatedAt           string `json:"updated_at"`
}

// TaskView carries both the stored dates and the displayed ones; they only
// differ for groups, whose display values roll up from their descendants.
type TaskView struct {
	ID              string          `json:"id"`
	Code            string          `json:"code,omitempty"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Kind            string          `json:"kind"`
	Status          string          `json:"status"`
	Phase           string          `json:"phase,omitempty"`
	AssigneeID      string          `json:"assignee_id,omitempty"`
	Color           string          `json:"color,omitempty"`
	ParentID        string          `json:"parent_id,omitempty"`
	DisplayOrder    int             `json:"display_order"`
	Depth           int             `json:"depth"`
	Start           string          `json:"start"`
	End             string          `json:"end"`
	Progress        int             `json:"progress"`
	DisplayStart    string          `json:"display_start"`
	DisplayEnd      string          `json:"display_end"`
	DisplayProgress int             `json:"display_progress"`
	Critical        bool            `json:"critical"`
	HasConflict     bool            `json:"has_conflict"`
	Violations      []ViolationView `json:"violations,omitempty"`
}

type DependencyView struct {
	ID            string `json:"id"`
	OriginID      string `json:"origin_id"`
	DestinationID string `json:"destination_id"`
	Type          string `json:"type"`
	LagDays       int    `json:"lag_days"`
}

type ViolationView struct {
	EdgeID        string `json:"edge_id"`
	PredecessorID string `json:"predecessor_id"`
	Type          string `json:"type"`
	LagDays       int    `json:"lag_days"`
	Required      string `json:"required"`
	Actual        string `json:"actual"`
	ShortfallDays int    `json:"shortfall_days"`
}

type ConflictView struct {
	TaskID     string          `json:"task_id"`
	TaskName   string          `json:"task_name"`
	Violations []ViolationView `json:"violations"`
}

type IssueView struct {
	TaskID  string `json:"task_id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PhaseView struct {
	Phase         string   `json:"phase"`
	TaskIDs       []string `json:"task_ids"`
	Start         string   `json:"start,omitempty"`
	End           string   `json:"end,omitempty"`
	Progress      int      `json:"progress"`
	ConflictCount int      `json:"conflict_count"`
}

type ScheduleEventView struct {
	Seq       int    `json:"seq"`
	Action    string `json:"action"`
	Role      string `json:"role"`
	Comment   string `json:"comment,omitempty"`
	FromState string `json:"from_state"`
	ToState   string `json:"to_state"`
	At        string `json:"at"`
}

// FromSchedule builds the read model of s.
func FromSchedule(s *schedule.Schedule) ScheduleAggregate {
	h := s.Header()
	agg := ScheduleAggregate{
		Schedule: ScheduleHeader{
			ID:                  h.ID,
			ProjectID:           h.ProjectID,
			Name:                h.Name,
			State:               string(h.State),
			ApprovedByReviewer1: h.ApprovedByReviewer1,
			ApprovedByReviewer2: h.ApprovedByReviewer2,
			Reviewer1Comment:    h.Reviewer1Comment,
			Reviewer2Comment:    h.Reviewer2Comment,
			RejectionComment:    h.RejectionComment,
			SubmittedAt:         formatOptionalTimestamp(h.SubmittedAt),
			DecidedAt:           formatOptionalTimestamp(h.DecidedAt),
			Version:             h.Version,
			TaskCount:           s.TaskCount(),
			CreatedAt:           FormatTimestamp(h.CreatedAt),
			UpdatedAt:           FormatTimestamp(h.UpdatedAt),
		},
		Tasks:        []TaskView{},
		Dependencies: []DependencyView{},
		Conflicts:    []ConflictView{},
		Issues:       []IssueView{},
	}

	for _, v := range s.TaskViews() {
		agg.Tasks = append(agg.Tasks, taskView(v))
	}
	for _, d := range s.Dependencies() {
		agg.Dependencies = append(agg.Dependencies, DependencyFrom(d))
	}
	for _, c := range s.Conflicts() {
		agg.Conflicts = append(agg.Conflicts, ConflictView{
			TaskID:     c.Task.ID,
			TaskName:   c.Task.Name,
			Violations: violationViews(c.Violations),
		})
	}
	for _, issue := range s.Report().Issues {
		agg.Issues = append(agg.Issues, IssueView{
			TaskID:  issue.TaskID,
			Code:    string(issue.Code),
			Message: issue.Message,
		})
	}
	return agg
}

// PhasesFrom builds the per-phase read model of s.
func PhasesFrom(s *schedule.Schedule) []PhaseView {
	phases := s.Phases()
	out := make([]PhaseView, 0, len(phases))
	for _, p := range phases {
		out = append(out, PhaseView{
			Phase:         p.Phase,
			TaskIDs:       append([]string{}, p.TaskIDs...),
			Start:         formatOptionalDate(p.Start),
			End:           formatOptionalDate(p.End),
			Progress:      p.Progress,
			ConflictCount: p.ConflictCount,
		})
	}
	return out
}

// EventsFrom converts recorded workflow events to their read model.
func EventsFrom(events []domain.ScheduleEvent) []ScheduleEventView {
	out := make([]ScheduleEventView, 0, len(events))
	for _, e := range events {
		out = append(out, ScheduleEventView{
			Seq:       e.Seq,
			Action:    string(e.Action),
			Role:      string(e.Role),
			Comment:   e.Comment,
			FromState: string(e.FromState),
			ToState:   string(e.ToState),
			At:        FormatTimestamp(e.At),
		})
	}
	return out
}

func DependencyFrom(d domain.Dependency) DependencyView {
	return DependencyView{
		ID:            d.ID,
		OriginID:      d.OriginID,
		DestinationID: d.DestinationID,
		Type:          string(d.Type),
		LagDays:       d.LagDays,
	}
}

// FormatTimestamp renders an instant in UTC with full precision, matching
// what storage round-trips.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func taskView(v schedule.TaskView) TaskView {
	t := v.Task
	return TaskView{
		ID:              t.ID,
		Code:            t.Code,
		Name:            t.Name,
		Description:     t.Description,
		Kind:            string(t.Kind),
		Status:          string(t.Status),
		Phase:           t.Phase,
		AssigneeID:      t.AssigneeID,
		Color:           t.Color,
		ParentID:        t.ParentRef(),
		DisplayOrder:    t.DisplayOrder,
		Depth:           v.Depth,
		Start:           domain.FormatDate(t.Start),
		End:             domain.FormatDate(t.End),
		Progress:        t.Progress,
		DisplayStart:    domain.FormatDate(v.Start),
		DisplayEnd:      domain.FormatDate(v.End),
		DisplayProgress: v.Progress,
		Critical:        t.Critical,
		HasConflict:     v.HasConflict,
		Violations:      violationViews(v.Violations),
	}
}

func violationViews(vs []validator.Violation) []ViolationView {
	if len(vs) == 0 {
		return nil
	}
	out := make([]ViolationView, 0, len(vs))
	for _, v := range vs {
		out = append(out, ViolationView{
			EdgeID:        v.EdgeID,
			PredecessorID: v.PredecessorID,
			Type:          string(v.Type),
			LagDays:       v.LagDays,
			Required:      domain.FormatDate(v.Required),
			Actual:        domain.FormatDate(v.Actual),
			ShortfallDays: v.ShortfallDays,
		})
	}
	return out
}

func formatOptionalTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTimestamp(*t)
}

func formatOptionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return domain.FormatDate(t)
}
