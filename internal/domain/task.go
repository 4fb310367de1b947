package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTaskCodeLen bounds the optional human-facing task code.
const MaxTaskCodeLen = 20

type Task struct {
	ID           string
	ScheduleID   string
	Seq          int // insertion order within the schedule; breaks DisplayOrder ties
	Code         string
	Name         string
	Description  string
	Start        time.Time
	End          time.Time
	Progress     int
	Kind         TaskKind
	Phase        string
	AssigneeID   string
	Color        string
	DisplayOrder int
	ParentID     *string
	Status       TaskStatus
	// Critical is supplied by an external critical-path analysis; the
	// schedule core only stores and reports it.
	Critical  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	if t.ParentID != nil {
		p := *t.ParentID
		c.ParentID = &p
	}
	return c
}

// ParentRef returns the parent id, or "" for a root task.
func (t Task) ParentRef() string {
	if t.ParentID == nil {
		return ""
	}
	return *t.ParentID
}

// DurationDays is the inclusive calendar span of the task: a one-day task
// and a milestone both count as one.
func (t Task) DurationDays() int {
	return DaysBetween(t.Start, t.End) + 1
}

// Normalize applies the defaults and shape rules every stored task obeys:
// dates pinned at noon, default kind and status, milestones collapsed to a
// single day, groups carrying no progress of their own.
func (t *Task) Normalize() {
	t.Code = strings.TrimSpace(t.Code)
	t.Name = strings.TrimSpace(t.Name)
	if t.Kind == "" {
		t.Kind = KindTask
	}
	if t.Status == "" {
		t.Status = TaskNotStarted
	}
	if !t.Start.IsZero() {
		t.Start = AtNoon(t.Start)
	}
	if !t.End.IsZero() {
		t.End = AtNoon(t.End)
	}
	if t.Kind == KindMilestone && !t.Start.IsZero() {
		t.End = t.Start
	}
	if t.Kind == KindGroup {
		t.Progress = 0
	}
	if t.ParentID != nil && *t.ParentID == "" {
		t.ParentID = nil
	}
}

// Validate checks the field-level invariants of a single task. Hierarchy
// and uniqueness rules need the whole schedule and live in the task store.
func (t *Task) Validate() error {
	if t.Name == "" {
		return Invalidf("task name is required")
	}
	if utf8.RuneCountInString(t.Code) > MaxTaskCodeLen {
		return Invalidf("task code %q exceeds %d characters", t.Code, MaxTaskCodeLen)
	}
	if !ValidTaskKinds[t.Kind] {
		return Invalidf("task kind %q is not one of task, milestone, group", t.Kind)
	}
	if !ValidTaskStatuses[t.Status] {
		return Invalidf("task status %q is invalid", t.Status)
	}
	if t.Start.IsZero() || t.End.IsZero() {
		return Invalidf("task %q needs both start and end dates", t.Name)
	}
	if t.Kind != KindMilestone && DayNumber(t.End) < DayNumber(t.Start) {
		return Invalidf("task %q ends %s before it starts %s", t.Name, FormatDate(t.End), FormatDate(t.Start))
	}
	if t.Progress < 0 || t.Progress > 100 {
		return Invalidf("progress %d must be between 0 and 100", t.Progress)
	}
	if t.ParentID != nil && *t.ParentID == t.ID {
		return Invalidf("task %q cannot be its own parent", t.Name)
	}
	return nil
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Code         *string
	Name         *string
	Description  *string
	Start        *time.Time
	End          *time.Time
	Progress     *int
	Kind         *TaskKind
	Phase        *string
	AssigneeID   *string
	Color        *string
	DisplayOrder *int
	ParentID     *string
	ClearParent  bool
	Status       *TaskStatus
	Critical     *bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return len(p.RequiredCapabilities()) == 0
}

// RequiredCapabilities lists the mutation rights applying p needs. Progress
// and status are tracked separately because they stay editable after a
// schedule is approved.
func (p TaskPatch) RequiredCapabilities() []Capability {
	var caps []Capability
	structural := p.Code != nil || p.Name != nil || p.Description != nil ||
		p.Start != nil || p.End != nil || p.Kind != nil || p.Phase != nil ||
		p.AssigneeID != nil || p.Color != nil || p.DisplayOrder != nil ||
		p.ParentID != nil || p.ClearParent || p.Critical != nil
	if structural {
		caps = append(caps, CapStructure)
	}
	if p.Progress != nil {
		caps = append(caps, CapProgress)
	}
	if p.Status != nil {
		caps = append(caps, CapStatus)
	}
	return caps
}

// Apply copies the set fields of p onto t.
func (p TaskPatch) Apply(t *Task) {
	t.Code = FromPtrOr(t.Code, p.Code)
	t.Name = FromPtrOr(t.Name, p.Name)
	t.Description = FromPtrOr(t.Description, p.Description)
	t.Start = FromPtrOr(t.Start, p.Start)
	t.End = FromPtrOr(t.End, p.End)
	t.Progress = FromPtrOr(t.Progress, p.Progress)
	t.Kind = FromPtrOr(t.Kind, p.Kind)
	t.Phase = FromPtrOr(t.Phase, p.Phase)
	t.AssigneeID = FromPtrOr(t.AssigneeID, p.AssigneeID)
	t.Color = FromPtrOr(t.Color, p.Color)
	t.DisplayOrder = FromPtrOr(t.DisplayOrder, p.DisplayOrder)
	t.Status = FromPtrOr(t.Status, p.Status)
	t.Critical = FromPtrOr(t.Critical, p.Critical)
	if p.ClearParent {
		t.ParentID = nil
	} else if p.ParentID != nil {
		parent := *p.ParentID
		t.ParentID = &parent
	}
}

// ChangesHierarchy reports whether applying p may move the task in the tree.
func (p TaskPatch) ChangesHierarchy() bool {
	return p.ParentID != nil || p.ClearParent
}
