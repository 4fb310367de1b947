// Package validator derives per-task scheduling conflicts from task dates
// and precedence edges. It is advisory: it flags, it never reschedules.
package validator

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// Violation is one unsatisfied incoming constraint on a successor task.
type Violation struct {
	EdgeID        string
	PredecessorID string
	Type          domain.DependencyType
	LagDays       int
	// Required is the earliest date the constrained side of the successor
	// may fall on; Actual is where it falls now.
	Required      time.Time
	Actual        time.Time
	ShortfallDays int
}

type IssueCode string

const (
	IssueChildOutsideParent IssueCode = "child_outside_parent"
	IssueEmptyGroup         IssueCode = "group_without_children"
	IssueDanglingEdge       IssueCode = "dangling_edge"
)

// Issue is a non-blocking sanity finding about the schedule's shape.
type Issue struct {
	TaskID  string
	Code    IssueCode
	Message string
}

// Report is the outcome of validating a whole schedule.
type Report struct {
	Conflicts map[string][]Violation
	Issues    []Issue
}

// HasConflict reports whether taskID violates any incoming constraint.
func (r Report) HasConflict(taskID string) bool {
	return len(r.Conflicts[taskID]) > 0
}

// ViolationsFor returns the violations recorded against taskID.
func (r Report) ViolationsFor(taskID string) []Violation {
	return r.Conflicts[taskID]
}

// ConflictedTaskIDs returns the ids of conflicting tasks, sorted.
func (r Report) ConflictedTaskIDs() []string {
	ids := make([]string, 0, len(r.Conflicts))
	for id := range r.Conflicts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Clone returns a deep copy of r.
func (r Report) Clone() Report {
	c := Report{Conflicts: make(map[string][]Violation, len(r.Conflicts))}
	for id, v := range r.Conflicts {
		c.Conflicts[id] = append([]Violation(nil), v...)
	}
	c.Issues = append([]Issue(nil), r.Issues...)
	return c
}

// Validate checks every edge against the current task dates and collects
// shape issues. Tasks are matched by id; edges whose endpoints are missing
// are reported as issues rather than conflicts.
func Validate(tasks []domain.Task, edges []domain.Dependency) Report {
	byID := make(map[string]domain.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	report := Report{Conflicts: make(map[string][]Violation)}
	for _, e := range edges {
		pred, okP := byID[e.OriginID]
		succ, okS := byID[e.DestinationID]
		if !okP || !okS {
			report.Issues = append(report.Issues, Issue{
				TaskID:  e.DestinationID,
				Code:    IssueDanglingEdge,
				Message: fmt.Sprintf("dependency %s references a missing task", e.ID),
			})
			continue
		}
		if v, violated := Check(pred, succ, e); violated {
			report.Conflicts[succ.ID] = append(report.Conflicts[succ.ID], v)
		}
	}

	report.Issues = append(report.Issues, shapeIssues(tasks, byID)...)
	return report
}

// Check evaluates a single edge P -(type, lag)-> S:
//
//	FS: S.start >= P.end   + lag
//	FF: S.end   >= P.end   + lag
//	SS: S.start >= P.start + lag
//	SF: S.end   >= P.start + lag
//
// Comparison is on calendar days.
func Check(pred, succ domain.Task, e domain.Dependency) (Violation, bool) {
	var anchor, actual time.Time
	switch e.Type {
	case domain.DepFinishToFinish:
		anchor, actual = pred.End, succ.End
	case domain.DepStartToStart:
		anchor, actual = pred.Start, succ.Start
	case domain.DepStartToFinish:
		anchor, actual = pred.Start, succ.End
	default:
		anchor, actual = pred.End, succ.Start
	}

	required := domain.AddDays(anchor, e.LagDays)
	shortfall := domain.DaysBetween(actual, required)
	if shortfall <= 0 {
		return Violation{}, false
	}
	return Violation{
		EdgeID:        e.ID,
		PredecessorID: pred.ID,
		Type:          e.Type,
		LagDays:       e.LagDays,
		Required:      required,
		Actual:        domain.AtNoon(actual),
		ShortfallDays: shortfall,
	}, true
}

func shapeIssues(tasks []domain.Task, byID map[string]domain.Task) []Issue {
	var issues []Issue
	hasChildren := make(map[string]bool)
	for _, t := range tasks {
		if t.ParentID == nil {
			continue
		}
		hasChildren[*t.ParentID] = true
		parent, ok := byID[*t.ParentID]
		if !ok || parent.Kind == domain.KindGroup {
			continue
		}
		if domain.DayNumber(t.Start) < domain.DayNumber(parent.Start) ||
			domain.DayNumber(t.End) > domain.DayNumber(parent.End) {
			issues = append(issues, Issue{
				TaskID: t.ID,
				Code:   IssueChildOutsideParent,
				Message: fmt.Sprintf("%s..%s falls outside parent %s..%s",
					domain.FormatDate(t.Start), domain.FormatDate(t.End),
					domain.FormatDate(parent.Start), domain.FormatDate(parent.End)),
			})
		}
	}
	for _, t := range tasks {
		if t.Kind == domain.KindGroup && !hasChildren[t.ID] {
			issues = append(issues, Issue{
				TaskID:  t.ID,
				Code:    IssueEmptyGroup,
				Message: "group has no child tasks",
			})
		}
	}
	return issues
}
