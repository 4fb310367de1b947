package domain

import "time"

// Schedule is the header record of a project schedule: identity plus the
// workflow state and the dual-approval flags.
type Schedule struct {
	ID                  string
	ProjectID           string
	Name                string
	State               WorkflowState
	ApprovedByReviewer1 bool
	ApprovedByReviewer2 bool
	Reviewer1Comment    string
	Reviewer2Comment    string
	RejectionComment    string
	SubmittedAt         *time.Time
	DecidedAt           *time.Time
	Version             int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Clone returns a deep copy of s.
func (s Schedule) Clone() Schedule {
	c := s
	if s.SubmittedAt != nil {
		t := *s.SubmittedAt
		c.SubmittedAt = &t
	}
	if s.DecidedAt != nil {
		t := *s.DecidedAt
		c.DecidedAt = &t
	}
	return c
}

// Dependency is a typed precedence edge from OriginID (predecessor) to
// DestinationID (successor), shifted by LagDays.
type Dependency struct {
	ID            string
	ScheduleID    string
	OriginID      string
	DestinationID string
	Type          DependencyType
	LagDays       int
	CreatedAt     time.Time
}

// ScheduleEvent is one recorded workflow transition.
type ScheduleEvent struct {
	ID         string
	ScheduleID string
	Seq        int
	Action     WorkflowAction
	Role       Role
	Comment    string
	FromState  WorkflowState
	ToState    WorkflowState
	At         time.Time
}
