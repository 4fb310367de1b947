// Package workflow implements the schedule approval lifecycle: draft,
// in review, approved, with two independent reviewer sign-offs, and the
// state/role policy that gates task and dependency edits.
package workflow

import (
	"strings"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// Transition describes an accepted workflow action.
type Transition struct {
	Action  domain.WorkflowAction
	From    domain.WorkflowState
	To      domain.WorkflowState
	Role    domain.Role
	Comment string
}

// reviewerSlot maps a reviewer role to its approval flag (1 or 2).
func reviewerSlot(role domain.Role) int {
	switch role {
	case domain.RolePMOReviewer:
		return 1
	case domain.RoleSponsorReviewer:
		return 2
	}
	return 0
}

// IsReviewer reports whether role is one of the two required sign-off roles.
func IsReviewer(role domain.Role) bool {
	return reviewerSlot(role) != 0
}

// SubmitForReview moves a draft (or rejected) schedule into review. The
// schedule must hold at least one task. Approval flags and every comment
// from the previous round are cleared.
func SubmitForReview(s *domain.Schedule, role domain.Role, taskCount int, now time.Time) (Transition, error) {
	if s.State != domain.StateDraft && s.State != domain.StateRejected {
		return Transition{}, &domain.TransitionError{Action: domain.ActionSubmit, From: s.State}
	}
	if role != domain.RolePlanner && role != domain.RoleAdmin {
		return Transition{}, domain.Invalidf("role %s cannot submit a schedule for review", role)
	}
	if taskCount < 1 {
		return Transition{}, domain.Invalidf("schedule has no tasks to review")
	}

	from := s.State
	s.State = domain.StateInReview
	resetApprovals(s)
	s.RejectionComment = ""
	s.Reviewer1Comment = ""
	s.Reviewer2Comment = ""
	s.SubmittedAt = &now
	s.DecidedAt = nil
	return Transition{Action: domain.ActionSubmit, From: from, To: s.State, Role: role}, nil
}

// Approve records one reviewer's sign-off. Once both reviewers have signed
// off since the last submission the schedule becomes approved. Approving
// twice with the same role is harmless.
func Approve(s *domain.Schedule, role domain.Role, comment string, now time.Time) (Transition, error) {
	if s.State != domain.StateInReview {
		return Transition{}, &domain.TransitionError{Action: domain.ActionApprove, From: s.State}
	}
	comment = strings.TrimSpace(comment)
	switch reviewerSlot(role) {
	case 1:
		s.ApprovedByReviewer1 = true
		s.Reviewer1Comment = domain.CoalesceStr(comment, s.Reviewer1Comment)
	case 2:
		s.ApprovedByReviewer2 = true
		s.Reviewer2Comment = domain.CoalesceStr(comment, s.Reviewer2Comment)
	default:
		return Transition{}, domain.Invalidf("role %s is not a schedule reviewer", role)
	}

	if s.ApprovedByReviewer1 && s.ApprovedByReviewer2 {
		s.State = domain.StateApproved
		s.DecidedAt = &now
	}
	return Transition{
		Action:  domain.ActionApprove,
		From:    domain.StateInReview,
		To:      s.State,
		Role:    role,
		Comment: comment,
	}, nil
}

// Reject sends the schedule back to draft with a mandatory comment. The
// rejected state is never persisted: the schedule lands in draft and the
// comment stays visible until the next submission.
func Reject(s *domain.Schedule, role domain.Role, comment string, now time.Time) (Transition, error) {
	if s.State != domain.StateInReview {
		return Transition{}, &domain.TransitionError{Action: domain.ActionReject, From: s.State}
	}
	if !IsReviewer(role) {
		return Transition{}, domain.Invalidf("role %s is not a schedule reviewer", role)
	}
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return Transition{}, domain.Invalidf("a rejection comment is required")
	}

	s.State = domain.StateDraft
	resetApprovals(s)
	s.RejectionComment = comment
	s.DecidedAt = &now
	return Transition{
		Action:  domain.ActionReject,
		From:    domain.StateInReview,
		To:      s.State,
		Role:    role,
		Comment: comment,
	}, nil
}

// Decide dispatches a reviewer decision to Approve or Reject.
func Decide(s *domain.Schedule, role domain.Role, approved bool, comment string, now time.Time) (Transition, error) {
	if approved {
		return Approve(s, role, comment, now)
	}
	return Reject(s, role, comment, now)
}

// Reopen returns an approved schedule to draft for replanning. Only admins
// may reopen; the approval round has to be repeated afterwards.
func Reopen(s *domain.Schedule, role domain.Role, comment string, now time.Time) (Transition, error) {
	if s.State != domain.StateApproved {
		return Transition{}, &domain.TransitionError{Action: domain.ActionReopen, From: s.State}
	}
	if role != domain.RoleAdmin {
		return Transition{}, domain.Invalidf("only an admin can reopen an approved schedule")
	}
	s.State = domain.StateDraft
	resetApprovals(s)
	s.DecidedAt = nil
	return Transition{
		Action:  domain.ActionReopen,
		From:    domain.StateApproved,
		To:      s.State,
		Role:    role,
		Comment: strings.TrimSpace(comment),
	}, nil
}

func resetApprovals(s *domain.Schedule) {
	s.ApprovedByReviewer1 = false
	s.ApprovedByReviewer2 = false
}
