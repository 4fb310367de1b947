package domain

type TaskKind string

const (
	KindTask      TaskKind = "task"
	KindMilestone TaskKind = "milestone"
	KindGroup     TaskKind = "group"
)

// ValidTaskKinds is the canonical set of accepted task kind strings.
var ValidTaskKinds = map[TaskKind]bool{
	KindTask: true, KindMilestone: true, KindGroup: true,
}

type TaskStatus string

const (
	TaskNotStarted TaskStatus = "not_started"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskOnHold     TaskStatus = "on_hold"
	TaskCancelled  TaskStatus = "cancelled"
)

// ValidTaskStatuses is the canonical set of accepted task status strings.
var ValidTaskStatuses = map[TaskStatus]bool{
	TaskNotStarted: true, TaskInProgress: true, TaskDone: true,
	TaskOnHold: true, TaskCancelled: true,
}

// DependencyType is one of the four precedence relations between a
// predecessor (origin) and a successor (destination).
type DependencyType string

const (
	DepFinishToStart  DependencyType = "FS"
	DepFinishToFinish DependencyType = "FF"
	DepStartToStart   DependencyType = "SS"
	DepStartToFinish  DependencyType = "SF"
)

// ValidDependencyTypes is the canonical set of accepted dependency types.
var ValidDependencyTypes = map[DependencyType]bool{
	DepFinishToStart: true, DepFinishToFinish: true,
	DepStartToStart: true, DepStartToFinish: true,
}

type WorkflowState string

const (
	StateDraft    WorkflowState = "draft"
	StateInReview WorkflowState = "in_review"
	StateApproved WorkflowState = "approved"
	StateRejected WorkflowState = "rejected"
)

// Role identifies the caller's function in the PMO. Role resolution itself
// happens outside this module; callers hand us an already-resolved role.
type Role string

const (
	RolePlanner         Role = "planner"
	RoleExecutor        Role = "executor"
	RolePMOReviewer     Role = "pmo_reviewer"
	RoleSponsorReviewer Role = "sponsor_reviewer"
	RoleAdmin           Role = "admin"
)

// ValidRoles is the canonical set of accepted role strings.
var ValidRoles = map[Role]bool{
	RolePlanner: true, RoleExecutor: true, RolePMOReviewer: true,
	RoleSponsorReviewer: true, RoleAdmin: true,
}

// Capability is a field-level mutation right on a schedule.
type Capability string

const (
	CapStructure    Capability = "structure"
	CapDependencies Capability = "dependencies"
	CapProgress     Capability = "progress"
	CapStatus       Capability = "status"
)

type WorkflowAction string

const (
	ActionSubmit  WorkflowAction = "submit"
	ActionApprove WorkflowAction = "approve"
	ActionReject  WorkflowAction = "reject"
	ActionReopen  WorkflowAction = "reopen"
)
