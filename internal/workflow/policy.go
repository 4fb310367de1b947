package workflow

import (
	"sort"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// Capabilities is the set of mutation rights a role holds in a state.
type Capabilities map[domain.Capability]bool

func (c Capabilities) Has(want domain.Capability) bool {
	return c[want]
}

// List returns the held capabilities sorted by name.
func (c Capabilities) List() []domain.Capability {
	out := make([]domain.Capability, 0, len(c))
	for k, ok := range c {
		if ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func capabilities(caps ...domain.Capability) Capabilities {
	c := make(Capabilities, len(caps))
	for _, k := range caps {
		c[k] = true
	}
	return c
}

// Policy decides which roles may mutate what in each workflow state. Only
// the set of roles allowed to track execution after approval is tunable.
type Policy struct {
	StatusRoles map[domain.Role]bool
}

// DefaultStatusRoles may update progress and status on an approved schedule.
var DefaultStatusRoles = []domain.Role{domain.RolePlanner, domain.RoleExecutor, domain.RoleAdmin}

func DefaultPolicy() Policy {
	return NewPolicy(DefaultStatusRoles)
}

// NewPolicy builds a policy with the given post-approval status roles. An
// empty list falls back to the defaults.
func NewPolicy(statusRoles []domain.Role) Policy {
	if len(statusRoles) == 0 {
		statusRoles = DefaultStatusRoles
	}
	p := Policy{StatusRoles: make(map[domain.Role]bool, len(statusRoles))}
	for _, r := range statusRoles {
		p.StatusRoles[r] = true
	}
	return p
}

// AllowedMutations is the single source of truth for field-level gating.
//
//	draft, rejected: planner/admin everything, executor progress+status
//	in_review:       nothing
//	approved:        progress+status for StatusRoles
func (p Policy) AllowedMutations(state domain.WorkflowState, role domain.Role) Capabilities {
	switch state {
	case domain.StateDraft, domain.StateRejected:
		switch role {
		case domain.RolePlanner, domain.RoleAdmin:
			return capabilities(domain.CapStructure, domain.CapDependencies, domain.CapProgress, domain.CapStatus)
		case domain.RoleExecutor:
			return capabilities(domain.CapProgress, domain.CapStatus)
		}
	case domain.StateApproved:
		if p.StatusRoles[role] {
			return capabilities(domain.CapProgress, domain.CapStatus)
		}
	}
	return Capabilities{}
}

// Require returns a *domain.LockedError for the first capability in caps
// that role lacks in state.
func (p Policy) Require(state domain.WorkflowState, role domain.Role, caps ...domain.Capability) error {
	allowed := p.AllowedMutations(state, role)
	for _, k := range caps {
		if !allowed.Has(k) {
			return &domain.LockedError{State: state, Role: role, Capability: k}
		}
	}
	return nil
}
