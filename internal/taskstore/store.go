// Package taskstore holds the tasks of one schedule and owns their
// hierarchy. Tasks live in an id-keyed arena; the parent/child structure is
// derived from parent ids on demand, so cycle checks are plain id walks.
package taskstore

import (
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
)

type Store struct {
	tasks   map[string]*domain.Task
	nextSeq int
}

func New() *Store {
	return &Store{tasks: make(map[string]*domain.Task), nextSeq: 1}
}

// Restore rebuilds a store from persisted tasks. Unlike Add it accepts the
// tasks in any order, then checks parents and hierarchy cycles as a whole.
func Restore(tasks []domain.Task) (*Store, error) {
	s := New()
	for _, t := range tasks {
		if _, dup := s.tasks[t.ID]; dup {
			return nil, domain.Invalidf("duplicate task id %s", t.ID)
		}
		c := t.Clone()
		s.tasks[c.ID] = &c
		if c.Seq >= s.nextSeq {
			s.nextSeq = c.Seq + 1
		}
	}
	for _, t := range s.tasks {
		if t.Seq == 0 {
			t.Seq = s.nextSeq
			s.nextSeq++
		}
		if t.ParentID == nil {
			continue
		}
		if _, ok := s.tasks[*t.ParentID]; !ok {
			return nil, domain.Invalidf("task %s references unknown parent %s", t.ID, *t.ParentID)
		}
		if s.isAncestor(t.ID, *t.ParentID) {
			return nil, domain.Invalidf("task %s is its own ancestor", t.ID)
		}
	}
	return s, nil
}

// Add validates and stores a new task, assigning its insertion sequence.
func (s *Store) Add(t domain.Task) (domain.Task, error) {
	t = t.Clone()
	t.Normalize()
	if t.ID == "" {
		return domain.Task{}, domain.Invalidf("task id is required")
	}
	if _, exists := s.tasks[t.ID]; exists {
		return domain.Task{}, domain.Invalidf("task id %s already exists", t.ID)
	}
	if err := t.Validate(); err != nil {
		return domain.Task{}, err
	}
	if err := s.checkCode(t.ID, t.Code); err != nil {
		return domain.Task{}, err
	}
	if err := s.checkParent(t.ID, t.ParentID); err != nil {
		return domain.Task{}, err
	}

	t.Seq = s.nextSeq
	s.nextSeq++
	s.tasks[t.ID] = &t
	return t.Clone(), nil
}

// Update applies patch to the task with the given id. The stored task is
// only replaced once the patched copy passes every check.
func (s *Store) Update(id string, patch domain.TaskPatch, now time.Time) (domain.Task, error) {
	cur, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.NotFoundf("task %s", id)
	}

	next := cur.Clone()
	patch.Apply(&next)
	next.Normalize()
	if err := next.Validate(); err != nil {
		return domain.Task{}, err
	}
	if patch.Code != nil {
		if err := s.checkCode(id, next.Code); err != nil {
			return domain.Task{}, err
		}
	}
	if patch.ChangesHierarchy() {
		if err := s.checkParent(id, next.ParentID); err != nil {
			return domain.Task{}, err
		}
	}

	next.UpdatedAt = now
	s.tasks[id] = &next
	return next.Clone(), nil
}

// Remove deletes a task. Its children are moved up to the removed task's
// parent (or become roots) rather than deleted along with it, and are
// stamped with now. Dependency edges are not this store's concern; the
// caller removes them.
func (s *Store) Remove(id string, now time.Time) (domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.NotFoundf("task %s", id)
	}
	for _, child := range s.tasks {
		if child.ParentID != nil && *child.ParentID == id {
			if t.ParentID == nil {
				child.ParentID = nil
			} else {
				p := *t.ParentID
				child.ParentID = &p
			}
			child.UpdatedAt = now
		}
	}
	delete(s.tasks, id)
	return t.Clone(), nil
}

func (s *Store) Get(id string) (domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, domain.NotFoundf("task %s", id)
	}
	return t.Clone(), nil
}

func (s *Store) Has(id string) bool {
	_, ok := s.tasks[id]
	return ok
}

func (s *Store) Len() int {
	return len(s.tasks)
}

// FindByCode looks a task up by its human code, case-insensitively.
func (s *Store) FindByCode(code string) (domain.Task, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.Task{}, false
	}
	for _, t := range s.tasks {
		if strings.EqualFold(t.Code, code) {
			return t.Clone(), true
		}
	}
	return domain.Task{}, false
}

// ChildrenOf returns the direct children of id ordered by DisplayOrder,
// then insertion order. An empty id returns the root tasks.
func (s *Store) ChildrenOf(id string) []domain.Task {
	var out []domain.Task
	for _, t := range s.tasks {
		if t.ParentRef() == id {
			out = append(out, t.Clone())
		}
	}
	sortSiblings(out)
	return out
}

// AncestorsOf returns the chain of parents of id, nearest first.
func (s *Store) AncestorsOf(id string) ([]domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return nil, domain.NotFoundf("task %s", id)
	}
	var out []domain.Task
	seen := map[string]bool{id: true}
	for t.ParentID != nil {
		parent, ok := s.tasks[*t.ParentID]
		if !ok || seen[parent.ID] {
			break
		}
		seen[parent.ID] = true
		out = append(out, parent.Clone())
		t = parent
	}
	return out, nil
}

// DescendantsOf returns every task below id in depth-first tree order.
func (s *Store) DescendantsOf(id string) []domain.Task {
	var out []domain.Task
	s.walk(id, 0, func(t domain.Task, _ int) {
		out = append(out, t)
	})
	return out
}

// All returns every task in depth-first tree order.
func (s *Store) All() []domain.Task {
	return s.DescendantsOf("")
}

// Walk visits every task in depth-first tree order with its depth (roots
// are depth 0).
func (s *Store) Walk(fn func(t domain.Task, depth int)) {
	s.walk("", 0, fn)
}

// Clone returns an independent copy of the store.
func (s *Store) Clone() *Store {
	c := &Store{tasks: make(map[string]*domain.Task, len(s.tasks)), nextSeq: s.nextSeq}
	for id, t := range s.tasks {
		cp := t.Clone()
		c.tasks[id] = &cp
	}
	return c
}

func (s *Store) walk(id string, depth int, fn func(domain.Task, int)) {
	children := s.childIndex()
	var visit func(parent string, depth int)
	visit = func(parent string, depth int) {
		for _, child := range children[parent] {
			fn(child.Clone(), depth)
			visit(child.ID, depth+1)
		}
	}
	visit(id, depth)
}

// childIndex builds the parent -> ordered children adjacency in one pass.
func (s *Store) childIndex() map[string][]domain.Task {
	idx := make(map[string][]domain.Task)
	for _, t := range s.tasks {
		idx[t.ParentRef()] = append(idx[t.ParentRef()], *t)
	}
	for k := range idx {
		sortSiblings(idx[k])
	}
	return idx
}

func (s *Store) checkCode(id, code string) error {
	if code == "" {
		return nil
	}
	for _, other := range s.tasks {
		if other.ID != id && strings.EqualFold(other.Code, code) {
			return domain.Invalidf("task code %q is already used by task %s", code, other.ID)
		}
	}
	return nil
}

func (s *Store) checkParent(id string, parentID *string) error {
	if parentID == nil {
		return nil
	}
	if *parentID == id {
		return domain.Invalidf("task %s cannot be its own parent", id)
	}
	if _, ok := s.tasks[*parentID]; !ok {
		return domain.Invalidf("parent task %s does not exist", *parentID)
	}
	if s.isAncestor(id, *parentID) {
		return domain.Invalidf("moving task %s under %s would make it its own ancestor", id, *parentID)
	}
	return nil
}

// isAncestor reports whether id appears on the ancestor chain starting at
// (and including) start.
func (s *Store) isAncestor(id, start string) bool {
	seen := make(map[string]bool)
	cur := start
	for cur != "" && !seen[cur] {
		if cur == id {
			return true
		}
		seen[cur] = true
		t, ok := s.tasks[cur]
		if !ok {
			return false
		}
		cur = t.ParentRef()
	}
	return seen[cur]
}

func sortSiblings(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].DisplayOrder != tasks[j].DisplayOrder {
			return tasks[i].DisplayOrder < tasks[j].DisplayOrder
		}
		return tasks[i].Seq < tasks[j].Seq
	})
}
