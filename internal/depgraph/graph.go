// Package depgraph maintains the typed precedence edges of a schedule and
// guarantees the edge set stays acyclic.
package depgraph

import (
	"sort"

	"github.com/alexanderramin/cronograma/internal/domain"
)

// TaskExists reports whether a task id is known to the owning schedule.
type TaskExists func(taskID string) bool

type Graph struct {
	edges   map[string]*domain.Dependency
	seq     map[string]int
	out     map[string][]string // task -> ids of edges leaving it
	in      map[string][]string // task -> ids of edges entering it
	nextSeq int
}

func New() *Graph {
	return &Graph{
		edges:   make(map[string]*domain.Dependency),
		seq:     make(map[string]int),
		out:     make(map[string][]string),
		in:      make(map[string][]string),
		nextSeq: 1,
	}
}

// Restore rebuilds a graph from persisted edges in (CreatedAt, ID) order,
// re-running every insertion check.
func Restore(deps []domain.Dependency, exists TaskExists) (*Graph, error) {
	sorted := append([]domain.Dependency(nil), deps...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})
	g := New()
	for _, d := range sorted {
		if _, err := g.AddEdge(d, exists); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// AddEdge validates and inserts a dependency. An empty type means FS.
func (g *Graph) AddEdge(d domain.Dependency, exists TaskExists) (domain.Dependency, error) {
	if d.Type == "" {
		d.Type = domain.DepFinishToStart
	}
	if d.ID == "" {
		return domain.Dependency{}, domain.Invalidf("dependency id is required")
	}
	if _, dup := g.edges[d.ID]; dup {
		return domain.Dependency{}, domain.Invalidf("dependency id %s already exists", d.ID)
	}
	if d.OriginID == "" || d.DestinationID == "" {
		return domain.Dependency{}, domain.Invalidf("dependency needs both origin and destination")
	}
	if !domain.ValidDependencyTypes[d.Type] {
		return domain.Dependency{}, domain.Invalidf("dependency type %q is not one of FS, FF, SS, SF", d.Type)
	}
	if d.OriginID == d.DestinationID {
		return domain.Dependency{}, domain.Invalidf("task %s cannot depend on itself", d.OriginID)
	}
	if exists != nil {
		if !exists(d.OriginID) {
			return domain.Dependency{}, domain.NotFoundf("origin task %s", d.OriginID)
		}
		if !exists(d.DestinationID) {
			return domain.Dependency{}, domain.NotFoundf("destination task %s", d.DestinationID)
		}
	}
	for _, id := range g.out[d.OriginID] {
		e := g.edges[id]
		if e.DestinationID == d.DestinationID && e.Type == d.Type {
			return domain.Dependency{}, &domain.DuplicateEdgeError{
				ExistingID:    e.ID,
				OriginID:      d.OriginID,
				DestinationID: d.DestinationID,
				Type:          d.Type,
			}
		}
	}
	if path := g.pathBetween(d.DestinationID, d.OriginID); path != nil {
		return domain.Dependency{}, &domain.CycleError{
			OriginID:      d.OriginID,
			DestinationID: d.DestinationID,
			Type:          d.Type,
			Path:          append([]string{d.OriginID}, path...),
		}
	}

	stored := d
	g.edges[d.ID] = &stored
	g.seq[d.ID] = g.nextSeq
	g.nextSeq++
	g.out[d.OriginID] = append(g.out[d.OriginID], d.ID)
	g.in[d.DestinationID] = append(g.in[d.DestinationID], d.ID)
	return stored, nil
}

// RemoveEdge deletes the edge with the given id.
func (g *Graph) RemoveEdge(id string) (domain.Dependency, error) {
	e, ok := g.edges[id]
	if !ok {
		return domain.Dependency{}, domain.NotFoundf("dependency %s", id)
	}
	removed := *e
	g.unlink(removed)
	return removed, nil
}

// RemoveAllFor deletes every edge touching taskID and returns them.
func (g *Graph) RemoveAllFor(taskID string) []domain.Dependency {
	ids := append(append([]string(nil), g.out[taskID]...), g.in[taskID]...)
	removed := make([]domain.Dependency, 0, len(ids))
	for _, id := range ids {
		e, ok := g.edges[id]
		if !ok {
			continue
		}
		removed = append(removed, *e)
		g.unlink(*e)
	}
	return removed
}

// EdgesInto returns the edges whose destination is taskID, oldest first.
func (g *Graph) EdgesInto(taskID string) []domain.Dependency {
	return g.collect(g.in[taskID])
}

// EdgesOutOf returns the edges whose origin is taskID, oldest first.
func (g *Graph) EdgesOutOf(taskID string) []domain.Dependency {
	return g.collect(g.out[taskID])
}

func (g *Graph) Get(id string) (domain.Dependency, error) {
	e, ok := g.edges[id]
	if !ok {
		return domain.Dependency{}, domain.NotFoundf("dependency %s", id)
	}
	return *e, nil
}

// All returns every edge in insertion order.
func (g *Graph) All() []domain.Dependency {
	ids := make([]string, 0, len(g.edges))
	for id := range g.edges {
		ids = append(ids, id)
	}
	return g.collect(ids)
}

func (g *Graph) Len() int {
	return len(g.edges)
}

// Clone returns an independent copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		edges:   make(map[string]*domain.Dependency, len(g.edges)),
		seq:     make(map[string]int, len(g.seq)),
		out:     make(map[string][]string, len(g.out)),
		in:      make(map[string][]string, len(g.in)),
		nextSeq: g.nextSeq,
	}
	for id, e := range g.edges {
		cp := *e
		c.edges[id] = &cp
	}
	for id, s := range g.seq {
		c.seq[id] = s
	}
	for k, v := range g.out {
		c.out[k] = append([]string(nil), v...)
	}
	for k, v := range g.in {
		c.in[k] = append([]string(nil), v...)
	}
	return c
}

// DetectCycle returns a cycle path if one exists, or nil if the graph is
// acyclic. AddEdge never lets a cycle in; this is a whole-graph audit.
// Uses DFS with coloring: white (unvisited), gray (on path), black (done).
func (g *Graph) DetectCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	parent := make(map[string]string)

	var dfs func(node string) []string
	dfs = func(node string) []string {
		color[node] = gray
		for _, next := range g.successors(node) {
			if color[next] == gray {
				cycle := []string{node}
				for cur := node; cur != next; {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return append(cycle, next)
			}
			if color[next] == white {
				parent[next] = node
				if cycle := dfs(next); cycle != nil {
					return cycle
				}
			}
		}
		color[node] = black
		return nil
	}

	nodes := make([]string, 0, len(g.out))
	for id := range g.out {
		nodes = append(nodes, id)
	}
	sort.Strings(nodes)
	for _, id := range nodes {
		if color[id] == white {
			if cycle := dfs(id); cycle != nil {
				return cycle
			}
		}
	}
	return nil
}

// pathBetween returns a directed path from -> ... -> to through existing
// edges, or nil when to is unreachable. Iterative DFS with a visited set,
// so each task and edge is looked at once.
func (g *Graph) pathBetween(from, to string) []string {
	if from == to {
		return []string{from}
	}
	visited := map[string]bool{from: true}
	parent := make(map[string]string)
	stack := []string{from}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, next := range g.successors(node) {
			if visited[next] {
				continue
			}
			visited[next] = true
			parent[next] = node
			if next == to {
				path := []string{to}
				for cur := to; cur != from; {
					cur = parent[cur]
					path = append(path, cur)
				}
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			stack = append(stack, next)
		}
	}
	return nil
}

// successors lists the distinct destinations reachable by one edge.
func (g *Graph) successors(taskID string) []string {
	ids := g.out[taskID]
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		dst := g.edges[id].DestinationID
		if !seen[dst] {
			seen[dst] = true
			out = append(out, dst)
		}
	}
	return out
}

func (g *Graph) unlink(e domain.Dependency) {
	delete(g.edges, e.ID)
	delete(g.seq, e.ID)
	g.out[e.OriginID] = without(g.out[e.OriginID], e.ID)
	if len(g.out[e.OriginID]) == 0 {
		delete(g.out, e.OriginID)
	}
	g.in[e.DestinationID] = without(g.in[e.DestinationID], e.ID)
	if len(g.in[e.DestinationID]) == 0 {
		delete(g.in, e.DestinationID)
	}
}

func (g *Graph) collect(ids []string) []domain.Dependency {
	out := make([]domain.Dependency, 0, len(ids))
	for _, id := range ids {
		if e, ok := g.edges[id]; ok {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return g.seq[out[i].ID] < g.seq[out[j].ID]
	})
	return out
}

func without(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
