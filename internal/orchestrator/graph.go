package orchestrator

import (
	"container/heap"
	"sort"
)

// Edge states that From completes before To starts.
type Edge struct {
	From string
	To   string
}

// Graph is an immutable, validated DAG over registered tasks. It is safe for concurrent
// read access.
type Graph struct {
	name  string
	nodes []string // canonical order: lexical
	index map[string]int
	tasks []Task
	edges []Edge

	outgoing [][]int // sorted ascending
	incoming [][]int // sorted ascending
	indeg    []int

	order []int
}

// NewGraph builds and validates a graph named name over nodes, resolving each node in reg.
//
// Validation rejects:
//   - an empty node list, empty or duplicate node names
//   - nodes that are not registered
//   - edges referencing nodes outside the graph
//   - duplicate edges and self-loops
//   - any cycle
//
// Failures are graph-category classified errors wrapping a *GraphError, so
// errors.Is(err, ErrCycle) and errors.Is(err, ErrInvalidGraph) work.
func NewGraph(name string, reg *Registry, nodes []string, edges []Edge) (*Graph, error) {
	g, err := newGraph(name, reg, nodes, edges)
	if err != nil {
		return nil, classify(name, err)
	}
	return g, nil
}

func newGraph(name string, reg *Registry, nodes []string, edges []Edge) (*Graph, error) {
	if reg == nil {
		return nil, invalidf("registry is nil")
	}
	if len(nodes) == 0 {
		return nil, invalidf("no tasks")
	}

	sorted := make([]string, len(nodes))
	copy(sorted, nodes)
	sort.Strings(sorted)

	g := &Graph{
		name:  name,
		nodes: sorted,
		index: make(map[string]int, len(sorted)),
		tasks: make([]Task, len(sorted)),
	}
	for i, n := range sorted {
		if n == "" {
			return nil, invalidf("task name is required")
		}
		if _, dup := g.index[n]; dup {
			return nil, invalidf("duplicate task: %q", n)
		}
		t, ok := reg.Lookup(n)
		if !ok {
			return nil, invalidf("unknown task: %q", n)
		}
		g.index[n] = i
		g.tasks[i] = t
	}

	g.outgoing = make([][]int, len(sorted))
	g.incoming = make([][]int, len(sorted))
	g.indeg = make([]int, len(sorted))

	seen := make(map[Edge]struct{}, len(edges))
	for _, e := range edges {
		from, ok := g.index[e.From]
		if !ok {
			return nil, invalidf("edge %s -> %s: unknown task %q", e.From, e.To, e.From)
		}
		to, ok := g.index[e.To]
		if !ok {
			return nil, invalidf("edge %s -> %s: unknown task %q", e.From, e.To, e.To)
		}
		if from == to {
			return nil, invalidf("self-loop on %q", e.From)
		}
		if _, dup := seen[e]; dup {
			return nil, invalidf("duplicate edge: %s -> %s", e.From, e.To)
		}
		seen[e] = struct{}{}
		g.outgoing[from] = append(g.outgoing[from], to)
		g.incoming[to] = append(g.incoming[to], from)
		g.indeg[to]++
		g.edges = append(g.edges, e)
	}
	for i := range g.outgoing {
		sort.Ints(g.outgoing[i])
		sort.Ints(g.incoming[i])
	}
	sort.Slice(g.edges, func(i, j int) bool {
		if g.edges[i].From != g.edges[j].From {
			return g.edges[i].From < g.edges[j].From
		}
		return g.edges[i].To < g.edges[j].To
	})

	g.order = g.topoOrderIndices()
	if len(g.order) != len(g.nodes) {
		return nil, cycleError(g.findCycle())
	}
	return g, nil
}

// Name returns the plan name the graph was built for.
func (g *Graph) Name() string { return g.name }

// Len reports the number of tasks.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns the task names in lexical order.
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the edges sorted by (From, To).
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Has reports whether the graph contains the task.
func (g *Graph) Has(name string) bool {
	_, ok := g.index[name]
	return ok
}

// TopologicalOrder returns a deterministic topological ordering; ties are broken
// lexically.
func (g *Graph) TopologicalOrder() []string {
	return g.names(g.order)
}

// Dependencies returns the direct predecessors of name.
func (g *Graph) Dependencies(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.incoming[i])
}

// Dependents returns the direct successors of name.
func (g *Graph) Dependents(name string) []string {
	i, ok := g.index[name]
	if !ok {
		return nil
	}
	return g.names(g.outgoing[i])
}

func (g *Graph) names(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.nodes[i])
	}
	return out
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrderIndices runs Kahn's algorithm with a min-heap ready queue.
func (g *Graph) topoOrderIndices() []int {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	for i := range indeg {
		if indeg[i] == 0 {
			heap.Push(ready, i)
		}
	}

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle returns one cycle as a closed path of names, e.g. [a b a].
func (g *Graph) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(g.nodes))
	parent := make([]int, len(g.nodes))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range g.outgoing[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range g.nodes {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, g.nodes[cycle[i]])
	}
	return out
}
