package orchestrator

import "sort"

// Task names known to the build plans.
const (
	TaskClean         = "clean"
	TaskStyles        = "styles"
	TaskScripts       = "scripts"
	TaskHTML          = "html"
	TaskImages        = "images"
	TaskCopy          = "copy"
	TaskCopySWScripts = "copy-sw-scripts"
	TaskServiceWorker = "generate-service-worker"
)

// Plan names.
const (
	PlanBuild     = "build"
	PlanServe     = "serve"
	PlanServeDist = "serve:dist"
	PlanClean     = "clean"
)

// Plans holds the graphs built once at startup.
type Plans struct {
	Build     *Graph
	Serve     *Graph
	ServeDist *Graph
	Clean     *Graph
}

// BuildEdges returns the production build ordering:
// clean, styles, then html/scripts/images/copy, then copy-sw-scripts, then
// generate-service-worker.
func BuildEdges() []Edge {
	edges := []Edge{{From: TaskClean, To: TaskStyles}}
	for _, t := range []string{TaskHTML, TaskScripts, TaskImages, TaskCopy} {
		edges = append(edges,
			Edge{From: TaskStyles, To: t},
			Edge{From: t, To: TaskCopySWScripts},
		)
	}
	return append(edges, Edge{From: TaskCopySWScripts, To: TaskServiceWorker})
}

// BuildTasks returns every task taking part in the production build.
func BuildTasks() []string {
	return []string{
		TaskClean, TaskStyles, TaskHTML, TaskScripts, TaskImages, TaskCopy,
		TaskCopySWScripts, TaskServiceWorker,
	}
}

// NewPlans validates and builds every plan against reg.
func NewPlans(reg *Registry) (*Plans, error) {
	build, err := NewGraph(PlanBuild, reg, BuildTasks(), BuildEdges())
	if err != nil {
		return nil, err
	}
	serveDist, err := NewGraph(PlanServeDist, reg, BuildTasks(), BuildEdges())
	if err != nil {
		return nil, err
	}
	serve, err := NewGraph(PlanServe, reg, []string{TaskScripts, TaskStyles}, nil)
	if err != nil {
		return nil, err
	}
	clean, err := NewGraph(PlanClean, reg, []string{TaskClean}, nil)
	if err != nil {
		return nil, err
	}
	return &Plans{Build: build, Serve: serve, ServeDist: serveDist, Clean: clean}, nil
}

// Lookup returns the plan graph with the given name.
func (p *Plans) Lookup(name string) (*Graph, bool) {
	for _, g := range p.all() {
		if g != nil && g.Name() == name {
			return g, true
		}
	}
	return nil, false
}

// Names returns the plan names in lexical order.
func (p *Plans) Names() []string {
	var names []string
	for _, g := range p.all() {
		if g != nil {
			names = append(names, g.Name())
		}
	}
	sort.Strings(names)
	return names
}

func (p *Plans) all() []*Graph {
	return []*Graph{p.Build, p.Serve, p.ServeDist, p.Clean}
}
