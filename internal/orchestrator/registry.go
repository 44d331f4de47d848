package orchestrator

import (
	"context"
	"fmt"
	"sort"
)

// TaskFunc performs the work of a task.
type TaskFunc func(ctx context.Context) error

// Task is a named unit of work.
type Task struct {
	Name        string
	Description string
	Run         TaskFunc
}

// Registry holds the tasks a Graph can refer to. It is not safe for concurrent
// registration; fill it before building graphs.
type Registry struct {
	tasks map[string]Task
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Task)}
}

// Register adds a task. Empty names, nil functions and duplicates are rejected.
func (r *Registry) Register(t Task) error {
	if t.Name == "" {
		return invalidf("task name is required")
	}
	if t.Run == nil {
		return invalidf("task %q has no run function", t.Name)
	}
	if _, exists := r.tasks[t.Name]; exists {
		return invalidf("duplicate task name: %q", t.Name)
	}
	r.tasks[t.Name] = t
	return nil
}

// RegisterFunc is shorthand for Register(Task{Name, Description, Run}).
func (r *Registry) RegisterFunc(name, description string, run TaskFunc) error {
	return r.Register(Task{Name: name, Description: description, Run: run})
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Task, bool) {
	t, ok := r.tasks[name]
	return t, ok
}

// Names returns the registered task names in lexical order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tasks))
	for name := range r.tasks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports the number of registered tasks.
func (r *Registry) Len() int { return len(r.tasks) }

func (r *Registry) String() string {
	return fmt.Sprintf("Registry(%d tasks)", len(r.tasks))
}
