package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	foundationerrors "git.home.luguber.info/inful/assetflow/internal/foundation/errors"
)

var (
	// ErrInvalidGraph marks structural graph problems: unknown or duplicate tasks,
	// duplicate edges and self-loops.
	ErrInvalidGraph = errors.New("invalid task graph")
	// ErrCycle marks a dependency cycle.
	ErrCycle = errors.New("cycle detected")
)

// GraphError describes a graph validation failure.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidGraph, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) error {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &GraphError{Kind: ErrCycle, Msg: msg}
}

// classify wraps a graph validation error in the graph category so the CLI maps it to a
// configuration exit code.
func classify(plan string, err error) error {
	return foundationerrors.WrapError(err, foundationerrors.CategoryGraph, "invalid plan").
		WithContext("plan", plan).
		Fatal().
		Build()
}
