// Package errors provides the classified error primitives used across assetflow.
//
// Every failure that crosses a package boundary is expressed as a ClassifiedError so the
// CLI can pick an exit code and print a message naming the failing task, and so the dev
// server can report a task failure without stopping.
//
// Key features:
//   - ErrorCategory: broad classification (config, input, filesystem, task, graph, ...)
//   - ErrorSeverity: impact level (fatal, error, warning, info)
//   - RetryStrategy: whether re-running the same task could succeed
//   - ErrorBuilder: fluent construction with structured context
//   - CLIErrorAdapter: exit codes and user-facing messages
//
// Example usage:
//
//	err := errors.InputError("invalid stylesheet").
//		WithContext("path", "app/styles/main.css").
//		WithContext("line", 12).
//		WithCause(parseErr).
//		Build()
package errors
