// Package orchestrator runs named build tasks in dependency order.
//
// Tasks live in a Registry. A Graph is an immutable, validated DAG over registered task
// names; graphs are built once at startup (see Plans) and handed to an Executor, which runs
// every task whose dependencies completed and stops launching work at the first failure.
package orchestrator
