// Package metrics provides the observability hooks for assetflow builds and the dev server.
//
// Components receive a Recorder through dependency injection and default to
// NoopRecorder, so no nil checks are needed at call sites:
//
//	exec := orchestrator.NewExecutor(registry, orchestrator.WithRecorder(metrics.NoopRecorder{}))
//
// When the dev server runs with serve.metrics enabled, a PrometheusRecorder is
// injected instead and its registry is exposed on /__metrics via HTTPHandler.
package metrics
