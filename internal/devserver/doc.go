// Package devserver serves a project during development: a static file server over
// layered trees, a live-reload hub pushing Server-Sent Events to browsers, a recursive
// filesystem watcher and a dispatcher that turns file changes into task runs and
// reloads.
//
// Data flows in one direction: Watcher -> Dispatcher -> Executor.RunTask -> Hub.
package devserver
