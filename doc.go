// Package shellfish launches external processes and manages their whole
// lifecycle: argument encoding, line-oriented capture of standard output and
// error, asynchronous standard-input feeding, cooperative cancellation with
// guaranteed termination of the process tree, and (on Windows) launching as
// a different user with that user's own environment.
//
// A run is described by a Command built fluently and then executed either
// synchronously with Run or asynchronously with Start/Wait:
//
//	out := shellfish.NewCollector()
//	result, err := shellfish.NewCommand("/bin/sh").
//		WithArguments("-c", "echo hello").
//		WithStdoutTarget(out).
//		Run(ctx)
//
// A Command carries no process affinity once built; the same Command may be
// used to launch any number of independent executions.
package shellfish
