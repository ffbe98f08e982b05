// Package instance composes the lifecycle of sandboxed app instances: it
// materializes a template into a working tree on a pooled runner, runs the
// setup sequence, supervises the dev server, and tears everything down
// again.
//
// # Lifecycle
//
// Create hashes a fresh instance id onto a runner slot, extracts the
// template, persists an initial descriptor, and then runs the setup
// sequence. With Wait set the call blocks until setup finishes; otherwise
// setup continues in the background and its single completion write to the
// metadata descriptor is the only synchronization point observers get.
// There is no cancellation of a background setup once started.
//
// # Setup Sequence
//
// Setup is an ordered table of named steps. A step either is fatal, which
// aborts the sequence and surfaces a structured error, or degrades to a
// warning recorded in the instance's runtime error log while the sequence
// continues. Which steps may degrade is declared once, in the table.
//
// # Teardown
//
// Shutdown kills the runner's background processes, withdraws exposed
// ports, removes the working tree, and invalidates the cached descriptor.
// The descriptor file itself is left behind for audit. A shutdown may race
// an in-flight background setup; the setup's completion write is moot once
// the working tree is gone.
package instance
