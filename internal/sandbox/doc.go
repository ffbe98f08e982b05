// Package sandbox provides the runner client used to drive instance
// filesystems and processes.
//
// A runner is one container in the fixed pool. Every instance operation
// eventually becomes a shell command executed inside a runner, so the
// Client interface is deliberately narrow: execute commands, move files,
// manage background processes, and expose ports.
//
// # Backends
//
// Three implementations exist:
//
//   - HTTPClient talks to a remote runner daemon over HTTP+JSON. File
//     transfer rides the exec channel as base64 so the daemon surface
//     stays minimal.
//   - LocalClient runs everything against the local machine under a
//     per-runner root directory. Used for development and by the
//     integration tests.
//   - Mock is a scriptable fake for unit tests that records every call.
//
// # Dialing
//
// Callers never construct backends directly; a Dialer resolves a runner
// name (e.g. "orange-runner-3") to a Client:
//
//	client, err := dialer.Dial("orange-runner-3")
//	res, err := client.Exec(ctx, sandbox.ExecRequest{Cmd: "npm install"})
//
// # Errors
//
// Operations wrap failures in *Error carrying the operation name and the
// runner name, so call sites can log one structured value.
package sandbox
