// Package goTacAuth provides the authentication engine of a TACACS+-style
// network access-control daemon: the per-method re-entrant state machines
// driving a multi-packet START/CONTINUE credential exchange, the
// password and challenge-response verification algorithms, and the
// protocol for deferring a step to an asynchronous external identity
// backend and resuming correctly when that backend answers.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build], provided each individual session is driven
// sequentially (one packet or backend answer at a time), which the
// transport's per-connection handling gives naturally.
//
// # Architecture boundaries
//
// goTacAuth is the public surface. It exposes [Engine], [Builder],
// [Config], the parsed packet types, and the collaborator interfaces
// ([UserDirectory], [ACLEvaluator], [ReplyWriter], [AuditSink]). Pure
// credential comparison lives in the credential subpackage; the external
// backend query protocol lives in the mavis subpackage. The outer wire
// transport, TLS, PROXY unwrapping, configuration parsing, and process
// supervision are collaborators of this module, never part of it.
//
// # What this package must NOT do
//
//   - Block inside a method handler. The only suspension points are
//     "waiting for the next client packet" and "waiting for a deferred
//     backend answer", both modeled as the handler returning.
//   - Echo a stored secret into logs, audit events, or reply messages.
//   - Terminate the process. Every inbound packet produces a reply or a
//     clean session teardown.
package goTacAuth
