// Package credential implements the pure credential-verification layer of
// the authentication engine: tagged credential records, password and hash
// comparison, and the CHAP/MS-CHAP challenge-response algorithms.
//
// Nothing in this package performs I/O or suspends. Every comparison is a
// pure function of its inputs, so the engine can re-run a verification on
// handler re-entry without observable side effects. Stored secrets are
// treated as sensitive throughout: they are never included in returned
// errors and never logged.
package credential
