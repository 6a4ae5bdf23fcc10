// Package mavis implements the external identity-backend query protocol:
// a typed attribute set per query, a six-valued module outcome, and an
// ordered module chain with explicit pass-to-lower delegation.
//
// A backend module answers info, auth, challenge, and password-change
// queries. Modules that cannot answer immediately return [Deferred] and
// later deliver the completed query back to the engine; the engine
// suspends the authentication handler until then. A module that declines
// a query returns [Ignore] or [Down] and the chain tries the next module.
//
// The engine treats [Timeout] and module errors as a verification status
// of "error", never as a plain denial: backend unavailability triggers
// fallback-credential policy and a distinct audit hint.
package mavis
