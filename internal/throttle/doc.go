// Package throttle provides Redis-backed primitives shared by all
// workers of the daemon: cross-session failed-login counters and the
// realm-wide backend-failure marker that arms fallback-credential mode.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// prefixes (under the configured namespace):
//   - fu: failed logins per user+realm
//   - fn: failed logins per NAS address
//   - bf: realm backend-failure marker
//
// # What this package must NOT do
//
//   - Implement authentication policy (that lives in the root package).
//   - Be imported outside the goTacAuth module.
package throttle
