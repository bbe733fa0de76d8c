// Package credcore implements the credential and session security core of
// an account system: password login with brute-force lockout, signed access
// tokens paired with single-use rotating refresh tokens, time-bounded token
// revocation, and a single-use password-reset flow.
//
// The package is designed for concurrent server workloads: Service methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// credcore is the public surface. It exposes [Service], [Builder], [Config],
// the collaborator interfaces ([UserStore], [UnitOfWork], [AuditSink]), and
// value types. Reusable primitives live in the kv, password, and token
// subpackages; denylist records, reset tickets, rate limiting, and audit
// dispatch live under internal/ and are never exported.
//
// Persistent identity storage, audit persistence, and HTTP routing are the
// host's responsibility: the host injects a [UserStore], an [AuditSink],
// and optionally a [UnitOfWork], and calls Service methods from its
// handlers. Tokens are stateless bearer capabilities verified by signature
// and expiry; no session table exists, so revocation before natural expiry
// goes through the ephemeral denylist.
package credcore
