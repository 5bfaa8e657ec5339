// Package flow orchestrates parsed challenges into completed attempts.
//
// Authenticator runs the authentication pipeline — derive the key from
// the user secret, decrypt the stored OCRA secret, compute the one-time
// password, submit it — and collapses every local crypto failure into one
// indistinct error so callers cannot probe which step rejected the PIN.
// Enroller runs the enrollment pipeline and guarantees that a failed
// enrollment leaves no partial identity behind.
//
// Both flows also come in Async variants returning an async.Future, one
// background unit per attempt with a single terminal result.
package flow
