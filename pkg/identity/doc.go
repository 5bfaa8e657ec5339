// Package identity defines the identity and identity-provider records the
// client core reads and writes, and the Store contract through which a
// host application injects its own persistence.
//
// The core never deletes identities on its own; it creates them at
// enrollment and mutates them on block/unblock and fingerprint-preference
// changes. Every Store update is a single-row operation — no cross-row
// transactions are required of implementations.
package identity
