// Package devicekey turns a low-entropy user secret (a 4-digit PIN, or a
// fixed placeholder for biometric-gated flows) into a symmetric key via
// PBKDF2-HMAC-SHA256, salted with a device-bound identifier.
//
// The derived key unlocks exactly one identity's stored long-term secret
// and exists only in memory for the duration of one authentication
// attempt. Because the salt is device-bound, the same PIN on two devices
// yields unrelated keys.
//
// # Legacy store password
//
// StorePassword runs a derived key through a pinned, versioned decoding
// routine before it is used as the encrypted container's password. The
// routine reproduces a historical platform string-decoding quirk and must
// never be replaced by the standard decoder — existing installs depend on
// it to reproduce their encryption keys. See legacy.go.
package devicekey
