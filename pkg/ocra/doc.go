// Package ocra implements the OATH Challenge-Response Algorithm (RFC 6287)
// one-time-password computation used by the tiqr protocol.
//
// The package is a pure function of its inputs: a suite descriptor string,
// a shared secret key, the server challenge question and the session key.
// No state is kept between calls.
//
// # Protocol variants
//
// Two historical generations of the protocol exist and they are not
// wire-compatible:
//
//   - protocol "1" clients shipped before the suite string was parsed at
//     all. GenerateLegacy reproduces that behavior bit for bit: HMAC-SHA1
//     regardless of the suite, and the session key appended raw to the data
//     input.
//   - protocol "2" and later follow RFC 6287: the suite string is parsed
//     in full and drives the hash, digit count and data-input layout.
//
// Callers select a variant with GeneratorForVersion, which returns a
// Generator function. A future protocol generation slots in as a third
// branch of that selector.
//
// # Errors
//
// A malformed suite string yields ErrMalformedSuite (a server
// compatibility problem), while a challenge question that does not match
// the suite's declared question format yields ErrMalformedChallenge. The
// two must not be conflated: the first means "this server speaks a dialect
// we don't", the second "this challenge is garbage". Neither means the
// user's secret was wrong. Inspect with errors.Is.
package ocra
