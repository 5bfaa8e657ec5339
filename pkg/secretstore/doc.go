// Package secretstore persists, per identity, the encrypted long-term
// secret shared with that identity's provider.
//
// Secrets are encrypted with AES-256-CBC under a key derived from the
// user's PIN (or biometric placeholder) for exactly one identity; no
// identity's secret is recoverable with another identity's key. The
// historical container layout is preserved: the ciphertext lives under the
// identity's id and the IV under "<id>-iv".
//
// # Payload versioning
//
// The original format carried no authentication alongside the ciphertext,
// so a wrong key could only be detected by the padding check (and, for an
// unlucky 1-in-256 padding collision, not even then — server-side OTP
// verification is the real backstop for those entries). Entries written by
// this package add an HMAC-SHA256 tag under "<id>-tag", giving explicit
// wrong-key detection. Both formats are readable; legacy entries — tagless
// ones and the even older IV-less ones — are silently re-encrypted in the
// current format on first successful read. That migration is best effort
// and never fails the read.
//
// The backing Container is a single file per device written under a
// single-writer discipline (atomic temp-file replace); a MemoryContainer
// is provided for tests.
package secretstore
