package devicekey

import "unicode/utf8"

// legacyReplacement is the UTF-8 encoding of U+FFFD. The historical mobile
// client derived its key-store password by round-tripping raw key bytes
// through the platform string decoder, which collapsed every invalid byte
// to a single replacement character. Entries encrypted before that decoder
// changed can only be opened by reproducing the old mapping exactly.
var legacyReplacement = []byte{0xef, 0xbf, 0xbd}

// StorePassword converts a derived key into the password that protects the
// encrypted container, using the pinned legacy decoding. Do not substitute
// the platform decoder here: the mapping is frozen at version 1 so that
// secrets written by historical installs keep decrypting. New writes use
// the same mapping for compatibility (see package docs).
func StorePassword(key Key) []byte {
	return legacyDecodeV1(key)
}

// legacyDecodeV1 reproduces the frozen decoder: ASCII bytes pass through,
// well-formed multi-byte UTF-8 sequences pass through, and every byte of
// an ill-formed sequence becomes one U+FFFD. This matches the historical
// per-byte replacement behavior rather than the modern per-sequence one.
func legacyDecodeV1(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); {
		if b[i] < utf8.RuneSelf {
			out = append(out, b[i])
			i++
			continue
		}
		r, size := utf8.DecodeRune(b[i:])
		if r == utf8.RuneError && size <= 1 {
			out = append(out, legacyReplacement...)
			i++
			continue
		}
		out = append(out, b[i:i+size]...)
		i += size
	}
	return out
}
