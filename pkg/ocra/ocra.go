package ocra

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"math/big"
	"strings"
	"time"
)

// questionBlockSize is the fixed width of the challenge question field in
// the OCRA data input (RFC 6287 section 5.1).
const questionBlockSize = 128

// Generator computes a one-time password from a suite descriptor, a shared
// secret, the server challenge question and the session key. The two
// protocol generations interpret these inputs differently, so callers pick
// a Generator via GeneratorForVersion instead of branching themselves.
type Generator func(suite string, key []byte, challenge, sessionKey string) (string, error)

// GeneratorForVersion selects the OCRA variant for a challenge protocol
// version. Version "1" predates suite-string negotiation and keeps its
// historical fixed interpretation; everything else follows RFC 6287.
func GeneratorForVersion(version string) Generator {
	if version == "1" {
		return GenerateLegacy
	}
	return Generate
}

// Generate computes an RFC 6287 one-time password. The suite string is
// parsed in full; the session key only enters the computation when the
// suite declares an S element.
func Generate(suite string, key []byte, challenge, sessionKey string) (string, error) {
	if len(key) == 0 {
		return "", ErrMissingKey
	}

	s, err := ParseSuite(suite)
	if err != nil {
		return "", err
	}

	question, err := encodeQuestion(s.QuestionFmt, challenge)
	if err != nil {
		return "", err
	}

	msg := make([]byte, 0, len(s.Raw)+1+8+questionBlockSize+64+8)
	msg = append(msg, s.Raw...)
	msg = append(msg, 0)
	if s.Counter {
		msg = binary.BigEndian.AppendUint64(msg, 0)
	}
	msg = append(msg, question...)
	if s.PINHash != "" {
		msg = append(msg, hashPIN(s.PINHash, "")...)
	}
	if s.SessionLength > 0 {
		msg = append(msg, encodeSession(sessionKey, s.SessionLength)...)
	}
	if s.TimeStep > 0 {
		steps := uint64(time.Now().Unix() / int64(s.TimeStep/time.Second))
		msg = binary.BigEndian.AppendUint64(msg, steps)
	}

	return computeOTP(s, key, msg)
}

// GenerateLegacy computes a protocol v1 one-time password. The first
// protocol generation shipped before suite parsing existed: the hash is
// always SHA-1, only the digit count is read from the suite, and the
// session key is appended to the data input verbatim whether or not the
// suite mentions session information. Kept bit-compatible so pre-v2
// servers keep verifying.
func GenerateLegacy(suite string, key []byte, challenge, sessionKey string) (string, error) {
	if len(key) == 0 {
		return "", ErrMissingKey
	}

	s, err := ParseSuite(suite)
	if err != nil {
		return "", err
	}
	s.Hash = "SHA1"

	question, err := encodeQuestion(s.QuestionFmt, challenge)
	if err != nil {
		return "", err
	}

	msg := make([]byte, 0, len(s.Raw)+1+questionBlockSize+len(sessionKey))
	msg = append(msg, s.Raw...)
	msg = append(msg, 0)
	msg = append(msg, question...)
	msg = append(msg, sessionKey...)

	return computeOTP(s, key, msg)
}

// encodeQuestion renders the challenge question into the fixed 128-byte
// field. Numeric questions go through decimal-to-hex conversion per the
// RFC 6287 reference implementation; hex questions are decoded; plain
// questions are copied as ASCII. All are left-justified and zero padded.
func encodeQuestion(format QuestionFormat, question string) ([]byte, error) {
	block := make([]byte, questionBlockSize)

	var encoded []byte
	switch format {
	case QuestionNumeric:
		n, ok := new(big.Int).SetString(question, 10)
		if !ok || n.Sign() < 0 {
			return nil, fmt.Errorf("%w: %q is not a decimal number", ErrMalformedChallenge, question)
		}
		h := n.Text(16)
		if len(h)%2 != 0 {
			h += "0"
		}
		var err error
		if encoded, err = hex.DecodeString(h); err != nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedChallenge, question)
		}
	case QuestionHex:
		h := question
		if len(h)%2 != 0 {
			h += "0"
		}
		var err error
		if encoded, err = hex.DecodeString(h); err != nil {
			return nil, fmt.Errorf("%w: %q is not hexadecimal", ErrMalformedChallenge, question)
		}
	case QuestionAlphanumeric:
		encoded = []byte(question)
	default:
		return nil, fmt.Errorf("%w: question format %q", ErrMalformedSuite, string(format))
	}

	if len(encoded) > questionBlockSize {
		return nil, fmt.Errorf("%w: question longer than %d bytes", ErrMalformedChallenge, questionBlockSize)
	}
	copy(block, encoded)
	return block, nil
}

// encodeSession renders the session key into the suite-declared block size.
// Session keys are hex on the wire, left-padded with zeros to the declared
// width; a non-hex value falls back to raw bytes so a lenient server
// remains reachable.
func encodeSession(sessionKey string, length int) []byte {
	block := make([]byte, length)

	padded := sessionKey
	if len(padded) > 2*length {
		padded = padded[len(padded)-2*length:]
	}
	padded = strings.Repeat("0", 2*length-len(padded)) + padded

	if decoded, err := hex.DecodeString(padded); err == nil {
		copy(block, decoded)
		return block
	}

	copy(block, sessionKey)
	return block
}

func hashPIN(algorithm, pin string) []byte {
	switch algorithm {
	case "SHA256":
		sum := sha256.Sum256([]byte(pin))
		return sum[:]
	case "SHA512":
		sum := sha512.Sum512([]byte(pin))
		return sum[:]
	default:
		sum := sha1.Sum([]byte(pin))
		return sum[:]
	}
}

// computeOTP runs the HMAC and RFC 4226 dynamic truncation over the
// assembled data input.
func computeOTP(s Suite, key, msg []byte) (string, error) {
	newHash, err := s.hasher()
	if err != nil {
		return "", err
	}

	mac := hmac.New(newHash, key)
	mac.Write(msg)
	sum := mac.Sum(nil)

	// Dynamic truncation: low 4 bits of the last byte select the offset,
	// the MSB of the extracted word is cleared to stay positive.
	offset := sum[len(sum)-1] & 0x0f
	code := (int64(sum[offset]&0x7f) << 24) |
		(int64(sum[offset+1]) << 16) |
		(int64(sum[offset+2]) << 8) |
		int64(sum[offset+3])

	if s.Digits == 0 {
		return fmt.Sprintf("%d", code), nil
	}
	code %= int64(math.Pow10(s.Digits))
	return fmt.Sprintf("%0*d", s.Digits, code), nil
}
