package ocra

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"
	"time"
)

// DefaultSuite is assumed when an identity provider predates suite
// negotiation and omits the suite from its enrollment metadata. Old servers
// rely on these exact SHA-1/6-digit/numeric-question semantics.
const DefaultSuite = "OCRA-1:HOTP-SHA1-6:QN10"

// QuestionFormat describes how the challenge question is encoded into the
// OCRA data input block.
type QuestionFormat byte

const (
	QuestionNumeric      QuestionFormat = 'N'
	QuestionAlphanumeric QuestionFormat = 'A'
	QuestionHex          QuestionFormat = 'H'
)

// Suite is a parsed RFC 6287 OCRASuite descriptor of the form
// OCRA-1:HOTP-<hash>-<digits>:<data-input>.
type Suite struct {
	Raw    string
	Hash   string // SHA1, SHA256 or SHA512
	Digits int    // 0 = full HMAC output as decimal, otherwise 4..10

	Counter        bool
	QuestionFmt    QuestionFormat
	QuestionLength int
	PINHash        string        // empty when the suite has no P element
	SessionLength  int           // 0 when the suite has no S element
	TimeStep       time.Duration // 0 when the suite has no T element
}

// ParseSuite parses an OCRASuite string. Every structural deviation from
// RFC 6287 is reported as ErrMalformedSuite so callers can distinguish a
// server-compatibility problem from a wrong user secret.
func ParseSuite(raw string) (Suite, error) {
	s := Suite{Raw: raw}

	parts := strings.Split(raw, ":")
	if len(parts) != 3 {
		return s, fmt.Errorf("%w: %q", ErrMalformedSuite, raw)
	}
	if !strings.EqualFold(parts[0], "OCRA-1") {
		return s, fmt.Errorf("%w: unknown algorithm %q", ErrMalformedSuite, parts[0])
	}

	if err := s.parseCryptoFunction(parts[1]); err != nil {
		return s, err
	}
	if err := s.parseDataInput(parts[2]); err != nil {
		return s, err
	}
	return s, nil
}

// parseCryptoFunction handles the HOTP-<hash>-<digits> segment.
func (s *Suite) parseCryptoFunction(segment string) error {
	fields := strings.Split(segment, "-")
	if len(fields) != 3 || !strings.EqualFold(fields[0], "HOTP") {
		return fmt.Errorf("%w: crypto function %q", ErrMalformedSuite, segment)
	}

	switch h := strings.ToUpper(fields[1]); h {
	case "SHA1", "SHA256", "SHA512":
		s.Hash = h
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedHash, fields[1])
	}

	digits, err := strconv.Atoi(fields[2])
	if err != nil || (digits != 0 && (digits < 4 || digits > 10)) {
		return fmt.Errorf("%w: truncation digits %q", ErrMalformedSuite, fields[2])
	}
	s.Digits = digits
	return nil
}

// parseDataInput handles the [C]-QFxx[-PH][-Snnn][-TG] segment.
func (s *Suite) parseDataInput(segment string) error {
	sawQuestion := false
	for _, el := range strings.Split(segment, "-") {
		if el == "" {
			return fmt.Errorf("%w: empty data input element", ErrMalformedSuite)
		}
		switch el[0] {
		case 'C', 'c':
			if len(el) != 1 {
				return fmt.Errorf("%w: counter element %q", ErrMalformedSuite, el)
			}
			s.Counter = true
		case 'Q', 'q':
			if len(el) != 4 {
				return fmt.Errorf("%w: question element %q", ErrMalformedSuite, el)
			}
			switch QuestionFormat(el[1] &^ 0x20) {
			case QuestionNumeric, QuestionAlphanumeric, QuestionHex:
				s.QuestionFmt = QuestionFormat(el[1] &^ 0x20)
			default:
				return fmt.Errorf("%w: question format %q", ErrMalformedSuite, el)
			}
			n, err := strconv.Atoi(el[2:])
			if err != nil || n < 4 || n > 64 {
				return fmt.Errorf("%w: question length %q", ErrMalformedSuite, el)
			}
			s.QuestionLength = n
			sawQuestion = true
		case 'P', 'p':
			switch h := strings.ToUpper(el[1:]); h {
			case "SHA1", "SHA256", "SHA512":
				s.PINHash = h
			default:
				return fmt.Errorf("%w: pin hash %q", ErrMalformedSuite, el)
			}
		case 'S', 's':
			n, err := strconv.Atoi(el[1:])
			if err != nil || n <= 0 || n > 512 {
				return fmt.Errorf("%w: session length %q", ErrMalformedSuite, el)
			}
			s.SessionLength = n
		case 'T', 't':
			step, err := parseTimeStep(el[1:])
			if err != nil {
				return err
			}
			s.TimeStep = step
		default:
			return fmt.Errorf("%w: data input element %q", ErrMalformedSuite, el)
		}
	}

	if !sawQuestion {
		return fmt.Errorf("%w: missing question element", ErrMalformedSuite)
	}
	return nil
}

func parseTimeStep(spec string) (time.Duration, error) {
	if len(spec) < 2 {
		return 0, fmt.Errorf("%w: timestamp element %q", ErrMalformedSuite, spec)
	}
	n, err := strconv.Atoi(spec[:len(spec)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: timestamp element %q", ErrMalformedSuite, spec)
	}
	switch spec[len(spec)-1] {
	case 'S', 's':
		return time.Duration(n) * time.Second, nil
	case 'M', 'm':
		return time.Duration(n) * time.Minute, nil
	case 'H', 'h':
		return time.Duration(n) * time.Hour, nil
	}
	return 0, fmt.Errorf("%w: timestamp unit %q", ErrMalformedSuite, spec)
}

// hasher returns the constructor for the suite's HMAC hash.
func (s Suite) hasher() (func() hash.Hash, error) {
	switch s.Hash {
	case "SHA1":
		return sha1.New, nil
	case "SHA256":
		return sha256.New, nil
	case "SHA512":
		return sha512.New, nil
	}
	return nil, errors.Join(ErrUnsupportedHash, fmt.Errorf("hash %q", s.Hash))
}
