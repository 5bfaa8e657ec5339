package challenge

import "errors"

// Sentinel causes for parse failures. Inspect a returned *ParseError with
// errors.Is against these.
var (
	ErrInvalidChallenge        = errors.New("not a valid challenge URI")
	ErrInvalidIdentityProvider = errors.New("no enrolled provider matches the challenge")
	ErrInvalidIdentity         = errors.New("challenge names an identity not on this device")
	ErrNoIdentities            = errors.New("no identities enrolled for the provider")
	ErrAlreadyEnrolled         = errors.New("identity already enrolled on this device")
	ErrConnection              = errors.New("could not fetch enrollment metadata")
	ErrInvalidResponse         = errors.New("malformed enrollment metadata")
)

// ParseError is the value returned for every parse failure: a sentinel
// cause for programmatic handling plus a pre-resolved title/message pair
// suitable for direct display.
type ParseError struct {
	Title   string
	Message string

	err error
}

func (e *ParseError) Error() string { return e.err.Error() }

func (e *ParseError) Unwrap() error { return e.err }

func newParseError(sentinel error, cause error, title, message string) *ParseError {
	err := sentinel
	if cause != nil {
		err = errors.Join(sentinel, cause)
	}
	return &ParseError{Title: title, Message: message, err: err}
}
