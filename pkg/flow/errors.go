package flow

import "errors"

// AuthErrorKind classifies why an authentication attempt failed.
type AuthErrorKind string

const (
	// AuthUnknown covers key derivation and secret decryption failures.
	// Deliberately indistinct: distinguishing a wrong PIN from a missing
	// or corrupt entry would hand an attacker an oracle.
	AuthUnknown                 AuthErrorKind = "unknown"
	AuthConnection              AuthErrorKind = "connection"
	AuthInvalidChallenge        AuthErrorKind = "invalid_challenge"
	AuthInvalidRequest          AuthErrorKind = "invalid_request"
	AuthInvalidResponse         AuthErrorKind = "invalid_response"
	AuthInvalidUser             AuthErrorKind = "invalid_user"
	AuthAccountBlocked          AuthErrorKind = "account_blocked"
	AuthAccountBlockedTemporary AuthErrorKind = "account_blocked_temporary"
	AuthSecurityUnavailable     AuthErrorKind = "security_unavailable"
	AuthServerIncompatible      AuthErrorKind = "server_incompatible"
)

// AuthError is the single failure value of an authentication attempt: a
// kind for programmatic handling plus a pre-resolved title/message pair in
// the attempt's language, ready for direct display.
type AuthError struct {
	Kind    AuthErrorKind
	Title   string
	Message string

	// AttemptsLeft is set for AuthInvalidResponse when the server reported
	// how many tries remain.
	AttemptsLeft *int
	// Duration, in seconds, is set for AuthAccountBlockedTemporary.
	Duration *int

	err error
}

func (e *AuthError) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.err.Error()
	}
	return string(e.Kind)
}

func (e *AuthError) Unwrap() error { return e.err }

// ErrEnrollmentFailed is the sentinel cause of every enrollment failure
// past challenge parsing.
var ErrEnrollmentFailed = errors.New("enrollment failed")

// EnrollError mirrors AuthError for the enrollment flow.
type EnrollError struct {
	Title   string
	Message string

	err error
}

func (e *EnrollError) Error() string { return e.err.Error() }

func (e *EnrollError) Unwrap() error { return e.err }
