package tiqrclient

import "errors"

var (
	// ErrConnection covers every transport-level failure uniformly: DNS,
	// dial, timeout, non-2xx status. The core never distinguishes them.
	ErrConnection = errors.New("identity provider could not be reached")
	// ErrInvalidServerResponse means the server answered with something
	// outside the protocol (unknown token, unparsable JSON).
	ErrInvalidServerResponse = errors.New("unintelligible server response")
	// ErrEnrollmentRejected means the enrollment endpoint refused the
	// submitted secret.
	ErrEnrollmentRejected = errors.New("server rejected enrollment")
	ErrInvalidURL         = errors.New("invalid endpoint URL")
)
