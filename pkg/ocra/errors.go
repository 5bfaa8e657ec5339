package ocra

import "errors"

var (
	ErrMalformedSuite     = errors.New("malformed OCRA suite string")
	ErrMalformedChallenge = errors.New("challenge question does not match the suite's question format")
	ErrUnsupportedHash    = errors.New("unsupported hash function in OCRA suite")
	ErrMissingKey         = errors.New("missing OCRA key")
	ErrUnsupportedVersion = errors.New("unsupported protocol version")
)
