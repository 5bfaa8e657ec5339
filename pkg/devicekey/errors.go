package devicekey

import "errors"

var (
	// ErrSecurityUnavailable means the platform cannot provide the
	// required cryptographic primitives. This is fatal for the device's
	// security model, not a retryable condition.
	ErrSecurityUnavailable = errors.New("cryptographic provider lacks required primitives")

	ErrMissingDeviceContext = errors.New("device context has no device identifier")
	ErrInvalidSecret        = errors.New("invalid user secret")
)
