package secretstore

import "errors"

var (
	// ErrKeyNotFound means no secret has ever been stored for the identity.
	ErrKeyNotFound = errors.New("no stored secret for identity")
	// ErrWrongKey means an entry exists but the supplied derived key cannot
	// open it. Callers must not distinguish this from ErrKeyNotFound in any
	// user-visible way (oracle avoidance); the distinction exists for logs
	// and tests only.
	ErrWrongKey = errors.New("stored secret unrecoverable with supplied key")

	ErrEntryNotFound    = errors.New("container entry not found")
	ErrInvalidPayload   = errors.New("invalid stored payload")
	ErrContainerClosed  = errors.New("container is closed")
	ErrEncryptionFailed = errors.New("failed to encrypt secret")
)
