package devicekey

import (
	"crypto"
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize is the derived key length, sized for AES-256.
	KeySize = 32

	// Iterations is the PBKDF2 work factor. Chosen for the interactive
	// budget of a handheld device; raising it invalidates no stored data
	// because derived keys are never persisted.
	Iterations = 1500

	// saltLabel provides domain separation so the same device identifier
	// cannot be replayed into another key-stretching context.
	saltLabel = "tiqrkit-devicekey-v1"

	// biometricPlaceholder is the fixed secret for biometric-gated flows.
	// The sensor itself gates invocation; the derived key is constant per
	// device, and biometric confirmation is the only variable.
	biometricPlaceholder = "tiqrkit-biometric-placeholder"
)

// Key is a symmetric key derived from a user secret. It lives in memory
// for a single derive-use-discard cycle and is never persisted.
type Key []byte

// DeviceContext binds key derivation to one physical device so that the
// same PIN on two devices yields unrelated keys.
type DeviceContext struct {
	// DeviceID is any stable per-device identifier (installation ID,
	// hardware-backed identifier). Must be non-empty.
	DeviceID string
}

// BiometricSecret returns the well-known constant secret used when the
// biometric sensor, rather than a PIN, gates access to the stored secret.
func BiometricSecret() []byte {
	return []byte(biometricPlaceholder)
}

// Derive stretches a low-entropy user secret into a symmetric key using
// PBKDF2-HMAC-SHA256 with a device-bound salt. Deterministic for identical
// inputs. The secret must be exactly four ASCII digits (PIN flow) or the
// BiometricSecret constant.
func Derive(secret []byte, ctx DeviceContext) (Key, error) {
	if !crypto.SHA256.Available() {
		return nil, ErrSecurityUnavailable
	}
	if ctx.DeviceID == "" {
		return nil, ErrMissingDeviceContext
	}
	if err := validateSecret(secret); err != nil {
		return nil, err
	}

	salt := sha256.Sum256(append([]byte(saltLabel+"|"), ctx.DeviceID...))
	return pbkdf2.Key(secret, salt[:], Iterations, KeySize, sha256.New), nil
}

func validateSecret(secret []byte) error {
	if string(secret) == biometricPlaceholder {
		return nil
	}
	if len(secret) != 4 {
		return fmt.Errorf("%w: want 4 ASCII digits", ErrInvalidSecret)
	}
	for _, b := range secret {
		if b < '0' || b > '9' {
			return errors.Join(ErrInvalidSecret, fmt.Errorf("non-digit byte 0x%02x", b))
		}
	}
	return nil
}
