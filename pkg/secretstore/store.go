package secretstore

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/dmitrymomot/tiqrkit/pkg/devicekey"
)

const (
	ivSuffix  = "-iv"
	tagSuffix = "-tag"

	// macLabel separates the authentication subkey from the encryption
	// subkey derived from the same container password.
	macLabel = "tiqrkit-secretstore-mac-v2"
)

// Store persists one encrypted long-term secret per identity inside a
// Container. The container password for an identity's entries is the
// identity's own derived key (run through the pinned legacy decoding), so
// possession of the correct derived key is necessary and sufficient to
// decrypt exactly that identity's secret and no other.
//
// Entries written by current code carry an HMAC-SHA256 tag next to the
// AES-256-CBC ciphertext. Historical entries may lack the tag, or lack
// even the IV; both are readable and silently upgraded on first read.
type Store struct {
	container Container
	logger    *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a logger for non-fatal events such as failed
// migration-on-read rewrites.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store over the given container.
func New(container Container, opts ...Option) *Store {
	s := &Store{
		container: container,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put encrypts the secret under a fresh random IV and persists
// ciphertext, IV and authentication tag for the identity.
func (s *Store) Put(ctx context.Context, identityID int64, secret []byte, key devicekey.Key) error {
	encKey, macKey := subKeys(key)

	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return errors.Join(ErrEncryptionFailed, err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return errors.Join(ErrEncryptionFailed, err)
	}

	padded := padPKCS7(secret, aes.BlockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, padded)

	name := entryName(identityID)
	if err := s.container.Put(ctx, name, ciphertext); err != nil {
		return fmt.Errorf("store ciphertext: %w", err)
	}
	if err := s.container.Put(ctx, name+ivSuffix, iv); err != nil {
		return fmt.Errorf("store iv: %w", err)
	}
	if err := s.container.Put(ctx, name+tagSuffix, seal(macKey, iv, ciphertext)); err != nil {
		return fmt.Errorf("store tag: %w", err)
	}
	return nil
}

// Get decrypts and returns the identity's secret. A missing entry yields
// ErrKeyNotFound; an entry the derived key cannot open yields ErrWrongKey.
// Legacy entries (no tag, or no IV at all) are re-encrypted in the current
// format after a successful read; that rewrite is best effort and never
// fails the read.
func (s *Store) Get(ctx context.Context, identityID int64, key devicekey.Key) ([]byte, error) {
	name := entryName(identityID)

	ciphertext, err := s.container.Get(ctx, name)
	if errors.Is(err, ErrEntryNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read ciphertext: %w", err)
	}
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidPayload
	}

	// IV absent = pre-IV legacy entry encrypted with an all-zero IV.
	legacy := false
	iv, err := s.container.Get(ctx, name+ivSuffix)
	if errors.Is(err, ErrEntryNotFound) {
		iv = make([]byte, aes.BlockSize)
		legacy = true
	} else if err != nil {
		return nil, fmt.Errorf("read iv: %w", err)
	}
	if len(iv) != aes.BlockSize {
		return nil, ErrInvalidPayload
	}

	encKey, macKey := subKeys(key)

	tag, err := s.container.Get(ctx, name+tagSuffix)
	switch {
	case err == nil:
		if subtle.ConstantTimeCompare(tag, seal(macKey, iv, ciphertext)) != 1 {
			return nil, ErrWrongKey
		}
	case errors.Is(err, ErrEntryNotFound):
		// Pre-authentication entry: padding is the only integrity check.
		legacy = true
	default:
		return nil, fmt.Errorf("read tag: %w", err)
	}

	block, err := aes.NewCipher(encKey)
	if err != nil {
		return nil, errors.Join(ErrWrongKey, err)
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, ciphertext)

	secret, err := unpadPKCS7(plaintext, aes.BlockSize)
	if err != nil {
		return nil, ErrWrongKey
	}

	if legacy {
		if err := s.Put(ctx, identityID, secret, key); err != nil {
			s.logger.WarnContext(ctx, "legacy entry rewrite failed",
				slog.Int64("identity_id", identityID),
				slog.Any("error", err),
			)
		}
	}
	return secret, nil
}

// Delete removes all entries for the identity. Missing entries are ignored.
func (s *Store) Delete(ctx context.Context, identityID int64) error {
	name := entryName(identityID)
	for _, n := range []string{name, name + ivSuffix, name + tagSuffix} {
		if err := s.container.Delete(ctx, n); err != nil {
			return fmt.Errorf("delete entry %s: %w", n, err)
		}
	}
	return nil
}

func entryName(identityID int64) string {
	return strconv.FormatInt(identityID, 10)
}

// subKeys derives the AES key and MAC key from the identity's derived key.
// The container password is the legacy-decoded derived key; see the
// devicekey package for why that decoding is pinned.
func subKeys(key devicekey.Key) (encKey, macKey []byte) {
	password := devicekey.StorePassword(key)
	ek := sha256.Sum256(password)

	m := hmac.New(sha256.New, ek[:])
	m.Write([]byte(macLabel))
	return ek[:], m.Sum(nil)
}

func seal(macKey, iv, ciphertext []byte) []byte {
	m := hmac.New(sha256.New, macKey)
	m.Write(iv)
	m.Write(ciphertext)
	return m.Sum(nil)
}

func padPKCS7(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+n)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}

func unpadPKCS7(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, ErrInvalidPayload
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, ErrInvalidPayload
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, ErrInvalidPayload
		}
	}
	return data[:len(data)-n], nil
}
