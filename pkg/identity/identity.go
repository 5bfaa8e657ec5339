package identity

import "github.com/dmitrymomot/tiqrkit/pkg/ocra"

// UnsavedID marks an Identity or IdentityProvider that has not been
// inserted into the store yet.
const UnsavedID int64 = 0

// Identity is one enrollment of a user with an identity provider. Owned by
// the external store; this package only defines the contract and a memory
// implementation for embedding and tests.
type Identity struct {
	ID          int64
	Identifier  string // unique per provider
	DisplayName string
	SortIndex   int
	Blocked     bool

	// UseFingerprint gates the biometric-derived key flow for this
	// identity; ShowFingerprintUpgrade controls whether the user should
	// still be prompted to enable it.
	UseFingerprint         bool
	ShowFingerprintUpgrade bool

	ProviderID int64
}

// IdentityProvider is the relying party an identity is enrolled with.
type IdentityProvider struct {
	ID                int64
	Identifier        string // hostname-derived
	DisplayName       string
	AuthenticationURL string
	InfoURL           string
	LogoURL           string
	Logo              []byte

	// Suite is the raw OCRA suite from enrollment metadata; empty for old
	// servers. Use OCRASuite to read it.
	Suite string
}

// OCRASuite returns the provider's OCRA suite, falling back to the
// protocol default when the server omitted one at enrollment. Old servers
// omit the suite and must be interpreted with SHA-1/6-digit/
// numeric-challenge semantics, so this default is load-bearing.
func (p IdentityProvider) OCRASuite() string {
	if p.Suite == "" {
		return ocra.DefaultSuite
	}
	return p.Suite
}
