package identity

import "context"

// Store is the injected accessor for the device's identity and provider
// records. Implementations must make each update individually atomic
// (single-row semantics); the client core never needs cross-row
// transactions.
type Store interface {
	// ProviderByIdentifier resolves a provider by its hostname-derived
	// identifier. Returns ErrProviderNotFound when unknown.
	ProviderByIdentifier(ctx context.Context, identifier string) (*IdentityProvider, error)
	// InsertProvider stores a new provider and returns it with its row id
	// assigned. Inserting an identifier that already exists returns the
	// existing row.
	InsertProvider(ctx context.Context, provider *IdentityProvider) (*IdentityProvider, error)

	// IdentityByIdentifier resolves one identity by identifier within a
	// provider. Returns ErrIdentityNotFound when unknown.
	IdentityByIdentifier(ctx context.Context, identifier string, providerID int64) (*Identity, error)
	// IdentitiesByProvider lists all identities enrolled with a provider,
	// ordered by sort index.
	IdentitiesByProvider(ctx context.Context, providerID int64) ([]*Identity, error)
	// InsertIdentity stores a new identity and returns it with its row id
	// assigned. Returns ErrDuplicateIdentity when the identifier is
	// already enrolled with the provider.
	InsertIdentity(ctx context.Context, id *Identity) (*Identity, error)
	// UpdateIdentity replaces a stored identity row.
	UpdateIdentity(ctx context.Context, id *Identity) error
	// DeleteIdentity removes an identity row. Missing rows are ignored.
	DeleteIdentity(ctx context.Context, identityID int64) error

	// SetBlocked flips the blocked flag on one identity.
	SetBlocked(ctx context.Context, identityID int64, blocked bool) error
	// BlockAll marks every identity on the device blocked. Idempotent.
	BlockAll(ctx context.Context) error
}
