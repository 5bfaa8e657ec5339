package identity_test

import (
	"context"
	"testing"

	"github.com/dmitrymomot/tiqrkit/pkg/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedStore(t *testing.T) (*identity.MemoryStore, *identity.IdentityProvider, *identity.Identity) {
	t.Helper()
	ctx := context.Background()
	store := identity.NewMemoryStore()

	provider, err := store.InsertProvider(ctx, &identity.IdentityProvider{
		Identifier:        "provider.example",
		DisplayName:       "Example Provider",
		AuthenticationURL: "https://provider.example/auth",
	})
	require.NoError(t, err)
	require.NotEqual(t, identity.UnsavedID, provider.ID)

	id, err := store.InsertIdentity(ctx, &identity.Identity{
		Identifier:  "alice",
		DisplayName: "Alice",
		ProviderID:  provider.ID,
	})
	require.NoError(t, err)
	require.NotEqual(t, identity.UnsavedID, id.ID)

	return store, provider, id
}

func TestMemoryStore_Lookups(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, provider, id := seedStore(t)

	got, err := store.ProviderByIdentifier(ctx, "provider.example")
	require.NoError(t, err)
	assert.Equal(t, provider.ID, got.ID)

	_, err = store.ProviderByIdentifier(ctx, "unknown.example")
	assert.ErrorIs(t, err, identity.ErrProviderNotFound)

	gotID, err := store.IdentityByIdentifier(ctx, "alice", provider.ID)
	require.NoError(t, err)
	assert.Equal(t, id.ID, gotID.ID)

	_, err = store.IdentityByIdentifier(ctx, "bob", provider.ID)
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)
}

func TestMemoryStore_DuplicateIdentity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, provider, _ := seedStore(t)

	_, err := store.InsertIdentity(ctx, &identity.Identity{
		Identifier: "alice",
		ProviderID: provider.ID,
	})
	assert.ErrorIs(t, err, identity.ErrDuplicateIdentity)
}

func TestMemoryStore_InsertProviderIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, provider, _ := seedStore(t)

	again, err := store.InsertProvider(ctx, &identity.IdentityProvider{Identifier: "provider.example"})
	require.NoError(t, err)
	assert.Equal(t, provider.ID, again.ID)
}

func TestMemoryStore_Blocking(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, provider, id := seedStore(t)

	_, err := store.InsertIdentity(ctx, &identity.Identity{
		Identifier: "bob",
		ProviderID: provider.ID,
		SortIndex:  1,
	})
	require.NoError(t, err)

	require.NoError(t, store.SetBlocked(ctx, id.ID, true))
	got, err := store.IdentityByIdentifier(ctx, "alice", provider.ID)
	require.NoError(t, err)
	assert.True(t, got.Blocked)

	// BlockAll is idempotent: a second call leaves everything blocked
	// with no error.
	require.NoError(t, store.BlockAll(ctx))
	require.NoError(t, store.BlockAll(ctx))

	all, err := store.IdentitiesByProvider(ctx, provider.ID)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, i := range all {
		assert.True(t, i.Blocked)
	}
}

func TestMemoryStore_UpdateAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, provider, id := seedStore(t)

	id.UseFingerprint = true
	id.ShowFingerprintUpgrade = false
	require.NoError(t, store.UpdateIdentity(ctx, id))

	got, err := store.IdentityByIdentifier(ctx, "alice", provider.ID)
	require.NoError(t, err)
	assert.True(t, got.UseFingerprint)

	require.NoError(t, store.DeleteIdentity(ctx, id.ID))
	_, err = store.IdentityByIdentifier(ctx, "alice", provider.ID)
	assert.ErrorIs(t, err, identity.ErrIdentityNotFound)

	assert.ErrorIs(t, store.UpdateIdentity(ctx, &identity.Identity{ID: identity.UnsavedID}), identity.ErrInvalidIdentity)
}

func TestIdentityProvider_OCRASuiteDefault(t *testing.T) {
	t.Parallel()

	p := identity.IdentityProvider{}
	assert.Equal(t, "OCRA-1:HOTP-SHA1-6:QN10", p.OCRASuite())

	p.Suite = "OCRA-1:HOTP-SHA256-8:QN08"
	assert.Equal(t, "OCRA-1:HOTP-SHA256-8:QN08", p.OCRASuite())
}
