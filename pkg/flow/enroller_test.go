package flow_test

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dmitrymomot/tiqrkit/pkg/challenge"
	"github.com/dmitrymomot/tiqrkit/pkg/devicekey"
	"github.com/dmitrymomot/tiqrkit/pkg/flow"
	"github.com/dmitrymomot/tiqrkit/pkg/identity"
	"github.com/dmitrymomot/tiqrkit/pkg/secretstore"
	"github.com/dmitrymomot/tiqrkit/pkg/tiqrclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrollmentChallenge(enrollmentURL string) *challenge.EnrollmentChallenge {
	return &challenge.EnrollmentChallenge{
		Challenge: challenge.Challenge{
			ProtocolVersion: "2",
			Provider: &identity.IdentityProvider{
				Identifier:        "example.org",
				DisplayName:       "Example",
				AuthenticationURL: "https://example.org/auth",
				InfoURL:           "https://example.org/info",
				LogoURL:           "https://example.org/logo.png",
				Suite:             "OCRA-1:HOTP-SHA1-6:QN10",
			},
			Identity: &identity.Identity{
				Identifier:  "alice",
				DisplayName: "Alice",
			},
		},
		EnrollmentURL: enrollmentURL,
	}
}

func TestEnroll_Success(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var submittedSecret string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "register", r.PostForm.Get("operation"))
		submittedSecret = r.PostForm.Get("secret")
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	store := identity.NewMemoryStore()
	secrets := secretstore.New(secretstore.NewMemoryContainer())
	enroller := flow.NewEnroller(store, secrets, tiqrclient.New())

	saved, err := enroller.Enroll(ctx, enrollmentChallenge(srv.URL), []byte("1234"), testDevice)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.NotEqual(t, identity.UnsavedID, saved.ID)

	// The submitted secret is the stored one, hex-encoded.
	raw, err := hex.DecodeString(submittedSecret)
	require.NoError(t, err)
	require.Len(t, raw, flow.SecretSize)

	key, err := devicekey.Derive([]byte("1234"), testDevice)
	require.NoError(t, err)
	stored, err := secrets.Get(ctx, saved.ID, key)
	require.NoError(t, err)
	assert.Equal(t, raw, stored)

	// Provider and identity rows persisted and linked.
	provider, err := store.ProviderByIdentifier(ctx, "example.org")
	require.NoError(t, err)
	assert.Equal(t, provider.ID, saved.ProviderID)
}

func TestEnroll_ServerRejectionRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ERROR"))
	}))
	defer srv.Close()

	store := identity.NewMemoryStore()
	secrets := secretstore.New(secretstore.NewMemoryContainer())
	enroller := flow.NewEnroller(store, secrets, tiqrclient.New())

	_, err := enroller.Enroll(ctx, enrollmentChallenge(srv.URL), []byte("1234"), testDevice)
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrEnrollmentFailed)

	var enrollErr *flow.EnrollError
	require.ErrorAs(t, err, &enrollErr)
	assert.NotEmpty(t, enrollErr.Title)
	assert.NotEmpty(t, enrollErr.Message)

	// No dangling identity row survives the failed enrollment.
	provider, err := store.ProviderByIdentifier(ctx, "example.org")
	require.NoError(t, err)
	ids, err := store.IdentitiesByProvider(ctx, provider.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEnroll_ConnectionFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	store := identity.NewMemoryStore()
	secrets := secretstore.New(secretstore.NewMemoryContainer())
	enroller := flow.NewEnroller(store, secrets, tiqrclient.New())

	_, err := enroller.Enroll(context.Background(), enrollmentChallenge(srv.URL), []byte("1234"), testDevice)
	require.Error(t, err)
	assert.ErrorIs(t, err, flow.ErrEnrollmentFailed)
	assert.ErrorIs(t, err, tiqrclient.ErrConnection)
}

func TestEnroll_DuplicateIdentity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	store := identity.NewMemoryStore()
	secrets := secretstore.New(secretstore.NewMemoryContainer())
	enroller := flow.NewEnroller(store, secrets, tiqrclient.New())

	_, err := enroller.Enroll(ctx, enrollmentChallenge(srv.URL), []byte("1234"), testDevice)
	require.NoError(t, err)

	_, err = enroller.Enroll(ctx, enrollmentChallenge(srv.URL), []byte("1234"), testDevice)
	require.Error(t, err)
	assert.ErrorIs(t, err, identity.ErrDuplicateIdentity)
}

func TestEnrollAsync(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	}))
	defer srv.Close()

	store := identity.NewMemoryStore()
	secrets := secretstore.New(secretstore.NewMemoryContainer())
	enroller := flow.NewEnroller(store, secrets, tiqrclient.New())

	future := enroller.EnrollAsync(context.Background(), enrollmentChallenge(srv.URL), []byte("1234"), testDevice)
	saved, err := future.Await()
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.Identifier)
}

func TestEnroll_IncompleteChallenge(t *testing.T) {
	t.Parallel()

	store := identity.NewMemoryStore()
	secrets := secretstore.New(secretstore.NewMemoryContainer())
	enroller := flow.NewEnroller(store, secrets, tiqrclient.New())

	ch := enrollmentChallenge("https://example.org/enroll")
	ch.Identity = nil

	_, err := enroller.Enroll(context.Background(), ch, []byte("1234"), testDevice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, flow.ErrEnrollmentFailed))
}
