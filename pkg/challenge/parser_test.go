package challenge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrymomot/tiqrkit/pkg/challenge"
	"github.com/dmitrymomot/tiqrkit/pkg/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fetcherFunc func(ctx context.Context, url string) ([]byte, error)

func (f fetcherFunc) FetchEnrollmentMetadata(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

var noFetch = fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("unexpected metadata fetch")
})

func newStore(t *testing.T, identifiers ...string) (identity.Store, *identity.IdentityProvider) {
	t.Helper()
	ctx := context.Background()
	store := identity.NewMemoryStore()

	provider, err := store.InsertProvider(ctx, &identity.IdentityProvider{
		Identifier:        "provider.example",
		DisplayName:       "Example Provider",
		AuthenticationURL: "https://provider.example/auth",
	})
	require.NoError(t, err)

	for i, identifier := range identifiers {
		_, err := store.InsertIdentity(ctx, &identity.Identity{
			Identifier:  identifier,
			DisplayName: identifier,
			SortIndex:   i,
			ProviderID:  provider.ID,
		})
		require.NoError(t, err)
	}
	return store, provider
}

func TestParseAuthentication_FullURI(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice")
	p := challenge.NewParser(store, noFetch)

	ch, err := p.ParseAuthentication(context.Background(),
		"tiqrauth://provider.example/SESSION123/CHALLENGE456/MyService/2")
	require.NoError(t, err)

	assert.Equal(t, "SESSION123", ch.SessionKey)
	assert.Equal(t, "CHALLENGE456", ch.ChallengeString)
	assert.Equal(t, "MyService", ch.ServiceProviderDisplayName)
	assert.Equal(t, "2", ch.ProtocolVersion)
	require.NotNil(t, ch.Provider)
	assert.Equal(t, "provider.example", ch.Provider.Identifier)
	require.NotNil(t, ch.Identity, "single enrolled identity auto-selects")
	assert.Equal(t, "alice", ch.Identity.Identifier)
	assert.False(t, ch.IsStepUp)
	assert.Empty(t, ch.ReturnURL)
}

func TestParseAuthentication_V1Defaults(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice")
	p := challenge.NewParser(store, noFetch)

	ch, err := p.ParseAuthentication(context.Background(),
		"tiqrauth://provider.example/SESSION123/CHALLENGE456")
	require.NoError(t, err)

	assert.Equal(t, "1", ch.ProtocolVersion)
	assert.Equal(t, "unknown", ch.ServiceProviderDisplayName)
}

func TestParseAuthentication_LocalizedFallback(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice")
	p := challenge.NewParser(store, noFetch, challenge.WithLanguage("nl"))

	ch, err := p.ParseAuthentication(context.Background(),
		"tiqrauth://provider.example/SESSION123/CHALLENGE456")
	require.NoError(t, err)
	assert.Equal(t, "onbekend", ch.ServiceProviderDisplayName)
}

func TestParseAuthentication_StepUp(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice", "bob")
	p := challenge.NewParser(store, noFetch)

	ch, err := p.ParseAuthentication(context.Background(),
		"tiqrauth://bob@provider.example/S/C")
	require.NoError(t, err)

	require.NotNil(t, ch.Identity)
	assert.Equal(t, "bob", ch.Identity.Identifier)
	assert.True(t, ch.IsStepUp)
}

func TestParseAuthentication_PercentDecodedUserinfo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, provider := newStore(t)
	_, err := store.InsertIdentity(ctx, &identity.Identity{
		Identifier: "alice@home.example",
		ProviderID: provider.ID,
	})
	require.NoError(t, err)

	p := challenge.NewParser(store, noFetch)
	ch, err := p.ParseAuthentication(ctx,
		"tiqrauth://alice%40home.example@provider.example/S/C")
	require.NoError(t, err)
	require.NotNil(t, ch.Identity)
	assert.Equal(t, "alice@home.example", ch.Identity.Identifier)
}

func TestParseAuthentication_IdentityResolution(t *testing.T) {
	t.Parallel()

	t.Run("unknown embedded identity", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t, "alice")
		p := challenge.NewParser(store, noFetch)

		_, err := p.ParseAuthentication(context.Background(),
			"tiqrauth://mallory@provider.example/S/C")
		assert.ErrorIs(t, err, challenge.ErrInvalidIdentity)
	})

	t.Run("no identities enrolled", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t)
		p := challenge.NewParser(store, noFetch)

		_, err := p.ParseAuthentication(context.Background(),
			"tiqrauth://provider.example/S/C")
		assert.ErrorIs(t, err, challenge.ErrNoIdentities)
	})

	t.Run("multiple identities leave selection to caller", func(t *testing.T) {
		t.Parallel()
		store, _ := newStore(t, "alice", "bob")
		p := challenge.NewParser(store, noFetch)

		ch, err := p.ParseAuthentication(context.Background(),
			"tiqrauth://provider.example/S/C")
		require.NoError(t, err)
		assert.Nil(t, ch.Identity)
		assert.Len(t, ch.Candidates, 2)
	})
}

func TestParseAuthentication_UnknownProvider(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice")
	p := challenge.NewParser(store, noFetch)

	_, err := p.ParseAuthentication(context.Background(),
		"tiqrauth://unknown.example/SESSION123/CHALLENGE456/MyService/2")
	assert.ErrorIs(t, err, challenge.ErrInvalidIdentityProvider)

	var perr *challenge.ParseError
	require.ErrorAs(t, err, &perr)
	assert.NotEmpty(t, perr.Title)
	assert.NotEmpty(t, perr.Message)
}

func TestParseAuthentication_ReturnURL(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice")
	p := challenge.NewParser(store, noFetch)

	t.Run("url-encoded return url", func(t *testing.T) {
		t.Parallel()
		ch, err := p.ParseAuthentication(context.Background(),
			"tiqrauth://provider.example/S/C?https%3A%2F%2Fservice.example%2Fdone")
		require.NoError(t, err)
		assert.Equal(t, "https://service.example/done", ch.ReturnURL)
	})

	t.Run("other query content ignored", func(t *testing.T) {
		t.Parallel()
		ch, err := p.ParseAuthentication(context.Background(),
			"tiqrauth://provider.example/S/C?foo=bar")
		require.NoError(t, err)
		assert.Empty(t, ch.ReturnURL)
	})
}

func TestParseAuthentication_Invalid(t *testing.T) {
	t.Parallel()

	store, _ := newStore(t, "alice")
	p := challenge.NewParser(store, noFetch)

	for _, raw := range []string{
		"",
		"https://provider.example/S/C",
		"tiqrenroll://https://provider.example/meta",
		"tiqrauth://provider.example/onlysession",
		"tiqrauth://provider.example/",
	} {
		_, err := p.ParseAuthentication(context.Background(), raw)
		assert.ErrorIs(t, err, challenge.ErrInvalidChallenge, "uri %q", raw)
	}
}

const validMetadata = `{
	"service": {
		"identifier": "provider.example",
		"displayName": "Example Provider",
		"authenticationUrl": "https://provider.example/auth",
		"infoUrl": "https://provider.example/info",
		"logoUrl": "https://provider.example/logo.png",
		"ocraSuite": "OCRA-1:HOTP-SHA256-8:QN10",
		"enrollmentUrl": "https://provider.example/enroll/one-time-token"
	},
	"identity": {
		"identifier": "alice",
		"displayName": "Alice"
	}
}`

func TestParseEnrollment(t *testing.T) {
	t.Parallel()

	store := identity.NewMemoryStore()
	fetched := ""
	p := challenge.NewParser(store, fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		fetched = url
		return []byte(validMetadata), nil
	}))

	ch, err := p.ParseEnrollment(context.Background(),
		"tiqrenroll://https://provider.example/meta?token=abc")
	require.NoError(t, err)

	assert.Equal(t, "https://provider.example/meta?token=abc", fetched)
	assert.Equal(t, "https://provider.example/enroll/one-time-token", ch.EnrollmentURL)
	require.NotNil(t, ch.Provider)
	assert.Equal(t, "provider.example", ch.Provider.Identifier)
	assert.Equal(t, "OCRA-1:HOTP-SHA256-8:QN10", ch.Provider.OCRASuite())
	require.NotNil(t, ch.Identity)
	assert.Equal(t, "alice", ch.Identity.Identifier)
	assert.Equal(t, identity.UnsavedID, ch.Identity.ID, "records stay unsaved until enrollment completes")
}

func TestParseEnrollment_AlreadyEnrolled(t *testing.T) {
	t.Parallel()

	store, provider := newStore(t)
	_, err := store.InsertIdentity(context.Background(), &identity.Identity{
		Identifier: "alice",
		ProviderID: provider.ID,
	})
	require.NoError(t, err)

	p := challenge.NewParser(store, fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return []byte(validMetadata), nil
	}))

	_, err = p.ParseEnrollment(context.Background(), "tiqrenroll://https://provider.example/meta")
	assert.ErrorIs(t, err, challenge.ErrAlreadyEnrolled)
}

func TestParseEnrollment_Failures(t *testing.T) {
	t.Parallel()

	t.Run("non-http metadata url", func(t *testing.T) {
		t.Parallel()
		p := challenge.NewParser(identity.NewMemoryStore(), noFetch)
		_, err := p.ParseEnrollment(context.Background(), "tiqrenroll://ftp://meta.example")
		assert.ErrorIs(t, err, challenge.ErrInvalidChallenge)
	})

	t.Run("fetch failure is a connection error", func(t *testing.T) {
		t.Parallel()
		p := challenge.NewParser(identity.NewMemoryStore(),
			fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
				return nil, errors.New("dial tcp: timeout")
			}))
		_, err := p.ParseEnrollment(context.Background(), "tiqrenroll://https://meta.example")
		assert.ErrorIs(t, err, challenge.ErrConnection)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		p := challenge.NewParser(identity.NewMemoryStore(),
			fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
				return []byte("<html>not json</html>"), nil
			}))
		_, err := p.ParseEnrollment(context.Background(), "tiqrenroll://https://meta.example")
		assert.ErrorIs(t, err, challenge.ErrInvalidResponse)
	})

	t.Run("missing required field", func(t *testing.T) {
		t.Parallel()
		p := challenge.NewParser(identity.NewMemoryStore(),
			fetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
				return []byte(`{"service":{"identifier":"x"},"identity":{"identifier":"y","displayName":"Y"}}`), nil
			}))
		_, err := p.ParseEnrollment(context.Background(), "tiqrenroll://https://meta.example")
		assert.ErrorIs(t, err, challenge.ErrInvalidResponse)
	})
}
