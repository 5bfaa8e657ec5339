package challenge

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/dmitrymomot/tiqrkit/pkg/identity"
	"github.com/dmitrymomot/tiqrkit/pkg/localize"
)

// MetadataFetcher fetches the raw enrollment metadata document. Transport
// failures must be returned as-is; the parser classifies them uniformly as
// connection errors, distinct from validation errors.
type MetadataFetcher interface {
	FetchEnrollmentMetadata(ctx context.Context, metadataURL string) ([]byte, error)
}

// Parser validates and classifies raw challenge URIs into structured
// Challenge values. It is single-shot: no state persists across calls, and
// concurrent calls are safe.
type Parser struct {
	ids     identity.Store
	fetcher MetadataFetcher
	loc     *localize.Localizer
	lang    string
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithLanguage sets the language for the title/message pairs on returned
// parse errors and localized fallbacks.
func WithLanguage(lang string) ParserOption {
	return func(p *Parser) {
		if lang != "" {
			p.lang = lang
		}
	}
}

// WithLocalizer overrides the default embedded-bundle localizer.
func WithLocalizer(loc *localize.Localizer) ParserOption {
	return func(p *Parser) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// NewParser creates a Parser over the injected identity store and
// metadata fetcher.
func NewParser(ids identity.Store, fetcher MetadataFetcher, opts ...ParserOption) *Parser {
	p := &Parser{
		ids:     ids,
		fetcher: fetcher,
		loc:     localize.Default(),
		lang:    localize.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseAuthentication parses a tiqrauth:// URI of the form
//
//	tiqrauth://[userinfo@]host/sessionKey/challenge[/spName[/version]][?returnUrl]
//
// resolving the provider by host and the identity by the optional userinfo
// component.
func (p *Parser) ParseAuthentication(ctx context.Context, raw string) (*AuthenticationChallenge, error) {
	if !strings.HasPrefix(raw, SchemeAuthentication) {
		return nil, p.errInvalidChallenge(nil)
	}

	// Rewriting to http:// lets the standard URL parser do the heavy
	// lifting (userinfo, host, path, query).
	u, err := url.Parse("http://" + strings.TrimPrefix(raw, SchemeAuthentication))
	if err != nil {
		return nil, p.errInvalidChallenge(err)
	}

	segments := splitPath(u.Path)
	if len(segments) < 2 {
		return nil, p.errInvalidChallenge(nil)
	}

	ch := &AuthenticationChallenge{
		Challenge: Challenge{
			ProtocolVersion: "1",
		},
		SessionKey:                 segments[0],
		ChallengeString:            segments[1],
		ServiceProviderDisplayName: p.loc.T(p.lang, "fallback.service_provider"),
		ServiceProviderIdentifier:  "",
	}
	if len(segments) > 2 {
		ch.ServiceProviderDisplayName = segments[2]
		ch.ServiceProviderIdentifier = segments[2]
	}
	if len(segments) > 3 {
		ch.ProtocolVersion = segments[3]
	}

	provider, err := p.ids.ProviderByIdentifier(ctx, u.Host)
	if err != nil {
		return nil, newParseError(ErrInvalidIdentityProvider, err,
			p.loc.T(p.lang, "error.parse.invalid_provider.title"),
			p.loc.T(p.lang, "error.parse.invalid_provider.message"))
	}
	ch.Provider = provider

	if user := u.User; user != nil && user.Username() != "" {
		// The server already resolved the identity (step-up flow).
		id, err := p.ids.IdentityByIdentifier(ctx, user.Username(), provider.ID)
		if err != nil {
			return nil, newParseError(ErrInvalidIdentity, err,
				p.loc.T(p.lang, "error.parse.invalid_identity.title"),
				p.loc.T(p.lang, "error.parse.invalid_identity.message"))
		}
		ch.Identity = id
		ch.IsStepUp = true
	} else {
		ids, err := p.ids.IdentitiesByProvider(ctx, provider.ID)
		if err != nil {
			return nil, newParseError(ErrInvalidIdentityProvider, err,
				p.loc.T(p.lang, "error.parse.invalid_provider.title"),
				p.loc.T(p.lang, "error.parse.invalid_provider.message"))
		}
		switch len(ids) {
		case 0:
			return nil, newParseError(ErrNoIdentities, nil,
				p.loc.T(p.lang, "error.parse.no_identities.title"),
				p.loc.T(p.lang, "error.parse.no_identities.message"))
		case 1:
			ch.Identity = ids[0]
		default:
			// Caller must prompt for a selection.
			ch.Candidates = ids
		}
	}

	if ret, ok := returnURLFromQuery(u.RawQuery); ok {
		ch.ReturnURL = ret
	}
	return ch, nil
}

// ParseEnrollment parses a tiqrenroll:// URI, fetches the JSON metadata
// document it points at, and resolves it into an EnrollmentChallenge with
// unsaved provider/identity records.
func (p *Parser) ParseEnrollment(ctx context.Context, raw string) (*EnrollmentChallenge, error) {
	if !strings.HasPrefix(raw, SchemeEnrollment) {
		return nil, p.errInvalidChallenge(nil)
	}

	metadataURL := strings.TrimPrefix(raw, SchemeEnrollment)
	if !strings.HasPrefix(metadataURL, "http://") && !strings.HasPrefix(metadataURL, "https://") {
		return nil, p.errInvalidChallenge(nil)
	}
	if _, err := url.Parse(metadataURL); err != nil {
		return nil, p.errInvalidChallenge(err)
	}

	body, err := p.fetcher.FetchEnrollmentMetadata(ctx, metadataURL)
	if err != nil {
		return nil, newParseError(ErrConnection, err,
			p.loc.T(p.lang, "error.parse.connection.title"),
			p.loc.T(p.lang, "error.parse.connection.message"))
	}

	meta, err := parseMetadata(body)
	if err != nil {
		return nil, newParseError(ErrInvalidResponse, err,
			p.loc.T(p.lang, "error.parse.invalid_response.title"),
			p.loc.T(p.lang, "error.parse.invalid_response.message"))
	}

	provider := &identity.IdentityProvider{
		Identifier:        meta.Service.Identifier,
		DisplayName:       meta.Service.DisplayName,
		AuthenticationURL: meta.Service.AuthenticationURL,
		InfoURL:           meta.Service.InfoURL,
		LogoURL:           meta.Service.LogoURL,
		Suite:             meta.Service.OCRASuite,
	}

	// Re-enrolling an identifier that is already on the device is a
	// distinct user-facing condition, not a transport or parse failure.
	if existing, err := p.ids.ProviderByIdentifier(ctx, provider.Identifier); err == nil {
		provider.ID = existing.ID
		if _, err := p.ids.IdentityByIdentifier(ctx, meta.Identity.Identifier, existing.ID); err == nil {
			return nil, newParseError(ErrAlreadyEnrolled, nil,
				p.loc.T(p.lang, "error.parse.already_enrolled.title"),
				p.loc.T(p.lang, "error.parse.already_enrolled.message"))
		}
	}

	return &EnrollmentChallenge{
		Challenge: Challenge{
			ProtocolVersion: "2",
			Provider:        provider,
			Identity: &identity.Identity{
				Identifier:  meta.Identity.Identifier,
				DisplayName: meta.Identity.DisplayName,
			},
		},
		EnrollmentURL: meta.Service.EnrollmentURL,
	}, nil
}

func (p *Parser) errInvalidChallenge(cause error) *ParseError {
	return newParseError(ErrInvalidChallenge, cause,
		p.loc.T(p.lang, "error.parse.invalid_challenge.title"),
		p.loc.T(p.lang, "error.parse.invalid_challenge.message"))
}

// enrollmentMetadata mirrors the JSON document served at the enrollment
// metadata URL.
type enrollmentMetadata struct {
	Service struct {
		Identifier        string `json:"identifier"`
		DisplayName       string `json:"displayName"`
		AuthenticationURL string `json:"authenticationUrl"`
		InfoURL           string `json:"infoUrl"`
		LogoURL           string `json:"logoUrl"`
		OCRASuite         string `json:"ocraSuite"`
		EnrollmentURL     string `json:"enrollmentUrl"`
	} `json:"service"`
	Identity struct {
		Identifier  string `json:"identifier"`
		DisplayName string `json:"displayName"`
	} `json:"identity"`
}

func parseMetadata(body []byte) (*enrollmentMetadata, error) {
	var meta enrollmentMetadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return nil, err
	}

	for _, required := range []string{
		meta.Service.EnrollmentURL,
		meta.Service.Identifier,
		meta.Service.DisplayName,
		meta.Service.AuthenticationURL,
		meta.Service.InfoURL,
		meta.Service.LogoURL,
		meta.Identity.Identifier,
		meta.Identity.DisplayName,
	} {
		if required == "" {
			return nil, ErrInvalidResponse
		}
	}
	return &meta, nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// returnURLFromQuery treats the whole query string as a candidate return
// URL: it counts only when it URL-decodes to something starting with
// http:// or https://. Any other query content is ignored.
func returnURLFromQuery(rawQuery string) (string, bool) {
	if rawQuery == "" {
		return "", false
	}
	decoded, err := url.QueryUnescape(rawQuery)
	if err != nil {
		return "", false
	}
	if strings.HasPrefix(decoded, "http://") || strings.HasPrefix(decoded, "https://") {
		return decoded, true
	}
	return "", false
}
