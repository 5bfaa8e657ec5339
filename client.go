package tiqrkit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/caarlos0/env/v11"
	_ "github.com/joho/godotenv/autoload" // Load .env file automatically

	"github.com/dmitrymomot/tiqrkit/pkg/async"
	"github.com/dmitrymomot/tiqrkit/pkg/challenge"
	"github.com/dmitrymomot/tiqrkit/pkg/devicekey"
	"github.com/dmitrymomot/tiqrkit/pkg/flow"
	"github.com/dmitrymomot/tiqrkit/pkg/identity"
	"github.com/dmitrymomot/tiqrkit/pkg/localize"
	"github.com/dmitrymomot/tiqrkit/pkg/secretstore"
	"github.com/dmitrymomot/tiqrkit/pkg/tiqrclient"
)

// Config locates the file-backed stores used by Open.
type Config struct {
	// IdentitiesPath locates the JSON identity store on the device.
	IdentitiesPath string `env:"TIQR_IDENTITIES_PATH" envDefault:"tiqr-identities.json"`
}

var (
	cfg  Config
	once sync.Once
)

// LoadConfig loads the facade configuration from the environment once per
// process.
func LoadConfig() (Config, error) {
	var err error
	once.Do(func() {
		err = env.Parse(&cfg)
	})
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Client bundles the challenge parser, the flows and their backing stores
// behind one construction site.
type Client struct {
	Identities identity.Store
	Secrets    *secretstore.Store

	parser        *challenge.Parser
	authenticator *flow.Authenticator
	enroller      *flow.Enroller
}

// Option configures a Client.
type Option func(*settings)

type settings struct {
	lang                string
	logger              *slog.Logger
	loc                 *localize.Localizer
	wire                *tiqrclient.Client
	notificationType    string
	notificationAddress string
}

// WithLanguage sets the language for every displayable error and for the
// language field reported to servers.
func WithLanguage(lang string) Option {
	return func(s *settings) {
		if lang != "" {
			s.lang = lang
		}
	}
}

// WithLogger sets the structured logger shared by the flows.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLocalizer substitutes the localizer used for display strings.
func WithLocalizer(l *localize.Localizer) Option {
	return func(s *settings) {
		if l != nil {
			s.loc = l
		}
	}
}

// WithWireClient substitutes the wire client (custom transport, testing).
func WithWireClient(c *tiqrclient.Client) Option {
	return func(s *settings) {
		if c != nil {
			s.wire = c
		}
	}
}

// WithNotification attaches the device's push notification registration.
func WithNotification(notificationType, address string) Option {
	return func(s *settings) {
		s.notificationType = notificationType
		s.notificationAddress = address
	}
}

// New assembles a Client over the injected identity store and secret
// store.
func New(identities identity.Store, secrets *secretstore.Store, opts ...Option) *Client {
	s := &settings{
		lang: localize.DefaultLanguage,
		loc:  localize.Default(),
		wire: tiqrclient.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	c := &Client{
		Identities: identities,
		Secrets:    secrets,
		parser: challenge.NewParser(identities, s.wire,
			challenge.WithLanguage(s.lang),
			challenge.WithLocalizer(s.loc),
		),
	}

	authOpts := []flow.AuthenticatorOption{
		flow.WithLanguage(s.lang),
		flow.WithLocalizer(s.loc),
		flow.WithNotification(s.notificationType, s.notificationAddress),
	}
	enrollOpts := []flow.EnrollerOption{
		flow.WithEnrollLanguage(s.lang),
		flow.WithEnrollLocalizer(s.loc),
		flow.WithEnrollNotification(s.notificationType, s.notificationAddress),
	}
	if s.logger != nil {
		authOpts = append(authOpts, flow.WithLogger(s.logger))
		enrollOpts = append(enrollOpts, flow.WithEnrollLogger(s.logger))
	}

	c.authenticator = flow.NewAuthenticator(identities, secrets, s.wire, authOpts...)
	c.enroller = flow.NewEnroller(identities, secrets, s.wire, enrollOpts...)
	return c
}

// Open assembles a Client over the file-backed stores named by the
// environment (TIQR_IDENTITIES_PATH, TIQR_SECRETS_PATH).
func Open(opts ...Option) (*Client, error) {
	c, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	identities, err := identity.OpenFileStore(c.IdentitiesPath)
	if err != nil {
		return nil, err
	}
	secrets, err := secretstore.Open()
	if err != nil {
		return nil, err
	}
	return New(identities, secrets, opts...), nil
}

// ParseAuthentication parses a scanned tiqrauth:// URI.
func (c *Client) ParseAuthentication(ctx context.Context, raw string) (*challenge.AuthenticationChallenge, error) {
	return c.parser.ParseAuthentication(ctx, raw)
}

// ParseEnrollment parses a scanned tiqrenroll:// URI, fetching and
// validating the enrollment metadata it points at.
func (c *Client) ParseEnrollment(ctx context.Context, raw string) (*challenge.EnrollmentChallenge, error) {
	return c.parser.ParseEnrollment(ctx, raw)
}

// Authenticate runs one authentication attempt to completion.
func (c *Client) Authenticate(ctx context.Context, ch *challenge.AuthenticationChallenge, secret []byte, dctx devicekey.DeviceContext) *flow.Result {
	return c.authenticator.Authenticate(ctx, ch, secret, dctx)
}

// AuthenticateAsync runs one authentication attempt in the background.
func (c *Client) AuthenticateAsync(ctx context.Context, ch *challenge.AuthenticationChallenge, secret []byte, dctx devicekey.DeviceContext) *async.Future[*flow.Result] {
	return c.authenticator.AuthenticateAsync(ctx, ch, secret, dctx)
}

// Enroll completes a parsed enrollment challenge.
func (c *Client) Enroll(ctx context.Context, ch *challenge.EnrollmentChallenge, secret []byte, dctx devicekey.DeviceContext) (*identity.Identity, error) {
	return c.enroller.Enroll(ctx, ch, secret, dctx)
}

// EnrollAsync completes a parsed enrollment challenge in the background.
func (c *Client) EnrollAsync(ctx context.Context, ch *challenge.EnrollmentChallenge, secret []byte, dctx devicekey.DeviceContext) *async.Future[*identity.Identity] {
	return c.enroller.EnrollAsync(ctx, ch, secret, dctx)
}
