package flow

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"log/slog"

	"github.com/dmitrymomot/tiqrkit/pkg/async"
	"github.com/dmitrymomot/tiqrkit/pkg/challenge"
	"github.com/dmitrymomot/tiqrkit/pkg/devicekey"
	"github.com/dmitrymomot/tiqrkit/pkg/identity"
	"github.com/dmitrymomot/tiqrkit/pkg/localize"
	"github.com/dmitrymomot/tiqrkit/pkg/secretstore"
	"github.com/dmitrymomot/tiqrkit/pkg/tiqrclient"

	"github.com/google/uuid"
)

// SecretSize is the length of the generated shared OCRA secret.
const SecretSize = 32

// Enroller completes a parsed enrollment challenge: it generates the
// shared secret, persists provider, identity and encrypted secret, and
// registers the secret with the server. A failed enrollment leaves no
// partial records behind.
type Enroller struct {
	identities identity.Store
	secrets    *secretstore.Store
	client     *tiqrclient.Client
	loc        *localize.Localizer
	logger     *slog.Logger
	lang       string

	notificationType    string
	notificationAddress string
}

// EnrollerOption configures an Enroller.
type EnrollerOption func(*Enroller)

// WithEnrollLanguage sets the language for error display strings and the
// language field reported to the server.
func WithEnrollLanguage(lang string) EnrollerOption {
	return func(e *Enroller) {
		if lang != "" {
			e.lang = lang
		}
	}
}

// WithEnrollLocalizer substitutes the localizer used for display strings.
func WithEnrollLocalizer(l *localize.Localizer) EnrollerOption {
	return func(e *Enroller) {
		if l != nil {
			e.loc = l
		}
	}
}

// WithEnrollLogger sets a structured logger for enrollment telemetry.
func WithEnrollLogger(l *slog.Logger) EnrollerOption {
	return func(e *Enroller) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEnrollNotification attaches the device's push notification
// registration, forwarded to the server with the secret.
func WithEnrollNotification(notificationType, address string) EnrollerOption {
	return func(e *Enroller) {
		e.notificationType = notificationType
		e.notificationAddress = address
	}
}

// NewEnroller wires an Enroller over the identity store, the encrypted
// secret store and the wire client.
func NewEnroller(identities identity.Store, secrets *secretstore.Store, client *tiqrclient.Client, opts ...EnrollerOption) *Enroller {
	e := &Enroller{
		identities: identities,
		secrets:    secrets,
		client:     client,
		loc:        localize.Default(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		lang:       localize.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enroll activates the identity described by the challenge. The user
// secret (PIN or biometric placeholder) protects the stored OCRA secret.
// On success the persisted identity is returned with its row id assigned.
//
// If the server rejects the secret, or any store write fails, previously
// written rows and entries for this enrollment are removed again.
func (e *Enroller) Enroll(ctx context.Context, ch *challenge.EnrollmentChallenge, secret []byte, dctx devicekey.DeviceContext) (*identity.Identity, error) {
	attemptID := uuid.NewString()
	log := e.logger.With(slog.String("attempt_id", attemptID))

	if ch == nil || ch.Provider == nil || ch.Identity == nil {
		return nil, e.enrollError(errors.New("incomplete enrollment challenge"))
	}
	log = log.With(
		slog.String("identity", ch.Identity.Identifier),
		slog.String("provider", ch.Provider.Identifier),
	)

	key, err := devicekey.Derive(secret, dctx)
	if err != nil {
		log.WarnContext(ctx, "key derivation failed", slog.Any("error", err))
		if errors.Is(err, devicekey.ErrSecurityUnavailable) {
			return nil, e.enrollErrorKeyed("error.auth.security_unavailable", err)
		}
		return nil, e.enrollError(err)
	}

	ocraSecret := make([]byte, SecretSize)
	if _, err := io.ReadFull(rand.Reader, ocraSecret); err != nil {
		return nil, e.enrollError(err)
	}

	provider, err := e.identities.InsertProvider(ctx, ch.Provider)
	if err != nil {
		log.ErrorContext(ctx, "provider insert failed", slog.Any("error", err))
		return nil, e.enrollError(err)
	}

	id := *ch.Identity
	id.ProviderID = provider.ID
	saved, err := e.identities.InsertIdentity(ctx, &id)
	if err != nil {
		log.ErrorContext(ctx, "identity insert failed", slog.Any("error", err))
		return nil, e.enrollError(err)
	}

	if err := e.secrets.Put(ctx, saved.ID, ocraSecret, key); err != nil {
		log.ErrorContext(ctx, "secret store failed", slog.Any("error", err))
		e.rollback(ctx, saved.ID, log)
		return nil, e.enrollError(err)
	}

	err = e.client.SubmitEnrollment(ctx, ch.EnrollmentURL, tiqrclient.EnrollmentRequest{
		Secret:              ocraSecret,
		Language:            e.lang,
		NotificationType:    e.notificationType,
		NotificationAddress: e.notificationAddress,
	})
	if err != nil {
		log.WarnContext(ctx, "enrollment submission failed", slog.Any("error", err))
		e.rollback(ctx, saved.ID, log)
		if errors.Is(err, tiqrclient.ErrConnection) {
			return nil, e.enrollErrorKeyed("error.auth.connection", err)
		}
		return nil, e.enrollError(err)
	}

	log.InfoContext(ctx, "enrollment succeeded")
	return saved, nil
}

// EnrollAsync runs Enroll as one cancellable background unit.
func (e *Enroller) EnrollAsync(ctx context.Context, ch *challenge.EnrollmentChallenge, secret []byte, dctx devicekey.DeviceContext) *async.Future[*identity.Identity] {
	return async.Run(ctx, func(ctx context.Context) (*identity.Identity, error) {
		return e.Enroll(ctx, ch, secret, dctx)
	})
}

// rollback removes the partially enrolled identity. Best effort; the
// provider row is kept because other identities may reference it.
func (e *Enroller) rollback(ctx context.Context, identityID int64, log *slog.Logger) {
	if err := e.secrets.Delete(ctx, identityID); err != nil {
		log.ErrorContext(ctx, "rollback: secret delete failed", slog.Any("error", err))
	}
	if err := e.identities.DeleteIdentity(ctx, identityID); err != nil {
		log.ErrorContext(ctx, "rollback: identity delete failed", slog.Any("error", err))
	}
}

func (e *Enroller) enrollError(cause error) *EnrollError {
	return e.enrollErrorKeyed("error.enroll.failed", cause)
}

func (e *Enroller) enrollErrorKeyed(key string, cause error) *EnrollError {
	return &EnrollError{
		Title:   e.loc.T(e.lang, key+".title"),
		Message: e.loc.T(e.lang, key+".message"),
		err:     errors.Join(ErrEnrollmentFailed, cause),
	}
}
