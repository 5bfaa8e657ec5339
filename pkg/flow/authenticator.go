package flow

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/dmitrymomot/tiqrkit/pkg/async"
	"github.com/dmitrymomot/tiqrkit/pkg/challenge"
	"github.com/dmitrymomot/tiqrkit/pkg/devicekey"
	"github.com/dmitrymomot/tiqrkit/pkg/identity"
	"github.com/dmitrymomot/tiqrkit/pkg/localize"
	"github.com/dmitrymomot/tiqrkit/pkg/ocra"
	"github.com/dmitrymomot/tiqrkit/pkg/secretstore"
	"github.com/dmitrymomot/tiqrkit/pkg/tiqrclient"

	"github.com/google/uuid"
)

// Result is the terminal outcome of one authentication attempt.
type Result struct {
	// State is where the attempt ended: StateDone on success, otherwise
	// the step that failed.
	State AttemptState
	// ReturnURL is copied from the challenge on success.
	ReturnURL string
	// Err is nil exactly when the attempt succeeded.
	Err *AuthError
}

// OK reports whether the attempt succeeded.
func (r *Result) OK() bool { return r.Err == nil }

// Authenticator runs the sequential authentication pipeline: derive the
// key from the user secret, decrypt the stored OCRA secret, compute the
// OTP and submit it. One Authenticator serves any number of attempts.
type Authenticator struct {
	identities identity.Store
	secrets    *secretstore.Store
	client     *tiqrclient.Client
	loc        *localize.Localizer
	logger     *slog.Logger
	lang       string

	notificationType    string
	notificationAddress string
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithLanguage sets the language for error titles/messages and the
// language field reported to the server. Defaults to English.
func WithLanguage(lang string) AuthenticatorOption {
	return func(a *Authenticator) {
		if lang != "" {
			a.lang = lang
		}
	}
}

// WithLocalizer substitutes the localizer used for display strings.
func WithLocalizer(l *localize.Localizer) AuthenticatorOption {
	return func(a *Authenticator) {
		if l != nil {
			a.loc = l
		}
	}
}

// WithLogger sets a structured logger for attempt telemetry.
func WithLogger(l *slog.Logger) AuthenticatorOption {
	return func(a *Authenticator) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithNotification attaches the device's push notification registration,
// forwarded to the server on every submission.
func WithNotification(notificationType, address string) AuthenticatorOption {
	return func(a *Authenticator) {
		a.notificationType = notificationType
		a.notificationAddress = address
	}
}

// NewAuthenticator wires an Authenticator over the identity store, the
// encrypted secret store and the wire client.
func NewAuthenticator(identities identity.Store, secrets *secretstore.Store, client *tiqrclient.Client, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		identities: identities,
		secrets:    secrets,
		client:     client,
		loc:        localize.Default(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		lang:       localize.DefaultLanguage,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate runs one attempt to completion. The challenge must carry a
// selected identity. The returned Result is always non-nil; inspect
// Result.Err for the outcome.
//
// Key derivation and secret decryption failures collapse into one generic
// failure so a caller observing errors cannot tell a wrong PIN from a
// missing entry.
func (a *Authenticator) Authenticate(ctx context.Context, ch *challenge.AuthenticationChallenge, secret []byte, dctx devicekey.DeviceContext) *Result {
	attemptID := uuid.NewString()
	log := a.logger.With(slog.String("attempt_id", attemptID))

	if ch == nil || ch.Identity == nil || ch.Provider == nil {
		return a.fail(StateIdle, AuthInvalidChallenge, errors.New("challenge has no selected identity"))
	}
	log = log.With(
		slog.String("identity", ch.Identity.Identifier),
		slog.String("provider", ch.Provider.Identifier),
	)

	if ch.Identity.Blocked {
		log.InfoContext(ctx, "attempt refused, identity blocked")
		return a.fail(StateIdle, AuthAccountBlocked, errors.New("identity is blocked on this device"))
	}

	key, err := devicekey.Derive(secret, dctx)
	if err != nil {
		log.WarnContext(ctx, "key derivation failed", slog.Any("error", err))
		if errors.Is(err, devicekey.ErrSecurityUnavailable) {
			return a.fail(StateDerivingKey, AuthSecurityUnavailable, err)
		}
		return a.fail(StateDerivingKey, AuthUnknown, err)
	}

	ocraSecret, err := a.secrets.Get(ctx, ch.Identity.ID, key)
	if err != nil {
		log.WarnContext(ctx, "secret unavailable", slog.Any("error", err))
		return a.fail(StateLoadingSecret, AuthUnknown, err)
	}

	generate := ocra.GeneratorForVersion(ch.ProtocolVersion)
	otp, err := generate(ch.Provider.OCRASuite(), ocraSecret, ch.ChallengeString, ch.SessionKey)
	if err != nil {
		log.WarnContext(ctx, "otp computation failed", slog.Any("error", err))
		switch {
		case errors.Is(err, ocra.ErrMalformedChallenge):
			return a.fail(StateComputingOTP, AuthInvalidChallenge, err)
		case errors.Is(err, ocra.ErrMalformedSuite),
			errors.Is(err, ocra.ErrUnsupportedHash),
			errors.Is(err, ocra.ErrUnsupportedVersion):
			return a.fail(StateComputingOTP, AuthServerIncompatible, err)
		}
		return a.fail(StateComputingOTP, AuthUnknown, err)
	}

	verdict, err := a.client.SubmitAuthentication(ctx, ch.Provider.AuthenticationURL, tiqrclient.AuthenticationRequest{
		SessionKey:          ch.SessionKey,
		UserID:              ch.Identity.Identifier,
		OTP:                 otp,
		Language:            a.lang,
		NotificationType:    a.notificationType,
		NotificationAddress: a.notificationAddress,
	})
	if err != nil {
		log.WarnContext(ctx, "submission failed", slog.Any("error", err))
		if errors.Is(err, tiqrclient.ErrConnection) {
			return a.fail(StateSubmitting, AuthConnection, err)
		}
		return a.fail(StateSubmitting, AuthInvalidRequest, err)
	}

	result := a.applyVerdict(ctx, ch, verdict, log)
	if result.OK() {
		log.InfoContext(ctx, "authentication succeeded")
	}
	return result
}

// AuthenticateAsync runs Authenticate as one cancellable background unit.
// The Future's error is only ever a pre-start context cancellation; attempt
// failures live in Result.Err.
func (a *Authenticator) AuthenticateAsync(ctx context.Context, ch *challenge.AuthenticationChallenge, secret []byte, dctx devicekey.DeviceContext) *async.Future[*Result] {
	return async.Run(ctx, func(ctx context.Context) (*Result, error) {
		return a.Authenticate(ctx, ch, secret, dctx), nil
	})
}

// applyVerdict turns the server's response code into the terminal Result,
// applying local blocking side effects where the server demands them.
func (a *Authenticator) applyVerdict(ctx context.Context, ch *challenge.AuthenticationChallenge, verdict *tiqrclient.AuthenticationResult, log *slog.Logger) *Result {
	switch verdict.Code {
	case tiqrclient.CodeSuccess:
		return &Result{State: StateDone, ReturnURL: ch.ReturnURL}

	case tiqrclient.CodeAccountBlocked:
		if verdict.Duration != nil {
			e := a.authError(AuthAccountBlockedTemporary, nil, *verdict.Duration)
			e.Duration = verdict.Duration
			return &Result{State: StateSubmitting, Err: e}
		}
		// Permanent server-side block; mirror it locally.
		if err := a.identities.SetBlocked(ctx, ch.Identity.ID, true); err != nil {
			log.ErrorContext(ctx, "failed to mark identity blocked", slog.Any("error", err))
		}
		return &Result{State: StateSubmitting, Err: a.authError(AuthAccountBlocked, nil)}

	case tiqrclient.CodeInvalidResponse:
		if verdict.AttemptsLeft != nil && *verdict.AttemptsLeft == 0 {
			// Out of attempts. The server blocks the account; every local
			// identity is blocked with it because the server cannot say
			// which others share the fate.
			if err := a.identities.BlockAll(ctx); err != nil {
				log.ErrorContext(ctx, "failed to block identities", slog.Any("error", err))
			}
			return &Result{State: StateSubmitting, Err: a.authError(AuthAccountBlocked, nil)}
		}
		e := a.authError(AuthInvalidResponse, nil)
		if verdict.AttemptsLeft != nil {
			e.AttemptsLeft = verdict.AttemptsLeft
			e.Message += " " + a.attemptsLeftText(*verdict.AttemptsLeft)
		}
		return &Result{State: StateSubmitting, Err: e}

	case tiqrclient.CodeInvalidChallenge:
		return &Result{State: StateSubmitting, Err: a.authError(AuthInvalidChallenge, nil)}
	case tiqrclient.CodeInvalidUser:
		return &Result{State: StateSubmitting, Err: a.authError(AuthInvalidUser, nil)}
	}
	return &Result{State: StateSubmitting, Err: a.authError(AuthInvalidRequest, nil)}
}

func (a *Authenticator) fail(state AttemptState, kind AuthErrorKind, cause error) *Result {
	e := a.authError(kind, cause)
	return &Result{State: state, Err: e}
}

// authError builds an AuthError with its localized display pair. args feed
// message templates (the temporary block duration).
func (a *Authenticator) authError(kind AuthErrorKind, cause error, args ...any) *AuthError {
	base := "error.auth." + string(kind)
	return &AuthError{
		Kind:    kind,
		Title:   a.loc.T(a.lang, base+".title"),
		Message: a.loc.T(a.lang, base+".message", args...),
		err:     cause,
	}
}

func (a *Authenticator) attemptsLeftText(n int) string {
	if n == 1 {
		return a.loc.T(a.lang, "error.auth.attempts_left_one")
	}
	return a.loc.T(a.lang, "error.auth.attempts_left_many", n)
}
