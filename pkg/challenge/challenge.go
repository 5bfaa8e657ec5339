package challenge

import "github.com/dmitrymomot/tiqrkit/pkg/identity"

// Protocol schemes consumed by the parser.
const (
	SchemeAuthentication = "tiqrauth://"
	SchemeEnrollment     = "tiqrenroll://"
)

// Challenge is the part shared by authentication and enrollment requests.
// A Challenge is immutable once parsed: it is created by the Parser,
// consumed by one flow, and discarded after a single attempt.
type Challenge struct {
	// ProtocolVersion is "1" or "2"; it selects the OCRA variant.
	ProtocolVersion string
	// Provider is never nil on a parsed challenge.
	Provider *identity.IdentityProvider
	// Identity may be nil until the user selects one; once set it is
	// fixed for this challenge instance.
	Identity *identity.Identity
	// ReturnURL, when set, is where the caller should send the user after
	// a successful attempt.
	ReturnURL string
}

// AuthenticationChallenge is a parsed tiqrauth:// request.
type AuthenticationChallenge struct {
	Challenge

	// SessionKey is the opaque per-transaction identifier issued by the
	// server; it is echoed back on submission and mixed into legacy OTP
	// computation.
	SessionKey string
	// ChallengeString is the server nonce the OTP is computed over. It is
	// not the raw scanned URI.
	ChallengeString string

	ServiceProviderDisplayName string
	ServiceProviderIdentifier  string

	// IsStepUp is true when the server already resolved the identity and
	// embedded it in the request.
	IsStepUp bool

	// Candidates holds the enrolled identities when more than one matches
	// and Identity is left unset; the caller must prompt for a selection.
	Candidates []*identity.Identity
}

// EnrollmentChallenge is a parsed tiqrenroll:// request with its fetched
// metadata resolved into unsaved provider/identity records.
type EnrollmentChallenge struct {
	Challenge

	// EnrollmentURL receives the generated shared secret.
	EnrollmentURL string
}
