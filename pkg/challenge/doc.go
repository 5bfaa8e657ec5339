// Package challenge parses and classifies the tiqrauth:// and
// tiqrenroll:// URIs a user scans, turning them into immutable Challenge
// values consumed by the authentication and enrollment flows.
//
// Parsing is a single-shot operation with no state across calls. For
// authentication URIs the parser resolves the identity provider by host
// and the identity by the optional userinfo component; for enrollment URIs
// it fetches the JSON metadata document through an injected collaborator
// and validates it.
//
// Every failure is a *ParseError value carrying a localized title/message
// pair for direct display plus a sentinel cause (ErrInvalidChallenge,
// ErrInvalidIdentityProvider, ErrInvalidIdentity, ErrNoIdentities,
// ErrAlreadyEnrolled, ErrConnection, ErrInvalidResponse) for errors.Is.
// Transport failures during the metadata fetch are classified as
// ErrConnection, never as validation errors.
package challenge
