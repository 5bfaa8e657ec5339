// Package tiqrkit is the client core of the tiqr challenge-response
// two-factor authentication protocol: challenge URI parsing, OCRA
// one-time-password computation, PIN-derived encryption of enrolled
// secrets at rest, and the enrollment and authentication flows against
// an identity provider.
//
// The root package is a thin facade. Each concern lives in its own
// package under pkg/ and can be used on its own:
//
//   - pkg/challenge parses tiqrauth:// and tiqrenroll:// URIs
//   - pkg/ocra computes RFC 6287 one-time passwords
//   - pkg/devicekey derives device-bound keys from PINs
//   - pkg/secretstore encrypts enrolled secrets at rest
//   - pkg/identity defines the identity/provider store contract
//   - pkg/tiqrclient speaks the wire protocol
//   - pkg/flow orchestrates full attempts
//
// Basic usage:
//
//	client, err := tiqrkit.Open()
//	if err != nil {
//		// handle error
//	}
//
//	dctx := devicekey.DeviceContext{DeviceID: installationID}
//
//	ch, err := client.ParseAuthentication(ctx, scannedURI)
//	if err != nil {
//		// a *challenge.ParseError with a displayable Title/Message
//	}
//
//	result := client.Authenticate(ctx, ch, pin, dctx)
//	if !result.OK() {
//		// result.Err is a *flow.AuthError with a displayable Title/Message
//	}
//
// Hosts with their own storage inject an identity.Store implementation
// and a secretstore container via New instead of Open.
package tiqrkit
