// Package tiqrclient implements the wire protocol between the client core
// and an identity provider: the enrollment metadata GET, the form-encoded
// enrollment POST, and the form-encoded authentication POST with its
// protocol-versioned response.
//
// Requests always announce protocol version 2 via the
// X-TIQR-Protocol-Version header; the same header on the response decides
// whether the body is a v1 plain-text token or a v2 JSON document. Both
// are normalized into AuthenticationResult.
//
// Transport failures of any kind — including non-200 statuses — surface
// uniformly as ErrConnection. Retries, if any, are the caller's decision;
// no submission is ever retried automatically.
package tiqrclient
