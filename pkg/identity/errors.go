package identity

import "errors"

var (
	ErrProviderNotFound  = errors.New("identity provider not found")
	ErrIdentityNotFound  = errors.New("identity not found")
	ErrDuplicateIdentity = errors.New("identity already enrolled with provider")
	ErrInvalidIdentity   = errors.New("invalid identity record")
)
