// Package common defines shared constants and sentinel errors used across
// the filmkeeper server packages. Callers should use errors.Is to match
// these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal            = errors.New("internal error")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// Credential errors. Sign-in never tells a missing account apart from
	// a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrInsufficientRole   = errors.New("insufficient role")

	// Token errors. Both concrete failures wrap ErrInvalidToken.
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	ErrTokenExpired     = fmt.Errorf("%w: token expired", ErrInvalidToken)

	// Hasher errors. These point at programmer or configuration mistakes.
	ErrInvalidInput  = errors.New("invalid input")
	ErrMalformedHash = errors.New("malformed hash")
)
