// Package common defines shared constants, error kinds and sentinel errors
// used across credkeeper packages. Callers should use errors.Is to match the
// sentinels and KindOf to classify domain failures.
package common

import (
	"errors"

	"github.com/samber/oops"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
)

// Failure kinds carried as oops codes.
const (
	KindValidation            = "VALIDATION_ERROR"
	KindDuplicateEmail        = "DUPLICATE_EMAIL"
	KindUnknownEmail          = "UNKNOWN_EMAIL"
	KindInvalidCredentials    = "INVALID_CREDENTIALS"
	KindNotActivated          = "NOT_ACTIVATED"
	KindInvalidActivationLink = "INVALID_ACTIVATION_LINK"
	KindNoPendingReset        = "NO_PENDING_RESET"
	KindInvalidOrExpiredToken = "INVALID_OR_EXPIRED_TOKEN"
	KindUnauthenticated       = "UNAUTHENTICATED"
	KindInvalidToken          = "INVALID_TOKEN"
	KindExpiredToken          = "EXPIRED_TOKEN"
	KindRateLimited           = "RATE_LIMITED"
	KindInternal              = "INTERNAL"
)

// KindOf returns the failure kind attached to err. Errors that carry no
// kind are reported as KindInternal; a nil error yields "".
func KindOf(err error) string {
	if err == nil {
		return ""
	}
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return KindInternal
	}
	if code, ok := oopsErr.Code().(string); ok && code != "" {
		return code
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind string) bool {
	return err != nil && KindOf(err) == kind
}

// Details returns the key/value context attached to a domain error, if any.
func Details(err error) map[string]any {
	if oopsErr, ok := oops.AsOops(err); ok {
		return oopsErr.Context()
	}
	return nil
}
