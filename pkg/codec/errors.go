package codec

import (
	"github.com/pkg/errors"
)

type FormatError struct {
	Reason string
	cause  error
}

func newFormatError(reason string, cause error) *FormatError {
	return &FormatError{Reason: reason, cause: cause}
}

func (e *FormatError) Error() string {
	if e.cause != nil {
		return "codec: " + e.Reason + ": " + e.cause.Error()
	}
	return "codec: " + e.Reason
}

func (e *FormatError) Unwrap() error {
	return e.cause
}

// AuthenticationError means the GCM tag did not verify: wrong secret,
// corrupted envelope or tampering.
type AuthenticationError struct {
	cause error
}

func newAuthenticationError(cause error) *AuthenticationError {
	return &AuthenticationError{cause: errors.WithStack(cause)}
}

func (e *AuthenticationError) Error() string {
	return "codec: cannot decrypt message: authentication failed"
}

func (e *AuthenticationError) Unwrap() error {
	return e.cause
}

func IsFormatError(err error) bool {
	var e *FormatError
	return errors.As(err, &e)
}

func IsAuthenticationError(err error) bool {
	var e *AuthenticationError
	return errors.As(err, &e)
}
