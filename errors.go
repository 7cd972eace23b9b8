package bridge

import (
	stderrors "errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeConfiguration       = "CONFIGURATION_ERROR"
	TextCodeKeyFetch            = "KEY_FETCH_FAILED"
	TextCodeTokenInvalid        = "TOKEN_INVALID"
	TextCodeTokenExpired        = "TOKEN_EXPIRED"
	TextCodeRemoteAuthRejected  = "REMOTE_AUTH_REJECTED"
	TextCodeMissingExternalID   = "MISSING_EXTERNAL_ID"
	TextCodeUnauthenticated     = "UNAUTHENTICATED"
	TextCodeForbidden           = "FORBIDDEN"
	TextCodeDuplicateExternalID = "DUPLICATE_EXTERNAL_ID"
	TextCodeSyncFailed          = "IDENTITY_SYNC_FAILED"
)

// ErrConfiguration is returned when a provider name is unknown or its
// mandatory options are missing.
var ErrConfiguration = goerrors.New("invalid auth bridge configuration", goerrors.CategoryValidation).
	WithTextCode(TextCodeConfiguration).
	WithCode(goerrors.CodeInternal)

// ErrKeyFetch is returned when the signing key set cannot be fetched or parsed.
var ErrKeyFetch = goerrors.New("unable to fetch signing keys", goerrors.CategoryAuth).
	WithTextCode(TextCodeKeyFetch).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidToken covers malformed tokens, unknown key ids, bad signatures
// and claim mismatches.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenInvalid).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when exp is in the past beyond the clock skew.
var ErrTokenExpired = goerrors.New("token is expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrRemoteAuthRejected is returned when the remote user endpoint refuses
// the token or cannot be reached.
var ErrRemoteAuthRejected = goerrors.New("remote authentication rejected", goerrors.CategoryAuth).
	WithTextCode(TextCodeRemoteAuthRejected).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingExternalID is returned when a provider produced a payload
// without a stable external id.
var ErrMissingExternalID = goerrors.New("identity payload has no external id", goerrors.CategoryAuth).
	WithTextCode(TextCodeMissingExternalID).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnauthenticated is the generic error exposed to clients.
var ErrUnauthenticated = goerrors.New("Unauthenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(goerrors.CodeUnauthorized)

// ErrForbidden is returned when a permission or role check fails.
var ErrForbidden = goerrors.New("Forbidden", goerrors.CategoryAuthz).
	WithTextCode(TextCodeForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrDuplicateExternalID is returned by stores when an insert collides with
// an existing external user id.
var ErrDuplicateExternalID = goerrors.New("external user id already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateExternalID).
	WithCode(goerrors.CodeConflict)

// ErrSyncFailed is returned when the local identity record cannot be read
// or written. It surfaces as a 500.
var ErrSyncFailed = goerrors.New("unable to synchronize identity", goerrors.CategoryInternal).
	WithTextCode(TextCodeSyncFailed).
	WithCode(goerrors.CodeInternal)

// AuthFailure clones base and attaches the cause plus a readable reason.
// Use it to produce errors from provider and verifier code paths.
func AuthFailure(base *goerrors.Error, reason string, cause error, metadata ...map[string]any) error {
	if base == nil {
		base = ErrUnauthenticated
	}

	clone := base.Clone()
	if clone == nil {
		return base
	}

	if reason != "" {
		clone.Message = reason
	}
	if cause != nil {
		clone.Source = cause
	}

	meta := map[string]any{}
	for _, m := range metadata {
		for k, v := range m {
			meta[k] = v
		}
	}
	if cause != nil {
		meta["cause"] = cause.Error()
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}

// ConfigError returns a configuration error with a formatted message.
func ConfigError(format string, args ...any) error {
	clone := ErrConfiguration.Clone()
	if clone == nil {
		return fmt.Errorf(format, args...)
	}
	clone.Message = fmt.Sprintf(format, args...)
	return clone
}

func asRichError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if stderrors.As(err, &richErr) {
		return richErr
	}
	return nil
}

// HasTextCode reports whether err carries the given text code.
func HasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !stderrors.As(err, &richErr) || richErr == nil {
		return false
	}
	return richErr.TextCode == code
}

// IsAuthenticationError reports whether err should surface as a 401.
func IsAuthenticationError(err error) bool {
	var richErr *goerrors.Error
	if !stderrors.As(err, &richErr) || richErr == nil {
		return false
	}
	return richErr.Category == goerrors.CategoryAuth
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	return HasTextCode(err, TextCodeTokenExpired)
}

// IsInvalidTokenError will check for invalid tokens
func IsInvalidTokenError(err error) bool {
	return HasTextCode(err, TextCodeTokenInvalid)
}

// IsConfigurationError will check for configuration errors
func IsConfigurationError(err error) bool {
	return HasTextCode(err, TextCodeConfiguration)
}

// IsForbiddenError will check for authorization failures
func IsForbiddenError(err error) bool {
	return HasTextCode(err, TextCodeForbidden)
}

// IsDuplicateExternalIDError will check for unique constraint collisions
func IsDuplicateExternalIDError(err error) bool {
	return HasTextCode(err, TextCodeDuplicateExternalID)
}

// StatusCode maps an error to the HTTP status exposed to clients.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsForbiddenError(err):
		return goerrors.CodeForbidden
	case IsAuthenticationError(err):
		return goerrors.CodeUnauthorized
	default:
		return goerrors.CodeInternal
	}
}

// ErrorReason returns the message of a rich error, falling back to Error().
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	var richErr *goerrors.Error
	if stderrors.As(err, &richErr) && richErr != nil {
		return richErr.Message
	}
	return err.Error()
}
