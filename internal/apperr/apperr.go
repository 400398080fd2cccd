// Package apperr defines the typed error taxonomy surfaced by the signing core.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for callers. Callers map kinds to user flows:
// TWO_FACTOR_AUTH_FAILED to a reauthentication prompt, EXPIRED to a redirect.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindUnauthorized        Kind = "UNAUTHORIZED"
	KindTwoFactorAuthFailed Kind = "TWO_FACTOR_AUTH_FAILED"
	KindInvalidRequest      Kind = "INVALID_REQUEST"
	KindExpired             Kind = "EXPIRED"
	KindLimitExceeded       Kind = "LIMIT_EXCEEDED"
)

// Sub-codes refining a kind.
const (
	CodeTypeMismatch            = "TYPE_MISMATCH"
	CodeSignatureTypeNotAllowed = "SIGNATURE_TYPE_NOT_ALLOWED"
	CodeTwoFactorRequired       = "TWO_FACTOR_REQUIRED"
	CodeTwoFactorNotIssued      = "TWO_FACTOR_NOT_ISSUED"
	CodeTwoFactorInvalidCode    = "TWO_FACTOR_INVALID_CODE"
	CodeTwoFactorExpired        = "TWO_FACTOR_EXPIRED"
	CodeRecipientExpired        = "RECIPIENT_EXPIRED"
)

// Error is a classified failure. Code is optional.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is matches any *Error of the same kind, so sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Code != "" && t.Code != e.Code {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotFound            = &Error{Kind: KindNotFound}
	ErrUnauthorized        = &Error{Kind: KindUnauthorized}
	ErrTwoFactorAuthFailed = &Error{Kind: KindTwoFactorAuthFailed}
	ErrInvalidRequest      = &Error{Kind: KindInvalidRequest}
	ErrExpired             = &Error{Kind: KindExpired}
	ErrLimitExceeded       = &Error{Kind: KindLimitExceeded}

	ErrTypeMismatch = &Error{Kind: KindInvalidRequest, Code: CodeTypeMismatch}
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func NewCode(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

func NotFound(msg string) *Error       { return New(KindNotFound, msg) }
func Unauthorized(msg string) *Error   { return New(KindUnauthorized, msg) }
func InvalidRequest(msg string) *Error { return New(KindInvalidRequest, msg) }

func TwoFactor(code, msg string) *Error {
	return NewCode(KindTwoFactorAuthFailed, code, msg)
}

func TypeMismatch(msg string) *Error {
	return NewCode(KindInvalidRequest, CodeTypeMismatch, msg)
}

func Expired(msg string) *Error {
	return NewCode(KindExpired, CodeRecipientExpired, msg)
}

// As extracts the *Error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return ""
}
