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
	ErrorInternal = errors.New("internal error")

	// Token errors returned by the JWT layer.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Authentication outcomes shared across the HTTP boundary.
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrDuplicateUser           = errors.New("duplicate user")
	ErrTokenExpiredOrInvalid   = errors.New("token expired or invalid")
	ErrNetworkFailure          = errors.New("network failure")
	ErrUnexpectedServerFailure = errors.New("unexpected server failure")
)

// ErrorKind tags an authentication failure so that every boundary can switch
// over it exhaustively instead of inspecting error strings.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindInvalidCredentials
	KindDuplicateUser
	KindTokenExpiredOrInvalid
	KindNetworkFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidCredentials:
		return "InvalidCredentials"
	case KindDuplicateUser:
		return "DuplicateUser"
	case KindTokenExpiredOrInvalid:
		return "TokenExpiredOrInvalid"
	case KindNetworkFailure:
		return "NetworkFailure"
	default:
		return "Unknown"
	}
}

// sentinel returns the package error matching the kind.
func (k ErrorKind) sentinel() error {
	switch k {
	case KindInvalidCredentials:
		return ErrInvalidCredentials
	case KindDuplicateUser:
		return ErrDuplicateUser
	case KindTokenExpiredOrInvalid:
		return ErrTokenExpiredOrInvalid
	case KindNetworkFailure:
		return ErrNetworkFailure
	default:
		return ErrUnexpectedServerFailure
	}
}

// AuthError is the tagged error surfaced to callers of the auth API.
// Message holds the human readable text reported by the server (or a
// local description for network failures) and is meant to be shown as is.
type AuthError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// NewAuthError builds an AuthError of the given kind.
func NewAuthError(kind ErrorKind, message string, cause error) *AuthError {
	return &AuthError{Kind: kind, Message: message, Err: cause}
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes both the kind sentinel and the underlying cause, so
// errors.Is(err, ErrInvalidCredentials) works on any wrapped AuthError.
func (e *AuthError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind.sentinel(), e.Err}
	}
	return []error{e.Kind.sentinel()}
}

// KindOf reports the kind of the first AuthError in err's chain.
func KindOf(err error) ErrorKind {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}
