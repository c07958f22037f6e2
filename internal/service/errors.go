package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an operation failure for the API layer.
type Kind string

const (
	KindAuthentication Kind = "UNAUTHENTICATED"
	KindAuthorization  Kind = "FORBIDDEN"
	KindValidation     Kind = "BAD_USER_INPUT"
	KindInternal       Kind = "INTERNAL"
)

// Error is returned by every MarketService operation that fails.
//
// Message is safe to show to callers; Err keeps the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// Extensions lets GraphQL responses carry the error code.
func (e *Error) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.Kind)}
}

var (
	// ErrInvalidCredentials is returned by Login for an unknown subject.
	ErrInvalidCredentials = &Error{Kind: KindAuthentication, Message: "invalid credentials"}
	// ErrNotAuthorized is returned when a protected operation is called without a valid credential.
	ErrNotAuthorized = &Error{Kind: KindAuthorization, Message: "not authorized"}
)

// NewValidationError reports caller input that was rejected before any store access.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func internalError(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// validationMessage turns validator output into one readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid input"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "MarketDataInput.")
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return "invalid input: " + strings.Join(parts, "; ")
}
