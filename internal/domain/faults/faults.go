// internal/domain/faults/faults.go

// Package faults defines the error taxonomy shared by the policy engines,
// stores, and HTTP layer. Every failed operation carries one of the kind
// sentinels below so hosts can map errors to status codes without parsing
// message text.
package faults

import (
	"errors"
	"fmt"
)

// Kind sentinels. Match with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrLastAdministrator = errors.New("last administrator")
	ErrConsistency       = errors.New("consistency violation")
	ErrInvalidRole       = errors.New("invalid role")
)

// Fault wraps a kind sentinel with a human-readable message and, for
// validation failures, the offending field.
type Fault struct {
	Kind  error
	Field string
	Msg   string
}

func (f *Fault) Error() string {
	if f == nil {
		return ""
	}
	switch {
	case f.Msg == "":
		return f.Kind.Error()
	case f.Field != "":
		return fmt.Sprintf("%s: %s: %s", f.Kind.Error(), f.Field, f.Msg)
	default:
		return fmt.Sprintf("%s: %s", f.Kind.Error(), f.Msg)
	}
}

func (f *Fault) Unwrap() error { return f.Kind }

// Validation reports a malformed or missing input on the named field.
func Validation(field, msg string) error {
	return &Fault{Kind: ErrValidation, Field: field, Msg: msg}
}

// Validationf is Validation with a formatted message.
func Validationf(field, format string, args ...any) error {
	return &Fault{Kind: ErrValidation, Field: field, Msg: fmt.Sprintf(format, args...)}
}

// Forbidden reports that the actor lacks a capability or relationship to
// the target.
func Forbidden(msg string) error {
	return &Fault{Kind: ErrForbidden, Msg: msg}
}

// NotFound reports a missing or invisible project, task, membership, or
// token.
func NotFound(msg string) error {
	return &Fault{Kind: ErrNotFound, Msg: msg}
}

// Conflict reports an operation that would duplicate existing state.
func Conflict(msg string) error {
	return &Fault{Kind: ErrConflict, Msg: msg}
}

// LastAdministrator reports a membership mutation that would leave the
// project without an administrator.
func LastAdministrator(msg string) error {
	return &Fault{Kind: ErrLastAdministrator, Msg: msg}
}

// Consistency reports a multi-step mutation that completed partially.
func Consistency(msg string) error {
	return &Fault{Kind: ErrConsistency, Msg: msg}
}

// InvalidRole reports an unrecognized role string. This is a configuration
// error, not a user-facing validation failure.
func InvalidRole(role string) error {
	return &Fault{Kind: ErrInvalidRole, Msg: fmt.Sprintf("unknown role %q", role)}
}

// Code returns the stable machine-readable code for err's kind, or "" when
// err carries no fault kind.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrLastAdministrator):
		return "last_administrator"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrConsistency):
		return "consistency_error"
	case errors.Is(err, ErrInvalidRole):
		return "invalid_role"
	}
	return ""
}

// Message returns the human-readable message of a fault, or err.Error()
// for foreign errors.
func Message(err error) string {
	var f *Fault
	if errors.As(err, &f) && f.Msg != "" {
		return f.Msg
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
