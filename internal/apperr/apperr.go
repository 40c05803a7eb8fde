package apperr

import "errors"

type Kind string

const (
	KindValidation        Kind = "validation"
	KindConflict          Kind = "conflict"
	KindNotFound          Kind = "not_found"
	KindInvalidTransition Kind = "invalid_transition"
	KindForbidden         Kind = "forbidden"
)

// Error is the user-visible error taxonomy. Code is a stable machine-readable
// identifier, Message is safe to show to callers, Details is optional structured
// context (e.g. the list of conflicting intervals).
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details any
}

func (e *Error) Error() string {
	return e.Message
}

// Is matches on Kind and, when the target carries one, on Code. This lets package
// sentinels such as ErrAppointmentNotFound match errors built with extra details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// WithDetails returns a copy of e carrying details.
func (e *Error) WithDetails(details any) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func Validation(code, msg string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: msg}
}

func Conflict(code, msg string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: msg}
}

func NotFound(code, msg string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: msg}
}

func InvalidTransition(code, msg string) *Error {
	return &Error{Kind: KindInvalidTransition, Code: code, Message: msg}
}

func Forbidden(code, msg string) *Error {
	return &Error{Kind: KindForbidden, Code: code, Message: msg}
}

// Kind sentinels for coarse errors.Is checks.
var (
	ErrValidation        = &Error{Kind: KindValidation}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInvalidTransition = &Error{Kind: KindInvalidTransition}
	ErrForbidden         = &Error{Kind: KindForbidden}
)

// As extracts the taxonomy error from err, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
