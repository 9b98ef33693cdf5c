// Package errs is the error taxonomy shared by the booking engine. Every error
// carries a Kind, matched with errors.Is against the exported sentinels, and a
// human-readable reason that is safe to show to the caller.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind uint8

const (
	KindInternal Kind = iota
	KindNotFound
	KindForbidden
	KindConflict
	KindValidation
	KindTooLate
	KindUpstream
	KindNotAccepted
)

var kindNames = map[Kind]string{
	KindInternal:    "internal",
	KindNotFound:    "not found",
	KindForbidden:   "forbidden",
	KindConflict:    "conflict",
	KindValidation:  "validation",
	KindTooLate:     "too late",
	KindUpstream:    "upstream",
	KindNotAccepted: "not accepted",
}

func (k Kind) String() string { return kindNames[k] }

// Error is a typed engine error.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same Kind, so errors.Is(err, errs.ErrConflict)
// holds for every conflict regardless of its reason.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Reason == ""
}

var (
	ErrNotFound    = &Error{Kind: KindNotFound}
	ErrForbidden   = &Error{Kind: KindForbidden}
	ErrConflict    = &Error{Kind: KindConflict}
	ErrValidation  = &Error{Kind: KindValidation}
	ErrTooLate     = &Error{Kind: KindTooLate}
	ErrUpstream    = &Error{Kind: KindUpstream}
	ErrNotAccepted = &Error{Kind: KindNotAccepted}
)

func newf(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Reason: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error    { return newf(KindNotFound, format, args...) }
func Forbidden(format string, args ...any) error   { return newf(KindForbidden, format, args...) }
func Conflict(format string, args ...any) error    { return newf(KindConflict, format, args...) }
func Validation(format string, args ...any) error  { return newf(KindValidation, format, args...) }
func TooLate(format string, args ...any) error     { return newf(KindTooLate, format, args...) }
func NotAccepted(format string, args ...any) error { return newf(KindNotAccepted, format, args...) }

// Upstream wraps a failure of an external collaborator.
func Upstream(err error, format string, args ...any) error {
	e := newf(KindUpstream, format, args...)
	e.Err = err
	return e
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Reason returns the caller-facing message for err. Internal errors are not
// described to the caller.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Reason
	}
	return "internal server error"
}

// HTTPStatus maps err onto the status codes used by the itinerary routes.
// A blocked state transition (deleting a booked itinerary) answers 400.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden, KindNotAccepted:
		return http.StatusForbidden
	case KindConflict, KindValidation, KindTooLate:
		return http.StatusBadRequest
	case KindUpstream:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
