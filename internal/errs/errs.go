// Package errs defines the closed set of domain errors the services
// produce and their projection onto the HTTP surface. Services return
// these values (optionally wrapped); handlers translate them at the
// boundary and never invent their own status codes.
package errs

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnauthenticated Kind = iota
	KindForbidden
	KindNotFound
	KindInvalidIDs
	KindEventFull
	KindSubEventFull
	KindTeamBelowMin
	KindTeamFull
	KindAlreadyMember
	KindConflict
	KindTimeout
	KindInternal
)

// Error is a domain error with a fixed wire message. The message set is
// closed: handlers must not attach free-form text to client responses.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrUnauthenticated = &Error{KindUnauthenticated, "authentication required"}
	ErrForbidden       = &Error{KindForbidden, "permission denied"}
	ErrNotFound        = &Error{KindNotFound, "not found"}
	ErrInvalidIDs      = &Error{KindInvalidIDs, "Invalid IDs"}
	ErrEventFull       = &Error{KindEventFull, "Event is full"}
	ErrSubEventFull    = &Error{KindSubEventFull, "Sub-event is full"}
	ErrTeamBelowMin    = &Error{KindTeamBelowMin, "Team does not meet minimum size"}
	ErrTeamFull        = &Error{KindTeamFull, "Team is full"}
	ErrAlreadyMember   = &Error{KindAlreadyMember, "Already a member"}
	ErrConflict        = &Error{KindConflict, "Retry"}
	ErrTimeout         = &Error{KindTimeout, "Timeout"}
)

// KindOf unwraps err and reports its domain kind, or KindInternal for
// anything outside the enumeration.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a domain error onto its status code. Unknown errors
// collapse to 500 so store internals never leak.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidIDs, KindEventFull, KindSubEventFull,
		KindTeamBelowMin, KindTeamFull, KindAlreadyMember:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Write projects err onto w as JSON. Auth failures use {"detail": ...},
// domain failures use {"error": ...}, unknown errors a generic detail.
func Write(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	var body map[string]string

	switch KindOf(err) {
	case KindUnauthenticated, KindForbidden, KindNotFound:
		var e *Error
		errors.As(err, &e)
		body = map[string]string{"detail": e.Message}
	case KindInternal:
		body = map[string]string{"detail": "internal server error"}
	default:
		var e *Error
		errors.As(err, &e)
		body = map[string]string{"error": e.Message}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
