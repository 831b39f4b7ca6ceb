package errs_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"ms-events/internal/errs"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{errs.ErrUnauthenticated, http.StatusUnauthorized},
		{errs.ErrForbidden, http.StatusForbidden},
		{errs.ErrNotFound, http.StatusNotFound},
		{errs.ErrInvalidIDs, http.StatusBadRequest},
		{errs.ErrEventFull, http.StatusBadRequest},
		{errs.ErrSubEventFull, http.StatusBadRequest},
		{errs.ErrTeamBelowMin, http.StatusBadRequest},
		{errs.ErrTeamFull, http.StatusBadRequest},
		{errs.ErrAlreadyMember, http.StatusBadRequest},
		{errs.ErrConflict, http.StatusConflict},
		{errs.ErrTimeout, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		if got := errs.HTTPStatus(c.err); got != c.want {
			t.Errorf("HTTPStatus(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestHTTPStatusWrapped(t *testing.T) {
	wrapped := fmt.Errorf("purchase: %w", errs.ErrEventFull)
	if got := errs.HTTPStatus(wrapped); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus(wrapped) = %d, want %d", got, http.StatusBadRequest)
	}
	if errs.KindOf(wrapped) != errs.KindEventFull {
		t.Errorf("KindOf(wrapped) = %v, want KindEventFull", errs.KindOf(wrapped))
	}
}

func TestWriteDomainErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	errs.Write(rec, errs.ErrEventFull)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "Event is full" {
		t.Errorf("body = %v, want error=Event is full", body)
	}
	if _, ok := body["detail"]; ok {
		t.Errorf("domain error must not carry a detail field: %v", body)
	}
}

func TestWriteAuthErrorBody(t *testing.T) {
	rec := httptest.NewRecorder()
	errs.Write(rec, errs.ErrNotFound)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["detail"] != "not found" {
		t.Errorf("body = %v, want detail=not found", body)
	}
}

func TestWriteUnknownErrorHidesDetail(t *testing.T) {
	rec := httptest.NewRecorder()
	errs.Write(rec, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["detail"] != "internal server error" {
		t.Errorf("internal error leaked: %v", body)
	}
}

func TestWireMessages(t *testing.T) {
	cases := []struct {
		err  *errs.Error
		want string
	}{
		{errs.ErrInvalidIDs, "Invalid IDs"},
		{errs.ErrEventFull, "Event is full"},
		{errs.ErrSubEventFull, "Sub-event is full"},
		{errs.ErrTeamBelowMin, "Team does not meet minimum size"},
		{errs.ErrTeamFull, "Team is full"},
		{errs.ErrAlreadyMember, "Already a member"},
		{errs.ErrConflict, "Retry"},
		{errs.ErrTimeout, "Timeout"},
	}
	for _, c := range cases {
		if c.err.Error() != c.want {
			t.Errorf("message = %q, want %q", c.err.Error(), c.want)
		}
	}
}
