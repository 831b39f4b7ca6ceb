package auth

import (
	"ms-events/internal/errs"
	"ms-events/internal/models"
)

// Authorization rules that cannot be expressed as query predicates.
// Everything else (tenant scoping, ticket-owner scoping) is enforced by
// the store filters themselves, so a denied read is indistinguishable
// from a missing row.

// CanModifyEvent allows edits and deletes only by the event's creator.
func CanModifyEvent(p Principal, e models.Event) error {
	if e.CreatedBy != p.UserID {
		return errs.ErrForbidden
	}
	return nil
}

// CanCreateTicketFor rejects purchases on behalf of another user.
func CanCreateTicketFor(p Principal, userID int64) error {
	if userID != p.UserID {
		return errs.ErrForbidden
	}
	return nil
}
