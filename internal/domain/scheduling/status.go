package scheduling

import (
	"time"

	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
)

// ===============================
// Appointment Status
// ===============================

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusDenied    = "denied"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// Legal transitions: pending -> confirmed | denied | cancelled,
// confirmed -> cancelled | no_show. Everything else is invalid_state.

func CanConfirm(current string) error {
	if current != StatusPending {
		return httperr.ErrStateConflict("invalid_state")
	}
	return nil
}

func CanDeny(current string) error {
	if current != StatusPending {
		return httperr.ErrStateConflict("invalid_state")
	}
	return nil
}

func CanCancel(current string) error {
	if current != StatusPending && current != StatusConfirmed {
		return httperr.ErrStateConflict("invalid_state")
	}
	return nil
}

func CanMarkNoShow(current string) error {
	if current != StatusConfirmed {
		return httperr.ErrStateConflict("invalid_state")
	}
	return nil
}

// ===============================
// Domain Actions
// ===============================

func Confirm(ap *models.Appointment) error {
	if err := CanConfirm(ap.Status); err != nil {
		return err
	}
	ap.Status = StatusConfirmed
	return nil
}

func Deny(ap *models.Appointment) error {
	if err := CanDeny(ap.Status); err != nil {
		return err
	}
	ap.Status = StatusDenied
	return nil
}

func Cancel(ap *models.Appointment, now time.Time) error {
	if err := CanCancel(ap.Status); err != nil {
		return err
	}
	ap.Status = StatusCancelled
	ap.CancelledAt = &now
	return nil
}

func MarkNoShow(ap *models.Appointment) error {
	if err := CanMarkNoShow(ap.Status); err != nil {
		return err
	}
	ap.Status = StatusNoShow
	return nil
}
