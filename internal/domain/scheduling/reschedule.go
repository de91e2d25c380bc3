package scheduling

import (
	"github.com/tapcard-io/scheduler/internal/httperr"
)

// ===============================
// Reschedule Request Status
// ===============================

const (
	RescheduleRequested = "requested"
	RescheduleApproved  = "approved"
	RescheduleRejected  = "rejected"
	RescheduleExpired   = "expired"
)

const (
	RequestedByCustomer = "customer"
	RequestedByOwner    = "owner"
)

// RescheduleExpiryHours bounds how long a request stays actionable before
// the sweep expires it.
const RescheduleExpiryHours = 48

// CanResolve guards approve/reject: only a request still in "requested"
// may be acted on. Anything else was already handled by a racing action.
func CanResolve(current string) error {
	if current != RescheduleRequested {
		return httperr.ErrStateConflict("already_handled")
	}
	return nil
}

// CanApplyReschedule guards approval against the appointment itself. The
// request may still be "requested" while the appointment was cancelled or
// marked no-show in the meantime; applying new times then would resurrect
// a settled appointment.
func CanApplyReschedule(appointmentStatus string) error {
	if appointmentStatus != StatusPending && appointmentStatus != StatusConfirmed {
		return httperr.ErrStateConflict("invalid_state")
	}
	return nil
}

// CanRequestReschedule limits new requests to live appointments.
func CanRequestReschedule(appointmentStatus string) error {
	if appointmentStatus != StatusPending && appointmentStatus != StatusConfirmed {
		return httperr.ErrStateConflict("invalid_state")
	}
	return nil
}
