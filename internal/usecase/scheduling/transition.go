package scheduling

import (
	"context"
	"fmt"
	"log"
	"time"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/metering"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/notify"
	"github.com/tapcard-io/scheduler/internal/timezone"
)

// localWhen formats the appointment window in its display timezone for
// customer-facing notification payloads.
func localWhen(ap *models.Appointment) (date string, start string, end string) {
	loc := timezone.Location(ap.Timezone)
	return ap.StartAtUTC.In(loc).Format("02/01/2006"),
		ap.StartAtUTC.In(loc).Format("15:04"),
		ap.EndAtUTC.In(loc).Format("15:04")
}

// ======================================================
// CONFIRM
// ======================================================

type ConfirmAppointment struct {
	repo     domain.Repository
	notifier notify.Enqueuer
	meter    metering.Recorder
}

func NewConfirmAppointment(
	repo domain.Repository,
	notifier notify.Enqueuer,
	meter metering.Recorder,
) *ConfirmAppointment {
	return &ConfirmAppointment{repo: repo, notifier: notifier, meter: meter}
}

// Execute moves a pending appointment to confirmed. This is the single
// point that records the appointment_confirmed metering event and enqueues
// the customer confirmations; the state machine guarantees the edge fires
// at most once per appointment.
func (uc *ConfirmAppointment) Execute(
	ctx context.Context,
	ownerID uint,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointmentForOwner(ctx, appointmentID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := domain.Confirm(ap); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateAppointment(ctx, ap); err != nil {
		return nil, err
	}

	// side effects after commit; failures logged, never rolled back
	if err := uc.meter.AppointmentConfirmed(ctx, ap.Service.Card.OwnerID, ap); err != nil {
		log.Println("metering error:", err)
	}

	date, start, end := localWhen(ap)
	payload := map[string]any{
		"service": ap.Service.Name,
		"date":    date,
		"start":   start,
		"end":     end,
		"tz":      ap.Timezone,
	}
	uc.notifier.Enqueue(notify.Request{
		Type:           notify.TypeSMS,
		To:             ap.UserPhone,
		TemplateCode:   "customer_booking_confirmed",
		Payload:        payload,
		IdempotencyKey: fmt.Sprintf("appt:%d:confirmed:sms", ap.ID),
	})
	uc.notifier.Enqueue(notify.Request{
		Type:           notify.TypeEmail,
		To:             ap.UserEmail,
		TemplateCode:   "customer_booking_confirmed",
		Payload:        payload,
		IdempotencyKey: fmt.Sprintf("appt:%d:confirmed:email", ap.ID),
	})

	return ap, nil
}

// ======================================================
// DENY
// ======================================================

type DenyAppointment struct {
	repo domain.Repository
}

func NewDenyAppointment(repo domain.Repository) *DenyAppointment {
	return &DenyAppointment{repo: repo}
}

func (uc *DenyAppointment) Execute(
	ctx context.Context,
	ownerID uint,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointmentForOwner(ctx, appointmentID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := domain.Deny(ap); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateAppointment(ctx, ap); err != nil {
		return nil, err
	}

	return ap, nil
}

// ======================================================
// CANCEL
// ======================================================

type CancelAppointment struct {
	repo     domain.Repository
	notifier notify.Enqueuer
}

func NewCancelAppointment(repo domain.Repository, notifier notify.Enqueuer) *CancelAppointment {
	return &CancelAppointment{repo: repo, notifier: notifier}
}

func (uc *CancelAppointment) ByOwner(
	ctx context.Context,
	ownerID uint,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointmentForOwner(ctx, appointmentID, ownerID)
	if err != nil {
		return nil, err
	}
	return uc.cancel(ctx, ap, false)
}

// ByViewer cancels on behalf of the verified customer; the service's
// cancel_min notice window applies to customers only.
func (uc *CancelAppointment) ByViewer(
	ctx context.Context,
	ap *models.Appointment,
) (*models.Appointment, error) {
	return uc.cancel(ctx, ap, true)
}

func (uc *CancelAppointment) cancel(
	ctx context.Context,
	ap *models.Appointment,
	enforceNotice bool,
) (*models.Appointment, error) {

	now := time.Now().UTC()

	if enforceNotice && ap.Service.CancelMin > 0 {
		deadline := ap.StartAtUTC.Add(-time.Duration(ap.Service.CancelMin) * time.Minute)
		if now.After(deadline) {
			return nil, httperr.ErrBusiness("too_late_to_cancel")
		}
	}

	if err := domain.Cancel(ap, now); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateAppointment(ctx, ap); err != nil {
		return nil, err
	}

	if phone := ap.Service.Card.NotificationPhone; phone != "" {
		uc.notifier.Enqueue(notify.Request{
			Type:         notify.TypeSMS,
			To:           phone,
			TemplateCode: "owner_booking_cancelled",
			Payload: map[string]any{
				"service":  ap.Service.Name,
				"customer": ap.UserName,
			},
			IdempotencyKey: fmt.Sprintf("appt:%d:cancelled:owner", ap.ID),
		})
	}

	return ap, nil
}

// ======================================================
// NO-SHOW
// ======================================================

type MarkNoShow struct {
	repo domain.Repository
}

func NewMarkNoShow(repo domain.Repository) *MarkNoShow {
	return &MarkNoShow{repo: repo}
}

func (uc *MarkNoShow) Execute(
	ctx context.Context,
	ownerID uint,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.repo.GetAppointmentForOwner(ctx, appointmentID, ownerID)
	if err != nil {
		return nil, err
	}

	if err := domain.MarkNoShow(ap); err != nil {
		return nil, err
	}

	if err := uc.repo.UpdateAppointment(ctx, ap); err != nil {
		return nil, err
	}

	return ap, nil
}
