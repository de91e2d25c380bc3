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

// ======================================================
// APPROVE
// ======================================================

type ApproveRescheduleInput struct {
	RequestID uint
	OwnerID   uint

	// the owner's chosen slot; zero means "the slot the customer asked for"
	SlotStartUTC time.Time

	Message string
	IP      string
}

// ApproveReschedule re-validates the chosen slot, then atomically swaps the
// appointment onto it, confirms it, and settles the request. The repository
// holds row locks through the whole read-validate-write sequence, so a
// racing double-click fails with already_handled instead of applying twice.
type ApproveReschedule struct {
	repo         domain.Repository
	availability *GetAvailability
	notifier     notify.Enqueuer
	meter        metering.Recorder
}

func NewApproveReschedule(
	repo domain.Repository,
	availability *GetAvailability,
	notifier notify.Enqueuer,
	meter metering.Recorder,
) *ApproveReschedule {
	return &ApproveReschedule{
		repo:         repo,
		availability: availability,
		notifier:     notifier,
		meter:        meter,
	}
}

func (uc *ApproveReschedule) Execute(
	ctx context.Context,
	in ApproveRescheduleInput,
) (*models.RescheduleRequest, error) {

	req, err := uc.repo.GetRescheduleForOwner(ctx, in.RequestID, in.OwnerID)
	if err != nil {
		return nil, err
	}
	if err := domain.CanResolve(req.Status); err != nil {
		return nil, err
	}

	ap := req.Appointment
	svc := &ap.Service

	chosen := in.SlotStartUTC
	if chosen.IsZero() {
		if req.RequestedStartAtUTC == nil {
			return nil, httperr.ErrBusiness("slot_required")
		}
		chosen = *req.RequestedStartAtUTC
	}

	loc := timezone.Location(svc.Timezone)
	slots, err := uc.availability.Execute(ctx, svc, chosen.In(loc), ap.ID)
	if err != nil {
		return nil, err
	}

	var matched *domain.Slot
	for i := range slots {
		if slots[i].StartAtUTC.Equal(chosen.UTC()) {
			matched = &slots[i]
			break
		}
	}
	if matched == nil {
		return nil, httperr.ErrBusiness("slot_not_available")
	}

	prevStatus, updated, err := uc.repo.ApproveReschedule(ctx, domain.ApproveRescheduleParams{
		RequestID:  in.RequestID,
		OwnerID:    in.OwnerID,
		NewStartAt: matched.StartAtUTC,
		NewEndAt:   matched.EndAtUTC,
		Message:    in.Message,
		ActionIP:   in.IP,
	})
	if err != nil {
		return nil, err
	}

	// approval confirms the appointment; meter only the pending->confirmed edge
	if prevStatus != domain.StatusConfirmed {
		if err := uc.meter.AppointmentConfirmed(ctx, svc.Card.OwnerID, &updated.Appointment); err != nil {
			log.Println("metering error:", err)
		}
	}

	date, start, end := localWhen(&updated.Appointment)
	uc.notifier.Enqueue(notify.Request{
		Type:         notify.TypeSMS,
		To:           updated.Appointment.UserPhone,
		TemplateCode: "customer_reschedule_approved",
		Payload: map[string]any{
			"service": svc.Name,
			"date":    date,
			"start":   start,
			"end":     end,
			"message": in.Message,
		},
		IdempotencyKey: fmt.Sprintf("resched:%d:approved", updated.ID),
	})

	return updated, nil
}

// ======================================================
// REJECT
// ======================================================

type RejectReschedule struct {
	repo     domain.Repository
	notifier notify.Enqueuer
}

func NewRejectReschedule(repo domain.Repository, notifier notify.Enqueuer) *RejectReschedule {
	return &RejectReschedule{repo: repo, notifier: notifier}
}

func (uc *RejectReschedule) Execute(
	ctx context.Context,
	requestID uint,
	ownerID uint,
	message string,
	ip string,
) (*models.RescheduleRequest, error) {

	req, err := uc.repo.RejectReschedule(ctx, requestID, ownerID, message, ip)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"service": req.Appointment.Service.Name,
	}
	if message != "" {
		payload["message"] = message
	}
	uc.notifier.Enqueue(notify.Request{
		Type:           notify.TypeSMS,
		To:             req.Appointment.UserPhone,
		TemplateCode:   "customer_reschedule_rejected",
		Payload:        payload,
		IdempotencyKey: fmt.Sprintf("resched:%d:rejected", req.ID),
	})

	return req, nil
}

// ======================================================
// EXPIRY SWEEP
// ======================================================

// ExpireStaleReschedules is the cron-driven sweep that expires "requested"
// rows whose expires_at has passed. Supersede-on-create/approve handles the
// common path; this catches proposals nobody ever acted on.
type ExpireStaleReschedules struct {
	repo domain.Repository
}

func NewExpireStaleReschedules(repo domain.Repository) *ExpireStaleReschedules {
	return &ExpireStaleReschedules{repo: repo}
}

func (uc *ExpireStaleReschedules) Execute(ctx context.Context) (int64, error) {
	return uc.repo.ExpireStaleReschedules(ctx, time.Now().UTC())
}
