package scheduling

import (
	"context"
	"fmt"
	"time"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/notify"
	"github.com/tapcard-io/scheduler/internal/timezone"
)

type RequestRescheduleInput struct {
	Appointment *models.Appointment

	Reason       string
	SlotStartUTC time.Time
	RequestedBy  string
	IP           string
}

// RequestReschedule files a customer (or owner) proposal to move an
// existing appointment. Creating a new request atomically expires any other
// request still in "requested" for the same appointment, so at most one
// proposal is ever current.
type RequestReschedule struct {
	repo         domain.Repository
	availability *GetAvailability
	notifier     notify.Enqueuer
}

func NewRequestReschedule(
	repo domain.Repository,
	availability *GetAvailability,
	notifier notify.Enqueuer,
) *RequestReschedule {
	return &RequestReschedule{
		repo:         repo,
		availability: availability,
		notifier:     notifier,
	}
}

func (uc *RequestReschedule) Execute(
	ctx context.Context,
	in RequestRescheduleInput,
) (*models.RescheduleRequest, error) {

	ap := in.Appointment
	svc := &ap.Service

	if err := domain.CanRequestReschedule(ap.Status); err != nil {
		return nil, err
	}

	requestedBy := in.RequestedBy
	if requestedBy == "" {
		requestedBy = domain.RequestedByCustomer
	}

	now := time.Now().UTC()
	if requestedBy == domain.RequestedByCustomer && svc.ReschedMin > 0 {
		deadline := ap.StartAtUTC.Add(-time.Duration(svc.ReschedMin) * time.Minute)
		if now.After(deadline) {
			return nil, httperr.ErrBusiness("too_late_to_reschedule")
		}
	}

	// the appointment's own window must not block its replacement
	loc := timezone.Location(svc.Timezone)
	slots, err := uc.availability.Execute(ctx, svc, in.SlotStartUTC.In(loc), ap.ID)
	if err != nil {
		return nil, err
	}

	var matched *domain.Slot
	for i := range slots {
		if slots[i].StartAtUTC.Equal(in.SlotStartUTC.UTC()) {
			matched = &slots[i]
			break
		}
	}
	if matched == nil {
		return nil, httperr.ErrBusiness("slot_not_available")
	}

	expiresAt := now.Add(domain.RescheduleExpiryHours * time.Hour)
	req := &models.RescheduleRequest{
		AppointmentID:       ap.ID,
		Status:              domain.RescheduleRequested,
		RequestedBy:         requestedBy,
		Reason:              in.Reason,
		RequestedStartAtUTC: &matched.StartAtUTC,
		RequestedEndAtUTC:   &matched.EndAtUTC,
		ExpiresAt:           &expiresAt,
		RequestedIP:         in.IP,
	}

	if err := uc.repo.CreateRescheduleSuperseding(ctx, req); err != nil {
		return nil, err
	}

	if phone := svc.Card.NotificationPhone; phone != "" {
		uc.notifier.Enqueue(notify.Request{
			Type:         notify.TypeSMS,
			To:           phone,
			TemplateCode: "owner_reschedule_requested",
			Payload: map[string]any{
				"service":  svc.Name,
				"customer": ap.UserName,
			},
			IdempotencyKey: fmt.Sprintf("resched:%d:owner", req.ID),
		})
	}

	return req, nil
}
