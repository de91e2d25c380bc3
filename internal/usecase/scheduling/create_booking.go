package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tapcard-io/scheduler/internal/codes"
	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/notify"
	"github.com/tapcard-io/scheduler/internal/timezone"
)

// ======================================================
// INPUT
// ======================================================

type CreateBookingInput struct {
	Service *models.SchedulingService

	StartAtUTC time.Time
	Selections []domain.OptionSelection

	UserName  string
	UserEmail string
	UserPhone string

	// display timezone; defaults to the service timezone
	Timezone       string
	LocationChoice string
}

// ======================================================
// USE CASE
// ======================================================

// CreateBooking is the booking engine: it validates the requested slot plus
// selected options, persists the pending appointment under a unique public
// code, and emits the best-effort owner alert.
type CreateBooking struct {
	repo     domain.Repository
	notifier notify.Enqueuer
}

func NewCreateBooking(repo domain.Repository, notifier notify.Enqueuer) *CreateBooking {
	return &CreateBooking{repo: repo, notifier: notifier}
}

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*models.Appointment, error) {

	svc := in.Service
	loc := timezone.Location(svc.Timezone)
	localDate := in.StartAtUTC.In(loc)

	rules, err := uc.repo.ListAvailability(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	options, err := uc.repo.ListActiveOptions(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := utcDayBounds(localDate)
	appointments, err := uc.repo.ListAppointmentsForDayUTC(ctx, svc.ID, dayStart, dayEnd, 0)
	if err != nil {
		return nil, err
	}

	plan, err := domain.PrepareBooking(
		svc,
		rules,
		appointments,
		options,
		in.StartAtUTC,
		in.Selections,
		time.Now().UTC(),
	)
	if err != nil {
		return nil, err
	}

	tz := in.Timezone
	if !timezone.IsValid(tz) {
		tz = svc.Timezone
	}
	locChoice := in.LocationChoice
	if locChoice == "" {
		locChoice = svc.Type
	}

	ap := &models.Appointment{
		ServiceID:       svc.ID,
		UserName:        in.UserName,
		UserEmail:       in.UserEmail,
		UserPhone:       in.UserPhone,
		Token:           uuid.New(),
		StartAtUTC:      plan.StartAtUTC,
		EndAtUTC:        plan.EndAtUTC,
		Timezone:        tz,
		LocationChoice:  locChoice,
		Status:          domain.StatusPending,
		TotalPriceCents: plan.TotalPriceCents,
	}
	for _, sel := range plan.Selections {
		ap.Selections = append(ap.Selections, models.AppointmentSelection{
			OptionID:             sel.OptionID,
			ChoiceID:             sel.ChoiceID,
			Label:                sel.Label,
			TextValue:            sel.TextValue,
			PriceDeltaCents:      sel.PriceDeltaCents,
			ExtraDurationMinutes: sel.ExtraDurationMinutes,
		})
	}

	if err := uc.persistWithCode(ctx, ap, plan.ClaimStart(svc), plan.ClaimEnd(svc)); err != nil {
		return nil, err
	}

	// best effort: a lost alert must never fail a booking
	if phone := svc.Card.NotificationPhone; phone != "" {
		uc.notifier.Enqueue(notify.Request{
			Type:         notify.TypeSMS,
			To:           phone,
			TemplateCode: "owner_new_booking",
			Payload: map[string]any{
				"service":  svc.Name,
				"customer": ap.UserName,
				"start":    ap.StartAtUTC.In(loc).Format("02/01 15:04"),
			},
			IdempotencyKey: fmt.Sprintf("booking:%d:owner", ap.ID),
		})
	}

	return ap, nil
}

// persistWithCode assigns a fresh public code and inserts; a unique-index
// collision (another writer won the same code) regenerates and retries up
// to the generator's attempt cap.
func (uc *CreateBooking) persistWithCode(
	ctx context.Context,
	ap *models.Appointment,
	claimStart time.Time,
	claimEnd time.Time,
) error {

	var lastErr error
	for attempt := 0; attempt < codes.MaxAttempts; attempt++ {
		code, err := codes.GenerateUnique(7, func(c string) (bool, error) {
			return uc.repo.HasPublicCode(ctx, "A"+c)
		})
		if err != nil {
			return err
		}
		ap.PublicCode = "A" + code

		lastErr = uc.repo.CreateAppointment(ctx, ap, claimStart, claimEnd)
		if lastErr == nil {
			return nil
		}
		if !isCodeCollision(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
