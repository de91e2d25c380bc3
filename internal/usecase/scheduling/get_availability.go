package scheduling

import (
	"context"
	"time"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/models"
)

// utcDayBounds returns the [00:00:00, 23:59:59] UTC span of date's calendar
// day, the range blocked appointments are fetched over.
func utcDayBounds(date time.Time) (time.Time, time.Time) {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24*time.Hour - time.Second)
}

type GetAvailability struct {
	repo domain.Repository
}

func NewGetAvailability(repo domain.Repository) *GetAvailability {
	return &GetAvailability{repo: repo}
}

// Execute produces the bookable slots of one calendar date. A non-zero
// ignoreAppointmentID drops that appointment from conflict checking, used
// when re-validating a reschedule of the same appointment.
func (uc *GetAvailability) Execute(
	ctx context.Context,
	svc *models.SchedulingService,
	date time.Time,
	ignoreAppointmentID uint,
) ([]domain.Slot, error) {

	rules, err := uc.repo.ListAvailability(ctx, svc.ID)
	if err != nil {
		return nil, err
	}

	dayStart, dayEnd := utcDayBounds(date)
	appointments, err := uc.repo.ListAppointmentsForDayUTC(
		ctx,
		svc.ID,
		dayStart,
		dayEnd,
		ignoreAppointmentID,
	)
	if err != nil {
		return nil, err
	}

	return domain.GenerateSlots(svc, rules, appointments, date, time.Now().UTC()), nil
}
