package scheduling

import (
	"time"

	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/timezone"
)

// BookingPlan is a fully validated booking: final window, total price, and
// the option selections snapshotted for persistence.
type BookingPlan struct {
	StartAtUTC      time.Time
	EndAtUTC        time.Time
	TotalPriceCents int
	Selections      []ResolvedSelection
}

// ClaimStart / ClaimEnd are the plan's buffer-expanded bounds, used by the
// repository for the locked conflict recheck at write time.
func (p *BookingPlan) ClaimStart(svc *models.SchedulingService) time.Time {
	return p.StartAtUTC.Add(-time.Duration(svc.BufferBefore) * time.Minute)
}

func (p *BookingPlan) ClaimEnd(svc *models.SchedulingService) time.Time {
	return p.EndAtUTC.Add(time.Duration(svc.BufferAfter) * time.Minute)
}

// PrepareBooking validates a requested start plus option selections against
// the service's availability and existing appointments.
//
// The base-duration slot must be one the generator would emit, and the
// expanded claim (base duration plus option extras, padded by buffers) must
// still fit inside a single resolved window without touching a blocked
// interval or crossing into the next local calendar date.
func PrepareBooking(
	svc *models.SchedulingService,
	rules []models.ServiceAvailability,
	appointments []models.Appointment,
	options []models.ServiceOption,
	requestedStartUTC time.Time,
	selections []OptionSelection,
	now time.Time,
) (*BookingPlan, error) {

	resolved, err := ResolveSelections(options, selections)
	if err != nil {
		return nil, err
	}

	extraMinutes := 0
	priceDelta := 0
	for _, r := range resolved {
		extraMinutes += r.ExtraDurationMinutes
		priceDelta += r.PriceDeltaCents
	}

	start := requestedStartUTC.UTC()
	end := start.Add(time.Duration(svc.DurationMinutes+extraMinutes) * time.Minute)

	loc := timezone.Location(svc.Timezone)
	localDate := start.In(loc)

	// lead time holds on its own, independent of slot generation
	minStart := now.UTC().Add(time.Duration(svc.LeadTimeMin) * time.Minute)
	if start.Before(minStart) {
		return nil, httperr.ErrBusiness("too_soon")
	}

	slots := GenerateSlots(svc, rules, appointments, localDate, now)
	found := false
	for _, sl := range slots {
		if sl.StartAtUTC.Equal(start) {
			found = true
			break
		}
	}
	if !found {
		return nil, httperr.ErrBusiness("slot_not_available")
	}

	if end.In(loc).Format(dateLayout) != localDate.Format(dateLayout) {
		return nil, httperr.ErrBusiness("duration_exceeds_window")
	}

	claim := Interval{
		Start: start.Add(-time.Duration(svc.BufferBefore) * time.Minute),
		End:   end.Add(time.Duration(svc.BufferAfter) * time.Minute),
	}

	windows := ResolveWindows(svc, rules, localDate)
	inWindow := false
	for _, win := range windows {
		if win.Contains(claim) {
			inWindow = true
			break
		}
	}
	if !inWindow {
		return nil, httperr.ErrBusiness("duration_exceeds_window")
	}

	for _, b := range BlockedIntervals(svc, appointments) {
		if claim.Overlaps(b) {
			return nil, httperr.ErrBusiness("slot_not_available")
		}
	}

	return &BookingPlan{
		StartAtUTC:      start,
		EndAtUTC:        end,
		TotalPriceCents: svc.PriceCents + priceDelta,
		Selections:      resolved,
	}, nil
}
