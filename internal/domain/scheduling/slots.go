package scheduling

import (
	"time"

	"github.com/tapcard-io/scheduler/internal/models"
)

// Slot is a bookable candidate in UTC.
type Slot struct {
	StartAtUTC time.Time `json:"start_at_utc"`
	EndAtUTC   time.Time `json:"end_at_utc"`
}

// GenerateSlots steps every resolved window at the service duration and
// keeps the candidates whose buffer-expanded claim fits the window, clears
// all blocked intervals, and starts no earlier than now plus the lead time.
// The cursor always advances on a fixed grid, never packed around bookings.
// Pure given its inputs, so the output is deterministic.
func GenerateSlots(
	svc *models.SchedulingService,
	rules []models.ServiceAvailability,
	appointments []models.Appointment,
	date time.Time,
	now time.Time,
) []Slot {

	windows := ResolveWindows(svc, rules, date)
	blocks := BlockedIntervals(svc, appointments)

	dur := time.Duration(svc.DurationMinutes) * time.Minute
	before := time.Duration(svc.BufferBefore) * time.Minute
	after := time.Duration(svc.BufferAfter) * time.Minute
	minStart := now.UTC().Add(time.Duration(svc.LeadTimeMin) * time.Minute)

	var slots []Slot
	for _, win := range windows {
		for cursor := win.Start; !cursor.Add(dur).After(win.End); cursor = cursor.Add(dur) {
			s := cursor
			e := cursor.Add(dur)
			claim := Interval{Start: s.Add(-before), End: e.Add(after)}

			if s.Before(minStart) {
				continue
			}
			if !win.Contains(claim) {
				continue
			}

			conflict := false
			for _, b := range blocks {
				if claim.Overlaps(b) {
					conflict = true
					break
				}
			}
			if conflict {
				continue
			}

			slots = append(slots, Slot{StartAtUTC: s, EndAtUTC: e})
		}
	}

	return slots
}
