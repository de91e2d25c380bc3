package scheduling

import (
	"time"

	"github.com/tapcard-io/scheduler/internal/models"
)

// BlockedIntervals expands every pending/confirmed appointment by the
// service buffers and merges the result. Back-to-back bookings therefore
// always leave the configured gap, and downstream overlap checks stay
// linear over a merged list.
func BlockedIntervals(
	svc *models.SchedulingService,
	appointments []models.Appointment,
) []Interval {

	before := time.Duration(svc.BufferBefore) * time.Minute
	after := time.Duration(svc.BufferAfter) * time.Minute

	var blocks []Interval
	for _, ap := range appointments {
		if ap.Status != StatusPending && ap.Status != StatusConfirmed {
			continue
		}
		blocks = append(blocks, Interval{
			Start: ap.StartAtUTC.Add(-before),
			End:   ap.EndAtUTC.Add(after),
		})
	}

	return MergeIntervals(blocks)
}
