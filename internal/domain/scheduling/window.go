package scheduling

import (
	"time"

	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/timezone"
)

const dateLayout = "2006-01-02"

// isoWeekday maps Go's Sunday-first weekday onto the 0=Mon..6=Sun scheme
// availability rules are stored in.
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func parseHM(hm string, date time.Time, loc *time.Location) (time.Time, bool) {
	t, err := time.Parse("15:04", hm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(
		date.Year(), date.Month(), date.Day(),
		t.Hour(), t.Minute(), 0, 0,
		loc,
	), true
}

// ResolveWindows turns a service's availability rules into the merged,
// UTC-normalized open windows for one calendar date (interpreted in the
// service timezone). A holiday rule for that date suppresses everything.
func ResolveWindows(
	svc *models.SchedulingService,
	rules []models.ServiceAvailability,
	date time.Time,
) []Interval {

	loc := timezone.Location(svc.Timezone)
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
	dayStr := day.Format(dateLayout)
	weekday := isoWeekday(day)

	for _, r := range rules {
		if r.RuleType == models.RuleHoliday && r.Date == dayStr {
			return nil
		}
	}

	var windows []Interval
	for _, r := range rules {
		switch r.RuleType {
		case models.RuleWeekly:
			if r.Weekday == nil || *r.Weekday != weekday {
				continue
			}
		case models.RuleDateOverride:
			if r.Date != dayStr {
				continue
			}
		default:
			continue
		}

		if r.StartTime == "" || r.EndTime == "" {
			continue
		}
		start, ok1 := parseHM(r.StartTime, day, loc)
		end, ok2 := parseHM(r.EndTime, day, loc)
		if !ok1 || !ok2 || !start.Before(end) {
			continue
		}

		windows = append(windows, Interval{
			Start: start.UTC(),
			End:   end.UTC(),
		})
	}

	return MergeIntervals(windows)
}
