package handlers

import "time"

const dateLayout = "2006-01-02"

// parseDateParam reads a YYYY-MM-DD query value in the given location.
func parseDateParam(raw string, loc *time.Location) (time.Time, bool) {
	t, err := time.ParseInLocation(dateLayout, raw, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func parseRFC3339(raw string) (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
