package scheduling

import (
	"testing"
	"time"

	"github.com/tapcard-io/scheduler/internal/models"
)

func intp(n int) *int { return &n }

func utcService() *models.SchedulingService {
	return &models.SchedulingService{
		ID:              1,
		Timezone:        "UTC",
		DurationMinutes: 30,
		IsActive:        true,
	}
}

// 2026-09-07 is a Monday
var (
	monday  = time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	testNow = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
)

func mondayMorning() []models.ServiceAvailability {
	return []models.ServiceAvailability{
		{RuleType: models.RuleWeekly, Weekday: intp(0), StartTime: "09:00", EndTime: "12:00"},
	}
}

func slotStarts(slots []Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.StartAtUTC.Format("15:04"))
	}
	return out
}

func assertStarts(t *testing.T, slots []Slot, want ...string) {
	t.Helper()
	got := slotStarts(slots)
	if len(got) != len(want) {
		t.Fatalf("got %d slots %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d: got %s, want %s (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestGenerateSlotsOpenDay(t *testing.T) {
	slots := GenerateSlots(utcService(), mondayMorning(), nil, monday, testNow)
	assertStarts(t, slots, "09:00", "09:30", "10:00", "10:30", "11:00", "11:30")
}

func TestGenerateSlotsSkipsBookedSlot(t *testing.T) {
	booked := []models.Appointment{{
		Status:     StatusPending,
		StartAtUTC: monday.Add(10 * time.Hour),
		EndAtUTC:   monday.Add(10*time.Hour + 30*time.Minute),
	}}

	slots := GenerateSlots(utcService(), mondayMorning(), booked, monday, testNow)
	assertStarts(t, slots, "09:00", "09:30", "10:30", "11:00", "11:30")
}

func TestGenerateSlotsBuffersWidenTheBlock(t *testing.T) {
	svc := utcService()
	svc.BufferBefore = 10
	svc.BufferAfter = 10

	// with no bookings the buffers already clip the window edges
	slots := GenerateSlots(svc, mondayMorning(), nil, monday, testNow)
	assertStarts(t, slots, "09:30", "10:00", "10:30", "11:00")

	booked := []models.Appointment{{
		Status:     StatusConfirmed,
		StartAtUTC: monday.Add(10 * time.Hour),
		EndAtUTC:   monday.Add(10*time.Hour + 30*time.Minute),
	}}

	// the 10:30 neighbor dies too: its padded claim reaches into the
	// booked appointment's padded block
	slots = GenerateSlots(svc, mondayMorning(), booked, monday, testNow)
	assertStarts(t, slots, "11:00")
}

func TestGenerateSlotsIgnoresSettledAppointments(t *testing.T) {
	settled := []models.Appointment{
		{
			Status:     StatusCancelled,
			StartAtUTC: monday.Add(10 * time.Hour),
			EndAtUTC:   monday.Add(10*time.Hour + 30*time.Minute),
		},
		{
			Status:     StatusDenied,
			StartAtUTC: monday.Add(11 * time.Hour),
			EndAtUTC:   monday.Add(11*time.Hour + 30*time.Minute),
		},
	}

	slots := GenerateSlots(utcService(), mondayMorning(), settled, monday, testNow)
	assertStarts(t, slots, "09:00", "09:30", "10:00", "10:30", "11:00", "11:30")
}

func TestGenerateSlotsHolidayWinsOverEverything(t *testing.T) {
	rules := append(mondayMorning(),
		models.ServiceAvailability{RuleType: models.RuleDateOverride, Date: "2026-09-07", StartTime: "14:00", EndTime: "16:00"},
		models.ServiceAvailability{RuleType: models.RuleHoliday, Date: "2026-09-07"},
	)

	if slots := GenerateSlots(utcService(), rules, nil, monday, testNow); len(slots) != 0 {
		t.Fatalf("expected no slots on a holiday, got %v", slotStarts(slots))
	}
}

func TestGenerateSlotsDateOverrideAddsWindow(t *testing.T) {
	tuesday := monday.AddDate(0, 0, 1)
	rules := append(mondayMorning(),
		models.ServiceAvailability{RuleType: models.RuleDateOverride, Date: "2026-09-08", StartTime: "14:00", EndTime: "15:00"},
	)

	slots := GenerateSlots(utcService(), rules, nil, tuesday, testNow)
	assertStarts(t, slots, "14:00", "14:30")
}

func TestGenerateSlotsLeadTimeCutsTheMorning(t *testing.T) {
	svc := utcService()
	svc.LeadTimeMin = 30

	now := monday.Add(9*time.Hour + 15*time.Minute)
	slots := GenerateSlots(svc, mondayMorning(), nil, monday, now)
	assertStarts(t, slots, "10:00", "10:30", "11:00", "11:30")
}

func TestGenerateSlotsOverlappingRulesMerge(t *testing.T) {
	rules := []models.ServiceAvailability{
		{RuleType: models.RuleWeekly, Weekday: intp(0), StartTime: "09:00", EndTime: "10:30"},
		{RuleType: models.RuleWeekly, Weekday: intp(0), StartTime: "10:00", EndTime: "12:00"},
	}

	slots := GenerateSlots(utcService(), rules, nil, monday, testNow)
	assertStarts(t, slots, "09:00", "09:30", "10:00", "10:30", "11:00", "11:30")
}

func TestGenerateSlotsLocalRulesResolveToUTC(t *testing.T) {
	svc := utcService()
	svc.Timezone = "America/Sao_Paulo" // UTC-3, no DST

	slots := GenerateSlots(svc, mondayMorning(), nil, monday, testNow)
	assertStarts(t, slots, "12:00", "12:30", "13:00", "13:30", "14:00", "14:30")
}

func TestGenerateSlotsDeterministic(t *testing.T) {
	svc := utcService()
	svc.BufferBefore = 5
	svc.BufferAfter = 5
	booked := []models.Appointment{{
		Status:     StatusPending,
		StartAtUTC: monday.Add(10 * time.Hour),
		EndAtUTC:   monday.Add(10*time.Hour + 30*time.Minute),
	}}

	first := GenerateSlots(svc, mondayMorning(), booked, monday, testNow)
	second := GenerateSlots(svc, mondayMorning(), booked, monday, testNow)

	if len(first) != len(second) {
		t.Fatalf("lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].StartAtUTC.Equal(second[i].StartAtUTC) || !first[i].EndAtUTC.Equal(second[i].EndAtUTC) {
			t.Fatalf("slot %d differs between runs", i)
		}
	}
}
