package scheduling

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
)

func intp(n int) *int { return &n }

// fixtureDay returns a full calendar day one week out, so lead-time checks
// against the real clock never interfere.
func fixtureDay() time.Time {
	base := time.Now().UTC().AddDate(0, 0, 7)
	return time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
}

func fixtureService() *models.SchedulingService {
	return &models.SchedulingService{
		ID:              1,
		Name:            "Consultation",
		Timezone:        "UTC",
		DurationMinutes: 30,
		Type:            "remote",
		IsActive:        true,
		PriceCents:      10000,
		Card: models.Card{
			ID:                1,
			OwnerID:           1,
			Nickname:          "acme",
			Status:            "published",
			NotificationPhone: "+5511999990000",
		},
		CardID: 1,
	}
}

func fixtureRules(day time.Time) []models.ServiceAvailability {
	wd := (int(day.Weekday()) + 6) % 7
	return []models.ServiceAvailability{
		{RuleType: models.RuleWeekly, Weekday: intp(wd), StartTime: "09:00", EndTime: "12:00"},
	}
}

// ======================================================
// CREATE BOOKING
// ======================================================

func TestCreateBookingHappyPath(t *testing.T) {
	day := fixtureDay()
	svc := fixtureService()
	repo := &stubRepo{service: svc, rules: fixtureRules(day)}
	notifier := &stubNotifier{}

	var gotClaimStart, gotClaimEnd time.Time
	repo.createAppointmentFn = func(ap *models.Appointment, claimStart, claimEnd time.Time) error {
		ap.ID = 101
		gotClaimStart, gotClaimEnd = claimStart, claimEnd
		return nil
	}

	start := day.Add(10 * time.Hour)
	ap, err := NewCreateBooking(repo, notifier).Execute(context.Background(), CreateBookingInput{
		Service:    svc,
		StartAtUTC: start,
		UserName:   "Dana",
		UserPhone:  "+5511888887777",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ap.Status != domain.StatusPending {
		t.Fatalf("status = %s, want pending", ap.Status)
	}
	if len(ap.PublicCode) != 8 || !strings.HasPrefix(ap.PublicCode, "A") {
		t.Fatalf("public code %q, want A + 7 chars", ap.PublicCode)
	}
	if ap.Token == uuid.Nil {
		t.Fatal("token not assigned")
	}
	if ap.TotalPriceCents != 10000 {
		t.Fatalf("total = %d, want 10000", ap.TotalPriceCents)
	}
	if !gotClaimStart.Equal(start) || !gotClaimEnd.Equal(start.Add(30*time.Minute)) {
		t.Fatalf("claim = %v-%v, want the bare slot", gotClaimStart, gotClaimEnd)
	}

	if len(notifier.requests) != 1 || notifier.requests[0].Template != "owner_new_booking" {
		t.Fatalf("notifications = %v, want one owner_new_booking", notifier.templates())
	}
	if notifier.requests[0].To != svc.Card.NotificationPhone {
		t.Fatalf("alert went to %s", notifier.requests[0].To)
	}
}

func TestCreateBookingRetriesOnPublicCodeCollision(t *testing.T) {
	day := fixtureDay()
	svc := fixtureService()
	repo := &stubRepo{service: svc, rules: fixtureRules(day)}

	var attempted []string
	repo.createAppointmentFn = func(ap *models.Appointment, _, _ time.Time) error {
		attempted = append(attempted, ap.PublicCode)
		if len(attempted) == 1 {
			return &pgconn.PgError{Code: "23505", ConstraintName: "idx_appointments_public_code"}
		}
		ap.ID = 101
		return nil
	}

	ap, err := NewCreateBooking(repo, &stubNotifier{}).Execute(context.Background(), CreateBookingInput{
		Service:    svc,
		StartAtUTC: day.Add(10 * time.Hour),
		UserName:   "Dana",
		UserPhone:  "+5511888887777",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(attempted) != 2 {
		t.Fatalf("create attempted %d times, want 2", len(attempted))
	}
	if attempted[0] == attempted[1] {
		t.Fatal("collision retry reused the same code")
	}
	if ap.PublicCode != attempted[1] {
		t.Fatalf("final code %s is not the last attempt %s", ap.PublicCode, attempted[1])
	}
}

func TestCreateBookingRejectsTakenSlot(t *testing.T) {
	day := fixtureDay()
	svc := fixtureService()
	repo := &stubRepo{
		service: svc,
		rules:   fixtureRules(day),
		appointments: []models.Appointment{{
			ID:         50,
			Status:     domain.StatusConfirmed,
			StartAtUTC: day.Add(10 * time.Hour),
			EndAtUTC:   day.Add(10*time.Hour + 30*time.Minute),
		}},
	}

	_, err := NewCreateBooking(repo, &stubNotifier{}).Execute(context.Background(), CreateBookingInput{
		Service:    svc,
		StartAtUTC: day.Add(10 * time.Hour),
		UserName:   "Dana",
		UserPhone:  "+5511888887777",
	})
	if !httperr.IsBusiness(err, "slot_not_available") {
		t.Fatalf("got %v, want slot_not_available", err)
	}
}

// ======================================================
// CONFIRM
// ======================================================

func confirmedFixture(day time.Time, status string) (*stubRepo, *models.Appointment) {
	svc := fixtureService()
	ap := &models.Appointment{
		ID:         7,
		ServiceID:  svc.ID,
		Service:    *svc,
		UserName:   "Dana",
		UserPhone:  "+5511888887777",
		UserEmail:  "dana@example.com",
		PublicCode: "AXK2M9Q4",
		Status:     status,
		StartAtUTC: day.Add(10 * time.Hour),
		EndAtUTC:   day.Add(10*time.Hour + 30*time.Minute),
		Timezone:   "UTC",
	}
	return &stubRepo{service: svc, appointment: ap}, ap
}

func TestConfirmMetersExactlyOnce(t *testing.T) {
	repo, ap := confirmedFixture(fixtureDay(), domain.StatusPending)
	notifier := &stubNotifier{}
	meter := &stubMeter{}
	uc := NewConfirmAppointment(repo, notifier, meter)

	if _, err := uc.Execute(context.Background(), 1, ap.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ap.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", ap.Status)
	}
	if len(meter.calls) != 1 || meter.calls[0] != 1 {
		t.Fatalf("meter calls = %v, want one for owner 1", meter.calls)
	}

	// both customer channels notified
	got := notifier.templates()
	if len(got) != 2 || got[0] != "customer_booking_confirmed" || got[1] != "customer_booking_confirmed" {
		t.Fatalf("notifications = %v", got)
	}

	// a second confirm is a state conflict and must not meter again
	_, err := uc.Execute(context.Background(), 1, ap.ID)
	if !httperr.IsStateConflict(err) {
		t.Fatalf("got %v, want state conflict", err)
	}
	if len(meter.calls) != 1 {
		t.Fatalf("meter called %d times after double confirm", len(meter.calls))
	}
}

func TestConfirmSurvivesMeteringFailure(t *testing.T) {
	repo, ap := confirmedFixture(fixtureDay(), domain.StatusPending)
	meter := &stubMeter{err: context.DeadlineExceeded}

	updated, err := NewConfirmAppointment(repo, &stubNotifier{}, meter).
		Execute(context.Background(), 1, ap.ID)
	if err != nil {
		t.Fatalf("metering failure leaked: %v", err)
	}
	if updated.Status != domain.StatusConfirmed {
		t.Fatalf("status = %s, want confirmed", updated.Status)
	}
}

// ======================================================
// CANCEL
// ======================================================

func TestViewerCancelHonorsNoticeWindow(t *testing.T) {
	svc := fixtureService()
	svc.CancelMin = 120

	late := &models.Appointment{
		ID: 7, Service: *svc, Status: domain.StatusConfirmed,
		StartAtUTC: time.Now().UTC().Add(time.Hour),
	}
	uc := NewCancelAppointment(&stubRepo{service: svc, appointment: late}, &stubNotifier{})

	_, err := uc.ByViewer(context.Background(), late)
	if !httperr.IsBusiness(err, "too_late_to_cancel") {
		t.Fatalf("got %v, want too_late_to_cancel", err)
	}
	if late.Status != domain.StatusConfirmed {
		t.Fatalf("rejected cancel mutated status to %s", late.Status)
	}
}

func TestViewerCancelWithEnoughNotice(t *testing.T) {
	svc := fixtureService()
	svc.CancelMin = 120

	ap := &models.Appointment{
		ID: 7, Service: *svc, Status: domain.StatusConfirmed,
		UserName:   "Dana",
		StartAtUTC: time.Now().UTC().Add(6 * time.Hour),
	}
	notifier := &stubNotifier{}
	repo := &stubRepo{service: svc, appointment: ap}

	updated, err := NewCancelAppointment(repo, notifier).ByViewer(context.Background(), ap)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusCancelled || updated.CancelledAt == nil {
		t.Fatalf("status = %s, cancelled_at = %v", updated.Status, updated.CancelledAt)
	}
	if len(notifier.requests) != 1 || notifier.requests[0].Template != "owner_booking_cancelled" {
		t.Fatalf("notifications = %v", notifier.templates())
	}
}

func TestOwnerCancelSkipsNoticeWindow(t *testing.T) {
	svc := fixtureService()
	svc.CancelMin = 120

	ap := &models.Appointment{
		ID: 7, Service: *svc, Status: domain.StatusPending,
		StartAtUTC: time.Now().UTC().Add(time.Hour),
	}
	repo := &stubRepo{service: svc, appointment: ap}

	updated, err := NewCancelAppointment(repo, &stubNotifier{}).ByOwner(context.Background(), 1, ap.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != domain.StatusCancelled {
		t.Fatalf("status = %s, want cancelled", updated.Status)
	}
}

// ======================================================
// RESCHEDULE
// ======================================================

func rescheduleFixture(day time.Time) (*stubRepo, *models.Appointment) {
	svc := fixtureService()
	svc.ReschedMin = 60

	ap := &models.Appointment{
		ID: 7, ServiceID: svc.ID, Service: *svc,
		UserName: "Dana", UserPhone: "+5511888887777",
		Status:     domain.StatusConfirmed,
		StartAtUTC: day.Add(9 * time.Hour),
		EndAtUTC:   day.Add(9*time.Hour + 30*time.Minute),
		Timezone:   "UTC",
	}
	repo := &stubRepo{
		service:      svc,
		rules:        fixtureRules(day),
		appointment:  ap,
		appointments: []models.Appointment{*ap},
	}
	return repo, ap
}

func TestRequestRescheduleCreatesSupersedingRequest(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	notifier := &stubNotifier{}
	uc := NewRequestReschedule(repo, NewGetAvailability(repo), notifier)

	slot := day.Add(10 * time.Hour)
	req, err := uc.Execute(context.Background(), RequestRescheduleInput{
		Appointment:  ap,
		Reason:       "conflict at work",
		SlotStartUTC: slot,
		RequestedBy:  domain.RequestedByCustomer,
		IP:           "203.0.113.9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Status != domain.RescheduleRequested {
		t.Fatalf("status = %s, want requested", req.Status)
	}
	if req.RequestedStartAtUTC == nil || !req.RequestedStartAtUTC.Equal(slot) {
		t.Fatalf("requested start = %v, want %v", req.RequestedStartAtUTC, slot)
	}
	if req.ExpiresAt == nil {
		t.Fatal("expires_at not set")
	}
	wantExpiry := time.Now().UTC().Add(domain.RescheduleExpiryHours * time.Hour)
	if diff := req.ExpiresAt.Sub(wantExpiry); diff < -time.Minute || diff > time.Minute {
		t.Fatalf("expires_at = %v, want ~%v", req.ExpiresAt, wantExpiry)
	}

	if len(repo.createdReschedules) != 1 {
		t.Fatalf("superseding create called %d times", len(repo.createdReschedules))
	}
	if len(notifier.requests) != 1 || notifier.requests[0].Template != "owner_reschedule_requested" {
		t.Fatalf("notifications = %v", notifier.templates())
	}
}

func TestRequestRescheduleSecondRequestExpiresFirst(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	uc := NewRequestReschedule(repo, NewGetAvailability(repo), &stubNotifier{})

	for _, slot := range []time.Time{day.Add(10 * time.Hour), day.Add(11 * time.Hour)} {
		if _, err := uc.Execute(context.Background(), RequestRescheduleInput{
			Appointment:  ap,
			SlotStartUTC: slot,
			RequestedBy:  domain.RequestedByCustomer,
		}); err != nil {
			t.Fatalf("slot %v: unexpected error: %v", slot, err)
		}
	}

	if len(repo.createdReschedules) != 2 {
		t.Fatalf("created %d requests, want 2", len(repo.createdReschedules))
	}
	if repo.createdReschedules[0].Status != domain.RescheduleExpired {
		t.Fatalf("first request status = %s, want expired", repo.createdReschedules[0].Status)
	}
	if repo.createdReschedules[1].Status != domain.RescheduleRequested {
		t.Fatalf("second request status = %s, want requested", repo.createdReschedules[1].Status)
	}
}

func TestRequestRescheduleOwnSlotStaysOfferable(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	uc := NewRequestReschedule(repo, NewGetAvailability(repo), &stubNotifier{})

	// the appointment occupies 09:00; asking for 09:00 again must work
	// because its own claim is excluded from conflict checking
	_, err := uc.Execute(context.Background(), RequestRescheduleInput{
		Appointment:  ap,
		SlotStartUTC: day.Add(9 * time.Hour),
		RequestedBy:  domain.RequestedByCustomer,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestRescheduleTooLateForCustomer(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	ap.StartAtUTC = time.Now().UTC().Add(30 * time.Minute)
	uc := NewRequestReschedule(repo, NewGetAvailability(repo), &stubNotifier{})

	_, err := uc.Execute(context.Background(), RequestRescheduleInput{
		Appointment:  ap,
		SlotStartUTC: day.Add(10 * time.Hour),
		RequestedBy:  domain.RequestedByCustomer,
	})
	if !httperr.IsBusiness(err, "too_late_to_reschedule") {
		t.Fatalf("got %v, want too_late_to_reschedule", err)
	}
}

func TestRequestRescheduleEmptyRequesterDefaultsToCustomer(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	ap.StartAtUTC = time.Now().UTC().Add(30 * time.Minute)
	uc := NewRequestReschedule(repo, NewGetAvailability(repo), &stubNotifier{})

	// RequestedBy omitted: the customer notice window still applies
	_, err := uc.Execute(context.Background(), RequestRescheduleInput{
		Appointment:  ap,
		SlotStartUTC: day.Add(10 * time.Hour),
	})
	if !httperr.IsBusiness(err, "too_late_to_reschedule") {
		t.Fatalf("got %v, want too_late_to_reschedule", err)
	}
}

func TestRequestRescheduleSettledAppointmentRejected(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	ap.Status = domain.StatusCancelled
	uc := NewRequestReschedule(repo, NewGetAvailability(repo), &stubNotifier{})

	_, err := uc.Execute(context.Background(), RequestRescheduleInput{
		Appointment:  ap,
		SlotStartUTC: day.Add(10 * time.Hour),
	})
	if !httperr.IsStateConflict(err) {
		t.Fatalf("got %v, want state conflict", err)
	}
}

func TestApproveRescheduleDefaultsToRequestedSlot(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	slot := day.Add(10 * time.Hour)
	slotEnd := slot.Add(30 * time.Minute)
	repo.reschedule = &models.RescheduleRequest{
		ID: 5, AppointmentID: ap.ID, Appointment: *ap,
		Status:              domain.RescheduleRequested,
		RequestedStartAtUTC: &slot,
		RequestedEndAtUTC:   &slotEnd,
	}

	var gotParams domain.ApproveRescheduleParams
	repo.approveFn = func(p domain.ApproveRescheduleParams) (string, *models.RescheduleRequest, error) {
		gotParams = p
		updated := *repo.reschedule
		updated.Status = domain.RescheduleApproved
		updated.NewStartAtUTC = &p.NewStartAt
		updated.NewEndAtUTC = &p.NewEndAt
		updated.Appointment.Status = domain.StatusConfirmed
		updated.Appointment.StartAtUTC = p.NewStartAt
		updated.Appointment.EndAtUTC = p.NewEndAt
		return domain.StatusPending, &updated, nil
	}

	notifier := &stubNotifier{}
	meter := &stubMeter{}
	uc := NewApproveReschedule(repo, NewGetAvailability(repo), notifier, meter)

	updated, err := uc.Execute(context.Background(), ApproveRescheduleInput{
		RequestID: 5,
		OwnerID:   1,
		Message:   "see you then",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !gotParams.NewStartAt.Equal(slot) || !gotParams.NewEndAt.Equal(slotEnd) {
		t.Fatalf("approved slot = %v-%v, want the requested one", gotParams.NewStartAt, gotParams.NewEndAt)
	}
	if updated.Status != domain.RescheduleApproved {
		t.Fatalf("status = %s, want approved", updated.Status)
	}

	// the appointment was pending before, so approval meters it
	if len(meter.calls) != 1 {
		t.Fatalf("meter calls = %d, want 1", len(meter.calls))
	}
	if len(notifier.requests) != 1 || notifier.requests[0].Template != "customer_reschedule_approved" {
		t.Fatalf("notifications = %v", notifier.templates())
	}
}

func TestApproveRescheduleSkipsMeteringWhenAlreadyConfirmed(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	slot := day.Add(10 * time.Hour)
	slotEnd := slot.Add(30 * time.Minute)
	repo.reschedule = &models.RescheduleRequest{
		ID: 5, AppointmentID: ap.ID, Appointment: *ap,
		Status:              domain.RescheduleRequested,
		RequestedStartAtUTC: &slot,
		RequestedEndAtUTC:   &slotEnd,
	}
	repo.approveFn = func(p domain.ApproveRescheduleParams) (string, *models.RescheduleRequest, error) {
		updated := *repo.reschedule
		updated.Status = domain.RescheduleApproved
		return domain.StatusConfirmed, &updated, nil
	}

	meter := &stubMeter{}
	uc := NewApproveReschedule(repo, NewGetAvailability(repo), &stubNotifier{}, meter)

	if _, err := uc.Execute(context.Background(), ApproveRescheduleInput{RequestID: 5, OwnerID: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(meter.calls) != 0 {
		t.Fatalf("meter calls = %d, want 0", len(meter.calls))
	}
}

func TestApproveRescheduleAlreadyHandled(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	repo.reschedule = &models.RescheduleRequest{
		ID: 5, AppointmentID: ap.ID, Appointment: *ap,
		Status: domain.RescheduleApproved,
	}

	uc := NewApproveReschedule(repo, NewGetAvailability(repo), &stubNotifier{}, &stubMeter{})
	_, err := uc.Execute(context.Background(), ApproveRescheduleInput{RequestID: 5, OwnerID: 1})
	if !httperr.IsStateConflict(err) {
		t.Fatalf("got %v, want already_handled conflict", err)
	}
}

func TestRejectRescheduleNotifiesCustomer(t *testing.T) {
	day := fixtureDay()
	repo, ap := rescheduleFixture(day)
	repo.reschedule = &models.RescheduleRequest{
		ID: 5, AppointmentID: ap.ID, Appointment: *ap,
		Status: domain.RescheduleRequested,
	}

	notifier := &stubNotifier{}
	updated, err := NewRejectReschedule(repo, notifier).
		Execute(context.Background(), 5, 1, "fully booked that week", "203.0.113.9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if updated.Status != domain.RescheduleRejected {
		t.Fatalf("status = %s, want rejected", updated.Status)
	}
	if len(notifier.requests) != 1 || notifier.requests[0].Template != "customer_reschedule_rejected" {
		t.Fatalf("notifications = %v", notifier.templates())
	}
	if notifier.requests[0].To != ap.UserPhone {
		t.Fatalf("rejection sent to %s", notifier.requests[0].To)
	}
}

func TestExpireStaleReschedulesDelegates(t *testing.T) {
	repo := &stubRepo{}
	n, err := NewExpireStaleReschedules(repo).Execute(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 || repo.expireCalls != 1 {
		t.Fatalf("n = %d, calls = %d", n, repo.expireCalls)
	}
}
