package scheduling

import (
	"context"
	"time"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/notify"
)

// stubRepo satisfies domain.Repository in memory. Tests override the
// function fields they care about; everything else falls back to the
// fixture data or a not-found error.
type stubRepo struct {
	service      *models.SchedulingService
	rules        []models.ServiceAvailability
	options      []models.ServiceOption
	appointments []models.Appointment

	appointment *models.Appointment
	reschedule  *models.RescheduleRequest

	createAppointmentFn func(ap *models.Appointment, claimStart, claimEnd time.Time) error
	hasPublicCodeFn     func(code string) (bool, error)
	approveFn           func(p domain.ApproveRescheduleParams) (string, *models.RescheduleRequest, error)

	updatedAppointments []models.Appointment
	createdReschedules  []models.RescheduleRequest
	expireCalls         int
}

var _ domain.Repository = (*stubRepo)(nil)

func (s *stubRepo) GetCardForOwner(_ context.Context, cardID, ownerID uint) (*models.Card, error) {
	if s.service != nil && s.service.Card.ID == cardID && s.service.Card.OwnerID == ownerID {
		return &s.service.Card, nil
	}
	return nil, httperr.ErrNotFound("card")
}

func (s *stubRepo) GetPublishedCard(_ context.Context, nickname string) (*models.Card, error) {
	if s.service != nil && s.service.Card.Nickname == nickname {
		return &s.service.Card, nil
	}
	return nil, httperr.ErrNotFound("card")
}

func (s *stubRepo) GetServiceForOwner(_ context.Context, serviceID, ownerID uint) (*models.SchedulingService, error) {
	if s.service != nil && s.service.ID == serviceID && s.service.Card.OwnerID == ownerID {
		return s.service, nil
	}
	return nil, httperr.ErrNotFound("service")
}

func (s *stubRepo) GetActiveService(_ context.Context, cardID, serviceID uint) (*models.SchedulingService, error) {
	if s.service != nil && s.service.ID == serviceID {
		return s.service, nil
	}
	return nil, httperr.ErrNotFound("service")
}

func (s *stubRepo) CreateServiceCapped(_ context.Context, svc *models.SchedulingService, maxPerCard int) error {
	svc.ID = 999
	return nil
}

func (s *stubRepo) ListAvailability(_ context.Context, serviceID uint) ([]models.ServiceAvailability, error) {
	return s.rules, nil
}

func (s *stubRepo) ListActiveOptions(_ context.Context, serviceID uint) ([]models.ServiceOption, error) {
	return s.options, nil
}

func (s *stubRepo) ListAppointmentsForDayUTC(_ context.Context, serviceID uint, dayStart, dayEnd time.Time, ignoreID uint) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, ap := range s.appointments {
		if ap.ID == ignoreID && ignoreID != 0 {
			continue
		}
		out = append(out, ap)
	}
	return out, nil
}

func (s *stubRepo) HasPublicCode(_ context.Context, code string) (bool, error) {
	if s.hasPublicCodeFn != nil {
		return s.hasPublicCodeFn(code)
	}
	return false, nil
}

func (s *stubRepo) CreateAppointment(_ context.Context, ap *models.Appointment, claimStart, claimEnd time.Time) error {
	if s.createAppointmentFn != nil {
		return s.createAppointmentFn(ap, claimStart, claimEnd)
	}
	ap.ID = 101
	return nil
}

func (s *stubRepo) GetAppointmentForOwner(_ context.Context, appointmentID, ownerID uint) (*models.Appointment, error) {
	if s.appointment != nil && s.appointment.ID == appointmentID {
		return s.appointment, nil
	}
	return nil, httperr.ErrNotFound("appointment")
}

func (s *stubRepo) GetAppointmentByPublicCode(_ context.Context, code string) (*models.Appointment, error) {
	if s.appointment != nil && s.appointment.PublicCode == code {
		return s.appointment, nil
	}
	return nil, httperr.ErrNotFound("appointment")
}

func (s *stubRepo) UpdateAppointment(_ context.Context, ap *models.Appointment) error {
	s.updatedAppointments = append(s.updatedAppointments, *ap)
	return nil
}

func (s *stubRepo) ListAppointmentsForPeriod(_ context.Context, ownerID uint, start, end time.Time) ([]models.Appointment, error) {
	return s.appointments, nil
}

func (s *stubRepo) CreateRescheduleSuperseding(_ context.Context, req *models.RescheduleRequest) error {
	for i := range s.createdReschedules {
		if s.createdReschedules[i].AppointmentID == req.AppointmentID &&
			s.createdReschedules[i].Status == domain.RescheduleRequested {
			s.createdReschedules[i].Status = domain.RescheduleExpired
		}
	}
	req.ID = uint(len(s.createdReschedules) + 1)
	s.createdReschedules = append(s.createdReschedules, *req)
	return nil
}

func (s *stubRepo) GetRescheduleForOwner(_ context.Context, requestID, ownerID uint) (*models.RescheduleRequest, error) {
	if s.reschedule != nil && s.reschedule.ID == requestID {
		return s.reschedule, nil
	}
	return nil, httperr.ErrNotFound("reschedule_request")
}

func (s *stubRepo) ApproveReschedule(_ context.Context, p domain.ApproveRescheduleParams) (string, *models.RescheduleRequest, error) {
	if s.approveFn != nil {
		return s.approveFn(p)
	}
	return "", nil, httperr.ErrNotFound("reschedule_request")
}

func (s *stubRepo) RejectReschedule(_ context.Context, requestID, ownerID uint, message, actionIP string) (*models.RescheduleRequest, error) {
	if s.reschedule == nil || s.reschedule.ID != requestID {
		return nil, httperr.ErrNotFound("reschedule_request")
	}
	if err := domain.CanResolve(s.reschedule.Status); err != nil {
		return nil, err
	}
	s.reschedule.Status = domain.RescheduleRejected
	s.reschedule.OwnerMessage = message
	s.reschedule.ActionIP = actionIP
	return s.reschedule, nil
}

func (s *stubRepo) ListReschedulesForOwner(_ context.Context, ownerID uint, status string) ([]models.RescheduleRequest, error) {
	return s.createdReschedules, nil
}

func (s *stubRepo) ExpireStaleReschedules(_ context.Context, now time.Time) (int64, error) {
	s.expireCalls++
	return 2, nil
}

// ---------- notifier / meter stubs ----------

type stubNotifier struct {
	requests []struct {
		Type, To, Template, Key string
	}
}

func (n *stubNotifier) Enqueue(req notify.Request) {
	n.requests = append(n.requests, struct {
		Type, To, Template, Key string
	}{req.Type, req.To, req.TemplateCode, req.IdempotencyKey})
}

func (n *stubNotifier) templates() []string {
	out := make([]string, 0, len(n.requests))
	for _, r := range n.requests {
		out = append(out, r.Template)
	}
	return out
}

type stubMeter struct {
	calls []uint
	err   error
}

func (m *stubMeter) AppointmentConfirmed(_ context.Context, ownerID uint, _ *models.Appointment) error {
	m.calls = append(m.calls, ownerID)
	return m.err
}
