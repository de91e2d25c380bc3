package scheduling

import (
	"context"
	"time"

	"github.com/tapcard-io/scheduler/internal/models"
)

// ApproveRescheduleParams carries everything the approve transaction needs.
// NewStart/NewEnd are the owner's chosen slot, already validated against the
// generator by the caller; the repository re-asserts conflicts under lock.
type ApproveRescheduleParams struct {
	RequestID  uint
	OwnerID    uint
	NewStartAt time.Time
	NewEndAt   time.Time
	Message    string
	ActionIP   string
}

type Repository interface {
	// -------- Card / ownership --------
	GetCardForOwner(
		ctx context.Context,
		cardID uint,
		ownerID uint,
	) (*models.Card, error)

	GetPublishedCard(
		ctx context.Context,
		nickname string,
	) (*models.Card, error)

	// -------- Service --------
	GetServiceForOwner(
		ctx context.Context,
		serviceID uint,
		ownerID uint,
	) (*models.SchedulingService, error)

	GetActiveService(
		ctx context.Context,
		cardID uint,
		serviceID uint,
	) (*models.SchedulingService, error)

	// CreateServiceCapped inserts the service while holding a row lock on
	// the owning card, failing with service_limit_reached at maxPerCard.
	CreateServiceCapped(
		ctx context.Context,
		svc *models.SchedulingService,
		maxPerCard int,
	) error

	// -------- Availability / options --------
	ListAvailability(
		ctx context.Context,
		serviceID uint,
	) ([]models.ServiceAvailability, error)

	ListActiveOptions(
		ctx context.Context,
		serviceID uint,
	) ([]models.ServiceOption, error)

	// -------- Appointment (generate / create) --------
	ListAppointmentsForDayUTC(
		ctx context.Context,
		serviceID uint,
		dayStart time.Time,
		dayEnd time.Time,
		ignoreAppointmentID uint,
	) ([]models.Appointment, error)

	HasPublicCode(
		ctx context.Context,
		code string,
	) (bool, error)

	// CreateAppointment inserts the appointment and its selection snapshots
	// after re-asserting, under lock, that the claim interval is still free.
	CreateAppointment(
		ctx context.Context,
		ap *models.Appointment,
		claimStart time.Time,
		claimEnd time.Time,
	) error

	// -------- Appointment (state change) --------
	GetAppointmentForOwner(
		ctx context.Context,
		appointmentID uint,
		ownerID uint,
	) (*models.Appointment, error)

	GetAppointmentByPublicCode(
		ctx context.Context,
		code string,
	) (*models.Appointment, error)

	UpdateAppointment(
		ctx context.Context,
		ap *models.Appointment,
	) error

	ListAppointmentsForPeriod(
		ctx context.Context,
		ownerID uint,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)

	// -------- Reschedule --------
	// CreateRescheduleSuperseding atomically expires every other
	// "requested" row of the same appointment before inserting req.
	CreateRescheduleSuperseding(
		ctx context.Context,
		req *models.RescheduleRequest,
	) error

	GetRescheduleForOwner(
		ctx context.Context,
		requestID uint,
		ownerID uint,
	) (*models.RescheduleRequest, error)

	// ApproveReschedule runs the whole approve transition in one
	// transaction under a row lock on the request: status recheck, locked
	// conflict recheck, request + appointment mutation, sibling expiry.
	// It returns the appointment's status before the swap so callers can
	// detect the pending->confirmed metering edge.
	ApproveReschedule(
		ctx context.Context,
		p ApproveRescheduleParams,
	) (prevStatus string, req *models.RescheduleRequest, err error)

	RejectReschedule(
		ctx context.Context,
		requestID uint,
		ownerID uint,
		message string,
		actionIP string,
	) (*models.RescheduleRequest, error)

	ListReschedulesForOwner(
		ctx context.Context,
		ownerID uint,
		status string,
	) ([]models.RescheduleRequest, error)

	ExpireStaleReschedules(
		ctx context.Context,
		now time.Time,
	) (int64, error)
}
