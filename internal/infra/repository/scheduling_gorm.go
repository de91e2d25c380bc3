package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/models"
)

type SchedulingGormRepository struct {
	db *gorm.DB
}

func NewSchedulingGormRepository(db *gorm.DB) *SchedulingGormRepository {
	return &SchedulingGormRepository{db: db}
}

// --------------------------------------------------
// Card / ownership
// --------------------------------------------------

func (r *SchedulingGormRepository) GetCardForOwner(
	ctx context.Context,
	cardID uint,
	ownerID uint,
) (*models.Card, error) {

	var card models.Card
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", cardID, ownerID).
		First(&card).Error; err != nil {
		return nil, httperr.ErrNotFound("card")
	}
	return &card, nil
}

func (r *SchedulingGormRepository) GetPublishedCard(
	ctx context.Context,
	nickname string,
) (*models.Card, error) {

	var card models.Card
	if err := r.db.WithContext(ctx).
		Where("LOWER(nickname) = LOWER(?) AND status = 'published'", nickname).
		First(&card).Error; err != nil {
		return nil, httperr.ErrNotFound("card")
	}
	return &card, nil
}

// --------------------------------------------------
// Service
// --------------------------------------------------

func (r *SchedulingGormRepository) GetServiceForOwner(
	ctx context.Context,
	serviceID uint,
	ownerID uint,
) (*models.SchedulingService, error) {

	var svc models.SchedulingService
	if err := r.db.WithContext(ctx).
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("scheduling_services.id = ? AND cards.owner_id = ?", serviceID, ownerID).
		Preload("Card").
		First(&svc).Error; err != nil {
		return nil, httperr.ErrNotFound("service")
	}
	return &svc, nil
}

func (r *SchedulingGormRepository) GetActiveService(
	ctx context.Context,
	cardID uint,
	serviceID uint,
) (*models.SchedulingService, error) {

	var svc models.SchedulingService
	if err := r.db.WithContext(ctx).
		Where("id = ? AND card_id = ? AND is_active = true", serviceID, cardID).
		Preload("Card").
		First(&svc).Error; err != nil {
		return nil, httperr.ErrNotFound("service")
	}
	return &svc, nil
}

func (r *SchedulingGormRepository) CreateServiceCapped(
	ctx context.Context,
	svc *models.SchedulingService,
	maxPerCard int,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var card models.Card
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&card, svc.CardID).Error; err != nil {
			return httperr.ErrNotFound("card")
		}

		var count int64
		if err := tx.Model(&models.SchedulingService{}).
			Where("card_id = ?", card.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count >= int64(maxPerCard) {
			return httperr.ErrBusiness("service_limit_reached")
		}

		return tx.Create(svc).Error
	})
}

// --------------------------------------------------
// Availability / options
// --------------------------------------------------

func (r *SchedulingGormRepository) ListAvailability(
	ctx context.Context,
	serviceID uint,
) ([]models.ServiceAvailability, error) {

	var rules []models.ServiceAvailability
	if err := r.db.WithContext(ctx).
		Where("service_id = ?", serviceID).
		Order("rule_type, weekday, date, start_time").
		Find(&rules).Error; err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *SchedulingGormRepository) ListActiveOptions(
	ctx context.Context,
	serviceID uint,
) ([]models.ServiceOption, error) {

	var opts []models.ServiceOption
	if err := r.db.WithContext(ctx).
		Where("service_id = ? AND is_active = true", serviceID).
		Preload("Choices").
		Order("id").
		Find(&opts).Error; err != nil {
		return nil, err
	}
	return opts, nil
}

// --------------------------------------------------
// Appointment (generate / create)
// --------------------------------------------------

func (r *SchedulingGormRepository) ListAppointmentsForDayUTC(
	ctx context.Context,
	serviceID uint,
	dayStart time.Time,
	dayEnd time.Time,
	ignoreAppointmentID uint,
) ([]models.Appointment, error) {

	q := r.db.WithContext(ctx).
		Where(
			"service_id = ? AND status IN ('pending', 'confirmed') AND start_at_utc <= ? AND end_at_utc >= ?",
			serviceID, dayEnd, dayStart,
		)
	if ignoreAppointmentID != 0 {
		q = q.Where("id <> ?", ignoreAppointmentID)
	}

	var apps []models.Appointment
	if err := q.Order("start_at_utc ASC").Find(&apps).Error; err != nil {
		return nil, err
	}
	return apps, nil
}

func (r *SchedulingGormRepository) HasPublicCode(
	ctx context.Context,
	code string,
) (bool, error) {

	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("public_code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// assertClaimFree locks any pending/confirmed appointment whose
// buffer-expanded claim would overlap [claimStart, claimEnd), serializing
// racing writers on the conflicting rows.
func assertClaimFree(
	tx *gorm.DB,
	svc *models.SchedulingService,
	claimStart time.Time,
	claimEnd time.Time,
	ignoreAppointmentID uint,
) error {

	pad := time.Duration(svc.BufferBefore+svc.BufferAfter) * time.Minute

	q := tx.Model(&models.Appointment{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(
			"service_id = ? AND status IN ('pending', 'confirmed') AND start_at_utc < ? AND end_at_utc > ?",
			svc.ID,
			claimEnd.Add(pad),
			claimStart.Add(-pad),
		)
	if ignoreAppointmentID != 0 {
		q = q.Where("id <> ?", ignoreAppointmentID)
	}

	var rows []models.Appointment
	if err := q.Find(&rows).Error; err != nil {
		return err
	}

	before := time.Duration(svc.BufferBefore) * time.Minute
	after := time.Duration(svc.BufferAfter) * time.Minute
	for _, ap := range rows {
		if ap.StartAtUTC.Add(-before).Before(claimEnd) && claimStart.Before(ap.EndAtUTC.Add(after)) {
			return httperr.ErrBusiness("slot_not_available")
		}
	}
	return nil
}

func (r *SchedulingGormRepository) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
	claimStart time.Time,
	claimEnd time.Time,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var svc models.SchedulingService
		if err := tx.First(&svc, ap.ServiceID).Error; err != nil {
			return httperr.ErrNotFound("service")
		}

		if err := assertClaimFree(tx, &svc, claimStart, claimEnd, 0); err != nil {
			return err
		}

		return tx.Create(ap).Error
	})
}

// --------------------------------------------------
// Appointment (state change)
// --------------------------------------------------

func (r *SchedulingGormRepository) GetAppointmentForOwner(
	ctx context.Context,
	appointmentID uint,
	ownerID uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("appointments.id = ? AND cards.owner_id = ?", appointmentID, ownerID).
		Preload("Service").
		Preload("Service.Card").
		First(&ap).Error; err != nil {
		return nil, httperr.ErrNotFound("appointment")
	}
	return &ap, nil
}

func (r *SchedulingGormRepository) GetAppointmentByPublicCode(
	ctx context.Context,
	code string,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Where("public_code = ?", code).
		Preload("Service").
		Preload("Service.Card").
		Preload("Selections").
		First(&ap).Error; err != nil {
		return nil, httperr.ErrNotFound("appointment")
	}
	return &ap, nil
}

func (r *SchedulingGormRepository) UpdateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	return r.db.WithContext(ctx).
		Omit("Service", "Selections").
		Save(ap).Error
}

func (r *SchedulingGormRepository) ListAppointmentsForPeriod(
	ctx context.Context,
	ownerID uint,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {

	var apps []models.Appointment
	err := r.db.WithContext(ctx).
		Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where(
			"cards.owner_id = ? AND appointments.start_at_utc >= ? AND appointments.start_at_utc < ?",
			ownerID, start, end,
		).
		Preload("Service").
		Order("appointments.start_at_utc ASC").
		Find(&apps).Error
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// --------------------------------------------------
// Reschedule
// --------------------------------------------------

func (r *SchedulingGormRepository) CreateRescheduleSuperseding(
	ctx context.Context,
	req *models.RescheduleRequest,
) error {

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.RescheduleRequest{}).
			Where("appointment_id = ? AND status = ?", req.AppointmentID, domain.RescheduleRequested).
			Update("status", domain.RescheduleExpired).Error; err != nil {
			return err
		}
		return tx.Create(req).Error
	})
}

func (r *SchedulingGormRepository) GetRescheduleForOwner(
	ctx context.Context,
	requestID uint,
	ownerID uint,
) (*models.RescheduleRequest, error) {

	var req models.RescheduleRequest
	if err := r.db.WithContext(ctx).
		Joins("JOIN appointments ON appointments.id = reschedule_requests.appointment_id").
		Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("reschedule_requests.id = ? AND cards.owner_id = ?", requestID, ownerID).
		Preload("Appointment").
		Preload("Appointment.Service").
		Preload("Appointment.Service.Card").
		First(&req).Error; err != nil {
		return nil, httperr.ErrNotFound("reschedule_request")
	}
	return &req, nil
}

func (r *SchedulingGormRepository) ApproveReschedule(
	ctx context.Context,
	p domain.ApproveRescheduleParams,
) (string, *models.RescheduleRequest, error) {

	var prevStatus string
	var out *models.RescheduleRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.RescheduleRequest
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, p.RequestID).Error; err != nil {
			return httperr.ErrNotFound("reschedule_request")
		}

		var ap models.Appointment
		if err := tx.
			Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
			Joins("JOIN cards ON cards.id = scheduling_services.card_id").
			Where("appointments.id = ? AND cards.owner_id = ?", req.AppointmentID, p.OwnerID).
			Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "appointments"}}).
			First(&ap).Error; err != nil {
			return httperr.ErrNotFound("reschedule_request")
		}

		// a racing approve/reject already consumed this request
		if err := domain.CanResolve(req.Status); err != nil {
			return err
		}

		// the appointment may have been cancelled after the request was filed
		if err := domain.CanApplyReschedule(ap.Status); err != nil {
			return err
		}

		var svc models.SchedulingService
		if err := tx.First(&svc, ap.ServiceID).Error; err != nil {
			return httperr.ErrNotFound("service")
		}

		claimStart := p.NewStartAt.Add(-time.Duration(svc.BufferBefore) * time.Minute)
		claimEnd := p.NewEndAt.Add(time.Duration(svc.BufferAfter) * time.Minute)
		if err := assertClaimFree(tx, &svc, claimStart, claimEnd, ap.ID); err != nil {
			return err
		}

		prevStatus = ap.Status

		ap.StartAtUTC = p.NewStartAt
		ap.EndAtUTC = p.NewEndAt
		ap.Status = domain.StatusConfirmed
		if err := tx.Omit("Service", "Selections").Save(&ap).Error; err != nil {
			return err
		}

		req.Status = domain.RescheduleApproved
		req.NewStartAtUTC = &p.NewStartAt
		req.NewEndAtUTC = &p.NewEndAt
		req.OwnerMessage = p.Message
		req.ApprovedByID = &p.OwnerID
		req.ActionIP = p.ActionIP
		if err := tx.Omit("Appointment", "ApprovedBy").Save(&req).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.RescheduleRequest{}).
			Where("appointment_id = ? AND id <> ? AND status = ?", ap.ID, req.ID, domain.RescheduleRequested).
			Update("status", domain.RescheduleExpired).Error; err != nil {
			return err
		}

		req.Appointment = ap
		out = &req
		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return prevStatus, out, nil
}

func (r *SchedulingGormRepository) RejectReschedule(
	ctx context.Context,
	requestID uint,
	ownerID uint,
	message string,
	actionIP string,
) (*models.RescheduleRequest, error) {

	var out *models.RescheduleRequest

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var req models.RescheduleRequest
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&req, requestID).Error; err != nil {
			return httperr.ErrNotFound("reschedule_request")
		}

		var ap models.Appointment
		if err := tx.
			Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
			Joins("JOIN cards ON cards.id = scheduling_services.card_id").
			Where("appointments.id = ? AND cards.owner_id = ?", req.AppointmentID, ownerID).
			Preload("Service").
			First(&ap).Error; err != nil {
			return httperr.ErrNotFound("reschedule_request")
		}

		if err := domain.CanResolve(req.Status); err != nil {
			return err
		}

		req.Status = domain.RescheduleRejected
		req.OwnerMessage = message
		req.ActionIP = actionIP
		if err := tx.Omit("Appointment", "ApprovedBy").Save(&req).Error; err != nil {
			return err
		}

		req.Appointment = ap
		out = &req
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}

func (r *SchedulingGormRepository) ListReschedulesForOwner(
	ctx context.Context,
	ownerID uint,
	status string,
) ([]models.RescheduleRequest, error) {

	q := r.db.WithContext(ctx).
		Joins("JOIN appointments ON appointments.id = reschedule_requests.appointment_id").
		Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("cards.owner_id = ?", ownerID).
		Preload("Appointment").
		Preload("Appointment.Service")
	if status != "" {
		q = q.Where("reschedule_requests.status = ?", status)
	}

	var reqs []models.RescheduleRequest
	if err := q.Order("reschedule_requests.created_at DESC").Find(&reqs).Error; err != nil {
		return nil, err
	}
	return reqs, nil
}

func (r *SchedulingGormRepository) ExpireStaleReschedules(
	ctx context.Context,
	now time.Time,
) (int64, error) {

	res := r.db.WithContext(ctx).
		Model(&models.RescheduleRequest{}).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at <= ?", domain.RescheduleRequested, now).
		Update("status", domain.RescheduleExpired)
	return res.RowsAffected, res.Error
}

// Compile-time check
var _ domain.Repository = (*SchedulingGormRepository)(nil)
