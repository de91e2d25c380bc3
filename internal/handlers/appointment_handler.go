package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tapcard-io/scheduler/internal/dto"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/httpresp"
	"github.com/tapcard-io/scheduler/internal/middleware"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/timezone"
	ucScheduling "github.com/tapcard-io/scheduler/internal/usecase/scheduling"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	db *gorm.DB

	availabilityUC *ucScheduling.GetAvailability
	confirmUC      *ucScheduling.ConfirmAppointment
	denyUC         *ucScheduling.DenyAppointment
	cancelUC       *ucScheduling.CancelAppointment
	noShowUC       *ucScheduling.MarkNoShow
}

func NewAppointmentHandler(
	db *gorm.DB,
	availabilityUC *ucScheduling.GetAvailability,
	confirmUC *ucScheduling.ConfirmAppointment,
	denyUC *ucScheduling.DenyAppointment,
	cancelUC *ucScheduling.CancelAppointment,
	noShowUC *ucScheduling.MarkNoShow,
) *AppointmentHandler {
	return &AppointmentHandler{
		db:             db,
		availabilityUC: availabilityUC,
		confirmUC:      confirmUC,
		denyUC:         denyUC,
		cancelUC:       cancelUC,
		noShowUC:       noShowUC,
	}
}

// ======================================================
// SLOTS
// ======================================================

// Slots lets the owner preview the public slot grid of one of their
// services for a given date.
func (h *AppointmentHandler) Slots(c *gin.Context) {
	ownerID := middleware.UserID(c)

	serviceID, err := strconv.Atoi(c.Param("serviceId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid service id.")
		return
	}

	var svc models.SchedulingService
	if err := h.db.
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("scheduling_services.id = ? AND cards.owner_id = ?", serviceID, ownerID).
		First(&svc).Error; err != nil {
		httperr.NotFound(c, "service_not_found", "Service not found.")
		return
	}

	loc := timezone.Location(svc.Timezone)
	date, ok := parseDateParam(c.Query("date"), loc)
	if !ok {
		httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
		return
	}

	slots, err := h.availabilityUC.Execute(c.Request.Context(), &svc, date, 0)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, gin.H{
		"date":  date.Format(dateLayout),
		"slots": slots,
	})
}

// ======================================================
// LIST
// ======================================================

// List returns the owner's appointments between from and to (YYYY-MM-DD,
// inclusive, interpreted in UTC); to defaults to from.
func (h *AppointmentHandler) List(c *gin.Context) {
	ownerID := middleware.UserID(c)

	from, ok := parseDateParam(c.Query("from"), time.UTC)
	if !ok {
		httperr.BadRequest(c, "invalid_date", "from must be YYYY-MM-DD.")
		return
	}
	to := from
	if raw := c.Query("to"); raw != "" {
		to, ok = parseDateParam(raw, time.UTC)
		if !ok {
			httperr.BadRequest(c, "invalid_date", "to must be YYYY-MM-DD.")
			return
		}
	}
	end := to.Add(24*time.Hour - time.Second)

	var appointments []models.Appointment
	q := h.db.
		Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("cards.owner_id = ?", ownerID).
		Where("appointments.start_at_utc BETWEEN ? AND ?", from, end).
		Preload("Service").
		Order("appointments.start_at_utc ASC")

	if status := c.Query("status"); status != "" {
		q = q.Where("appointments.status = ?", status)
	}

	if err := q.Find(&appointments).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list appointments.")
		return
	}

	out := make([]dto.AppointmentListDTO, 0, len(appointments))
	for _, ap := range appointments {
		out = append(out, dto.AppointmentListDTO{
			ID:          ap.ID,
			PublicCode:  ap.PublicCode,
			ServiceName: ap.Service.Name,
			UserName:    ap.UserName,
			StartAtUTC:  ap.StartAtUTC,
			EndAtUTC:    ap.EndAtUTC,
			Timezone:    ap.Timezone,
			Status:      ap.Status,
			TotalCents:  ap.TotalPriceCents,
		})
	}

	httpresp.List(c, out)
}

func (h *AppointmentHandler) Detail(c *gin.Context) {
	ownerID := middleware.UserID(c)

	appointmentID, err := strconv.Atoi(c.Param("appointmentId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return
	}

	var ap models.Appointment
	if err := h.db.
		Joins("JOIN scheduling_services ON scheduling_services.id = appointments.service_id").
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("appointments.id = ? AND cards.owner_id = ?", appointmentID, ownerID).
		Preload("Service").
		Preload("Selections").
		First(&ap).Error; err != nil {
		httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
		return
	}

	httpresp.OK(c, ap)
}

// ======================================================
// TRANSITIONS
// ======================================================

func (h *AppointmentHandler) appointmentID(c *gin.Context) (uint, bool) {
	id, err := strconv.Atoi(c.Param("appointmentId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid appointment id.")
		return 0, false
	}
	return uint(id), true
}

func (h *AppointmentHandler) Confirm(c *gin.Context) {
	id, ok := h.appointmentID(c)
	if !ok {
		return
	}

	ap, err := h.confirmUC.Execute(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, ap)
}

func (h *AppointmentHandler) Deny(c *gin.Context) {
	id, ok := h.appointmentID(c)
	if !ok {
		return
	}

	ap, err := h.denyUC.Execute(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, ap)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := h.appointmentID(c)
	if !ok {
		return
	}

	ap, err := h.cancelUC.ByOwner(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, ap)
}

func (h *AppointmentHandler) NoShow(c *gin.Context) {
	id, ok := h.appointmentID(c)
	if !ok {
		return
	}

	ap, err := h.noShowUC.Execute(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httperr.FromError(c, err)
		return
	}
	httpresp.OK(c, ap)
}
