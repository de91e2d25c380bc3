package handlers

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/httpresp"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/notify"
	"github.com/tapcard-io/scheduler/internal/timezone"
	ucScheduling "github.com/tapcard-io/scheduler/internal/usecase/scheduling"
	"github.com/tapcard-io/scheduler/internal/verify"
)

// scope under which booking phone verifications are tracked
const bookingVerifyScope = "book"

////////////////////////////////////////////////////////
// HANDLER
////////////////////////////////////////////////////////

type PublicHandler struct {
	db *gorm.DB

	availabilityUC *ucScheduling.GetAvailability
	bookingUC      *ucScheduling.CreateBooking
	verifier       *verify.Verifier
	notifier       notify.Enqueuer
}

func NewPublicHandler(
	db *gorm.DB,
	availabilityUC *ucScheduling.GetAvailability,
	bookingUC *ucScheduling.CreateBooking,
	verifier *verify.Verifier,
	notifier notify.Enqueuer,
) *PublicHandler {
	return &PublicHandler{
		db:             db,
		availabilityUC: availabilityUC,
		bookingUC:      bookingUC,
		verifier:       verifier,
		notifier:       notifier,
	}
}

////////////////////////////////////////////////////////
// DTOs
////////////////////////////////////////////////////////

type SendCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type VerifyCodeRequest struct {
	Phone string `json:"phone" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

type PublicBookingRequest struct {
	UserName  string `json:"user_name" binding:"required"`
	UserPhone string `json:"user_phone" binding:"required"`
	UserEmail string `json:"user_email"`

	StartAt    string                   `json:"start_at" binding:"required"` // RFC 3339
	Selections []domain.OptionSelection `json:"selections"`

	Timezone       string `json:"timezone"`
	LocationChoice string `json:"location_choice"`
}

////////////////////////////////////////////////////////
// HELPERS
////////////////////////////////////////////////////////

func (h *PublicHandler) loadPublicService(c *gin.Context) (*models.SchedulingService, bool) {
	nickname := strings.ToLower(c.Param("nickname"))

	serviceID, err := strconv.Atoi(c.Param("serviceId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid service id.")
		return nil, false
	}

	var svc models.SchedulingService
	if err := h.db.
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("scheduling_services.id = ? AND scheduling_services.is_active = true", serviceID).
		Where("cards.nickname = ? AND cards.status = 'published'", nickname).
		Preload("Card").
		First(&svc).Error; err != nil {
		httperr.NotFound(c, "service_not_found", "Service not found.")
		return nil, false
	}

	return &svc, true
}

////////////////////////////////////////////////////////
// CATALOG
////////////////////////////////////////////////////////

func (h *PublicHandler) ListServices(c *gin.Context) {
	nickname := strings.ToLower(c.Param("nickname"))

	var card models.Card
	if err := h.db.
		Where("nickname = ? AND status = 'published'", nickname).
		First(&card).Error; err != nil {
		httperr.NotFound(c, "card_not_found", "Card not found.")
		return
	}

	var services []models.SchedulingService
	if err := h.db.
		Where("card_id = ? AND is_active = true", card.ID).
		Order("id ASC").
		Find(&services).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list services.")
		return
	}

	httpresp.OK(c, gin.H{
		"card": gin.H{
			"title":    card.Title,
			"nickname": card.Nickname,
		},
		"services": services,
	})
}

func (h *PublicHandler) ListOptions(c *gin.Context) {
	svc, ok := h.loadPublicService(c)
	if !ok {
		return
	}

	var options []models.ServiceOption
	if err := h.db.
		Where("service_id = ? AND is_active = true", svc.ID).
		Preload("Choices", "is_active = true").
		Order("id ASC").
		Find(&options).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list options.")
		return
	}

	httpresp.List(c, options)
}

////////////////////////////////////////////////////////
// SLOTS
////////////////////////////////////////////////////////

func (h *PublicHandler) Slots(c *gin.Context) {
	svc, ok := h.loadPublicService(c)
	if !ok {
		return
	}

	loc := timezone.Location(svc.Timezone)
	date, ok := parseDateParam(c.Query("date"), loc)
	if !ok {
		httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
		return
	}

	slots, err := h.availabilityUC.Execute(c.Request.Context(), svc, date, 0)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, gin.H{
		"date":     date.Format(dateLayout),
		"timezone": svc.Timezone,
		"slots":    slots,
	})
}

////////////////////////////////////////////////////////
// PHONE VERIFICATION
////////////////////////////////////////////////////////

func (h *PublicHandler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	phone := strings.TrimSpace(req.Phone)

	code, err := h.verifier.StartPhoneVerification(c.Request.Context(), bookingVerifyScope, phone)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	// key on the resend window so a retried request within the cooldown
	// cannot queue a second SMS
	window := time.Now().Unix() / int64(verify.ResendCooldown/time.Second)
	h.notifier.Enqueue(notify.Request{
		Type:           notify.TypeSMS,
		To:             phone,
		TemplateCode:   "phone_verification_code",
		Payload:        map[string]any{"code": code},
		IdempotencyKey: fmt.Sprintf("verify:%s:%d", phone, window),
	})

	httpresp.OK(c, gin.H{"sent": true})
}

func (h *PublicHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	err := h.verifier.CheckPhoneCode(
		c.Request.Context(),
		bookingVerifyScope,
		strings.TrimSpace(req.Phone),
		strings.TrimSpace(req.Code),
	)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, gin.H{"verified": true})
}

////////////////////////////////////////////////////////
// BOOKING
////////////////////////////////////////////////////////

func (h *PublicHandler) CreateBooking(c *gin.Context) {
	svc, ok := h.loadPublicService(c)
	if !ok {
		return
	}

	var req PublicBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	phone := strings.TrimSpace(req.UserPhone)

	verified, err := h.verifier.IsPhoneVerified(c.Request.Context(), bookingVerifyScope, phone)
	if err != nil {
		httperr.Internal(c, "internal_error", "Verification check failed.")
		return
	}
	if !verified {
		httperr.Forbidden(c, "phone_not_verified", "Verify the phone before booking.")
		return
	}

	startAt, ok := parseRFC3339(req.StartAt)
	if !ok {
		httperr.BadRequest(c, "invalid_start_at", "start_at must be RFC 3339.")
		return
	}

	ap, err := h.bookingUC.Execute(c.Request.Context(), ucScheduling.CreateBookingInput{
		Service:        svc,
		StartAtUTC:     startAt,
		Selections:     req.Selections,
		UserName:       strings.TrimSpace(req.UserName),
		UserEmail:      strings.ToLower(strings.TrimSpace(req.UserEmail)),
		UserPhone:      phone,
		Timezone:       req.Timezone,
		LocationChoice: req.LocationChoice,
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	// one verification backs one booking
	_ = h.verifier.ConsumePhoneVerification(c.Request.Context(), bookingVerifyScope, phone)

	httpresp.Created(c, gin.H{
		"public_code":       ap.PublicCode,
		"status":            ap.Status,
		"start_at_utc":      ap.StartAtUTC,
		"end_at_utc":        ap.EndAtUTC,
		"timezone":          ap.Timezone,
		"total_price_cents": ap.TotalPriceCents,
	})
}
