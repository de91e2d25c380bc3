package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/httpresp"
	"github.com/tapcard-io/scheduler/internal/models"
	"github.com/tapcard-io/scheduler/internal/timezone"
	ucScheduling "github.com/tapcard-io/scheduler/internal/usecase/scheduling"
	"github.com/tapcard-io/scheduler/internal/verify"
)

const viewerTokenHeader = "X-Viewer-Token"

////////////////////////////////////////////////////////
// HANDLER
////////////////////////////////////////////////////////

// ViewerHandler serves the customer-facing appointment page. Access is
// gated by the shareable public code plus the last 4 digits of the booking
// phone, upgraded to a short-lived bearer token on success.
type ViewerHandler struct {
	db *gorm.DB

	availabilityUC *ucScheduling.GetAvailability
	cancelUC       *ucScheduling.CancelAppointment
	rescheduleUC   *ucScheduling.RequestReschedule
	verifier       *verify.Verifier
}

func NewViewerHandler(
	db *gorm.DB,
	availabilityUC *ucScheduling.GetAvailability,
	cancelUC *ucScheduling.CancelAppointment,
	rescheduleUC *ucScheduling.RequestReschedule,
	verifier *verify.Verifier,
) *ViewerHandler {
	return &ViewerHandler{
		db:             db,
		availabilityUC: availabilityUC,
		cancelUC:       cancelUC,
		rescheduleUC:   rescheduleUC,
		verifier:       verifier,
	}
}

////////////////////////////////////////////////////////
// DTOs
////////////////////////////////////////////////////////

type ViewerVerifyRequest struct {
	Last4 string `json:"last4" binding:"required,len=4"`
}

type ViewerRescheduleRequest struct {
	StartAt string `json:"start_at" binding:"required"` // RFC 3339
	Reason  string `json:"reason"`
}

////////////////////////////////////////////////////////
// HELPERS
////////////////////////////////////////////////////////

func last4Digits(phone string) string {
	var digits []rune
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) < 4 {
		return ""
	}
	return string(digits[len(digits)-4:])
}

func (h *ViewerHandler) loadByCode(c *gin.Context) (*models.Appointment, bool) {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))

	var ap models.Appointment
	if err := h.db.
		Where("public_code = ?", code).
		Preload("Service").
		Preload("Service.Card").
		Preload("Selections").
		First(&ap).Error; err != nil {
		httperr.NotFound(c, "appointment_not_found", "Appointment not found.")
		return nil, false
	}

	return &ap, true
}

// authViewer resolves the viewer token and loads the appointment it grants,
// rejecting tokens issued for a different public code.
func (h *ViewerHandler) authViewer(c *gin.Context) (*models.Appointment, bool) {
	token := c.GetHeader(viewerTokenHeader)
	if token == "" {
		httperr.Unauthorized(c, "missing_viewer_token", "Verify the appointment first.")
		return nil, false
	}

	grantedCode, err := h.verifier.ViewerCodeForToken(c.Request.Context(), token)
	if err != nil {
		httperr.Internal(c, "internal_error", "Session check failed.")
		return nil, false
	}

	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if grantedCode == "" || grantedCode != code {
		httperr.Unauthorized(c, "invalid_viewer_token", "Verify the appointment first.")
		return nil, false
	}

	return h.loadByCode(c)
}

////////////////////////////////////////////////////////
// VERIFY
////////////////////////////////////////////////////////

func (h *ViewerHandler) Verify(c *gin.Context) {
	var req ViewerVerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))

	remaining, err := h.verifier.AllowLast4Attempt(c.Request.Context(), code, c.ClientIP())
	if err != nil {
		httperr.Internal(c, "internal_error", "Rate limit check failed.")
		return
	}
	if remaining <= 0 {
		httperr.Write(c, 429, "too_many_attempts", "Try again later.")
		return
	}

	ap, ok := h.loadByCode(c)
	if !ok {
		return
	}

	if last4Digits(ap.UserPhone) != req.Last4 {
		httperr.Unauthorized(c, "last4_mismatch", "Digits do not match.")
		return
	}

	token := uuid.NewString()
	if err := h.verifier.IssueViewerSession(c.Request.Context(), code, token); err != nil {
		httperr.Internal(c, "internal_error", "Could not open session.")
		return
	}

	httpresp.OK(c, gin.H{"viewer_token": token})
}

////////////////////////////////////////////////////////
// DETAIL
////////////////////////////////////////////////////////

func (h *ViewerHandler) Detail(c *gin.Context) {
	ap, ok := h.authViewer(c)
	if !ok {
		return
	}

	loc := timezone.Location(ap.Timezone)

	httpresp.OK(c, gin.H{
		"public_code":       ap.PublicCode,
		"service":           ap.Service.Name,
		"status":            ap.Status,
		"start_at_utc":      ap.StartAtUTC,
		"end_at_utc":        ap.EndAtUTC,
		"start_at_local":    ap.StartAtUTC.In(loc).Format("2006-01-02 15:04"),
		"end_at_local":      ap.EndAtUTC.In(loc).Format("2006-01-02 15:04"),
		"timezone":          ap.Timezone,
		"location_choice":   ap.LocationChoice,
		"total_price_cents": ap.TotalPriceCents,
		"selections":        ap.Selections,
		"cancel_min":        ap.Service.CancelMin,
		"resched_min":       ap.Service.ReschedMin,
	})
}

////////////////////////////////////////////////////////
// CANCEL
////////////////////////////////////////////////////////

func (h *ViewerHandler) Cancel(c *gin.Context) {
	ap, ok := h.authViewer(c)
	if !ok {
		return
	}

	updated, err := h.cancelUC.ByViewer(c.Request.Context(), ap)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, gin.H{
		"public_code": updated.PublicCode,
		"status":      updated.Status,
	})
}

////////////////////////////////////////////////////////
// RESCHEDULE
////////////////////////////////////////////////////////

// Slots lists the alternatives offered to the viewer; the appointment's own
// claim is excluded so its current slot stays offerable.
func (h *ViewerHandler) Slots(c *gin.Context) {
	ap, ok := h.authViewer(c)
	if !ok {
		return
	}

	svc := &ap.Service
	loc := timezone.Location(svc.Timezone)
	date, ok := parseDateParam(c.Query("date"), loc)
	if !ok {
		httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
		return
	}

	slots, err := h.availabilityUC.Execute(c.Request.Context(), svc, date, ap.ID)
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

func (h *ViewerHandler) RequestReschedule(c *gin.Context) {
	ap, ok := h.authViewer(c)
	if !ok {
		return
	}

	var req ViewerRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	startAt, ok := parseRFC3339(req.StartAt)
	if !ok {
		httperr.BadRequest(c, "invalid_start_at", "start_at must be RFC 3339.")
		return
	}

	created, err := h.rescheduleUC.Execute(c.Request.Context(), ucScheduling.RequestRescheduleInput{
		Appointment:  ap,
		Reason:       req.Reason,
		SlotStartUTC: startAt,
		RequestedBy:  domain.RequestedByCustomer,
		IP:           c.ClientIP(),
	})
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.Created(c, gin.H{
		"id":                     created.ID,
		"status":                 created.Status,
		"requested_start_at_utc": created.RequestedStartAtUTC,
		"requested_end_at_utc":   created.RequestedEndAtUTC,
		"expires_at":             created.ExpiresAt,
	})
}
