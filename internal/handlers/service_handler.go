package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

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

type ServiceHandler struct {
	db       *gorm.DB
	createUC *ucScheduling.CreateService
}

func NewServiceHandler(db *gorm.DB, createUC *ucScheduling.CreateService) *ServiceHandler {
	return &ServiceHandler{db: db, createUC: createUC}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateServiceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`

	Timezone        string `json:"timezone" binding:"required"`
	DurationMinutes int    `json:"duration_minutes" binding:"required"`

	Type              string `json:"type"`
	VideoLinkTemplate string `json:"video_link_template"`

	BufferBefore int `json:"buffer_before"`
	BufferAfter  int `json:"buffer_after"`
	LeadTimeMin  int `json:"lead_time_min"`
	CancelMin    int `json:"cancel_min"`
	ReschedMin   int `json:"resched_min"`

	PriceCents int `json:"price_cents"`
}

type UpdateServiceRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`

	Timezone        *string `json:"timezone"`
	DurationMinutes *int    `json:"duration_minutes"`

	Type              *string `json:"type"`
	VideoLinkTemplate *string `json:"video_link_template"`

	BufferBefore *int `json:"buffer_before"`
	BufferAfter  *int `json:"buffer_after"`
	LeadTimeMin  *int `json:"lead_time_min"`
	CancelMin    *int `json:"cancel_min"`
	ReschedMin   *int `json:"resched_min"`

	IsActive   *bool `json:"is_active"`
	PriceCents *int  `json:"price_cents"`
}

type AvailabilityRuleRequest struct {
	RuleType  string `json:"rule_type" binding:"required"`
	Weekday   *int   `json:"weekday"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Date      string `json:"date"`
}

type OptionChoiceRequest struct {
	Label                string `json:"label" binding:"required"`
	PriceDeltaCents      int    `json:"price_delta_cents"`
	ExtraDurationMinutes int    `json:"extra_duration_minutes"`
}

type CreateOptionRequest struct {
	Name       string                `json:"name" binding:"required"`
	Kind       string                `json:"kind" binding:"required"`
	MinChoices int                   `json:"min_choices"`
	MaxChoices *int                  `json:"max_choices"`
	Required   bool                  `json:"required"`
	Choices    []OptionChoiceRequest `json:"choices"`
}

// ======================================================
// HELPERS
// ======================================================

func (h *ServiceHandler) loadOwnedService(c *gin.Context) (*models.SchedulingService, bool) {
	ownerID := middleware.UserID(c)

	serviceID, err := strconv.Atoi(c.Param("serviceId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid service id.")
		return nil, false
	}

	var svc models.SchedulingService
	if err := h.db.
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("scheduling_services.id = ? AND cards.owner_id = ?", serviceID, ownerID).
		Preload("Card").
		First(&svc).Error; err != nil {
		httperr.NotFound(c, "service_not_found", "Service not found.")
		return nil, false
	}

	return &svc, true
}

func validHM(hm string) bool {
	_, err := time.Parse("15:04", hm)
	return err == nil
}

func validDate(d string) bool {
	_, err := time.Parse(dateLayout, d)
	return err == nil
}

// ======================================================
// SERVICES
// ======================================================

func (h *ServiceHandler) Create(c *gin.Context) {
	ownerID := middleware.UserID(c)

	cardID, err := strconv.Atoi(c.Param("cardId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid card id.")
		return
	}

	var req CreateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	svcType := req.Type
	if svcType == "" {
		svcType = "remote"
	}

	svc := &models.SchedulingService{
		Name:              req.Name,
		Description:       req.Description,
		Timezone:          req.Timezone,
		DurationMinutes:   req.DurationMinutes,
		Type:              svcType,
		VideoLinkTemplate: req.VideoLinkTemplate,
		BufferBefore:      req.BufferBefore,
		BufferAfter:       req.BufferAfter,
		LeadTimeMin:       req.LeadTimeMin,
		CancelMin:         req.CancelMin,
		ReschedMin:        req.ReschedMin,
		IsActive:          true,
		PriceCents:        req.PriceCents,
	}

	created, err := h.createUC.Execute(c.Request.Context(), ownerID, uint(cardID), svc)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.Created(c, created)
}

func (h *ServiceHandler) List(c *gin.Context) {
	ownerID := middleware.UserID(c)

	cardID, err := strconv.Atoi(c.Param("cardId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid card id.")
		return
	}

	var services []models.SchedulingService
	if err := h.db.
		Joins("JOIN cards ON cards.id = scheduling_services.card_id").
		Where("scheduling_services.card_id = ? AND cards.owner_id = ?", cardID, ownerID).
		Order("scheduling_services.id ASC").
		Find(&services).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list services.")
		return
	}

	httpresp.List(c, services)
}

func (h *ServiceHandler) Update(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	var req UpdateServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	if req.Name != nil {
		svc.Name = *req.Name
	}
	if req.Description != nil {
		svc.Description = *req.Description
	}
	if req.Timezone != nil {
		if !timezone.IsValid(*req.Timezone) {
			httperr.BadRequest(c, "invalid_timezone", "Unknown timezone.")
			return
		}
		svc.Timezone = *req.Timezone
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			httperr.BadRequest(c, "invalid_duration", "Duration must be positive.")
			return
		}
		svc.DurationMinutes = *req.DurationMinutes
	}
	if req.Type != nil {
		switch *req.Type {
		case "local", "remote", "onsite":
			svc.Type = *req.Type
		default:
			httperr.BadRequest(c, "invalid_service_type", "Invalid service type.")
			return
		}
	}
	if req.VideoLinkTemplate != nil {
		svc.VideoLinkTemplate = *req.VideoLinkTemplate
	}
	if req.BufferBefore != nil {
		svc.BufferBefore = *req.BufferBefore
	}
	if req.BufferAfter != nil {
		svc.BufferAfter = *req.BufferAfter
	}
	if req.LeadTimeMin != nil {
		svc.LeadTimeMin = *req.LeadTimeMin
	}
	if req.CancelMin != nil {
		svc.CancelMin = *req.CancelMin
	}
	if req.ReschedMin != nil {
		svc.ReschedMin = *req.ReschedMin
	}
	if req.IsActive != nil {
		svc.IsActive = *req.IsActive
	}
	if req.PriceCents != nil {
		svc.PriceCents = *req.PriceCents
	}

	if err := h.db.Save(svc).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not update service.")
		return
	}

	httpresp.OK(c, svc)
}

// Delete deactivates instead of removing; existing appointments keep their
// service row for history.
func (h *ServiceHandler) Delete(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	svc.IsActive = false
	if err := h.db.Save(svc).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not deactivate service.")
		return
	}

	httpresp.OK(c, gin.H{"deactivated": true})
}

// ======================================================
// AVAILABILITY RULES
// ======================================================

func (h *ServiceHandler) CreateAvailability(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	var req AvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	rule := models.ServiceAvailability{
		ServiceID: svc.ID,
		RuleType:  req.RuleType,
		Weekday:   req.Weekday,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Date:      req.Date,
	}

	switch req.RuleType {
	case models.RuleWeekly:
		if req.Weekday == nil || *req.Weekday < 0 || *req.Weekday > 6 {
			httperr.BadRequest(c, "invalid_weekday", "Weekday must be 0 (Monday) to 6 (Sunday).")
			return
		}
		if !validHM(req.StartTime) || !validHM(req.EndTime) || req.StartTime >= req.EndTime {
			httperr.BadRequest(c, "invalid_time_range", "Start time must precede end time.")
			return
		}
		rule.Date = ""

	case models.RuleDateOverride:
		if !validDate(req.Date) {
			httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
			return
		}
		if !validHM(req.StartTime) || !validHM(req.EndTime) || req.StartTime >= req.EndTime {
			httperr.BadRequest(c, "invalid_time_range", "Start time must precede end time.")
			return
		}
		rule.Weekday = nil

	case models.RuleHoliday:
		if !validDate(req.Date) {
			httperr.BadRequest(c, "invalid_date", "Date must be YYYY-MM-DD.")
			return
		}
		rule.Weekday = nil
		rule.StartTime = ""
		rule.EndTime = ""

	default:
		httperr.BadRequest(c, "invalid_rule_type", "Unknown rule type.")
		return
	}

	if err := h.db.Create(&rule).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not create rule.")
		return
	}

	httpresp.Created(c, rule)
}

func (h *ServiceHandler) ListAvailability(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	var rules []models.ServiceAvailability
	if err := h.db.
		Where("service_id = ?", svc.ID).
		Order("id ASC").
		Find(&rules).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list rules.")
		return
	}

	httpresp.List(c, rules)
}

func (h *ServiceHandler) DeleteAvailability(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	ruleID, err := strconv.Atoi(c.Param("ruleId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid rule id.")
		return
	}

	res := h.db.
		Where("id = ? AND service_id = ?", ruleID, svc.ID).
		Delete(&models.ServiceAvailability{})
	if res.Error != nil {
		httperr.Internal(c, "internal_error", "Could not delete rule.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "rule_not_found", "Rule not found.")
		return
	}

	httpresp.OK(c, gin.H{"deleted": true})
}

// ======================================================
// OPTIONS
// ======================================================

func (h *ServiceHandler) CreateOption(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	var req CreateOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	switch req.Kind {
	case models.OptionSingle, models.OptionMulti:
		if len(req.Choices) == 0 {
			httperr.BadRequest(c, "choices_required", "Single and multi options need choices.")
			return
		}
	case models.OptionText:
		if len(req.Choices) > 0 {
			httperr.BadRequest(c, "choices_not_allowed", "Text options carry no choices.")
			return
		}
	default:
		httperr.BadRequest(c, "invalid_option_kind", "Unknown option kind.")
		return
	}

	if req.MaxChoices != nil && *req.MaxChoices < req.MinChoices {
		httperr.BadRequest(c, "invalid_choice_bounds", "max_choices below min_choices.")
		return
	}

	opt := models.ServiceOption{
		ServiceID:  svc.ID,
		Name:       req.Name,
		Kind:       req.Kind,
		MinChoices: req.MinChoices,
		MaxChoices: req.MaxChoices,
		Required:   req.Required,
		IsActive:   true,
	}
	for _, ch := range req.Choices {
		opt.Choices = append(opt.Choices, models.OptionChoice{
			Label:                ch.Label,
			PriceDeltaCents:      ch.PriceDeltaCents,
			ExtraDurationMinutes: ch.ExtraDurationMinutes,
			IsActive:             true,
		})
	}

	if err := h.db.Create(&opt).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not create option.")
		return
	}

	httpresp.Created(c, opt)
}

func (h *ServiceHandler) ListOptions(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	var options []models.ServiceOption
	if err := h.db.
		Where("service_id = ?", svc.ID).
		Preload("Choices").
		Order("id ASC").
		Find(&options).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list options.")
		return
	}

	httpresp.List(c, options)
}

// DeleteOption deactivates the group; selection snapshots on past
// appointments stay intact either way.
func (h *ServiceHandler) DeleteOption(c *gin.Context) {
	svc, ok := h.loadOwnedService(c)
	if !ok {
		return
	}

	optionID, err := strconv.Atoi(c.Param("optionId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid option id.")
		return
	}

	res := h.db.Model(&models.ServiceOption{}).
		Where("id = ? AND service_id = ?", optionID, svc.ID).
		Update("is_active", false)
	if res.Error != nil {
		httperr.Internal(c, "internal_error", "Could not deactivate option.")
		return
	}
	if res.RowsAffected == 0 {
		httperr.NotFound(c, "option_not_found", "Option not found.")
		return
	}

	httpresp.OK(c, gin.H{"deactivated": true})
}
