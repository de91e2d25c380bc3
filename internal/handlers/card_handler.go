package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/httpresp"
	"github.com/tapcard-io/scheduler/internal/middleware"
	"github.com/tapcard-io/scheduler/internal/models"
)

type CardHandler struct {
	db *gorm.DB
}

func NewCardHandler(db *gorm.DB) *CardHandler {
	return &CardHandler{db: db}
}

type UpdateCardRequest struct {
	Title             *string `json:"title"`
	Status            *string `json:"status"`
	NotificationPhone *string `json:"notification_phone"`
}

func (h *CardHandler) List(c *gin.Context) {
	ownerID := middleware.UserID(c)

	var cards []models.Card
	if err := h.db.
		Where("owner_id = ?", ownerID).
		Order("id ASC").
		Find(&cards).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not list cards.")
		return
	}

	httpresp.List(c, cards)
}

func (h *CardHandler) Update(c *gin.Context) {
	ownerID := middleware.UserID(c)

	cardID, err := strconv.Atoi(c.Param("cardId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid card id.")
		return
	}

	var card models.Card
	if err := h.db.
		Where("id = ? AND owner_id = ?", cardID, ownerID).
		First(&card).Error; err != nil {
		httperr.NotFound(c, "card_not_found", "Card not found.")
		return
	}

	var req UpdateCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	if req.Title != nil {
		card.Title = strings.TrimSpace(*req.Title)
	}
	if req.Status != nil {
		switch *req.Status {
		case "draft", "published", "archived":
			card.Status = *req.Status
		default:
			httperr.BadRequest(c, "invalid_status", "Invalid card status.")
			return
		}
	}
	if req.NotificationPhone != nil {
		card.NotificationPhone = strings.TrimSpace(*req.NotificationPhone)
	}

	if err := h.db.Save(&card).Error; err != nil {
		httperr.Internal(c, "internal_error", "Could not update card.")
		return
	}

	httpresp.OK(c, card)
}
