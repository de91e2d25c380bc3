package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	domain "github.com/tapcard-io/scheduler/internal/domain/scheduling"
	"github.com/tapcard-io/scheduler/internal/httperr"
	"github.com/tapcard-io/scheduler/internal/httpresp"
	"github.com/tapcard-io/scheduler/internal/middleware"
	ucScheduling "github.com/tapcard-io/scheduler/internal/usecase/scheduling"
)

// ======================================================
// HANDLER
// ======================================================

type RescheduleHandler struct {
	repo      domain.Repository
	approveUC *ucScheduling.ApproveReschedule
	rejectUC  *ucScheduling.RejectReschedule
}

func NewRescheduleHandler(
	repo domain.Repository,
	approveUC *ucScheduling.ApproveReschedule,
	rejectUC *ucScheduling.RejectReschedule,
) *RescheduleHandler {
	return &RescheduleHandler{
		repo:      repo,
		approveUC: approveUC,
		rejectUC:  rejectUC,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type ApproveRescheduleRequest struct {
	// empty keeps the slot the customer asked for
	StartAt string `json:"start_at"`
	Message string `json:"message"`
}

type RejectRescheduleRequest struct {
	Message string `json:"message"`
}

// ======================================================
// HANDLERS
// ======================================================

func (h *RescheduleHandler) List(c *gin.Context) {
	ownerID := middleware.UserID(c)

	requests, err := h.repo.ListReschedulesForOwner(
		c.Request.Context(),
		ownerID,
		c.Query("status"),
	)
	if err != nil {
		httperr.Internal(c, "internal_error", "Could not list requests.")
		return
	}

	httpresp.List(c, requests)
}

func (h *RescheduleHandler) Approve(c *gin.Context) {
	ownerID := middleware.UserID(c)

	requestID, err := strconv.Atoi(c.Param("requestId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid request id.")
		return
	}

	var req ApproveRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	in := ucScheduling.ApproveRescheduleInput{
		RequestID: uint(requestID),
		OwnerID:   ownerID,
		Message:   req.Message,
		IP:        c.ClientIP(),
	}
	if req.StartAt != "" {
		startAt, ok := parseRFC3339(req.StartAt)
		if !ok {
			httperr.BadRequest(c, "invalid_start_at", "start_at must be RFC 3339.")
			return
		}
		in.SlotStartUTC = startAt
	}

	updated, err := h.approveUC.Execute(c.Request.Context(), in)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, updated)
}

func (h *RescheduleHandler) Reject(c *gin.Context) {
	ownerID := middleware.UserID(c)

	requestID, err := strconv.Atoi(c.Param("requestId"))
	if err != nil {
		httperr.BadRequest(c, "invalid_id", "Invalid request id.")
		return
	}

	var req RejectRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Invalid payload.")
		return
	}

	updated, err := h.rejectUC.Execute(
		c.Request.Context(),
		uint(requestID),
		ownerID,
		req.Message,
		c.ClientIP(),
	)
	if err != nil {
		httperr.FromError(c, err)
		return
	}

	httpresp.OK(c, updated)
}
