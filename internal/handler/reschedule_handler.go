package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaplan/timetable-api/internal/service"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
	"github.com/scolaplan/timetable-api/pkg/response"
)

// BeginRescheduleRequest opens a drag session for a slot.
type BeginRescheduleRequest struct {
	SlotID string `json:"slot_id" binding:"required"`
}

// PreviewRescheduleRequest hovers a candidate target position.
type PreviewRescheduleRequest struct {
	Day       string `json:"day" binding:"required"`
	StartTime string `json:"start_time" binding:"required"`
}

// RescheduleHandler drives the drag-and-drop relocation protocol.
type RescheduleHandler struct {
	service *service.RescheduleService
}

// NewRescheduleHandler constructs handler.
func NewRescheduleHandler(svc *service.RescheduleService) *RescheduleHandler {
	return &RescheduleHandler{service: svc}
}

// Begin godoc
// @Summary Pick up a slot for relocation
// @Tags Reschedule
// @Accept json
// @Produce json
// @Param payload body BeginRescheduleRequest true "Slot to drag"
// @Success 201 {object} response.Envelope
// @Router /reschedules [post]
func (h *RescheduleHandler) Begin(c *gin.Context) {
	var req BeginRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.Begin(c.Request.Context(), req.SlotID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Preview godoc
// @Summary Preview a candidate target with live conflict feedback
// @Tags Reschedule
// @Accept json
// @Produce json
// @Param sessionId path string true "Drag session ID"
// @Param payload body PreviewRescheduleRequest true "Hovered target"
// @Success 200 {object} response.Envelope
// @Router /reschedules/{sessionId}/preview [post]
func (h *RescheduleHandler) Preview(c *gin.Context) {
	var req PreviewRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	session, err := h.service.Preview(c.Request.Context(), c.Param("sessionId"), req.Day, req.StartTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// Drop godoc
// @Summary Drop the slot at the previewed position
// @Description Applies immediately when conflict-free; otherwise the session awaits confirmation.
// @Tags Reschedule
// @Produce json
// @Param sessionId path string true "Drag session ID"
// @Success 200 {object} response.Envelope
// @Router /reschedules/{sessionId}/drop [post]
func (h *RescheduleHandler) Drop(c *gin.Context) {
	session, moved, err := h.service.Drop(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if session != nil {
		response.JSON(c, http.StatusOK, session, nil)
		return
	}
	response.JSON(c, http.StatusOK, moved, nil)
}

// Confirm godoc
// @Summary Apply a conflicting relocation after explicit override
// @Tags Reschedule
// @Produce json
// @Param sessionId path string true "Drag session ID"
// @Success 200 {object} response.Envelope
// @Router /reschedules/{sessionId}/confirm [post]
func (h *RescheduleHandler) Confirm(c *gin.Context) {
	moved, err := h.service.Confirm(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, moved, nil)
}

// Cancel godoc
// @Summary Discard a drag session without mutating the slot
// @Tags Reschedule
// @Produce json
// @Param sessionId path string true "Drag session ID"
// @Success 204
// @Router /reschedules/{sessionId} [delete]
func (h *RescheduleHandler) Cancel(c *gin.Context) {
	if err := h.service.Cancel(c.Request.Context(), c.Param("sessionId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Get godoc
// @Summary Current drag session state
// @Tags Reschedule
// @Produce json
// @Param sessionId path string true "Drag session ID"
// @Success 200 {object} response.Envelope
// @Router /reschedules/{sessionId} [get]
func (h *RescheduleHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}
