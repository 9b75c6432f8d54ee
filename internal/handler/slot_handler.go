package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/scolaplan/timetable-api/internal/models"
	"github.com/scolaplan/timetable-api/internal/service"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
	"github.com/scolaplan/timetable-api/pkg/response"
)

// SlotHandler manages slot endpoints.
type SlotHandler struct {
	service *service.SlotService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(svc *service.SlotService) *SlotHandler {
	return &SlotHandler{service: svc}
}

// List godoc
// @Summary List slots for a school
// @Tags Slots
// @Produce json
// @Param schoolId path string true "School ID"
// @Param day query string false "Filter by day"
// @Param teacherId query string false "Filter by teacher"
// @Param classGroup query string false "Filter by class group"
// @Param kind query string false "Filter by slot kind"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	var filter models.SlotFilter
	filter.SchoolID = c.Param("schoolId")
	filter.Day = strings.ToUpper(c.Query("day"))
	filter.TeacherID = c.Query("teacherId")
	filter.ClassGroup = c.Query("classGroup")
	filter.Kind = strings.ToUpper(c.Query("kind"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	slots, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, pagination)
}

// Get godoc
// @Summary Load one slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [get]
func (h *SlotHandler) Get(c *gin.Context) {
	slot, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Create godoc
// @Summary Create slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body service.CreateSlotRequest true "Slot payload"
// @Success 201 {object} response.Envelope
// @Router /schools/{schoolId}/slots [post]
func (h *SlotHandler) Create(c *gin.Context) {
	var req service.CreateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.Create(c.Request.Context(), c.Param("schoolId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, slot)
}

// Update godoc
// @Summary Update slot
// @Tags Slots
// @Accept json
// @Produce json
// @Param id path string true "Slot ID"
// @Param payload body service.UpdateSlotRequest true "Slot payload"
// @Success 200 {object} response.Envelope
// @Router /slots/{id} [put]
func (h *SlotHandler) Update(c *gin.Context) {
	var req service.UpdateSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	slot, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slot, nil)
}

// Delete godoc
// @Summary Delete slot
// @Tags Slots
// @Produce json
// @Param id path string true "Slot ID"
// @Success 204
// @Router /slots/{id} [delete]
func (h *SlotHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
