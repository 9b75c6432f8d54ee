package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaplan/timetable-api/internal/service"
	"github.com/scolaplan/timetable-api/pkg/response"
)

// LayoutHandler exposes the day layout read path.
type LayoutHandler struct {
	service *service.LayoutService
}

// NewLayoutHandler constructs handler.
func NewLayoutHandler(svc *service.LayoutService) *LayoutHandler {
	return &LayoutHandler{service: svc}
}

// DayLayout godoc
// @Summary Column layout for one school day
// @Description Maps each slot id to its column index and the cluster's column count.
// @Tags Layout
// @Produce json
// @Param schoolId path string true "School ID"
// @Param day path string true "Weekday name"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/days/{day}/layout [get]
func (h *LayoutHandler) DayLayout(c *gin.Context) {
	layout, err := h.service.DayLayout(c.Request.Context(), c.Param("schoolId"), c.Param("day"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, layout, nil)
}
