package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/scolaplan/timetable-api/internal/models"
	"github.com/scolaplan/timetable-api/internal/service"
	appErrors "github.com/scolaplan/timetable-api/pkg/errors"
	"github.com/scolaplan/timetable-api/pkg/response"
)

// ReconcileImportRequest carries raw rows extracted by an external parser.
type ReconcileImportRequest struct {
	Rows []models.ImportRow `json:"rows" binding:"required"`
}

// CommitImportRequest submits reconciled candidates for creation.
type CommitImportRequest struct {
	Candidates []models.ImportCandidate `json:"candidates" binding:"required"`
}

// ImportHandler manages bulk import endpoints.
type ImportHandler struct {
	service *service.ImportService
}

// NewImportHandler constructs handler.
func NewImportHandler(svc *service.ImportService) *ImportHandler {
	return &ImportHandler{service: svc}
}

// Reconcile godoc
// @Summary Normalize raw spreadsheet rows into slot candidates
// @Tags Import
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body ReconcileImportRequest true "Raw rows"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/imports/reconcile [post]
func (h *ImportHandler) Reconcile(c *gin.Context) {
	var req ReconcileImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	candidates, err := h.service.Reconcile(c.Request.Context(), c.Param("schoolId"), req.Rows)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, candidates, nil)
}

// Commit godoc
// @Summary Create slots from candidates, counting per-row outcomes
// @Tags Import
// @Accept json
// @Produce json
// @Param schoolId path string true "School ID"
// @Param payload body CommitImportRequest true "Candidates"
// @Success 200 {object} response.Envelope
// @Router /schools/{schoolId}/imports/commit [post]
func (h *ImportHandler) Commit(c *gin.Context) {
	var req CommitImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	report, err := h.service.Commit(c.Request.Context(), c.Param("schoolId"), req.Candidates)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
