package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "captable/internal/errors"
	"captable/internal/pagination"
	"captable/internal/services"
)

// CapTableHandler handles cap table read-model requests.
type CapTableHandler struct {
	capTableService services.CapTableServicer
}

// NewCapTableHandler creates a new CapTableHandler.
func NewCapTableHandler(capTableService services.CapTableServicer) *CapTableHandler {
	return &CapTableHandler{capTableService: capTableService}
}

// GetCapTable handles fetching the aggregated cap table.
// @Summary     Get cap table
// @Description Get the company's current cap table with ownership and voting percentages
// @Tags        cap-table
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Company ID"
// @Success     200 {object} services.CapTableView "Cap table"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/cap-table [get]
func (h *CapTableHandler) GetCapTable(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	companyID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.capTableService.GetCapTable(userID, companyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cap_table": view})
}

// Recalculate handles forcing a recomputation of ownership percentages.
// @Summary     Recalculate cap table
// @Description Recompute ownership and voting percentages from current share counts
// @Tags        cap-table
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Company ID"
// @Success     200 {object} services.CapTableView "Recalculated cap table"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/cap-table/recalculate [post]
func (h *CapTableHandler) Recalculate(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	companyID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	view, err := h.capTableService.Recalculate(userID, companyID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"cap_table": view})
}

// GetSnapshots handles listing historical cap table snapshots.
// @Summary     List cap table snapshots
// @Description Get a paginated history of cap table snapshots, newest first
// @Tags        cap-table
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Company ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.CapTableSnapshot] "Paginated snapshots"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/cap-table/snapshots [get]
func (h *CapTableHandler) GetSnapshots(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	companyID, err := parsePathUUID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.capTableService.GetSnapshots(userID, companyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
