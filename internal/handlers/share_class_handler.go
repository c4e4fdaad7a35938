package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
	"captable/internal/services"
)

// ShareClassHandler handles share class requests.
type ShareClassHandler struct {
	shareClassService services.ShareClassServicer
	auditService      services.AuditServicer
}

// NewShareClassHandler creates a new ShareClassHandler.
func NewShareClassHandler(shareClassService services.ShareClassServicer, auditService services.AuditServicer) *ShareClassHandler {
	return &ShareClassHandler{shareClassService: shareClassService, auditService: auditService}
}

// CreateShareClassRequest represents the request payload for creating a share class.
// Decimal values are sent as strings to avoid float rounding in transit.
type CreateShareClassRequest struct {
	Name            string                `json:"name" binding:"required,min=1,max=100"`
	Type            models.ShareClassType `json:"type" binding:"omitempty,share_class_type"`
	TotalAuthorized string                `json:"total_authorized" binding:"required,decimal_string"`
	ParValue        string                `json:"par_value" binding:"omitempty,decimal_string"`
	VotesPerShare   string                `json:"votes_per_share" binding:"omitempty,decimal_string"`
}

// UpdateAuthorizedRequest represents the request payload for resizing the authorized pool.
type UpdateAuthorizedRequest struct {
	TotalAuthorized string `json:"total_authorized" binding:"required,decimal_string"`
}

// CreateShareClass handles creating a share class.
// @Summary     Create share class
// @Description Create a share class within a company
// @Tags        share-classes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Company ID"
// @Param       request body CreateShareClassRequest true "Share class details"
// @Success     201 {object} models.ShareClass "Share class created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/share-classes [post]
func (h *ShareClassHandler) CreateShareClass(c *gin.Context) {
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

	var req CreateShareClassRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	totalAuthorized, err := parseDecimal("total_authorized", req.TotalAuthorized)
	if err != nil {
		respondWithError(c, err)
		return
	}
	parValue := decimal.Zero
	if req.ParValue != "" {
		if parValue, err = parseDecimal("par_value", req.ParValue); err != nil {
			respondWithError(c, err)
			return
		}
	}
	votesPerShare := decimal.Zero
	if req.VotesPerShare != "" {
		if votesPerShare, err = parseDecimal("votes_per_share", req.VotesPerShare); err != nil {
			respondWithError(c, err)
			return
		}
	}

	shareClass, err := h.shareClassService.CreateShareClass(userID, companyID, req.Name, req.Type, totalAuthorized, parValue, votesPerShare)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_SHARE_CLASS", "share_class", shareClass.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "total_authorized": req.TotalAuthorized})

	c.JSON(http.StatusCreated, gin.H{"share_class": shareClass})
}

// GetShareClasses handles listing a company's share classes.
// @Summary     List share classes
// @Description Get a paginated list of a company's share classes
// @Tags        share-classes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Company ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.ShareClass] "Paginated share classes"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/share-classes [get]
func (h *ShareClassHandler) GetShareClasses(c *gin.Context) {
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

	result, err := h.shareClassService.GetCompanyShareClasses(userID, companyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetShareClass handles fetching a single share class.
// @Summary     Get share class
// @Description Get a company's share class by ID
// @Tags        share-classes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string true "Company ID"
// @Param       shareClassId path string true "Share class ID"
// @Success     200 {object} models.ShareClass "Share class"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Share class not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/share-classes/{shareClassId} [get]
func (h *ShareClassHandler) GetShareClass(c *gin.Context) {
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
	shareClassID, err := parsePathUUID(c, "shareClassId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	shareClass, err := h.shareClassService.GetShareClassByID(userID, companyID, shareClassID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"share_class": shareClass})
}

// UpdateAuthorizedShares handles resizing a share class's authorized pool.
// @Summary     Update authorized shares
// @Description Change a share class's total authorized shares; it can never shrink below what is issued
// @Tags        share-classes
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string                  true "Company ID"
// @Param       shareClassId path string                  true "Share class ID"
// @Param       request      body UpdateAuthorizedRequest true "New authorized total"
// @Success     200 {object} models.ShareClass "Updated share class"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Share class not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/share-classes/{shareClassId}/authorized [put]
func (h *ShareClassHandler) UpdateAuthorizedShares(c *gin.Context) {
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
	shareClassID, err := parsePathUUID(c, "shareClassId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateAuthorizedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	totalAuthorized, err := parseDecimal("total_authorized", req.TotalAuthorized)
	if err != nil {
		respondWithError(c, err)
		return
	}

	shareClass, err := h.shareClassService.UpdateAuthorizedShares(userID, companyID, shareClassID, totalAuthorized)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_AUTHORIZED_SHARES", "share_class", shareClass.ID, c.ClientIP(),
		map[string]interface{}{"total_authorized": req.TotalAuthorized})

	c.JSON(http.StatusOK, gin.H{"share_class": shareClass})
}
