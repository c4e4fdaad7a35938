package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
	"captable/internal/services"
)

// ShareholderHandler handles shareholder-related requests.
type ShareholderHandler struct {
	shareholderService services.ShareholderServicer
	auditService       services.AuditServicer
}

// NewShareholderHandler creates a new ShareholderHandler.
func NewShareholderHandler(shareholderService services.ShareholderServicer, auditService services.AuditServicer) *ShareholderHandler {
	return &ShareholderHandler{shareholderService: shareholderService, auditService: auditService}
}

// CreateShareholderRequest represents the request payload for creating a shareholder.
type CreateShareholderRequest struct {
	Name  string                 `json:"name" binding:"required,min=1,max=200"`
	Email string                 `json:"email" binding:"omitempty,email,max=255"`
	Type  models.ShareholderType `json:"type" binding:"omitempty,shareholder_type"`
}

// UpdateShareholderRequest represents the request payload for updating a shareholder.
type UpdateShareholderRequest struct {
	Name  string `json:"name" binding:"omitempty,min=1,max=200"`
	Email string `json:"email" binding:"omitempty,email,max=255"`
}

// CreateShareholder handles adding a shareholder to a company.
// @Summary     Create shareholder
// @Description Add a shareholder to a company
// @Tags        shareholders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                   true "Company ID"
// @Param       request body CreateShareholderRequest true "Shareholder details"
// @Success     201 {object} models.Shareholder "Shareholder created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     422 {object} ErrorResponse "Company not active"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/shareholders [post]
func (h *ShareholderHandler) CreateShareholder(c *gin.Context) {
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

	var req CreateShareholderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	shareholder, err := h.shareholderService.CreateShareholder(userID, companyID, req.Name, req.Email, req.Type)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_SHAREHOLDER", "shareholder", shareholder.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "type": string(shareholder.Type)})

	c.JSON(http.StatusCreated, gin.H{"shareholder": shareholder})
}

// GetShareholders handles listing a company's shareholders.
// @Summary     List shareholders
// @Description Get a paginated list of a company's shareholders
// @Tags        shareholders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Company ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.Shareholder] "Paginated shareholders"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/shareholders [get]
func (h *ShareholderHandler) GetShareholders(c *gin.Context) {
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

	result, err := h.shareholderService.GetCompanyShareholders(userID, companyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetShareholder handles fetching a single shareholder.
// @Summary     Get shareholder
// @Description Get a company's shareholder by ID
// @Tags        shareholders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id            path string true "Company ID"
// @Param       shareholderId path string true "Shareholder ID"
// @Success     200 {object} models.Shareholder "Shareholder"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Shareholder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/shareholders/{shareholderId} [get]
func (h *ShareholderHandler) GetShareholder(c *gin.Context) {
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
	shareholderID, err := parsePathUUID(c, "shareholderId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	shareholder, err := h.shareholderService.GetShareholderByID(userID, companyID, shareholderID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"shareholder": shareholder})
}

// UpdateShareholder handles updating a shareholder.
// @Summary     Update shareholder
// @Description Update a shareholder's name or email
// @Tags        shareholders
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id            path string                   true "Company ID"
// @Param       shareholderId path string                   true "Shareholder ID"
// @Param       request       body UpdateShareholderRequest true "Fields to update"
// @Success     200 {object} models.Shareholder "Updated shareholder"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Shareholder not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/shareholders/{shareholderId} [put]
func (h *ShareholderHandler) UpdateShareholder(c *gin.Context) {
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
	shareholderID, err := parsePathUUID(c, "shareholderId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateShareholderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	shareholder, err := h.shareholderService.UpdateShareholder(userID, companyID, shareholderID, req.Name, req.Email)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_SHAREHOLDER", "shareholder", shareholder.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"shareholder": shareholder})
}
