package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "captable/internal/errors"
	"captable/internal/pagination"
	"captable/internal/services"
)

// FundingRoundHandler handles funding round requests.
type FundingRoundHandler struct {
	fundingRoundService services.FundingRoundServicer
	auditService        services.AuditServicer
}

// NewFundingRoundHandler creates a new FundingRoundHandler.
func NewFundingRoundHandler(fundingRoundService services.FundingRoundServicer, auditService services.AuditServicer) *FundingRoundHandler {
	return &FundingRoundHandler{fundingRoundService: fundingRoundService, auditService: auditService}
}

// CreateFundingRoundRequest represents the request payload for creating a funding round.
type CreateFundingRoundRequest struct {
	Name              string `json:"name" binding:"required,min=1,max=100"`
	TargetAmount      string `json:"target_amount" binding:"required,decimal_string"`
	PreMoneyValuation string `json:"pre_money_valuation" binding:"required,decimal_string"`
}

// CreateFundingRound handles opening a funding round.
// @Summary     Create funding round
// @Description Open a new priced funding round for a company
// @Tags        funding-rounds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                    true "Company ID"
// @Param       request body CreateFundingRoundRequest true "Round details"
// @Success     201 {object} models.FundingRound "Funding round created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/funding-rounds [post]
func (h *FundingRoundHandler) CreateFundingRound(c *gin.Context) {
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

	var req CreateFundingRoundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	targetAmount, err := parseDecimal("target_amount", req.TargetAmount)
	if err != nil {
		respondWithError(c, err)
		return
	}
	preMoney, err := parseDecimal("pre_money_valuation", req.PreMoneyValuation)
	if err != nil {
		respondWithError(c, err)
		return
	}

	round, err := h.fundingRoundService.CreateFundingRound(userID, companyID, req.Name, targetAmount, preMoney)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_FUNDING_ROUND", "funding_round", round.ID, c.ClientIP(),
		map[string]interface{}{"name": req.Name, "target_amount": req.TargetAmount})

	c.JSON(http.StatusCreated, gin.H{"funding_round": round})
}

// GetFundingRounds handles listing a company's funding rounds.
// @Summary     List funding rounds
// @Description Get a paginated list of a company's funding rounds
// @Tags        funding-rounds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id        path  string true  "Company ID"
// @Param       page      query int    false "Page number (default 1)"
// @Param       page_size query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.FundingRound] "Paginated funding rounds"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/funding-rounds [get]
func (h *FundingRoundHandler) GetFundingRounds(c *gin.Context) {
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

	result, err := h.fundingRoundService.GetCompanyFundingRounds(userID, companyID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetFundingRound handles fetching a single funding round.
// @Summary     Get funding round
// @Description Get a company's funding round by ID
// @Tags        funding-rounds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string true "Company ID"
// @Param       roundId path string true "Funding round ID"
// @Success     200 {object} models.FundingRound "Funding round"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Funding round not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/funding-rounds/{roundId} [get]
func (h *FundingRoundHandler) GetFundingRound(c *gin.Context) {
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
	roundID, err := parsePathUUID(c, "roundId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	round, err := h.fundingRoundService.GetFundingRoundByID(userID, companyID, roundID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"funding_round": round})
}

// CloseFundingRound handles closing an open funding round.
// @Summary     Close funding round
// @Description Close an open funding round
// @Tags        funding-rounds
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string true "Company ID"
// @Param       roundId path string true "Funding round ID"
// @Success     200 {object} models.FundingRound "Closed funding round"
// @Failure     400 {object} ErrorResponse "Round is not open"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Funding round not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/funding-rounds/{roundId}/close [post]
func (h *FundingRoundHandler) CloseFundingRound(c *gin.Context) {
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
	roundID, err := parsePathUUID(c, "roundId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	round, err := h.fundingRoundService.CloseFundingRound(userID, companyID, roundID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CLOSE_FUNDING_ROUND", "funding_round", round.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"funding_round": round})
}
