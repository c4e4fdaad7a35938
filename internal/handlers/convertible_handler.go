package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
	"captable/internal/services"
	"captable/internal/uuid"
)

// ConvertibleHandler handles convertible instrument requests.
type ConvertibleHandler struct {
	convertibleService services.ConvertibleServicer
	auditService       services.AuditServicer
}

// NewConvertibleHandler creates a new ConvertibleHandler.
func NewConvertibleHandler(convertibleService services.ConvertibleServicer, auditService services.AuditServicer) *ConvertibleHandler {
	return &ConvertibleHandler{convertibleService: convertibleService, auditService: auditService}
}

// CreateInstrumentRequest represents the request payload for issuing a
// convertible instrument. Money and rates are decimal strings.
type CreateInstrumentRequest struct {
	ShareholderID               string                   `json:"shareholder_id" binding:"required"`
	Principal                   string                   `json:"principal" binding:"required,decimal_string"`
	InterestRate                string                   `json:"interest_rate" binding:"required,decimal_string"`
	InterestType                models.InterestType      `json:"interest_type" binding:"omitempty,interest_type"`
	IssueDate                   time.Time                `json:"issue_date" binding:"required"`
	MaturityDate                time.Time                `json:"maturity_date" binding:"required"`
	DiscountRate                *string                  `json:"discount_rate" binding:"omitempty,decimal_string"`
	ValuationCap                *string                  `json:"valuation_cap" binding:"omitempty,decimal_string"`
	QualifiedFinancingThreshold *string                  `json:"qualified_financing_threshold" binding:"omitempty,decimal_string"`
	ConversionTrigger           models.ConversionTrigger `json:"conversion_trigger" binding:"omitempty,conversion_trigger"`
	TargetShareClassID          *string                  `json:"target_share_class_id"`
	AutoConvert                 bool                     `json:"auto_convert"`
	MostFavoredNation           bool                     `json:"most_favored_nation"`
	AllowHighRate               bool                     `json:"allow_high_rate"`
	Notes                       string                   `json:"notes" binding:"max=1000"`
}

// UpdateInstrumentRequest represents a partial update of conversion terms.
type UpdateInstrumentRequest struct {
	InterestRate                *string                   `json:"interest_rate" binding:"omitempty,decimal_string"`
	MaturityDate                *time.Time                `json:"maturity_date"`
	DiscountRate                *string                   `json:"discount_rate" binding:"omitempty,decimal_string"`
	ValuationCap                *string                   `json:"valuation_cap" binding:"omitempty,decimal_string"`
	QualifiedFinancingThreshold *string                   `json:"qualified_financing_threshold" binding:"omitempty,decimal_string"`
	ConversionTrigger           *models.ConversionTrigger `json:"conversion_trigger" binding:"omitempty,conversion_trigger"`
	TargetShareClassID          *string                   `json:"target_share_class_id"`
	AutoConvert                 *bool                     `json:"auto_convert"`
	MostFavoredNation           *bool                     `json:"most_favored_nation"`
	AllowHighRate               bool                      `json:"allow_high_rate"`
	Notes                       *string                   `json:"notes"`
}

// RedeemRequest represents the request payload for redeeming an instrument.
type RedeemRequest struct {
	Amount    *string `json:"amount" binding:"omitempty,decimal_string"`
	Reference string  `json:"reference" binding:"max=200"`
}

// CancelRequest represents the request payload for cancelling an instrument.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// ConvertRequest represents the request payload for converting an
// instrument into equity in a funding round.
type ConvertRequest struct {
	FundingRoundID string `json:"funding_round_id" binding:"required"`
	ShareClassID   string `json:"share_class_id" binding:"required"`
	RoundValuation string `json:"round_valuation" binding:"required,decimal_string"`
}

// ScenariosRequest represents an optional custom valuation ladder.
type ScenariosRequest struct {
	Valuations []string `json:"valuations" binding:"omitempty,dive,decimal_string"`
}

// CreateInstrument handles issuing a convertible instrument.
// @Summary     Issue convertible instrument
// @Description Issue a convertible note or SAFE-style instrument to a shareholder
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id      path string                  true "Company ID"
// @Param       request body CreateInstrumentRequest true "Instrument terms"
// @Success     201 {object} models.ConvertibleInstrument "Instrument issued"
// @Failure     400 {object} ErrorResponse "Invalid terms"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company or shareholder not found"
// @Failure     422 {object} ErrorResponse "Company not active"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles [post]
func (h *ConvertibleHandler) CreateInstrument(c *gin.Context) {
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

	var req CreateInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if !uuid.IsValid(req.ShareholderID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid shareholder_id"))
		return
	}
	if req.TargetShareClassID != nil && !uuid.IsValid(*req.TargetShareClassID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid target_share_class_id"))
		return
	}

	input, err := buildCreateInput(req)
	if err != nil {
		respondWithError(c, err)
		return
	}

	instrument, err := h.convertibleService.Create(userID, companyID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CREATE_INSTRUMENT", "convertible_instrument", instrument.ID, c.ClientIP(),
		map[string]interface{}{"principal": req.Principal, "interest_rate": req.InterestRate, "shareholder_id": req.ShareholderID})

	c.JSON(http.StatusCreated, gin.H{"instrument": instrument})
}

func buildCreateInput(req CreateInstrumentRequest) (services.CreateInstrumentInput, error) {
	principal, err := parseDecimal("principal", req.Principal)
	if err != nil {
		return services.CreateInstrumentInput{}, err
	}
	rate, err := parseDecimal("interest_rate", req.InterestRate)
	if err != nil {
		return services.CreateInstrumentInput{}, err
	}
	discount, err := parseOptionalDecimal("discount_rate", req.DiscountRate)
	if err != nil {
		return services.CreateInstrumentInput{}, err
	}
	cap, err := parseOptionalDecimal("valuation_cap", req.ValuationCap)
	if err != nil {
		return services.CreateInstrumentInput{}, err
	}
	threshold, err := parseOptionalDecimal("qualified_financing_threshold", req.QualifiedFinancingThreshold)
	if err != nil {
		return services.CreateInstrumentInput{}, err
	}

	return services.CreateInstrumentInput{
		ShareholderID:               req.ShareholderID,
		Principal:                   principal,
		InterestRate:                rate,
		InterestType:                req.InterestType,
		IssueDate:                   req.IssueDate,
		MaturityDate:                req.MaturityDate,
		DiscountRate:                discount,
		ValuationCap:                cap,
		QualifiedFinancingThreshold: threshold,
		ConversionTrigger:           req.ConversionTrigger,
		TargetShareClassID:          req.TargetShareClassID,
		AutoConvert:                 req.AutoConvert,
		MostFavoredNation:           req.MostFavoredNation,
		AllowHighRate:               req.AllowHighRate,
		Notes:                       req.Notes,
	}, nil
}

// GetInstruments handles listing a company's convertible instruments.
// @Summary     List convertible instruments
// @Description Get a paginated list of instruments plus a live summary over outstanding ones
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id             path  string true  "Company ID"
// @Param       status         query string false "Filter by status"
// @Param       shareholder_id query string false "Filter by shareholder"
// @Param       page           query int    false "Page number (default 1)"
// @Param       page_size      query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.ConvertibleInstrument] "Paginated instruments with summary"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Company not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles [get]
func (h *ConvertibleHandler) GetInstruments(c *gin.Context) {
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

	var filter services.InstrumentFilter
	if status := c.Query("status"); status != "" {
		s := models.InstrumentStatus(status)
		if !s.IsValid() {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid status"))
			return
		}
		filter.Status = &s
	}
	if shareholderID := c.Query("shareholder_id"); shareholderID != "" {
		if !uuid.IsValid(shareholderID) {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid shareholder_id"))
			return
		}
		filter.ShareholderID = &shareholderID
	}

	result, summary, err := h.convertibleService.List(userID, companyID, filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"instruments": result, "summary": summary})
}

// GetInstrument handles fetching one instrument with live-computed values.
// @Summary     Get convertible instrument
// @Description Get an instrument with live accrued interest and days to maturity
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string true "Company ID"
// @Param       instrumentId path string true "Instrument ID"
// @Success     200 {object} services.InstrumentDetail "Instrument detail"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId} [get]
func (h *ConvertibleHandler) GetInstrument(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	detail, err := h.convertibleService.GetByID(userID, companyID, instrumentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"instrument": detail})
}

// GetInterestBreakdown handles the monthly accrual breakdown.
// @Summary     Get interest breakdown
// @Description Get the instrument's accrued interest split into calendar-month buckets
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string true "Company ID"
// @Param       instrumentId path string true "Instrument ID"
// @Success     200 {object} services.InterestBreakdown "Interest breakdown"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId}/interest [get]
func (h *ConvertibleHandler) GetInterestBreakdown(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	breakdown, err := h.convertibleService.GetInterestBreakdown(userID, companyID, instrumentID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"breakdown": breakdown})
}

// GetScenarios handles conversion scenario projection.
// @Summary     Project conversion scenarios
// @Description Price the instrument's conversion across hypothetical valuations; omit valuations for the default ladder
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string           true  "Company ID"
// @Param       instrumentId path string           true  "Instrument ID"
// @Param       request      body ScenariosRequest false "Custom valuation ladder"
// @Success     200 {object} finance.ScenarioSet "Scenario projection"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Failure     422 {object} ErrorResponse "Company has no issued shares"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId}/scenarios [post]
func (h *ConvertibleHandler) GetScenarios(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ScenariosRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	var valuations []decimal.Decimal
	for _, v := range req.Valuations {
		d, err := parseDecimal("valuations", v)
		if err != nil {
			respondWithError(c, err)
			return
		}
		valuations = append(valuations, d)
	}

	set, err := h.convertibleService.GetScenarios(userID, companyID, instrumentID, valuations)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scenarios": set})
}

// UpdateInstrument handles a partial update of conversion terms.
// @Summary     Update instrument terms
// @Description Update terms while outstanding or matured; extending maturity reactivates a matured instrument
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string                  true "Company ID"
// @Param       instrumentId path string                  true "Instrument ID"
// @Param       request      body UpdateInstrumentRequest true "Fields to update"
// @Success     200 {object} models.ConvertibleInstrument "Updated instrument"
// @Failure     400 {object} ErrorResponse "Invalid terms"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Failure     422 {object} ErrorResponse "Instrument not editable"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId} [put]
func (h *ConvertibleHandler) UpdateInstrument(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req UpdateInstrumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.TargetShareClassID != nil && !uuid.IsValid(*req.TargetShareClassID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid target_share_class_id"))
		return
	}

	input := services.UpdateInstrumentInput{
		MaturityDate:       req.MaturityDate,
		ConversionTrigger:  req.ConversionTrigger,
		TargetShareClassID: req.TargetShareClassID,
		AutoConvert:        req.AutoConvert,
		MostFavoredNation:  req.MostFavoredNation,
		AllowHighRate:      req.AllowHighRate,
		Notes:              req.Notes,
	}
	if input.InterestRate, err = parseOptionalDecimal("interest_rate", req.InterestRate); err != nil {
		respondWithError(c, err)
		return
	}
	if input.DiscountRate, err = parseOptionalDecimal("discount_rate", req.DiscountRate); err != nil {
		respondWithError(c, err)
		return
	}
	if input.ValuationCap, err = parseOptionalDecimal("valuation_cap", req.ValuationCap); err != nil {
		respondWithError(c, err)
		return
	}
	if input.QualifiedFinancingThreshold, err = parseOptionalDecimal("qualified_financing_threshold", req.QualifiedFinancingThreshold); err != nil {
		respondWithError(c, err)
		return
	}

	instrument, err := h.convertibleService.Update(userID, companyID, instrumentID, input)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "UPDATE_INSTRUMENT", "convertible_instrument", instrument.ID, c.ClientIP(), nil)

	c.JSON(http.StatusOK, gin.H{"instrument": instrument})
}

// RedeemInstrument handles paying back an instrument.
// @Summary     Redeem instrument
// @Description Pay the instrument back; omit amount to pay principal plus accrued interest
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string        true "Company ID"
// @Param       instrumentId path string        true "Instrument ID"
// @Param       request      body RedeemRequest true "Redemption details"
// @Success     200 {object} models.ConvertibleInstrument "Redeemed instrument"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Failure     422 {object} ErrorResponse "Invalid status transition"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId}/redeem [post]
func (h *ConvertibleHandler) RedeemInstrument(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req RedeemRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
			return
		}
	}

	amount := decimal.Zero
	if req.Amount != nil {
		if amount, err = parseDecimal("amount", *req.Amount); err != nil {
			respondWithError(c, err)
			return
		}
	}

	instrument, err := h.convertibleService.Redeem(userID, companyID, instrumentID, amount, req.Reference)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "REDEEM_INSTRUMENT", "convertible_instrument", instrument.ID, c.ClientIP(),
		map[string]interface{}{"reference": req.Reference})

	c.JSON(http.StatusOK, gin.H{"instrument": instrument})
}

// CancelInstrument handles voiding an instrument.
// @Summary     Cancel instrument
// @Description Void an outstanding instrument with a reason
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string        true "Company ID"
// @Param       instrumentId path string        true "Instrument ID"
// @Param       request      body CancelRequest true "Cancellation reason"
// @Success     200 {object} models.ConvertibleInstrument "Cancelled instrument"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument not found"
// @Failure     422 {object} ErrorResponse "Invalid status transition"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId}/cancel [post]
func (h *ConvertibleHandler) CancelInstrument(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	instrument, err := h.convertibleService.Cancel(userID, companyID, instrumentID, req.Reason)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CANCEL_INSTRUMENT", "convertible_instrument", instrument.ID, c.ClientIP(),
		map[string]interface{}{"reason": req.Reason})

	c.JSON(http.StatusOK, gin.H{"instrument": instrument})
}

// ConvertInstrument handles converting an instrument into equity.
// @Summary     Convert instrument
// @Description Atomically convert the instrument into shares in a funding round
// @Tags        convertibles
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       id           path string         true "Company ID"
// @Param       instrumentId path string         true "Instrument ID"
// @Param       request      body ConvertRequest true "Conversion parameters"
// @Success     200 {object} services.ConversionResult "Conversion result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Instrument, round, or share class not found"
// @Failure     409 {object} ErrorResponse "Already converted"
// @Failure     422 {object} ErrorResponse "Threshold not met, no issued shares, or authorized pool exceeded"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /companies/{id}/convertibles/{instrumentId}/convert [post]
func (h *ConvertibleHandler) ConvertInstrument(c *gin.Context) {
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
	instrumentID, err := parsePathUUID(c, "instrumentId")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if !uuid.IsValid(req.FundingRoundID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid funding_round_id"))
		return
	}
	if !uuid.IsValid(req.ShareClassID) {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Invalid share_class_id"))
		return
	}

	valuation, err := parseDecimal("round_valuation", req.RoundValuation)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.convertibleService.Convert(userID, companyID, instrumentID, req.FundingRoundID, req.ShareClassID, valuation)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(userID, "CONVERT_INSTRUMENT", "convertible_instrument", instrumentID, c.ClientIP(),
		map[string]interface{}{
			"funding_round_id": req.FundingRoundID,
			"share_class_id":   req.ShareClassID,
			"round_valuation":  req.RoundValuation,
			"shares_issued":    result.Record.SharesIssued.String(),
			"method":           result.Record.Method,
		})

	c.JSON(http.StatusOK, gin.H{"conversion": result})
}
