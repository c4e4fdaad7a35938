package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "captable/internal/errors"
	"captable/internal/finance"
	"captable/internal/logger"
	"captable/internal/models"
	"captable/internal/pagination"
)

// maxInterestRate is the cap on annual interest unless the caller
// explicitly confirms a higher rate.
var maxInterestRate = decimal.RequireFromString("0.30")

// defaultScenarioValuations is the hypothetical valuation ladder used when
// a scenario request does not supply its own.
var defaultScenarioValuations = []decimal.Decimal{
	decimal.New(1_000_000, 0),
	decimal.New(2_500_000, 0),
	decimal.New(5_000_000, 0),
	decimal.New(10_000_000, 0),
	decimal.New(25_000_000, 0),
	decimal.New(50_000_000, 0),
}

// convertibleService implements the convertible instrument engine.
type convertibleService struct {
	db              *gorm.DB
	companyService  CompanyServicer
	capTableService CapTableServicer
}

// NewConvertibleService creates a new ConvertibleServicer.
func NewConvertibleService(db *gorm.DB, companyService CompanyServicer, capTableService CapTableServicer) ConvertibleServicer {
	return &convertibleService{db: db, companyService: companyService, capTableService: capTableService}
}

// Create issues a new convertible instrument after validating its terms.
func (s *convertibleService) Create(ownerID, companyID string, input CreateInstrumentInput) (*models.ConvertibleInstrument, error) {
	company, err := s.companyService.GetCompanyByID(ownerID, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive() {
		return nil, apperrors.ErrCompanyNotActive
	}

	var shareholder models.Shareholder
	if err := s.db.Where("id = ? AND company_id = ?", input.ShareholderID, companyID).First(&shareholder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShareholderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if err := validateCoreTerms(input.Principal, input.InterestRate, input.IssueDate, input.MaturityDate, input.AllowHighRate); err != nil {
		return nil, err
	}
	if err := validateConversionTerms(input.DiscountRate, input.ValuationCap); err != nil {
		return nil, err
	}

	if input.TargetShareClassID != nil {
		var count int64
		if err := s.db.Model(&models.ShareClass{}).Where("id = ? AND company_id = ?", *input.TargetShareClassID, companyID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrShareClassNotFound
		}
	}

	trigger := input.ConversionTrigger
	if trigger == "" {
		trigger = models.TriggerQualifiedFinancing
	}
	interestType := input.InterestType
	if interestType == "" {
		interestType = models.InterestSimple
	}

	instrument := &models.ConvertibleInstrument{
		CompanyID:                   companyID,
		ShareholderID:               input.ShareholderID,
		Principal:                   input.Principal,
		InterestRate:                input.InterestRate,
		InterestType:                interestType,
		IssueDate:                   input.IssueDate,
		MaturityDate:                input.MaturityDate,
		DiscountRate:                toNullDecimal(input.DiscountRate),
		ValuationCap:                toNullDecimal(input.ValuationCap),
		QualifiedFinancingThreshold: toNullDecimal(input.QualifiedFinancingThreshold),
		ConversionTrigger:           trigger,
		TargetShareClassID:          input.TargetShareClassID,
		AutoConvert:                 input.AutoConvert,
		MostFavoredNation:           input.MostFavoredNation,
		Status:                      models.StatusOutstanding,
		AccruedInterest:             decimal.Zero,
		Notes:                       input.Notes,
	}

	if err := s.db.Create(instrument).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return instrument, nil
}

// List returns a paginated list of instruments plus an aggregate summary
// over the company's OUTSTANDING instruments (live interest, never the
// snapshot column).
func (s *convertibleService) List(ownerID, companyID string, filter InstrumentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.ConvertibleInstrument], *InstrumentSummary, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.ConvertibleInstrument{}).Where("company_id = ?", companyID)
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.ShareholderID != nil {
		base = base.Where("shareholder_id = ?", *filter.ShareholderID)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var instruments []models.ConvertibleInstrument
	if err := base.Order("issue_date DESC").Scopes(pagination.Paginate(page)).Find(&instruments).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary, err := s.outstandingSummary(companyID)
	if err != nil {
		return nil, nil, err
	}

	result := pagination.NewPageResponse(instruments, page.Page, page.PageSize, totalItems)
	return &result, summary, nil
}

// outstandingSummary recomputes interest live for every OUTSTANDING
// instrument rather than summing the snapshot column.
func (s *convertibleService) outstandingSummary(companyID string) (*InstrumentSummary, error) {
	var outstanding []models.ConvertibleInstrument
	if err := s.db.Where("company_id = ? AND status = ?", companyID, models.StatusOutstanding).Find(&outstanding).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	now := time.Now()
	summary := &InstrumentSummary{
		OutstandingCount:     int64(len(outstanding)),
		TotalPrincipal:       decimal.Zero,
		TotalAccruedInterest: decimal.Zero,
	}
	for i := range outstanding {
		inst := &outstanding[i]
		summary.TotalPrincipal = summary.TotalPrincipal.Add(inst.Principal)
		summary.TotalAccruedInterest = summary.TotalAccruedInterest.Add(
			finance.AccruedInterest(inst.Principal, inst.InterestRate, inst.InterestType, inst.IssueDate, now))
	}
	return summary, nil
}

// GetByID returns an instrument with live-computed interest and days to maturity.
func (s *convertibleService) GetByID(ownerID, companyID, instrumentID string) (*InstrumentDetail, error) {
	instrument, err := s.scopedInstrument(ownerID, companyID, instrumentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accrued := s.liveInterest(instrument, now)

	daysToMaturity := int64(instrument.MaturityDate.Sub(now).Hours() / 24)
	if daysToMaturity < 0 {
		daysToMaturity = 0
	}

	return &InstrumentDetail{
		ConvertibleInstrument: instrument,
		LiveAccruedInterest:   accrued,
		ConversionAmount:      instrument.Principal.Add(accrued),
		DaysToMaturity:        daysToMaturity,
	}, nil
}

// liveInterest returns live-computed interest for OUTSTANDING/MATURED
// instruments, and the persisted snapshot (frozen at the terminal
// transition) otherwise.
func (s *convertibleService) liveInterest(inst *models.ConvertibleInstrument, asOf time.Time) decimal.Decimal {
	if inst.Status.IsTerminal() {
		return inst.AccruedInterest
	}
	return finance.AccruedInterest(inst.Principal, inst.InterestRate, inst.InterestType, inst.IssueDate, asOf)
}

// GetInterestBreakdown returns the full accrual detail with monthly buckets.
func (s *convertibleService) GetInterestBreakdown(ownerID, companyID, instrumentID string) (*InterestBreakdown, error) {
	instrument, err := s.scopedInstrument(ownerID, companyID, instrumentID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accrued := s.liveInterest(instrument, now)

	return &InterestBreakdown{
		InstrumentID:    instrument.ID,
		Principal:       instrument.Principal,
		InterestRate:    instrument.InterestRate,
		InterestType:    instrument.InterestType,
		IssueDate:       instrument.IssueDate,
		AsOf:            now,
		DaysElapsed:     finance.DaysElapsed(instrument.IssueDate, now),
		AccruedInterest: accrued,
		TotalValue:      instrument.Principal.Add(accrued),
		Periods:         finance.MonthlyBreakdown(instrument.Principal, instrument.InterestRate, instrument.InterestType, instrument.IssueDate, now),
	}, nil
}

// GetScenarios projects the instrument's conversion across hypothetical
// valuations. Pre-money shares are the sum of issued shares across all of
// the company's share classes and must be positive.
func (s *convertibleService) GetScenarios(ownerID, companyID, instrumentID string, valuations []decimal.Decimal) (*finance.ScenarioSet, error) {
	instrument, err := s.scopedInstrument(ownerID, companyID, instrumentID)
	if err != nil {
		return nil, err
	}

	preMoney, err := s.preMoneyShares(s.db, companyID)
	if err != nil {
		return nil, err
	}
	if !preMoney.IsPositive() {
		return nil, apperrors.ErrZeroPreMoneyShares
	}

	if len(valuations) == 0 {
		valuations = defaultScenarioValuations
	}

	accrued := s.liveInterest(instrument, time.Now())
	set, err := finance.Scenarios(instrument, accrued, preMoney, valuations)
	if err != nil {
		return nil, mapPricingError(err)
	}
	return &set, nil
}

// Update applies a partial term update. Only OUTSTANDING and MATURED
// instruments are editable; on terminal instruments only notes may change.
// Extending the maturity of a MATURED instrument to a future date resets
// it to OUTSTANDING as part of the same update.
func (s *convertibleService) Update(ownerID, companyID, instrumentID string, input UpdateInstrumentInput) (*models.ConvertibleInstrument, error) {
	instrument, err := s.scopedInstrument(ownerID, companyID, instrumentID)
	if err != nil {
		return nil, err
	}

	if instrument.Status.IsTerminal() {
		if !notesOnly(input) {
			return nil, apperrors.WithMessage(apperrors.ErrInstrumentNotEditable,
				fmt.Sprintf("Instrument is %s; only notes may be updated", instrument.Status))
		}
		if err := s.db.Model(instrument).Update("notes", *input.Notes).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return instrument, nil
	}

	updates := map[string]interface{}{}

	if input.InterestRate != nil {
		if err := validateRate(*input.InterestRate, input.AllowHighRate); err != nil {
			return nil, err
		}
		updates["interest_rate"] = *input.InterestRate
	}
	if input.DiscountRate != nil {
		if err := validateDiscount(*input.DiscountRate); err != nil {
			return nil, err
		}
		updates["discount_rate"] = *input.DiscountRate
	}
	if input.ValuationCap != nil {
		if !input.ValuationCap.IsPositive() {
			return nil, apperrors.ErrInvalidValuationCap
		}
		updates["valuation_cap"] = *input.ValuationCap
	}
	if input.QualifiedFinancingThreshold != nil {
		updates["qualified_financing_threshold"] = *input.QualifiedFinancingThreshold
	}
	if input.ConversionTrigger != nil {
		updates["conversion_trigger"] = *input.ConversionTrigger
	}
	if input.AutoConvert != nil {
		updates["auto_convert"] = *input.AutoConvert
	}
	if input.MostFavoredNation != nil {
		updates["most_favored_nation"] = *input.MostFavoredNation
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.TargetShareClassID != nil {
		var count int64
		if err := s.db.Model(&models.ShareClass{}).Where("id = ? AND company_id = ?", *input.TargetShareClassID, companyID).Count(&count).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if count == 0 {
			return nil, apperrors.ErrShareClassNotFound
		}
		updates["target_share_class_id"] = *input.TargetShareClassID
	}
	if input.MaturityDate != nil {
		if !input.MaturityDate.After(instrument.IssueDate) {
			return nil, apperrors.ErrInvalidMaturityDate
		}
		updates["maturity_date"] = *input.MaturityDate

		// Maturity extension: a matured instrument becomes outstanding again
		// when its maturity moves into the future.
		if instrument.Status == models.StatusMatured && input.MaturityDate.After(time.Now()) {
			if err := finance.ValidateTransition(instrument.Status, models.StatusOutstanding); err != nil {
				return nil, mapTransitionError(err)
			}
			updates["status"] = models.StatusOutstanding
		}
	}

	if len(updates) == 0 {
		return instrument, nil
	}

	if err := s.db.Model(instrument).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.scopedInstrument(ownerID, companyID, instrumentID)
}

// Redeem pays the instrument back and moves it to the terminal REDEEMED
// state, freezing final interest in the snapshot column.
func (s *convertibleService) Redeem(ownerID, companyID, instrumentID string, amount decimal.Decimal, reference string) (*models.ConvertibleInstrument, error) {
	instrument, err := s.scopedInstrument(ownerID, companyID, instrumentID)
	if err != nil {
		return nil, err
	}

	if err := finance.ValidateTransition(instrument.Status, models.StatusRedeemed); err != nil {
		return nil, mapTransitionError(err)
	}

	now := time.Now()
	finalInterest := finance.AccruedInterest(instrument.Principal, instrument.InterestRate, instrument.InterestType, instrument.IssueDate, now)
	if amount.IsZero() {
		amount = instrument.Principal.Add(finalInterest)
	}

	record := models.RedemptionRecord{
		Amount:     amount,
		Reference:  reference,
		Actor:      ownerID,
		RedeemedAt: now,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{
		"status":           models.StatusRedeemed,
		"redeemed_at":      now,
		"redemption_data":  string(data),
		"accrued_interest": finalInterest,
	}
	if err := s.db.Model(instrument).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.scopedInstrument(ownerID, companyID, instrumentID)
}

// Cancel voids the instrument, moving it to the terminal CANCELLED state.
func (s *convertibleService) Cancel(ownerID, companyID, instrumentID, reason string) (*models.ConvertibleInstrument, error) {
	instrument, err := s.scopedInstrument(ownerID, companyID, instrumentID)
	if err != nil {
		return nil, err
	}

	if err := finance.ValidateTransition(instrument.Status, models.StatusCancelled); err != nil {
		return nil, mapTransitionError(err)
	}

	now := time.Now()
	finalInterest := finance.AccruedInterest(instrument.Principal, instrument.InterestRate, instrument.InterestType, instrument.IssueDate, now)

	record := models.CancellationRecord{
		Reason:      reason,
		Actor:       ownerID,
		CancelledAt: now,
	}
	data, err := json.Marshal(record)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	updates := map[string]interface{}{
		"status":            models.StatusCancelled,
		"cancelled_at":      now,
		"cancellation_data": string(data),
		"accrued_interest":  finalInterest,
	}
	if err := s.db.Model(instrument).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.scopedInstrument(ownerID, companyID, instrumentID)
}

// Convert executes the atomic conversion of an instrument into equity.
// Every precondition check and every write runs inside one transaction so
// a concurrent conversion of the same instrument observes the terminal
// state and fails, and the share-class capacity check sees the same view
// of total_issued that the increment updates.
func (s *convertibleService) Convert(ownerID, companyID, instrumentID, fundingRoundID, shareClassID string, roundValuation decimal.Decimal) (*ConversionResult, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}
	if !roundValuation.IsPositive() {
		return nil, apperrors.ErrInvalidValuation
	}

	var result ConversionResult

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var instrument models.ConvertibleInstrument
		if err := tx.Where("id = ? AND company_id = ?", instrumentID, companyID).First(&instrument).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrInstrumentNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// 1. Only outstanding or matured instruments convert; conversion is
		// a one-way gate.
		if !finance.IsConvertible(instrument.Status) {
			return apperrors.WithMessage(apperrors.ErrAlreadyConverted,
				fmt.Sprintf("Instrument is %s and cannot be converted", instrument.Status))
		}

		// 2. The funding round must belong to the same company.
		var round models.FundingRound
		if err := tx.Where("id = ? AND company_id = ?", fundingRoundID, companyID).First(&round).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrFundingRoundNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// 3. Qualified financing threshold.
		if instrument.QualifiedFinancingThreshold.Valid &&
			round.TargetAmount.LessThan(instrument.QualifiedFinancingThreshold.Decimal) {
			return apperrors.WithMessage(apperrors.ErrThresholdNotMet,
				fmt.Sprintf("Round target %s is below the qualified financing threshold %s",
					round.TargetAmount, instrument.QualifiedFinancingThreshold.Decimal))
		}

		// 4. The target share class must belong to the same company.
		var shareClass models.ShareClass
		if err := tx.Where("id = ? AND company_id = ?", shareClassID, companyID).First(&shareClass).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrShareClassNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// 5. Pre-money shares, from this transaction's view.
		preMoney, err := s.preMoneyShares(tx, companyID)
		if err != nil {
			return err
		}
		if !preMoney.IsPositive() {
			return apperrors.ErrZeroPreMoneyShares
		}

		// Price the conversion at the round valuation with live interest.
		now := time.Now()
		accrued := finance.AccruedInterest(instrument.Principal, instrument.InterestRate, instrument.InterestType, instrument.IssueDate, now)
		scenario, err := finance.Scenario(&instrument, accrued, preMoney, roundValuation)
		if err != nil {
			return mapPricingError(err)
		}
		shares := scenario.Selected.Shares.Round(0)

		// 6. Capacity against the same transaction's total_issued.
		newIssued := shareClass.TotalIssued.Add(shares)
		if newIssued.GreaterThan(shareClass.TotalAuthorized) {
			return apperrors.WithMessage(apperrors.ErrExceedsAuthorized,
				fmt.Sprintf("Conversion needs %s shares but only %s of %s authorized remain",
					shares, shareClass.Remaining(), shareClass.TotalAuthorized))
		}

		issuance := &models.ShareIssuance{
			CompanyID:          companyID,
			ShareholderID:      instrument.ShareholderID,
			ShareClassID:       shareClassID,
			Shares:             shares,
			PricePerShare:      scenario.Selected.PricePerShare,
			Amount:             scenario.ConversionAmount,
			Status:             models.IssuanceStatusConfirmed,
			IssuedAt:           now,
			SourceInstrumentID: &instrument.ID,
		}
		if err := tx.Create(issuance).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// Upsert the investor's shareholding; ownership percentages are
		// recomputed company-wide after commit.
		var holding models.Shareholding
		err = tx.Where("company_id = ? AND shareholder_id = ? AND share_class_id = ?",
			companyID, instrument.ShareholderID, shareClassID).First(&holding).Error
		switch {
		case err == nil:
			if err := tx.Model(&holding).Update("shares", gorm.Expr("shares + ?", shares)).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			holding = models.Shareholding{
				CompanyID:     companyID,
				ShareholderID: instrument.ShareholderID,
				ShareClassID:  shareClassID,
				Shares:        shares,
				OwnershipPct:  decimal.Zero,
				VotingPct:     decimal.Zero,
			}
			if err := tx.Create(&holding).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		default:
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		// The increment runs in SQL so a concurrent conversion into the same
		// class cannot overwrite this one's shares.
		if err := tx.Model(&models.ShareClass{}).Where("id = ?", shareClass.ID).
			Update("total_issued", gorm.Expr("total_issued + ?", shares)).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		record := models.ConversionRecord{
			FundingRoundID:   fundingRoundID,
			ShareClassID:     shareClassID,
			IssuanceID:       issuance.ID,
			ConversionAmount: scenario.ConversionAmount,
			PricePerShare:    scenario.Selected.PricePerShare,
			SharesIssued:     shares,
			Method:           string(scenario.Selected.Method),
			Actor:            ownerID,
			ConvertedAt:      now,
		}
		data, err := json.Marshal(record)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if err := finance.ValidateTransition(instrument.Status, models.StatusConverted); err != nil {
			return mapTransitionError(err)
		}
		// The flip is guarded on the current status so that of two
		// transactions racing on the same instrument, the second sees zero
		// rows affected and rolls back its issuance.
		res := tx.Model(&models.ConvertibleInstrument{}).
			Where("id = ? AND status IN ?", instrument.ID,
				[]models.InstrumentStatus{models.StatusOutstanding, models.StatusMatured}).
			Updates(map[string]interface{}{
				"status":           models.StatusConverted,
				"converted_at":     now,
				"conversion_data":  string(data),
				"accrued_interest": accrued,
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrAlreadyConverted
		}

		instrument.Status = models.StatusConverted
		instrument.ConvertedAt = &now
		instrument.ConversionData = string(data)
		instrument.AccruedInterest = accrued

		result = ConversionResult{
			Instrument: &instrument,
			Issuance:   issuance,
			Record:     record,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Post-commit side effects. The conversion has committed, so failures
	// here are logged and alerted, never surfaced to the caller.
	if err := s.capTableService.RecalculateOwnership(companyID); err != nil {
		logger.Get().Errorw("post-conversion ownership recalculation failed",
			"company_id", companyID, "instrument_id", instrumentID, "error", err)
	}
	message := fmt.Sprintf("Conversion of instrument %s into %s shares", instrumentID, result.Record.SharesIssued)
	if _, err := s.capTableService.CreateAutoSnapshot(companyID, models.SnapshotReasonConversion, message); err != nil {
		logger.Get().Errorw("post-conversion snapshot failed",
			"company_id", companyID, "instrument_id", instrumentID, "error", err)
	}

	return &result, nil
}

// MarkMatured flips OUTSTANDING instruments past their maturity date to
// MATURED. Used by the background refresher sweep.
func (s *convertibleService) MarkMatured(asOf time.Time) (int64, error) {
	res := s.db.Model(&models.ConvertibleInstrument{}).
		Where("status = ? AND maturity_date <= ?", models.StatusOutstanding, asOf).
		Update("status", models.StatusMatured)
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}

// RefreshAccruedInterest recomputes and persists the accrued-interest
// snapshot for all OUTSTANDING and MATURED instruments in bounded chunks.
// The snapshot is a cache; request-time reads always recompute live. A
// failure on one instrument is logged and does not abort the batch.
func (s *convertibleService) RefreshAccruedInterest(asOf time.Time, chunkSize int) (int, error) {
	if chunkSize <= 0 {
		chunkSize = 50
	}

	updated := 0
	lastID := ""

	for {
		var chunk []models.ConvertibleInstrument
		if err := s.db.
			Where("status IN ? AND id > ?", []models.InstrumentStatus{models.StatusOutstanding, models.StatusMatured}, lastID).
			Order("id").
			Limit(chunkSize).
			Find(&chunk).Error; err != nil {
			return updated, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(chunk) == 0 {
			return updated, nil
		}

		for i := range chunk {
			inst := &chunk[i]
			lastID = inst.ID

			accrued := finance.AccruedInterest(inst.Principal, inst.InterestRate, inst.InterestType, inst.IssueDate, asOf)
			if err := s.db.Model(inst).Update("accrued_interest", accrued).Error; err != nil {
				logger.Get().Errorw("interest refresh failed for instrument",
					"instrument_id", inst.ID, "error", err)
				continue
			}
			updated++
		}
	}
}

// scopedInstrument loads an instrument after verifying company ownership.
func (s *convertibleService) scopedInstrument(ownerID, companyID, instrumentID string) (*models.ConvertibleInstrument, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	var instrument models.ConvertibleInstrument
	if err := s.db.Where("id = ? AND company_id = ?", instrumentID, companyID).First(&instrument).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInstrumentNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &instrument, nil
}

// preMoneyShares sums issued shares across all of the company's share
// classes using the given database handle, so callers inside a
// transaction see that transaction's view.
func (s *convertibleService) preMoneyShares(db *gorm.DB, companyID string) (decimal.Decimal, error) {
	var classes []models.ShareClass
	if err := db.Where("company_id = ?", companyID).Find(&classes).Error; err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	total := decimal.Zero
	for i := range classes {
		total = total.Add(classes[i].TotalIssued)
	}
	return total, nil
}

func validateCoreTerms(principal, rate decimal.Decimal, issueDate, maturityDate time.Time, allowHighRate bool) error {
	if !principal.IsPositive() {
		return apperrors.ErrInvalidPrincipal
	}
	if !maturityDate.After(issueDate) {
		return apperrors.ErrInvalidMaturityDate
	}
	return validateRate(rate, allowHighRate)
}

func validateRate(rate decimal.Decimal, allowHighRate bool) error {
	if rate.IsNegative() {
		return apperrors.ErrInvalidInterestRate
	}
	if rate.GreaterThan(maxInterestRate) && !allowHighRate {
		return apperrors.WithMessage(apperrors.ErrInvalidInterestRate,
			fmt.Sprintf("Interest rate %s exceeds 0.30; set allow_high_rate to confirm", rate))
	}
	return nil
}

func validateDiscount(discount decimal.Decimal) error {
	if discount.IsNegative() || discount.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return apperrors.ErrInvalidDiscountRate
	}
	return nil
}

func validateConversionTerms(discountRate, valuationCap *decimal.Decimal) error {
	if discountRate != nil {
		if err := validateDiscount(*discountRate); err != nil {
			return err
		}
	}
	if valuationCap != nil && !valuationCap.IsPositive() {
		return apperrors.ErrInvalidValuationCap
	}
	return nil
}

func notesOnly(input UpdateInstrumentInput) bool {
	return input.Notes != nil &&
		input.InterestRate == nil && input.MaturityDate == nil &&
		input.DiscountRate == nil && input.ValuationCap == nil &&
		input.QualifiedFinancingThreshold == nil && input.ConversionTrigger == nil &&
		input.TargetShareClassID == nil && input.AutoConvert == nil &&
		input.MostFavoredNation == nil
}

func toNullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func mapTransitionError(err error) error {
	var te *finance.TransitionError
	if errors.As(err, &te) {
		return apperrors.WithMessage(apperrors.ErrInvalidStatusTransition, te.Error())
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

func mapPricingError(err error) error {
	switch {
	case errors.Is(err, finance.ErrInvalidValuation):
		return apperrors.ErrInvalidValuation
	case errors.Is(err, finance.ErrZeroPreMoneyShares):
		return apperrors.ErrZeroPreMoneyShares
	default:
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
}
