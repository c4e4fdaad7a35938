package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
)

type fundingRoundService struct {
	db             *gorm.DB
	companyService CompanyServicer
}

// NewFundingRoundService creates a new FundingRoundServicer.
func NewFundingRoundService(db *gorm.DB, companyService CompanyServicer) FundingRoundServicer {
	return &fundingRoundService{db: db, companyService: companyService}
}

func (s *fundingRoundService) CreateFundingRound(ownerID, companyID, name string, targetAmount, preMoneyValuation decimal.Decimal) (*models.FundingRound, error) {
	company, err := s.companyService.GetCompanyByID(ownerID, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive() {
		return nil, apperrors.ErrCompanyNotActive
	}

	if !targetAmount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "target_amount must be greater than zero")
	}
	if !preMoneyValuation.IsPositive() {
		return nil, apperrors.ErrInvalidValuation
	}

	round := &models.FundingRound{
		CompanyID:         companyID,
		Name:              name,
		TargetAmount:      targetAmount,
		PreMoneyValuation: preMoneyValuation,
		Status:            models.FundingRoundStatusOpen,
	}
	if err := s.db.Create(round).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return round, nil
}

func (s *fundingRoundService) GetCompanyFundingRounds(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.FundingRound], error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.FundingRound{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var rounds []models.FundingRound
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&rounds).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(rounds, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *fundingRoundService) GetFundingRoundByID(ownerID, companyID, roundID string) (*models.FundingRound, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	var round models.FundingRound
	if err := s.db.Where("id = ? AND company_id = ?", roundID, companyID).First(&round).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrFundingRoundNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &round, nil
}

func (s *fundingRoundService) CloseFundingRound(ownerID, companyID, roundID string) (*models.FundingRound, error) {
	round, err := s.GetFundingRoundByID(ownerID, companyID, roundID)
	if err != nil {
		return nil, err
	}

	if round.Status != models.FundingRoundStatusOpen {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Only open funding rounds can be closed")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":    models.FundingRoundStatusClosed,
		"closed_at": now,
	}
	if err := s.db.Model(round).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return round, nil
}
