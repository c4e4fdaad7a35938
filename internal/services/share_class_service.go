package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
)

type shareClassService struct {
	db             *gorm.DB
	companyService CompanyServicer
}

// NewShareClassService creates a new ShareClassServicer.
func NewShareClassService(db *gorm.DB, companyService CompanyServicer) ShareClassServicer {
	return &shareClassService{db: db, companyService: companyService}
}

func (s *shareClassService) CreateShareClass(ownerID, companyID, name string, classType models.ShareClassType, totalAuthorized, parValue, votesPerShare decimal.Decimal) (*models.ShareClass, error) {
	company, err := s.companyService.GetCompanyByID(ownerID, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive() {
		return nil, apperrors.ErrCompanyNotActive
	}

	if !totalAuthorized.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "total_authorized must be greater than zero")
	}
	if parValue.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "par_value must not be negative")
	}

	if classType == "" {
		classType = models.ShareClassTypeCommon
	}
	if votesPerShare.IsZero() && classType == models.ShareClassTypeCommon {
		votesPerShare = decimal.NewFromInt(1)
	}

	shareClass := &models.ShareClass{
		CompanyID:       companyID,
		Name:            name,
		Type:            classType,
		TotalAuthorized: totalAuthorized,
		TotalIssued:     decimal.Zero,
		ParValue:        parValue,
		VotesPerShare:   votesPerShare,
	}
	if err := s.db.Create(shareClass).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shareClass, nil
}

func (s *shareClassService) GetCompanyShareClasses(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.ShareClass], error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.ShareClass{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var classes []models.ShareClass
	if err := base.Order("name").Scopes(pagination.Paginate(page)).Find(&classes).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(classes, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *shareClassService) GetShareClassByID(ownerID, companyID, shareClassID string) (*models.ShareClass, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	var shareClass models.ShareClass
	if err := s.db.Where("id = ? AND company_id = ?", shareClassID, companyID).First(&shareClass).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShareClassNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &shareClass, nil
}

// UpdateAuthorizedShares changes the authorized pool. It can never shrink
// below what is already issued.
func (s *shareClassService) UpdateAuthorizedShares(ownerID, companyID, shareClassID string, totalAuthorized decimal.Decimal) (*models.ShareClass, error) {
	shareClass, err := s.GetShareClassByID(ownerID, companyID, shareClassID)
	if err != nil {
		return nil, err
	}

	if totalAuthorized.LessThan(shareClass.TotalIssued) {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput,
			fmt.Sprintf("total_authorized %s is below the %s shares already issued", totalAuthorized, shareClass.TotalIssued))
	}

	if err := s.db.Model(shareClass).Update("total_authorized", totalAuthorized).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shareClass, nil
}
