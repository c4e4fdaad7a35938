package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
)

type shareholderService struct {
	db             *gorm.DB
	companyService CompanyServicer
}

// NewShareholderService creates a new ShareholderServicer.
func NewShareholderService(db *gorm.DB, companyService CompanyServicer) ShareholderServicer {
	return &shareholderService{db: db, companyService: companyService}
}

func (s *shareholderService) CreateShareholder(ownerID, companyID, name, email string, shareholderType models.ShareholderType) (*models.Shareholder, error) {
	company, err := s.companyService.GetCompanyByID(ownerID, companyID)
	if err != nil {
		return nil, err
	}
	if !company.IsActive() {
		return nil, apperrors.ErrCompanyNotActive
	}

	if shareholderType == "" {
		shareholderType = models.ShareholderTypeIndividual
	}

	shareholder := &models.Shareholder{
		CompanyID: companyID,
		Name:      name,
		Email:     email,
		Type:      shareholderType,
	}
	if err := s.db.Create(shareholder).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shareholder, nil
}

func (s *shareholderService) GetCompanyShareholders(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.Shareholder], error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.Shareholder{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var shareholders []models.Shareholder
	if err := base.Order("name").Scopes(pagination.Paginate(page)).Find(&shareholders).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(shareholders, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *shareholderService) GetShareholderByID(ownerID, companyID, shareholderID string) (*models.Shareholder, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	var shareholder models.Shareholder
	if err := s.db.Where("id = ? AND company_id = ?", shareholderID, companyID).First(&shareholder).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrShareholderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &shareholder, nil
}

func (s *shareholderService) UpdateShareholder(ownerID, companyID, shareholderID, name, email string) (*models.Shareholder, error) {
	shareholder, err := s.GetShareholderByID(ownerID, companyID, shareholderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if email != "" {
		updates["email"] = email
	}
	if len(updates) == 0 {
		return shareholder, nil
	}

	if err := s.db.Model(shareholder).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return shareholder, nil
}
