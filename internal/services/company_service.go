package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
)

type companyService struct {
	db *gorm.DB
}

// NewCompanyService creates a new CompanyServicer.
func NewCompanyService(db *gorm.DB) CompanyServicer {
	return &companyService{db: db}
}

func (s *companyService) CreateCompany(ownerID, name, legalName, jurisdiction, description string) (*models.Company, error) {
	company := &models.Company{
		OwnerID:      ownerID,
		Name:         name,
		LegalName:    legalName,
		Jurisdiction: jurisdiction,
		Description:  description,
		Status:       models.CompanyStatusActive,
	}
	if err := s.db.Create(company).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return company, nil
}

func (s *companyService) GetUserCompanies(ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Company], error) {
	page.Defaults()

	base := s.db.Model(&models.Company{}).Where("owner_id = ?", ownerID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var companies []models.Company
	if err := base.Order("created_at DESC").Scopes(pagination.Paginate(page)).Find(&companies).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(companies, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetCompanyByID is the ownership gate used by every company-scoped
// service. A company owned by someone else is indistinguishable from one
// that does not exist.
func (s *companyService) GetCompanyByID(ownerID, companyID string) (*models.Company, error) {
	var company models.Company
	if err := s.db.Where("id = ? AND owner_id = ?", companyID, ownerID).First(&company).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrCompanyNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &company, nil
}

func (s *companyService) UpdateCompany(ownerID, companyID, name, legalName, description string) (*models.Company, error) {
	company, err := s.GetCompanyByID(ownerID, companyID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if legalName != "" {
		updates["legal_name"] = legalName
	}
	if description != "" {
		updates["description"] = description
	}
	if len(updates) == 0 {
		return company, nil
	}

	if err := s.db.Model(company).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return company, nil
}
