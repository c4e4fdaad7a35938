package services

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "captable/internal/errors"
	"captable/internal/models"
	"captable/internal/pagination"
)

var oneHundred = decimal.NewFromInt(100)

type capTableService struct {
	db             *gorm.DB
	companyService CompanyServicer
}

// NewCapTableService creates a new CapTableServicer.
func NewCapTableService(db *gorm.DB, companyService CompanyServicer) CapTableServicer {
	return &capTableService{db: db, companyService: companyService}
}

// RecalculateOwnership recomputes ownership and voting percentages for
// every shareholding in the company from the current share counts. It
// runs in its own transaction so readers never observe a half-updated
// table.
func (s *capTableService) RecalculateOwnership(companyID string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var holdings []models.Shareholding
		if err := tx.Where("company_id = ?", companyID).Find(&holdings).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if len(holdings) == 0 {
			return nil
		}

		var classes []models.ShareClass
		if err := tx.Where("company_id = ?", companyID).Find(&classes).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		votesPerShare := make(map[string]decimal.Decimal, len(classes))
		for i := range classes {
			votesPerShare[classes[i].ID] = classes[i].VotesPerShare
		}

		totalShares := decimal.Zero
		totalVotes := decimal.Zero
		for i := range holdings {
			h := &holdings[i]
			totalShares = totalShares.Add(h.Shares)
			totalVotes = totalVotes.Add(h.Shares.Mul(votesPerShare[h.ShareClassID]))
		}

		for i := range holdings {
			h := &holdings[i]

			ownershipPct := decimal.Zero
			if totalShares.IsPositive() {
				ownershipPct = h.Shares.Div(totalShares).Mul(oneHundred)
			}
			votingPct := decimal.Zero
			if totalVotes.IsPositive() {
				votingPct = h.Shares.Mul(votesPerShare[h.ShareClassID]).Div(totalVotes).Mul(oneHundred)
			}

			updates := map[string]interface{}{
				"ownership_pct": ownershipPct,
				"voting_pct":    votingPct,
			}
			if err := tx.Model(h).Updates(updates).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
		}
		return nil
	})
}

// Recalculate is the operator-facing variant of RecalculateOwnership:
// it enforces company ownership, recomputes the percentages, and
// returns the refreshed read model.
func (s *capTableService) Recalculate(ownerID, companyID string) (*CapTableView, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}
	if err := s.RecalculateOwnership(companyID); err != nil {
		return nil, err
	}
	return s.GetCapTable(ownerID, companyID)
}

// CreateAutoSnapshot records the current cap table as a point-in-time
// snapshot. Callers pass a reason code so the history explains itself.
func (s *capTableService) CreateAutoSnapshot(companyID, reasonCode, message string) (*models.CapTableSnapshot, error) {
	var holdings []models.Shareholding
	if err := s.db.Where("company_id = ?", companyID).Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	totalShares := decimal.Zero
	entries := make([]models.SnapshotHolding, 0, len(holdings))
	for i := range holdings {
		h := &holdings[i]
		totalShares = totalShares.Add(h.Shares)
		entries = append(entries, models.SnapshotHolding{
			ShareholderID: h.ShareholderID,
			ShareClassID:  h.ShareClassID,
			Shares:        h.Shares,
			OwnershipPct:  h.OwnershipPct,
			VotingPct:     h.VotingPct,
		})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	snapshot := &models.CapTableSnapshot{
		CompanyID:   companyID,
		ReasonCode:  reasonCode,
		Message:     message,
		TotalShares: totalShares,
		Holdings:    string(data),
		RecordedAt:  time.Now(),
	}
	if err := s.db.Create(snapshot).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return snapshot, nil
}

// GetCapTable builds the aggregated read model with shareholder and share
// class names resolved.
func (s *capTableService) GetCapTable(ownerID, companyID string) (*CapTableView, error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	var holdings []models.Shareholding
	if err := s.db.Preload("Shareholder").Preload("ShareClass").
		Where("company_id = ?", companyID).Find(&holdings).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	view := &CapTableView{
		CompanyID:   companyID,
		TotalShares: decimal.Zero,
		Entries:     make([]CapTableEntry, 0, len(holdings)),
	}
	for i := range holdings {
		h := &holdings[i]
		view.TotalShares = view.TotalShares.Add(h.Shares)
		view.Entries = append(view.Entries, CapTableEntry{
			ShareholderID:   h.ShareholderID,
			ShareholderName: h.Shareholder.Name,
			ShareClassID:    h.ShareClassID,
			ShareClassName:  h.ShareClass.Name,
			Shares:          h.Shares,
			OwnershipPct:    h.OwnershipPct,
			VotingPct:       h.VotingPct,
		})
	}
	return view, nil
}

func (s *capTableService) GetSnapshots(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.CapTableSnapshot], error) {
	if _, err := s.companyService.GetCompanyByID(ownerID, companyID); err != nil {
		return nil, err
	}

	page.Defaults()

	base := s.db.Model(&models.CapTableSnapshot{}).Where("company_id = ?", companyID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var snapshots []models.CapTableSnapshot
	if err := base.Order("recorded_at DESC").Scopes(pagination.Paginate(page)).Find(&snapshots).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(snapshots, page.Page, page.PageSize, totalItems)
	return &result, nil
}
