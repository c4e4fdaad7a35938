package models

import "github.com/shopspring/decimal"

// ShareClassType represents the kind of equity a share class carries.
type ShareClassType string

const (
	ShareClassTypeCommon    ShareClassType = "common"
	ShareClassTypePreferred ShareClassType = "preferred"
)

// ShareClass represents a class of authorized shares within a company.
// TotalIssued must never exceed TotalAuthorized; the conversion executor
// enforces this inside its transaction.
type ShareClass struct {
	Base
	CompanyID       string          `gorm:"type:uuid;not null;index" json:"company_id"`
	Name            string          `gorm:"not null" json:"name"`
	Type            ShareClassType  `gorm:"not null;default:'common'" json:"type"`
	TotalAuthorized decimal.Decimal `gorm:"type:numeric;not null" json:"total_authorized"`
	TotalIssued     decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"total_issued"`
	ParValue        decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"par_value"`
	VotesPerShare   decimal.Decimal `gorm:"type:numeric;not null;default:1" json:"votes_per_share"`

	// Relationships
	Company  Company        `gorm:"foreignKey:CompanyID" json:"-"`
	Holdings []Shareholding `gorm:"foreignKey:ShareClassID" json:"holdings,omitempty"`
}

// Remaining returns how many authorized shares are still unissued.
func (sc *ShareClass) Remaining() decimal.Decimal {
	return sc.TotalAuthorized.Sub(sc.TotalIssued)
}

// Shareholding represents a shareholder's position in one share class.
// OwnershipPct and VotingPct are maintained by the cap-table service's
// company-wide recalculation, not by individual writes.
type Shareholding struct {
	Base
	CompanyID     string          `gorm:"type:uuid;not null;index" json:"company_id"`
	ShareholderID string          `gorm:"type:uuid;not null;index" json:"shareholder_id"`
	ShareClassID  string          `gorm:"type:uuid;not null;index" json:"share_class_id"`
	Shares        decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"shares"`
	OwnershipPct  decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"ownership_pct"`
	VotingPct     decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"voting_pct"`

	// Relationships
	Shareholder Shareholder `gorm:"foreignKey:ShareholderID" json:"shareholder,omitempty"`
	ShareClass  ShareClass  `gorm:"foreignKey:ShareClassID" json:"share_class,omitempty"`
}
