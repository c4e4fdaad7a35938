package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// IssuanceStatus represents the status of a share issuance record.
type IssuanceStatus string

const (
	IssuanceStatusPending   IssuanceStatus = "pending"
	IssuanceStatusConfirmed IssuanceStatus = "confirmed"
)

// ShareIssuance records equity issued to a shareholder, including shares
// created by a convertible instrument conversion.
type ShareIssuance struct {
	Base
	CompanyID     string          `gorm:"type:uuid;not null;index" json:"company_id"`
	ShareholderID string          `gorm:"type:uuid;not null;index" json:"shareholder_id"`
	ShareClassID  string          `gorm:"type:uuid;not null;index" json:"share_class_id"`
	Shares        decimal.Decimal `gorm:"type:numeric;not null" json:"shares"`
	PricePerShare decimal.Decimal `gorm:"type:numeric;not null" json:"price_per_share"`
	Amount        decimal.Decimal `gorm:"type:numeric;not null" json:"amount"`
	Status        IssuanceStatus  `gorm:"not null;default:'confirmed'" json:"status"`
	IssuedAt      time.Time       `gorm:"not null" json:"issued_at"`

	// Set when the issuance originated from a convertible conversion.
	SourceInstrumentID *string `gorm:"type:uuid;index" json:"source_instrument_id,omitempty"`

	// Relationships
	Shareholder Shareholder `gorm:"foreignKey:ShareholderID" json:"shareholder,omitempty"`
	ShareClass  ShareClass  `gorm:"foreignKey:ShareClassID" json:"share_class,omitempty"`
}
