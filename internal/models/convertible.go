package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// InterestType represents how interest accrues on an instrument.
type InterestType string

const (
	InterestSimple   InterestType = "SIMPLE"
	InterestCompound InterestType = "COMPOUND"
)

// InstrumentStatus represents the lifecycle status of a convertible instrument.
type InstrumentStatus string

const (
	StatusOutstanding InstrumentStatus = "OUTSTANDING"
	StatusMatured     InstrumentStatus = "MATURED"
	StatusConverted   InstrumentStatus = "CONVERTED"
	StatusRedeemed    InstrumentStatus = "REDEEMED"
	StatusCancelled   InstrumentStatus = "CANCELLED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s InstrumentStatus) IsTerminal() bool {
	return s == StatusConverted || s == StatusRedeemed || s == StatusCancelled
}

// IsValid reports whether s is a known lifecycle status.
func (s InstrumentStatus) IsValid() bool {
	switch s {
	case StatusOutstanding, StatusMatured, StatusConverted, StatusRedeemed, StatusCancelled:
		return true
	}
	return false
}

// ConversionTrigger classifies what event triggers conversion.
type ConversionTrigger string

const (
	TriggerQualifiedFinancing ConversionTrigger = "qualified_financing"
	TriggerMaturity           ConversionTrigger = "maturity"
	TriggerOptional           ConversionTrigger = "optional"
)

// ConvertibleInstrument represents a convertible note or SAFE-style
// instrument. Terms are immutable once the instrument reaches a terminal
// status. AccruedInterest is a periodically refreshed snapshot; for
// OUTSTANDING and MATURED instruments interest is always recomputed live
// and the snapshot is never trusted.
type ConvertibleInstrument struct {
	Base
	CompanyID     string `gorm:"type:uuid;not null;index" json:"company_id"`
	ShareholderID string `gorm:"type:uuid;not null;index" json:"shareholder_id"`

	// Core terms
	Principal    decimal.Decimal `gorm:"type:numeric;not null" json:"principal"`
	InterestRate decimal.Decimal `gorm:"type:numeric;not null" json:"interest_rate"`
	InterestType InterestType    `gorm:"not null;default:'SIMPLE'" json:"interest_type"`
	IssueDate    time.Time       `gorm:"not null" json:"issue_date"`
	MaturityDate time.Time       `gorm:"not null" json:"maturity_date"`

	// Conversion terms
	DiscountRate                decimal.NullDecimal `gorm:"type:numeric" json:"discount_rate"`
	ValuationCap                decimal.NullDecimal `gorm:"type:numeric" json:"valuation_cap"`
	QualifiedFinancingThreshold decimal.NullDecimal `gorm:"type:numeric" json:"qualified_financing_threshold"`
	ConversionTrigger           ConversionTrigger   `gorm:"not null;default:'qualified_financing'" json:"conversion_trigger"`
	TargetShareClassID          *string             `gorm:"type:uuid" json:"target_share_class_id,omitempty"`
	AutoConvert                 bool                `gorm:"default:false" json:"auto_convert"`
	MostFavoredNation           bool                `gorm:"default:false" json:"most_favored_nation"`

	// Snapshot and lifecycle state
	AccruedInterest  decimal.Decimal  `gorm:"type:numeric;not null;default:0" json:"accrued_interest"`
	Status           InstrumentStatus `gorm:"not null;default:'OUTSTANDING';index" json:"status"`
	ConvertedAt      *time.Time       `json:"converted_at,omitempty"`
	RedeemedAt       *time.Time       `json:"redeemed_at,omitempty"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty"`
	ConversionData   string           `gorm:"type:text" json:"conversion_data,omitempty"`
	RedemptionData   string           `gorm:"type:text" json:"redemption_data,omitempty"`
	CancellationData string           `gorm:"type:text" json:"cancellation_data,omitempty"`
	Notes            string           `json:"notes"`

	// Relationships
	Company          Company     `gorm:"foreignKey:CompanyID" json:"-"`
	Shareholder      Shareholder `gorm:"foreignKey:ShareholderID" json:"shareholder,omitempty"`
	TargetShareClass *ShareClass `gorm:"foreignKey:TargetShareClassID" json:"target_share_class,omitempty"`
}

// ConversionRecord captures the outcome of a conversion; it is persisted
// as JSON in ConversionData when the instrument converts.
type ConversionRecord struct {
	FundingRoundID   string          `json:"funding_round_id"`
	ShareClassID     string          `json:"share_class_id"`
	IssuanceID       string          `json:"issuance_id"`
	ConversionAmount decimal.Decimal `json:"conversion_amount"`
	PricePerShare    decimal.Decimal `json:"price_per_share"`
	SharesIssued     decimal.Decimal `json:"shares_issued"`
	Method           string          `json:"method"`
	Actor            string          `json:"actor"`
	ConvertedAt      time.Time       `json:"converted_at"`
}

// RedemptionRecord captures the terms of a redemption; persisted as JSON
// in RedemptionData.
type RedemptionRecord struct {
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	Actor      string          `json:"actor"`
	RedeemedAt time.Time       `json:"redeemed_at"`
}

// CancellationRecord captures the reason for a cancellation; persisted as
// JSON in CancellationData.
type CancellationRecord struct {
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor"`
	CancelledAt time.Time `json:"cancelled_at"`
}
