package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingRoundStatus represents the lifecycle of a funding round.
type FundingRoundStatus string

const (
	FundingRoundStatusOpen      FundingRoundStatus = "open"
	FundingRoundStatusClosed    FundingRoundStatus = "closed"
	FundingRoundStatusCancelled FundingRoundStatus = "cancelled"
)

// FundingRound represents a priced equity financing round. Its target
// amount is checked against qualified-financing thresholds when
// convertible instruments convert into the round.
type FundingRound struct {
	Base
	CompanyID         string             `gorm:"type:uuid;not null;index" json:"company_id"`
	Name              string             `gorm:"not null" json:"name"`
	TargetAmount      decimal.Decimal    `gorm:"type:numeric;not null" json:"target_amount"`
	PreMoneyValuation decimal.Decimal    `gorm:"type:numeric;not null" json:"pre_money_valuation"`
	Status            FundingRoundStatus `gorm:"not null;default:'open'" json:"status"`
	ClosedAt          *time.Time         `json:"closed_at,omitempty"`

	// Relationships
	Company Company `gorm:"foreignKey:CompanyID" json:"-"`
}
