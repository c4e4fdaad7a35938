package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot reason codes recorded with automatic cap-table snapshots.
const (
	SnapshotReasonConversion = "CONVERTIBLE_CONVERSION"
	SnapshotReasonManual     = "MANUAL"
)

// CapTableSnapshot is a point-in-time record of a company's cap table,
// created automatically after events that change ownership.
type CapTableSnapshot struct {
	Base
	CompanyID   string          `gorm:"type:uuid;not null;index" json:"company_id"`
	ReasonCode  string          `gorm:"not null" json:"reason_code"`
	Message     string          `json:"message"`
	TotalShares decimal.Decimal `gorm:"type:numeric;not null;default:0" json:"total_shares"`
	Holdings    string          `gorm:"type:text" json:"holdings"` // JSON array of holding entries
	RecordedAt  time.Time       `gorm:"not null;index" json:"recorded_at"`
}

// SnapshotHolding is one entry in a snapshot's Holdings payload.
type SnapshotHolding struct {
	ShareholderID string          `json:"shareholder_id"`
	ShareClassID  string          `json:"share_class_id"`
	Shares        decimal.Decimal `json:"shares"`
	OwnershipPct  decimal.Decimal `json:"ownership_pct"`
	VotingPct     decimal.Decimal `json:"voting_pct"`
}
