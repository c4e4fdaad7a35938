package models

// ShareholderType distinguishes natural persons from entities.
type ShareholderType string

const (
	ShareholderTypeIndividual ShareholderType = "individual"
	ShareholderTypeEntity     ShareholderType = "entity"
)

// Shareholder represents an investor or employee holding equity in a company.
type Shareholder struct {
	Base
	CompanyID string          `gorm:"type:uuid;not null;index" json:"company_id"`
	Name      string          `gorm:"not null" json:"name"`
	Email     string          `json:"email"`
	Type      ShareholderType `gorm:"not null;default:'individual'" json:"type"`
	Notes     string          `json:"notes"`

	// Relationships
	Company  Company        `gorm:"foreignKey:CompanyID" json:"-"`
	Holdings []Shareholding `gorm:"foreignKey:ShareholderID" json:"holdings,omitempty"`
}
