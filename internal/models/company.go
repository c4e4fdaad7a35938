package models

// CompanyStatus represents the operating status of a company.
type CompanyStatus string

const (
	CompanyStatusActive    CompanyStatus = "active"
	CompanyStatusSuspended CompanyStatus = "suspended"
)

// Company represents a company whose cap table is managed on the platform.
type Company struct {
	Base
	OwnerID      string        `gorm:"type:uuid;not null;index" json:"owner_id"`
	Name         string        `gorm:"not null" json:"name"`
	LegalName    string        `json:"legal_name"`
	Jurisdiction string        `json:"jurisdiction"`
	Status       CompanyStatus `gorm:"not null;default:'active'" json:"status"`
	Description  string        `json:"description"`

	// Relationships
	Owner        User                    `gorm:"foreignKey:OwnerID" json:"-"`
	Shareholders []Shareholder           `gorm:"foreignKey:CompanyID" json:"shareholders,omitempty"`
	ShareClasses []ShareClass            `gorm:"foreignKey:CompanyID" json:"share_classes,omitempty"`
	Rounds       []FundingRound          `gorm:"foreignKey:CompanyID" json:"rounds,omitempty"`
	Instruments  []ConvertibleInstrument `gorm:"foreignKey:CompanyID" json:"instruments,omitempty"`
}

// IsActive reports whether new instruments and rounds may be created.
func (c *Company) IsActive() bool {
	return c.Status == CompanyStatusActive
}
