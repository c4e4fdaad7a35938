package services

import (
	"time"

	"github.com/shopspring/decimal"

	"captable/internal/finance"
	"captable/internal/models"
	"captable/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// CompanyServicer defines the contract for company-related business logic.
type CompanyServicer interface {
	CreateCompany(ownerID, name, legalName, jurisdiction, description string) (*models.Company, error)
	GetUserCompanies(ownerID string, page pagination.PageRequest) (*pagination.PageResponse[models.Company], error)
	GetCompanyByID(ownerID, companyID string) (*models.Company, error)
	UpdateCompany(ownerID, companyID, name, legalName, description string) (*models.Company, error)
}

// ShareholderServicer defines the contract for shareholder management.
type ShareholderServicer interface {
	CreateShareholder(ownerID, companyID, name, email string, shareholderType models.ShareholderType) (*models.Shareholder, error)
	GetCompanyShareholders(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.Shareholder], error)
	GetShareholderByID(ownerID, companyID, shareholderID string) (*models.Shareholder, error)
	UpdateShareholder(ownerID, companyID, shareholderID, name, email string) (*models.Shareholder, error)
}

// ShareClassServicer defines the contract for share class management.
type ShareClassServicer interface {
	CreateShareClass(ownerID, companyID, name string, classType models.ShareClassType, totalAuthorized, parValue, votesPerShare decimal.Decimal) (*models.ShareClass, error)
	GetCompanyShareClasses(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.ShareClass], error)
	GetShareClassByID(ownerID, companyID, shareClassID string) (*models.ShareClass, error)
	UpdateAuthorizedShares(ownerID, companyID, shareClassID string, totalAuthorized decimal.Decimal) (*models.ShareClass, error)
}

// FundingRoundServicer defines the contract for funding round management.
type FundingRoundServicer interface {
	CreateFundingRound(ownerID, companyID, name string, targetAmount, preMoneyValuation decimal.Decimal) (*models.FundingRound, error)
	GetCompanyFundingRounds(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.FundingRound], error)
	GetFundingRoundByID(ownerID, companyID, roundID string) (*models.FundingRound, error)
	CloseFundingRound(ownerID, companyID, roundID string) (*models.FundingRound, error)
}

// CapTableEntry is one shareholder position in the cap table read model.
type CapTableEntry struct {
	ShareholderID   string          `json:"shareholder_id"`
	ShareholderName string          `json:"shareholder_name"`
	ShareClassID    string          `json:"share_class_id"`
	ShareClassName  string          `json:"share_class_name"`
	Shares          decimal.Decimal `json:"shares"`
	OwnershipPct    decimal.Decimal `json:"ownership_pct"`
	VotingPct       decimal.Decimal `json:"voting_pct"`
}

// CapTableView is the aggregated cap table for a company.
type CapTableView struct {
	CompanyID   string          `json:"company_id"`
	TotalShares decimal.Decimal `json:"total_shares"`
	Entries     []CapTableEntry `json:"entries"`
}

// CapTableServicer recomputes ownership percentages and records snapshots.
// It is invoked after every successful conversion.
type CapTableServicer interface {
	RecalculateOwnership(companyID string) error
	Recalculate(ownerID, companyID string) (*CapTableView, error)
	CreateAutoSnapshot(companyID, reasonCode, message string) (*models.CapTableSnapshot, error)
	GetCapTable(ownerID, companyID string) (*CapTableView, error)
	GetSnapshots(ownerID, companyID string, page pagination.PageRequest) (*pagination.PageResponse[models.CapTableSnapshot], error)
}

// CreateInstrumentInput holds the terms for a new convertible instrument.
type CreateInstrumentInput struct {
	ShareholderID               string
	Principal                   decimal.Decimal
	InterestRate                decimal.Decimal
	InterestType                models.InterestType
	IssueDate                   time.Time
	MaturityDate                time.Time
	DiscountRate                *decimal.Decimal
	ValuationCap                *decimal.Decimal
	QualifiedFinancingThreshold *decimal.Decimal
	ConversionTrigger           models.ConversionTrigger
	TargetShareClassID          *string
	AutoConvert                 bool
	MostFavoredNation           bool
	AllowHighRate               bool
	Notes                       string
}

// UpdateInstrumentInput holds a partial update of conversion terms. Nil
// fields are left unchanged.
type UpdateInstrumentInput struct {
	InterestRate                *decimal.Decimal
	MaturityDate                *time.Time
	DiscountRate                *decimal.Decimal
	ValuationCap                *decimal.Decimal
	QualifiedFinancingThreshold *decimal.Decimal
	ConversionTrigger           *models.ConversionTrigger
	TargetShareClassID          *string
	AutoConvert                 *bool
	MostFavoredNation           *bool
	AllowHighRate               bool
	Notes                       *string
}

// InstrumentFilter holds optional filter parameters for listing instruments.
type InstrumentFilter struct {
	Status        *models.InstrumentStatus
	ShareholderID *string
}

// InstrumentSummary aggregates the outstanding portion of a listing.
type InstrumentSummary struct {
	OutstandingCount     int64           `json:"outstanding_count"`
	TotalPrincipal       decimal.Decimal `json:"total_principal"`
	TotalAccruedInterest decimal.Decimal `json:"total_accrued_interest"`
}

// InstrumentDetail is an instrument enriched with live-computed values.
type InstrumentDetail struct {
	*models.ConvertibleInstrument
	LiveAccruedInterest decimal.Decimal `json:"live_accrued_interest"`
	ConversionAmount    decimal.Decimal `json:"conversion_amount"`
	DaysToMaturity      int64           `json:"days_to_maturity"`
}

// InterestBreakdown is the full accrual detail for one instrument.
type InterestBreakdown struct {
	InstrumentID    string                   `json:"instrument_id"`
	Principal       decimal.Decimal          `json:"principal"`
	InterestRate    decimal.Decimal          `json:"interest_rate"`
	InterestType    models.InterestType      `json:"interest_type"`
	IssueDate       time.Time                `json:"issue_date"`
	AsOf            time.Time                `json:"as_of"`
	DaysElapsed     int64                    `json:"days_elapsed"`
	AccruedInterest decimal.Decimal          `json:"accrued_interest"`
	TotalValue      decimal.Decimal          `json:"total_value"`
	Periods         []finance.InterestPeriod `json:"periods"`
}

// ConversionResult is the outcome of a successful conversion.
type ConversionResult struct {
	Instrument *models.ConvertibleInstrument `json:"instrument"`
	Issuance   *models.ShareIssuance         `json:"issuance"`
	Record     models.ConversionRecord       `json:"record"`
}

// ConvertibleServicer defines the contract for the convertible instrument
/// engine: lifecycle, accrual, scenario projection, and conversion.
type ConvertibleServicer interface {
	Create(ownerID, companyID string, input CreateInstrumentInput) (*models.ConvertibleInstrument, error)
	List(ownerID, companyID string, filter InstrumentFilter, page pagination.PageRequest) (*pagination.PageResponse[models.ConvertibleInstrument], *InstrumentSummary, error)
	GetByID(ownerID, companyID, instrumentID string) (*InstrumentDetail, error)
	GetInterestBreakdown(ownerID, companyID, instrumentID string) (*InterestBreakdown, error)
	GetScenarios(ownerID, companyID, instrumentID string, valuations []decimal.Decimal) (*finance.ScenarioSet, error)
	Update(ownerID, companyID, instrumentID string, input UpdateInstrumentInput) (*models.ConvertibleInstrument, error)
	Redeem(ownerID, companyID, instrumentID string, amount decimal.Decimal, reference string) (*models.ConvertibleInstrument, error)
	Cancel(ownerID, companyID, instrumentID, reason string) (*models.ConvertibleInstrument, error)
	Convert(ownerID, companyID, instrumentID, fundingRoundID, shareClassID string, roundValuation decimal.Decimal) (*ConversionResult, error)
	MarkMatured(asOf time.Time) (int64, error)
	RefreshAccruedInterest(asOf time.Time, chunkSize int) (int, error)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
