package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"captable/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:    email,
		Password: string(hash),
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestCompany creates an active company owned by the given user.
func CreateTestCompany(t *testing.T, db *gorm.DB, ownerID string) *models.Company {
	t.Helper()

	company := &models.Company{
		OwnerID:      ownerID,
		Name:         fmt.Sprintf("Test Company %d", nextID()),
		LegalName:    "Test Company Inc.",
		Jurisdiction: "DE",
		Status:       models.CompanyStatusActive,
	}
	if err := db.Create(company).Error; err != nil {
		t.Fatalf("failed to create test company: %v", err)
	}
	return company
}

// CreateTestShareholder creates an individual shareholder in the company.
func CreateTestShareholder(t *testing.T, db *gorm.DB, companyID string) *models.Shareholder {
	t.Helper()

	shareholder := &models.Shareholder{
		CompanyID: companyID,
		Name:      fmt.Sprintf("Test Investor %d", nextID()),
		Email:     fmt.Sprintf("investor%d@test.com", nextID()),
		Type:      models.ShareholderTypeIndividual,
	}
	if err := db.Create(shareholder).Error; err != nil {
		t.Fatalf("failed to create test shareholder: %v", err)
	}
	return shareholder
}

// CreateTestShareClass creates a common share class with the given
// authorized and issued totals.
func CreateTestShareClass(t *testing.T, db *gorm.DB, companyID string, authorized, issued int64) *models.ShareClass {
	t.Helper()

	shareClass := &models.ShareClass{
		CompanyID:       companyID,
		Name:            fmt.Sprintf("Common %d", nextID()),
		Type:            models.ShareClassTypeCommon,
		TotalAuthorized: decimal.NewFromInt(authorized),
		TotalIssued:     decimal.NewFromInt(issued),
		ParValue:        decimal.RequireFromString("0.0001"),
		VotesPerShare:   decimal.NewFromInt(1),
	}
	if err := db.Create(shareClass).Error; err != nil {
		t.Fatalf("failed to create test share class: %v", err)
	}
	return shareClass
}

// CreateTestFundingRound creates an open round with the given target amount.
func CreateTestFundingRound(t *testing.T, db *gorm.DB, companyID string, targetAmount int64) *models.FundingRound {
	t.Helper()

	round := &models.FundingRound{
		CompanyID:         companyID,
		Name:              fmt.Sprintf("Series Seed %d", nextID()),
		TargetAmount:      decimal.NewFromInt(targetAmount),
		PreMoneyValuation: decimal.NewFromInt(targetAmount * 4),
		Status:            models.FundingRoundStatusOpen,
	}
	if err := db.Create(round).Error; err != nil {
		t.Fatalf("failed to create test funding round: %v", err)
	}
	return round
}

// InstrumentOpts tweaks the default instrument fixture.
type InstrumentOpts struct {
	Principal                   decimal.Decimal
	InterestRate                decimal.Decimal
	InterestType                models.InterestType
	IssueDate                   time.Time
	MaturityDate                time.Time
	DiscountRate                *decimal.Decimal
	ValuationCap                *decimal.Decimal
	QualifiedFinancingThreshold *decimal.Decimal
	Status                      models.InstrumentStatus
}

// CreateTestInstrument creates an outstanding convertible note issued two
// years ago: 100000 principal at 10% simple interest, unless overridden.
func CreateTestInstrument(t *testing.T, db *gorm.DB, companyID, shareholderID string, opts InstrumentOpts) *models.ConvertibleInstrument {
	t.Helper()

	if opts.Principal.IsZero() {
		opts.Principal = decimal.NewFromInt(100000)
	}
	if opts.InterestRate.IsZero() {
		opts.InterestRate = decimal.RequireFromString("0.10")
	}
	if opts.InterestType == "" {
		opts.InterestType = models.InterestSimple
	}
	if opts.IssueDate.IsZero() {
		opts.IssueDate = time.Now().AddDate(-2, 0, 0)
	}
	if opts.MaturityDate.IsZero() {
		opts.MaturityDate = opts.IssueDate.AddDate(3, 0, 0)
	}
	if opts.Status == "" {
		opts.Status = models.StatusOutstanding
	}

	instrument := &models.ConvertibleInstrument{
		CompanyID:                   companyID,
		ShareholderID:               shareholderID,
		Principal:                   opts.Principal,
		InterestRate:                opts.InterestRate,
		InterestType:                opts.InterestType,
		IssueDate:                   opts.IssueDate,
		MaturityDate:                opts.MaturityDate,
		DiscountRate:                toNull(opts.DiscountRate),
		ValuationCap:                toNull(opts.ValuationCap),
		QualifiedFinancingThreshold: toNull(opts.QualifiedFinancingThreshold),
		ConversionTrigger:           models.TriggerQualifiedFinancing,
		Status:                      opts.Status,
		AccruedInterest:             decimal.Zero,
	}
	if err := db.Create(instrument).Error; err != nil {
		t.Fatalf("failed to create test instrument: %v", err)
	}
	return instrument
}

func toNull(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// DecimalPtr returns a pointer to a decimal parsed from s.
func DecimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
