package services

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"captable/internal/models"
	"captable/internal/pagination"
	"captable/internal/testutil"
)

func createHolding(t *testing.T, db *gorm.DB, companyID, shareholderID, shareClassID string, shares int64) *models.Shareholding {
	t.Helper()
	holding := &models.Shareholding{
		CompanyID:     companyID,
		ShareholderID: shareholderID,
		ShareClassID:  shareClassID,
		Shares:        decimal.NewFromInt(shares),
	}
	if err := db.Create(holding).Error; err != nil {
		t.Fatalf("failed to create holding: %v", err)
	}
	return holding
}

func TestRecalculateOwnership(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	companySvc := NewCompanyService(db)
	svc := NewCapTableService(db, companySvc)

	user := testutil.CreateTestUser(t, db)
	company := testutil.CreateTestCompany(t, db, user.ID)
	alice := testutil.CreateTestShareholder(t, db, company.ID)
	bob := testutil.CreateTestShareholder(t, db, company.ID)

	common := testutil.CreateTestShareClass(t, db, company.ID, 10_000_000, 1_000_000)
	preferred := &models.ShareClass{
		CompanyID:       company.ID,
		Name:            "Series A Preferred",
		Type:            models.ShareClassTypePreferred,
		TotalAuthorized: decimal.NewFromInt(5_000_000),
		TotalIssued:     decimal.NewFromInt(250_000),
		VotesPerShare:   decimal.NewFromInt(10),
	}
	testutil.AssertNoError(t, db.Create(preferred).Error)

	h1 := createHolding(t, db, company.ID, alice.ID, common.ID, 750_000)
	h2 := createHolding(t, db, company.ID, bob.ID, preferred.ID, 250_000)

	testutil.AssertNoError(t, svc.RecalculateOwnership(company.ID))

	// 1,000,000 total shares: alice 75%, bob 25% by ownership.
	var alice750 models.Shareholding
	db.First(&alice750, "id = ?", h1.ID)
	if !alice750.OwnershipPct.Equal(decimal.NewFromInt(75)) {
		t.Errorf("expected 75%% ownership, got %s", alice750.OwnershipPct)
	}

	// Votes: alice 750000, bob 2500000 with 10 votes per share.
	// alice 750000/3250000 ~ 23.08%.
	var bob250 models.Shareholding
	db.First(&bob250, "id = ?", h2.ID)
	bobVoting, _ := bob250.VotingPct.Float64()
	if bobVoting < 76.9 || bobVoting > 77.0 {
		t.Errorf("expected bob voting ~76.92%%, got %s", bob250.VotingPct)
	}
}

func TestRecalculateScoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	companySvc := NewCompanyService(db)
	svc := NewCapTableService(db, companySvc)

	user := testutil.CreateTestUser(t, db)
	company := testutil.CreateTestCompany(t, db, user.ID)
	alice := testutil.CreateTestShareholder(t, db, company.ID)
	common := testutil.CreateTestShareClass(t, db, company.ID, 10_000_000, 1_000_000)
	createHolding(t, db, company.ID, alice.ID, common.ID, 500_000)

	view, err := svc.Recalculate(user.ID, company.ID)
	testutil.AssertNoError(t, err)
	if len(view.Entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(view.Entries))
	}
	if !view.Entries[0].OwnershipPct.Equal(decimal.NewFromInt(100)) {
		t.Errorf("expected 100%% ownership for the sole holding, got %s", view.Entries[0].OwnershipPct)
	}

	stranger := testutil.CreateTestUserWithEmail(t, db, "stranger@example.com")
	_, err = svc.Recalculate(stranger.ID, company.ID)
	testutil.AssertAppError(t, err, "COMPANY_NOT_FOUND")
}

func TestCreateAutoSnapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	companySvc := NewCompanyService(db)
	svc := NewCapTableService(db, companySvc)

	user := testutil.CreateTestUser(t, db)
	company := testutil.CreateTestCompany(t, db, user.ID)
	shareholder := testutil.CreateTestShareholder(t, db, company.ID)
	shareClass := testutil.CreateTestShareClass(t, db, company.ID, 10_000_000, 500_000)
	createHolding(t, db, company.ID, shareholder.ID, shareClass.ID, 500_000)

	snapshot, err := svc.CreateAutoSnapshot(company.ID, models.SnapshotReasonConversion, "test snapshot")
	testutil.AssertNoError(t, err)

	if snapshot.ReasonCode != models.SnapshotReasonConversion {
		t.Errorf("expected conversion reason code, got %s", snapshot.ReasonCode)
	}
	if !snapshot.TotalShares.Equal(decimal.NewFromInt(500_000)) {
		t.Errorf("expected 500000 total shares, got %s", snapshot.TotalShares)
	}

	var holdings []models.SnapshotHolding
	if err := json.Unmarshal([]byte(snapshot.Holdings), &holdings); err != nil {
		t.Fatalf("holdings payload should be JSON: %v", err)
	}
	if len(holdings) != 1 || !holdings[0].Shares.Equal(decimal.NewFromInt(500_000)) {
		t.Errorf("unexpected holdings payload: %+v", holdings)
	}
}

func TestGetCapTable(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	companySvc := NewCompanyService(db)
	svc := NewCapTableService(db, companySvc)

	user := testutil.CreateTestUser(t, db)
	company := testutil.CreateTestCompany(t, db, user.ID)
	shareholder := testutil.CreateTestShareholder(t, db, company.ID)
	shareClass := testutil.CreateTestShareClass(t, db, company.ID, 10_000_000, 500_000)
	createHolding(t, db, company.ID, shareholder.ID, shareClass.ID, 500_000)

	view, err := svc.GetCapTable(user.ID, company.ID)
	testutil.AssertNoError(t, err)

	if len(view.Entries) != 1 {
		t.Fatalf("expected one entry, got %d", len(view.Entries))
	}
	if view.Entries[0].ShareholderName != shareholder.Name {
		t.Errorf("expected shareholder name resolved, got %q", view.Entries[0].ShareholderName)
	}
	if view.Entries[0].ShareClassName != shareClass.Name {
		t.Errorf("expected share class name resolved, got %q", view.Entries[0].ShareClassName)
	}

	// Ownership checks are scoped to the authenticated owner.
	other := testutil.CreateTestUser(t, db)
	_, err = svc.GetCapTable(other.ID, company.ID)
	testutil.AssertAppError(t, err, "COMPANY_NOT_FOUND")
}

func TestGetSnapshotsOrdering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	companySvc := NewCompanyService(db)
	svc := NewCapTableService(db, companySvc)

	user := testutil.CreateTestUser(t, db)
	company := testutil.CreateTestCompany(t, db, user.ID)

	for i := 0; i < 3; i++ {
		_, err := svc.CreateAutoSnapshot(company.ID, models.SnapshotReasonManual, "")
		testutil.AssertNoError(t, err)
	}

	page, err := svc.GetSnapshots(user.ID, company.ID, pagination.PageRequest{Page: 1, PageSize: 2})
	testutil.AssertNoError(t, err)

	if page.TotalItems != 3 {
		t.Errorf("expected 3 snapshots total, got %d", page.TotalItems)
	}
	if len(page.Data) != 2 {
		t.Errorf("expected page of 2, got %d", len(page.Data))
	}
	if page.TotalPages != 2 {
		t.Errorf("expected 2 pages, got %d", page.TotalPages)
	}
}
