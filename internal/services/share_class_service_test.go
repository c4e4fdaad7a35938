package services

import (
	"testing"

	"github.com/shopspring/decimal"

	"captable/internal/models"
	"captable/internal/testutil"
)

func TestCreateShareClass(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewShareClassService(db, NewCompanyService(db))
		user := testutil.CreateTestUser(t, db)
		company := testutil.CreateTestCompany(t, db, user.ID)

		shareClass, err := svc.CreateShareClass(user.ID, company.ID, "Common", models.ShareClassTypeCommon,
			decimal.NewFromInt(10_000_000), decimal.RequireFromString("0.0001"), decimal.Zero)
		testutil.AssertNoError(t, err)

		if !shareClass.TotalIssued.IsZero() {
			t.Errorf("new class should have no issued shares, got %s", shareClass.TotalIssued)
		}
		if !shareClass.VotesPerShare.Equal(decimal.NewFromInt(1)) {
			t.Errorf("common shares default to one vote, got %s", shareClass.VotesPerShare)
		}
	})

	t.Run("zero_authorized", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewShareClassService(db, NewCompanyService(db))
		user := testutil.CreateTestUser(t, db)
		company := testutil.CreateTestCompany(t, db, user.ID)

		_, err := svc.CreateShareClass(user.ID, company.ID, "Common", models.ShareClassTypeCommon,
			decimal.Zero, decimal.Zero, decimal.Zero)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdateAuthorizedShares(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewShareClassService(db, NewCompanyService(db))
	user := testutil.CreateTestUser(t, db)
	company := testutil.CreateTestCompany(t, db, user.ID)
	shareClass := testutil.CreateTestShareClass(t, db, company.ID, 10_000_000, 8_000_000)

	// Growing the pool is fine.
	updated, err := svc.UpdateAuthorizedShares(user.ID, company.ID, shareClass.ID, decimal.NewFromInt(20_000_000))
	testutil.AssertNoError(t, err)
	if !updated.Remaining().Equal(decimal.NewFromInt(12_000_000)) {
		t.Errorf("expected 12000000 remaining, got %s", updated.Remaining())
	}

	// Shrinking below what is issued is not.
	_, err = svc.UpdateAuthorizedShares(user.ID, company.ID, shareClass.ID, decimal.NewFromInt(7_000_000))
	testutil.AssertAppError(t, err, "INVALID_INPUT")
}
