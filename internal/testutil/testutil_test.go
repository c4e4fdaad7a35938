package testutil_test

import (
	"testing"

	"captable/internal/errors"
	"captable/internal/models"
	"captable/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	// Verify all tables exist by doing a simple count query on each model.
	var count int64
	for _, table := range []string{"users", "companies", "shareholders", "share_classes", "shareholdings", "funding_rounds", "convertible_instruments", "share_issuances", "cap_table_snapshots", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("user should have a generated ID")
	}

	company := testutil.CreateTestCompany(t, db, user.ID)
	if !company.IsActive() {
		t.Error("fixture company should be active")
	}

	shareholder := testutil.CreateTestShareholder(t, db, company.ID)
	if shareholder.Type != models.ShareholderTypeIndividual {
		t.Errorf("expected individual shareholder, got %s", shareholder.Type)
	}

	shareClass := testutil.CreateTestShareClass(t, db, company.ID, 10_000_000, 8_000_000)
	if !shareClass.Remaining().Equal(shareClass.TotalAuthorized.Sub(shareClass.TotalIssued)) {
		t.Error("remaining shares should be authorized minus issued")
	}

	round := testutil.CreateTestFundingRound(t, db, company.ID, 3_000_000)
	if round.Status != models.FundingRoundStatusOpen {
		t.Errorf("expected open round, got %s", round.Status)
	}

	instrument := testutil.CreateTestInstrument(t, db, company.ID, shareholder.ID, testutil.InstrumentOpts{})
	if instrument.Status != models.StatusOutstanding {
		t.Errorf("expected outstanding instrument, got %s", instrument.Status)
	}
}

func TestAssertAppError(t *testing.T) {
	err := errors.WithMessage(errors.ErrInstrumentNotFound, "custom message")
	testutil.AssertAppError(t, err, "INSTRUMENT_NOT_FOUND")
}

func TestAssertNoError(t *testing.T) {
	testutil.AssertNoError(t, nil)
}
