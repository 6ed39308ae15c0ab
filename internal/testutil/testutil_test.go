package testutil_test

import (
	"testing"

	"finwise/internal/errors"
	"finwise/internal/models"
	"finwise/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"users", "categories", "transactions", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDBIsolation(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestUser(t, first)

	var count int64
	if err := second.Model(&models.User{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected a fresh database, found %d users", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" || !user.HasPassword() {
		t.Fatalf("expected persisted local user, got %+v", user)
	}

	global := testutil.CreateGlobalCategory(t, db, "Salary", models.CategoryTypeIncome)
	if !global.IsGlobal() {
		t.Error("expected global category")
	}

	owned := testutil.CreateTestCategory(t, db, user.ID, models.CategoryTypeExpense)
	if !owned.IsOwnedBy(user.ID) {
		t.Error("expected category owned by fixture user")
	}

	tx := testutil.CreateTestTransaction(t, db, user.ID, owned.ID, models.TransactionTypeExpense, "12.34")
	if tx.ID == "" || tx.Amount.String() != "12.34" {
		t.Errorf("unexpected transaction fixture: %+v", tx)
	}
}

func TestAssertAppError(t *testing.T) {
	testutil.AssertAppError(t, errors.ErrCategoryInUse, "CATEGORY_IN_USE")
	testutil.AssertNoError(t, nil)
}
