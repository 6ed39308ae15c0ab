package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"finwise/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// TestPassword is the plain-text password of every fixture user.
const TestPassword = "password123"

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a local user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a local user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	hashed := string(hash)

	user := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: &hashed,
		Theme:        models.ThemeLight,
		Provider:     models.ProviderLocal,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateGlobalCategory creates an ownerless category visible to every user.
func CreateGlobalCategory(t *testing.T, db *gorm.DB, name string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	category := &models.Category{
		Name:  name,
		Type:  categoryType,
		Color: "#6b7280",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create global category: %v", err)
	}
	return category
}

// CreateTestCategory creates a category of the given type owned by ownerID.
func CreateTestCategory(t *testing.T, db *gorm.DB, ownerID string, categoryType models.CategoryType) *models.Category {
	t.Helper()
	return CreateTestCategoryNamed(t, db, ownerID, fmt.Sprintf("Test Category %d", nextID()), categoryType)
}

// CreateTestCategoryNamed creates an owned category with a fixed name.
func CreateTestCategoryNamed(t *testing.T, db *gorm.DB, ownerID, name string, categoryType models.CategoryType) *models.Category {
	t.Helper()

	owner := ownerID
	category := &models.Category{
		OwnerID: &owner,
		Name:    name,
		Type:    categoryType,
		Color:   "#3b82f6",
	}
	if err := db.Create(category).Error; err != nil {
		t.Fatalf("failed to create test category: %v", err)
	}
	return category
}

// CreateTestTransaction creates a transaction dated now with the given amount.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, amount string) *models.Transaction {
	t.Helper()
	return createTransaction(t, db, userID, categoryID, txType, decimal.RequireFromString(amount), time.Now().UTC())
}

// CreateTestTransactionOn creates a 10.00 transaction on the given date.
func CreateTestTransactionOn(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, date time.Time) *models.Transaction {
	t.Helper()
	return createTransaction(t, db, userID, categoryID, txType, decimal.NewFromInt(10), date.UTC())
}

func createTransaction(t *testing.T, db *gorm.DB, userID, categoryID string, txType models.TransactionType, amount decimal.Decimal, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      amount,
		Description: fmt.Sprintf("Test Transaction %d", nextID()),
		CategoryID:  categoryID,
		Date:        date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}

// Ptr returns a pointer to v, for building patches in tests.
func Ptr[T any](v T) *T {
	return &v
}
