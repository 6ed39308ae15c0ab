package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// Valid reports whether t is a supported transaction type. "both" is a
// category-only wildcard and never a valid transaction type.
func (t TransactionType) Valid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction represents a single income or expense entry.
type Transaction struct {
	Base
	UserID      string          `gorm:"type:uuid;not null;index:idx_transactions_user_date,priority:1" json:"user_id"`
	Type        TransactionType `gorm:"not null" json:"type"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"amount"`
	Description string          `gorm:"not null" json:"description"`
	CategoryID  string          `gorm:"type:uuid;not null;index" json:"category_id"`
	Date        time.Time       `gorm:"not null;index:idx_transactions_user_date,priority:2,sort:desc" json:"date"`
	Notes       string          `json:"notes,omitempty"`

	// Relationships
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}
