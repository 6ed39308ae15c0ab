package models

import "github.com/shopspring/decimal"

// CategoryType represents the type of category
type CategoryType string

const (
	CategoryTypeIncome  CategoryType = "income"
	CategoryTypeExpense CategoryType = "expense"
	CategoryTypeBoth    CategoryType = "both"
)

// Valid reports whether t is one of the supported category types.
func (t CategoryType) Valid() bool {
	switch t {
	case CategoryTypeIncome, CategoryTypeExpense, CategoryTypeBoth:
		return true
	}
	return false
}

// Accepts reports whether a transaction of type tt may reference a category
// of type t. "both" accepts either transaction type.
func (t CategoryType) Accepts(tt TransactionType) bool {
	if t == CategoryTypeBoth {
		return true
	}
	return string(t) == string(tt)
}

// Category represents a transaction category. A nil OwnerID marks a global
// category that every user can see and reference but nobody can edit.
//
// (owner_id, name) is unique. SQL treats NULLs as distinct, so global names
// get their own partial unique index.
type Category struct {
	Base
	OwnerID     *string             `gorm:"type:uuid;uniqueIndex:idx_categories_owner_name,priority:1" json:"user_id"`
	Name        string              `gorm:"not null;uniqueIndex:idx_categories_owner_name,priority:2;uniqueIndex:idx_categories_global_name,where:owner_id IS NULL" json:"name"`
	Type        CategoryType        `gorm:"not null" json:"type"`
	Color       string              `gorm:"not null" json:"color"`
	Icon        string              `json:"icon,omitempty"`
	BudgetLimit decimal.NullDecimal `gorm:"type:numeric(14,2)" json:"budget_limit"`
}

// IsGlobal reports whether the category has no owner.
func (c *Category) IsGlobal() bool {
	return c.OwnerID == nil
}

// IsOwnedBy reports whether userID owns the category. Global categories are
// owned by nobody.
func (c *Category) IsOwnedBy(userID string) bool {
	return c.OwnerID != nil && *c.OwnerID == userID
}

// UsableBy reports whether userID may see and reference the category.
func (c *Category) UsableBy(userID string) bool {
	return c.IsGlobal() || c.IsOwnedBy(userID)
}
