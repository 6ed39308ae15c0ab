package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryPatch is a sparse update for a category. Nil fields keep their
// stored value. Owner and id are deliberately absent.
type CategoryPatch struct {
	Name        *string
	Type        *CategoryType
	Color       *string
	Icon        *string
	BudgetLimit *decimal.Decimal
}

// Validate checks the supplied fields and returns a description of the
// first problem, or "" when the patch is acceptable.
func (p CategoryPatch) Validate() string {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return "category name cannot be empty"
	}
	if p.Type != nil && !p.Type.Valid() {
		return "category type must be income, expense or both"
	}
	if p.Color != nil && strings.TrimSpace(*p.Color) == "" {
		return "category color cannot be empty"
	}
	if p.BudgetLimit != nil && p.BudgetLimit.IsNegative() {
		return "budget limit cannot be negative"
	}
	return ""
}

// ApplyTo copies the supplied fields onto c.
func (p CategoryPatch) ApplyTo(c *Category) {
	if p.Name != nil {
		c.Name = strings.TrimSpace(*p.Name)
	}
	if p.Type != nil {
		c.Type = *p.Type
	}
	if p.Color != nil {
		c.Color = strings.TrimSpace(*p.Color)
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.BudgetLimit != nil {
		c.BudgetLimit = decimal.NewNullDecimal(*p.BudgetLimit)
	}
}

// TransactionPatch is a sparse update for a transaction. Nil fields keep
// their stored value. Owner and id are deliberately absent.
type TransactionPatch struct {
	Type        *TransactionType
	Amount      *decimal.Decimal
	Description *string
	CategoryID  *string
	Date        *time.Time
	Notes       *string
}

// TouchesCategoryRules reports whether the patch changes either side of the
// category reference check. When it does not, the stored reference is
// already known to be valid and no category lookup is needed.
func (p TransactionPatch) TouchesCategoryRules() bool {
	return p.Type != nil || p.CategoryID != nil
}

// Validate checks the supplied fields and returns a description of the
// first problem, or "" when the patch is acceptable.
func (p TransactionPatch) Validate() string {
	if p.Type != nil && !p.Type.Valid() {
		return "transaction type must be income or expense"
	}
	if p.Amount != nil && p.Amount.IsNegative() {
		return "amount cannot be negative"
	}
	if p.Description != nil && strings.TrimSpace(*p.Description) == "" {
		return "description cannot be empty"
	}
	if p.CategoryID != nil && strings.TrimSpace(*p.CategoryID) == "" {
		return "category cannot be empty"
	}
	if p.Date != nil && p.Date.IsZero() {
		return "date cannot be empty"
	}
	return ""
}

// ApplyTo copies the supplied fields onto t.
func (p TransactionPatch) ApplyTo(t *Transaction) {
	if p.Type != nil {
		t.Type = *p.Type
	}
	if p.Amount != nil {
		t.Amount = *p.Amount
	}
	if p.Description != nil {
		t.Description = strings.TrimSpace(*p.Description)
	}
	if p.CategoryID != nil {
		t.CategoryID = strings.TrimSpace(*p.CategoryID)
	}
	if p.Date != nil {
		t.Date = *p.Date
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
}
