// Package ownership holds the GORM scopes that encode who may see which rows
// and the order in which ledgers are listed.
package ownership

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VisibleTo limits categories to global rows plus those owned by userID.
func VisibleTo(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("categories.owner_id IS NULL OR categories.owner_id = ?", userID)
	}
}

// OwnedBy limits categories to those owned by userID. Global rows never match.
func OwnedBy(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("categories.owner_id = ?", userID)
	}
}

// BelongsTo limits transactions to those recorded by userID.
func BelongsTo(userID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("transactions.user_id = ?", userID)
	}
}

// NewestFirst orders transactions by date descending. Same-date rows keep
// insertion order by created_at, with id as the final tie-break.
func NewestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("transactions.date DESC").
		Order("transactions.created_at ASC").
		Order("transactions.id ASC")
}

// ByName orders categories alphabetically.
func ByName(db *gorm.DB) *gorm.DB {
	return db.Order("categories.name ASC").Order("categories.id ASC")
}

// LockForUpdate takes a row lock on the selected rows on dialects that
// support it. SQLite serialises writers at the database level instead.
func LockForUpdate(db *gorm.DB) *gorm.DB {
	if supportsRowLocks(db) {
		return db.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}
	return db
}

// LockForShare blocks concurrent writers to the selected rows until the
// surrounding transaction ends, without blocking other readers.
func LockForShare(db *gorm.DB) *gorm.DB {
	if supportsRowLocks(db) {
		return db.Clauses(clause.Locking{Strength: clause.LockingStrengthShare})
	}
	return db
}

func supportsRowLocks(db *gorm.DB) bool {
	return db.Dialector != nil && db.Dialector.Name() == "postgres"
}
