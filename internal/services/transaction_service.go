package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "finwise/internal/errors"
	"finwise/internal/models"
	"finwise/internal/ownership"
	"finwise/internal/pagination"
	"finwise/internal/uuid"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// CreateTransaction records a transaction for ownerID. The referenced category
// must exist, be usable by the owner and accept the transaction type, checked
// in that order.
func (s *transactionService) CreateTransaction(ctx context.Context, ownerID string, input TransactionInput) (*models.Transaction, error) {
	// Validate input
	if !input.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "transaction type must be income or expense")
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount cannot be negative")
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "description is required")
	}
	categoryID := strings.TrimSpace(input.CategoryID)
	if categoryID == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}

	date := time.Now().UTC()
	if input.Date != nil && !input.Date.IsZero() {
		date = input.Date.UTC()
	}

	transaction := &models.Transaction{
		UserID:      ownerID,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: description,
		CategoryID:  categoryID,
		Date:        date,
		Notes:       strings.TrimSpace(input.Notes),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		category, err := checkCategoryReference(tx, ownerID, categoryID, input.Type)
		if err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(transaction).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		transaction.Category = category
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// GetTransaction retrieves one of ownerID's transactions with its category.
func (s *transactionService) GetTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	return findOwnedTransaction(s.db.WithContext(ctx).Preload("Category"), ownerID, transactionID)
}

// UpdateTransaction applies patch to one of ownerID's transactions. The
// category checks run against the merged state, and only when the patch
// changes the type or the category; otherwise no category is looked up.
func (s *transactionService) UpdateTransaction(ctx context.Context, ownerID, transactionID string, patch models.TransactionPatch) (*models.Transaction, error) {
	if msg := patch.Validate(); msg != "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, msg)
	}

	var transaction *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := findOwnedTransaction(tx.Scopes(ownership.LockForUpdate), ownerID, transactionID)
		if err != nil {
			return err
		}

		patch.ApplyTo(current)
		if current.Date.IsZero() {
			current.Date = time.Now().UTC()
		}
		current.Date = current.Date.UTC()

		if patch.TouchesCategoryRules() {
			if _, err := checkCategoryReference(tx, ownerID, current.CategoryID, current.Type); err != nil {
				return err
			}
		}

		if err := tx.Omit(clause.Associations).Save(current).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		transaction, err = findOwnedTransaction(tx.Preload("Category"), ownerID, current.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// DeleteTransaction removes one of ownerID's transactions and returns it with
// its category. A transaction owned by someone else is reported exactly like
// a missing one.
func (s *transactionService) DeleteTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error) {
	var transaction *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := findOwnedTransaction(tx.Preload("Category"), ownerID, transactionID)
		if err != nil {
			return err
		}

		if err := tx.Where("transactions.id = ?", found.ID).Delete(&models.Transaction{}).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		transaction = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return transaction, nil
}

// ListTransactions returns ownerID's transactions, newest date first, with
// same-date entries kept in the order they were recorded.
func (s *transactionService) ListTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]models.Transaction, error) {
	transactions := []models.Transaction{}
	if err := s.filtered(ctx, ownerID, filter).
		Scopes(ownership.NewestFirst).
		Preload("Category").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return transactions, nil
}

// PageTransactions is ListTransactions split into pages.
func (s *transactionService) PageTransactions(ctx context.Context, ownerID string, filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error) {
	page.Defaults()

	var totalItems int64
	if err := s.filtered(ctx, ownerID, filter).Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := s.filtered(ctx, ownerID, filter).
		Scopes(ownership.NewestFirst, pagination.Paginate(page)).
		Preload("Category").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page.Page, page.PageSize, totalItems)
	return &result, nil
}

func (s *transactionService) filtered(ctx context.Context, ownerID string, filter TransactionFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Scopes(ownership.BelongsTo(ownerID))
	return applyTransactionFilters(q, filter)
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		pattern := "%" + search + "%"
		q = q.Where(
			"(LOWER(transactions.description) LIKE ? OR transactions.category_id IN (SELECT id FROM categories WHERE LOWER(categories.name) LIKE ?))",
			pattern, pattern,
		)
	}
	if f.Type != nil {
		q = q.Where("transactions.type = ?", *f.Type)
	}
	if f.CategoryID != nil {
		q = q.Where("transactions.category_id = ?", *f.CategoryID)
	}
	if f.From != nil {
		q = q.Where("transactions.date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("transactions.date <= ?", f.To.UTC())
	}
	return q
}

// findOwnedTransaction loads a transaction by id and owner. Malformed ids,
// missing rows and other users' rows all yield TransactionNotFound.
func findOwnedTransaction(db *gorm.DB, ownerID, transactionID string) (*models.Transaction, error) {
	if !uuid.IsValid(transactionID) {
		return nil, apperrors.ErrTransactionNotFound
	}

	var transaction models.Transaction
	if err := db.Scopes(ownership.BelongsTo(ownerID)).
		Where("transactions.id = ?", transactionID).
		First(&transaction).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// checkCategoryReference runs the category checks a transaction must pass
// before it is written, stopping at the first failure:
//
//  1. the category exists (CategoryNotFound)
//  2. it is global or owned by ownerID (CategoryNotOwned)
//  3. its type accepts txType (CategoryTypeMismatch)
//
// On PostgreSQL the category row is share-locked until the surrounding
// transaction ends, which blocks a concurrent delete of the category.
func checkCategoryReference(tx *gorm.DB, ownerID, categoryID string, txType models.TransactionType) (*models.Category, error) {
	if !uuid.IsValid(categoryID) {
		return nil, apperrors.ErrCategoryNotFound
	}

	var category models.Category
	if err := tx.Scopes(ownership.LockForShare).
		Where("categories.id = ?", categoryID).
		First(&category).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !category.UsableBy(ownerID) {
		return nil, apperrors.ErrCategoryNotOwned
	}

	if !category.Type.Accepts(txType) {
		return nil, apperrors.WithMessage(apperrors.ErrCategoryTypeMismatch,
			fmt.Sprintf("Category type %q does not accept %s transactions", category.Type, txType))
	}

	return &category, nil
}
