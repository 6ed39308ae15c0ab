package services

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "finwise/internal/errors"
	"finwise/internal/models"
	"finwise/internal/ownership"
	"finwise/internal/uuid"
)

// categoryService handles category-related business logic.
type categoryService struct {
	db *gorm.DB
}

// NewCategoryService creates a new CategoryServicer.
func NewCategoryService(db *gorm.DB) CategoryServicer {
	return &categoryService{db: db}
}

// CreateCategory creates a category owned by ownerID. Uniqueness of
// (owner, name) is left to the unique indexes, so two racing creates with the
// same name yield one category and one DuplicateCategory.
func (s *categoryService) CreateCategory(ctx context.Context, ownerID string, input CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category name is required")
	}
	if !input.Type.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category type must be income, expense or both")
	}
	color := strings.TrimSpace(input.Color)
	if color == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category color is required")
	}
	if input.BudgetLimit != nil && input.BudgetLimit.IsNegative() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "budget limit cannot be negative")
	}

	owner := ownerID
	category := &models.Category{
		OwnerID: &owner,
		Name:    name,
		Type:    input.Type,
		Color:   color,
		Icon:    strings.TrimSpace(input.Icon),
	}
	if input.BudgetLimit != nil {
		category.BudgetLimit = decimal.NewNullDecimal(*input.BudgetLimit)
	}

	if err := s.db.WithContext(ctx).Create(category).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateCategory
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return category, nil
}

// ListCategories returns the global categories plus those owned by ownerID.
func (s *categoryService) ListCategories(ctx context.Context, ownerID string, filter CategoryFilter) ([]models.Category, error) {
	q := s.db.WithContext(ctx).Scopes(ownership.VisibleTo(ownerID), ownership.ByName)
	if filter.Type != nil {
		q = q.Where("categories.type = ?", *filter.Type)
	}

	categories := []models.Category{}
	if err := q.Find(&categories).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return categories, nil
}

// GetCategory retrieves a category visible to ownerID.
func (s *categoryService) GetCategory(ctx context.Context, ownerID, categoryID string) (*models.Category, error) {
	if !uuid.IsValid(categoryID) {
		return nil, apperrors.ErrCategoryNotFound
	}

	var category models.Category
	err := s.db.WithContext(ctx).
		Scopes(ownership.VisibleTo(ownerID)).
		Where("categories.id = ?", categoryID).
		First(&category).Error
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrCategoryNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &category, nil
}

// UpdateCategory applies patch to a category owned by ownerID. Global
// categories and other users' categories are reported as not editable.
//
// Transactions already referencing the category are not re-checked when its
// type changes.
func (s *categoryService) UpdateCategory(ctx context.Context, ownerID, categoryID string, patch models.CategoryPatch) (*models.Category, error) {
	if msg := patch.Validate(); msg != "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, msg)
	}
	if !uuid.IsValid(categoryID) {
		return nil, apperrors.ErrCategoryNotEditable
	}

	var category models.Category
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Scopes(ownership.OwnedBy(ownerID), ownership.LockForUpdate).
			Where("categories.id = ?", categoryID).
			First(&category).Error; err != nil {
			if isNotFound(err) {
				return apperrors.ErrCategoryNotEditable
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		patch.ApplyTo(&category)

		if err := tx.Save(&category).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.ErrDuplicateCategory
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// DeleteCategory removes a category after four checks, in order: it exists,
// it is not global, the caller owns it, and no transaction references it.
// The checks and the delete share one database transaction; on PostgreSQL the
// category row is locked so a concurrent ledger write cannot slip a new
// reference in between.
func (s *categoryService) DeleteCategory(ctx context.Context, ownerID, categoryID string) error {
	if !uuid.IsValid(categoryID) {
		return apperrors.ErrCategoryNotFound
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Scopes(ownership.LockForUpdate).
			Where("categories.id = ?", categoryID).
			First(&category).Error; err != nil {
			if isNotFound(err) {
				return apperrors.ErrCategoryNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		if category.IsGlobal() {
			return apperrors.ErrGlobalCategoryDelete
		}
		if !category.IsOwnedBy(ownerID) {
			return apperrors.ErrCategoryNotOwner
		}

		var refs int64
		if err := tx.Model(&models.Transaction{}).
			Where("transactions.category_id = ?", category.ID).
			Count(&refs).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if refs > 0 {
			return apperrors.ErrCategoryInUse
		}

		if err := tx.Delete(&category).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
}
