package services

import (
	"gorm.io/gorm"

	apperrors "finwise/internal/errors"
	"finwise/internal/models"
)

// PurgeUserData removes everything owned by userID: first its transactions,
// then its categories. Transactions go first so that no category delete can
// trip over a remaining reference. Global categories are never touched, and a
// user who owns nothing is a no-op.
//
// Callers run it inside the database transaction that deletes the user row.
func PurgeUserData(tx *gorm.DB, userID string) error {
	if err := tx.Where("user_id = ?", userID).Delete(&models.Transaction{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := tx.Where("owner_id = ?", userID).Delete(&models.Category{}).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
