package services

import (
	"context"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "finwise/internal/errors"
	"finwise/internal/identity"
	"finwise/internal/models"
	"finwise/internal/uuid"
)

// userService handles user-related business logic.
type userService struct {
	db         *gorm.DB
	bcryptCost int
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db, bcryptCost: 12}
}

// Register creates a local account with a bcrypt-hashed password.
func (s *userService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "name, email and password are required")
	}

	// Hash password
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	hash := string(hashed)

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: &hash,
		Theme:        models.ThemeLight,
		Provider:     models.ProviderLocal,
	}

	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperrors.ErrDuplicateEmail
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return user, nil
}

// Authenticate checks an email and password. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *userService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if !user.HasPassword() {
		return nil, apperrors.ErrSocialAccount
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}

	return &user, nil
}

// LoginWithGoogle signs in a verified Google identity. The account is found by
// Google subject, then by email (linking the subject to it), and is created
// with provider google when neither matches.
func (s *userService) LoginWithGoogle(ctx context.Context, profile *identity.Profile) (*models.User, error) {
	if profile == nil || profile.Subject == "" || profile.Email == "" {
		return nil, apperrors.ErrInvalidIDToken
	}

	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("google_id = ?", profile.Subject).First(&user).Error
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		subject := profile.Subject
		err = tx.Where("email = ?", normalizeEmail(profile.Email)).First(&user).Error
		switch {
		case err == nil:
			if err := tx.Model(&user).Update("google_id", subject).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			user.GoogleID = &subject
			return nil
		case !isNotFound(err):
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		user = models.User{
			Name:     profile.Name,
			Email:    normalizeEmail(profile.Email),
			GoogleID: &subject,
			Theme:    models.ThemeLight,
			Provider: models.ProviderGoogle,
		}
		if err := tx.Create(&user).Error; err != nil {
			if isDuplicateKey(err) {
				return apperrors.ErrDuplicateEmail
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	return findUser(s.db.WithContext(ctx), userID)
}

// UpdateTheme stores the user's UI theme preference.
func (s *userService) UpdateTheme(ctx context.Context, userID string, theme models.Theme) (*models.User, error) {
	if !theme.Valid() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "theme must be light or dark")
	}

	user, err := findUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Model(user).Update("theme", theme).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	user.Theme = theme
	return user, nil
}

// DeleteUser removes the account and, in the same database transaction,
// everything it owns.
func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := findUser(tx, userID)
		if err != nil {
			return err
		}

		if err := tx.Delete(user).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		return PurgeUserData(tx, user.ID)
	})
}

func findUser(db *gorm.DB, userID string) (*models.User, error) {
	if !uuid.IsValid(userID) {
		return nil, apperrors.ErrUserNotFound
	}

	var user models.User
	if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
