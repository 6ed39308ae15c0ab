package models

// AuthProvider identifies how a user signs in.
type AuthProvider string

const (
	ProviderLocal  AuthProvider = "local"
	ProviderGoogle AuthProvider = "google"
	ProviderGitHub AuthProvider = "github"
)

// Theme is the UI theme preference stored with the account.
type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Valid reports whether t is a supported theme.
func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

// User represents the user model in the database
type User struct {
	Base
	Name         string       `gorm:"not null" json:"name"`
	Email        string       `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash *string      `json:"-"`
	GoogleID     *string      `gorm:"uniqueIndex" json:"-"`
	Theme        Theme        `gorm:"not null;default:light" json:"theme"`
	Provider     AuthProvider `gorm:"not null;default:local" json:"provider"`
}

// HasPassword reports whether the account can sign in with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}
