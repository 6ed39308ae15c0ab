package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"finwise/internal/identity"
	"finwise/internal/models"
	"finwise/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	Register(ctx context.Context, name, email, password string) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	LoginWithGoogle(ctx context.Context, profile *identity.Profile) (*models.User, error)
	GetUserByID(ctx context.Context, userID string) (*models.User, error)
	UpdateTheme(ctx context.Context, userID string, theme models.Theme) (*models.User, error)
	DeleteUser(ctx context.Context, userID string) error
}

// CategoryInput carries the fields of a new category. The owner is never
// part of the input; it is always the caller.
type CategoryInput struct {
	Name        string
	Type        models.CategoryType
	Color       string
	Icon        string
	BudgetLimit *decimal.Decimal
}

// CategoryFilter holds optional filter parameters for listing categories.
type CategoryFilter struct {
	Type *models.CategoryType
}

// CategoryServicer defines the contract for category-related business logic.
type CategoryServicer interface {
	CreateCategory(ctx context.Context, ownerID string, input CategoryInput) (*models.Category, error)
	ListCategories(ctx context.Context, ownerID string, filter CategoryFilter) ([]models.Category, error)
	GetCategory(ctx context.Context, ownerID, categoryID string) (*models.Category, error)
	UpdateCategory(ctx context.Context, ownerID, categoryID string, patch models.CategoryPatch) (*models.Category, error)
	DeleteCategory(ctx context.Context, ownerID, categoryID string) error
}

// TransactionInput carries the fields of a new transaction. A nil Date means now.
type TransactionInput struct {
	Type        models.TransactionType
	Amount      decimal.Decimal
	Description string
	CategoryID  string
	Date        *time.Time
	Notes       string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Search     string
	Type       *models.TransactionType
	CategoryID *string
	From       *time.Time
	To         *time.Time
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, ownerID string, input TransactionInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, ownerID, transactionID string, patch models.TransactionPatch) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, ownerID, transactionID string) (*models.Transaction, error)
	ListTransactions(ctx context.Context, ownerID string, filter TransactionFilter) ([]models.Transaction, error)
	PageTransactions(ctx context.Context, ownerID string, filter TransactionFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Transaction], error)
}

// CategorySpend is the expense total of one category.
type CategorySpend struct {
	CategoryID    string           `json:"category_id"`
	Name          string           `json:"name"`
	Color         string           `json:"color"`
	Total         decimal.Decimal  `json:"total"`
	BudgetLimit   *decimal.Decimal `json:"budget_limit,omitempty"`
	BudgetUsedPct *float64         `json:"budget_used_pct,omitempty"`
}

// MonthlyTotals holds income and expense totals for one calendar month.
type MonthlyTotals struct {
	Month    string          `json:"month"`
	Income   decimal.Decimal `json:"income"`
	Expenses decimal.Decimal `json:"expenses"`
}

// Summary is the dashboard view over a user's transactions.
type Summary struct {
	TotalIncome   decimal.Decimal `json:"total_income"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetIncome     decimal.Decimal `json:"net_income"`
	SavingsRate   float64         `json:"savings_rate"`
	Categories    []CategorySpend `json:"categories"`
	Monthly       []MonthlyTotals `json:"monthly"`
}

// SummaryServicer defines the contract for dashboard analytics.
type SummaryServicer interface {
	GetSummary(ctx context.Context, ownerID string, filter TransactionFilter) (*Summary, error)
}

// AuditEntry describes one sensitive operation.
type AuditEntry struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	Changes      map[string]any
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(ctx context.Context, entry AuditEntry)
}
