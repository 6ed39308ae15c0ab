package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	apperrors "finwise/internal/errors"
	"finwise/internal/models"
	"finwise/internal/ownership"
)

// trendMonths is how many months with activity the monthly trend keeps.
const trendMonths = 6

var hundred = decimal.NewFromInt(100)

// summaryService computes dashboard analytics.
type summaryService struct {
	db *gorm.DB
}

// NewSummaryService creates a new SummaryServicer.
func NewSummaryService(db *gorm.DB) SummaryServicer {
	return &summaryService{db: db}
}

// GetSummary aggregates ownerID's transactions matching filter. Totals, the
// per-category breakdown and the monthly trend are computed concurrently.
func (s *summaryService) GetSummary(ctx context.Context, ownerID string, filter TransactionFilter) (*Summary, error) {
	summary := &Summary{
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
		Categories:    []CategorySpend{},
		Monthly:       []MonthlyTotals{},
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		income, expenses, err := s.totals(gctx, ownerID, filter)
		if err != nil {
			return err
		}
		summary.TotalIncome, summary.TotalExpenses = income, expenses
		return nil
	})

	g.Go(func() error {
		categories, err := s.expenseBreakdown(gctx, ownerID, filter)
		if err != nil {
			return err
		}
		summary.Categories = categories
		return nil
	})

	g.Go(func() error {
		monthly, err := s.monthlyTrend(gctx, ownerID, filter)
		if err != nil {
			return err
		}
		summary.Monthly = monthly
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	summary.NetIncome = summary.TotalIncome.Sub(summary.TotalExpenses)
	if summary.TotalIncome.IsPositive() {
		summary.SavingsRate = summary.NetIncome.Div(summary.TotalIncome).Mul(hundred).Round(2).InexactFloat64()
	}

	return summary, nil
}

func (s *summaryService) base(ctx context.Context, ownerID string, filter TransactionFilter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Scopes(ownership.BelongsTo(ownerID))
	return applyTransactionFilters(q, filter)
}

func (s *summaryService) totals(ctx context.Context, ownerID string, filter TransactionFilter) (decimal.Decimal, decimal.Decimal, error) {
	var rows []struct {
		Type  models.TransactionType
		Total decimal.Decimal
	}
	err := s.base(ctx, ownerID, filter).
		Select("transactions.type AS type, COALESCE(SUM(transactions.amount), 0) AS total").
		Group("transactions.type").
		Scan(&rows).Error
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	income, expenses := decimal.Zero, decimal.Zero
	for _, row := range rows {
		switch row.Type {
		case models.TransactionTypeIncome:
			income = row.Total.Round(2)
		case models.TransactionTypeExpense:
			expenses = row.Total.Round(2)
		}
	}
	return income, expenses, nil
}

func (s *summaryService) expenseBreakdown(ctx context.Context, ownerID string, filter TransactionFilter) ([]CategorySpend, error) {
	var rows []struct {
		CategoryID  string
		Name        string
		Color       string
		BudgetLimit decimal.NullDecimal
		Total       decimal.Decimal
	}
	err := s.base(ctx, ownerID, filter).
		Joins("JOIN categories ON categories.id = transactions.category_id").
		Where("transactions.type = ?", models.TransactionTypeExpense).
		Select("categories.id AS category_id, categories.name AS name, categories.color AS color, " +
			"categories.budget_limit AS budget_limit, SUM(transactions.amount) AS total").
		Group("categories.id, categories.name, categories.color, categories.budget_limit").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	spends := make([]CategorySpend, 0, len(rows))
	for _, row := range rows {
		spend := CategorySpend{
			CategoryID: row.CategoryID,
			Name:       row.Name,
			Color:      row.Color,
			Total:      row.Total.Round(2),
		}
		if row.BudgetLimit.Valid {
			limit := row.BudgetLimit.Decimal
			spend.BudgetLimit = &limit
			if limit.IsPositive() {
				pct := spend.Total.Div(limit).Mul(hundred).Round(2).InexactFloat64()
				spend.BudgetUsedPct = &pct
			}
		}
		spends = append(spends, spend)
	}

	sort.SliceStable(spends, func(i, j int) bool {
		if c := spends[i].Total.Cmp(spends[j].Total); c != 0 {
			return c > 0
		}
		return spends[i].Name < spends[j].Name
	})
	return spends, nil
}

func (s *summaryService) monthlyTrend(ctx context.Context, ownerID string, filter TransactionFilter) ([]MonthlyTotals, error) {
	var rows []struct {
		Date   time.Time
		Type   models.TransactionType
		Amount decimal.Decimal
	}
	err := s.base(ctx, ownerID, filter).
		Select("transactions.date AS date, transactions.type AS type, transactions.amount AS amount").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	byMonth := make(map[string]*MonthlyTotals)
	for _, row := range rows {
		key := row.Date.UTC().Format("2006-01")
		m, ok := byMonth[key]
		if !ok {
			m = &MonthlyTotals{Month: key, Income: decimal.Zero, Expenses: decimal.Zero}
			byMonth[key] = m
		}
		switch row.Type {
		case models.TransactionTypeIncome:
			m.Income = m.Income.Add(row.Amount)
		case models.TransactionTypeExpense:
			m.Expenses = m.Expenses.Add(row.Amount)
		}
	}

	months := make([]MonthlyTotals, 0, len(byMonth))
	for _, m := range byMonth {
		m.Income = m.Income.Round(2)
		m.Expenses = m.Expenses.Round(2)
		months = append(months, *m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	if len(months) > trendMonths {
		months = months[len(months)-trendMonths:]
	}
	return months, nil
}
