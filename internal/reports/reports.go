// Package reports serves the read-only aggregates: monthly summary, income
// by category, daily expense trend, balances and account statements.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/punchamoorthee/expensemanager/internal/auth"
	"github.com/punchamoorthee/expensemanager/internal/domain"
	"github.com/punchamoorthee/expensemanager/internal/store"
)

const (
	DefaultStatementLimit = 50
	MaxStatementLimit     = 500
	MaxTrendDays          = 366
	defaultTrendDays      = 30
)

// Reader is what the reports need from the store.
type Reader interface {
	store.ReportStore
	GetAccount(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error)
}

type Service struct {
	store Reader
	now   func() time.Time
}

func NewService(r Reader) *Service {
	return &Service{store: r, now: time.Now}
}

// MonthlySummary totals the caller's income and expenses for one month.
func (s *Service) MonthlySummary(ctx context.Context, year, month int) (*domain.MonthlySummary, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	return s.store.MonthlySummary(ctx, owner, year, month)
}

func (s *Service) IncomeByCategory(ctx context.Context, year, month int) ([]domain.CategoryTotal, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateMonth(year, month); err != nil {
		return nil, err
	}
	return s.store.IncomeByCategory(ctx, owner, year, month)
}

// DailyExpenseTrend returns one row per day in [from, to], zero-filled.
// Zero bounds default to the last 30 days.
func (s *Service) DailyExpenseTrend(ctx context.Context, from, to time.Time) ([]domain.DailyTotal, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if to.IsZero() {
		to = s.now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -(defaultTrendDays - 1))
	}
	if to.Before(from) {
		return nil, fmt.Errorf("%w: to is before from", domain.ErrInvalidInput)
	}
	if to.Sub(from) > MaxTrendDays*24*time.Hour {
		return nil, fmt.Errorf("%w: range longer than %d days", domain.ErrInvalidInput, MaxTrendDays)
	}
	return s.store.DailyExpenseTrend(ctx, owner, from, to)
}

func (s *Service) BalancePerAccount(ctx context.Context) ([]domain.AccountBalance, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.BalancePerAccount(ctx, owner)
}

// AccountStatement lists the newest limit transactions on one of the
// caller's accounts.
func (s *Service) AccountStatement(ctx context.Context, accountID uuid.UUID, limit int) (*domain.Account, []domain.StatementLine, error) {
	owner, err := auth.CurrentUser(ctx)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case limit == 0:
		limit = DefaultStatementLimit
	case limit < 0 || limit > MaxStatementLimit:
		return nil, nil, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, MaxStatementLimit)
	}

	account, err := s.store.GetAccount(ctx, accountID, owner)
	if err != nil {
		return nil, nil, err
	}
	lines, err := s.store.AccountStatement(ctx, owner, accountID, limit)
	if err != nil {
		return nil, nil, err
	}
	return account, lines, nil
}

func validateMonth(year, month int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("%w: month must be 1-12", domain.ErrInvalidInput)
	}
	if year < 1900 || year > 9999 {
		return fmt.Errorf("%w: year out of range", domain.ErrInvalidInput)
	}
	return nil
}
